package view

import "sort"

// FilteredView is the ordered set of original line numbers satisfying the
// active rule. It is rebuilt wholesale on rule change and appended to as a
// stream grows; line numbers are strictly increasing throughout.
type FilteredView struct {
	lines []int64
}

// NewFilteredView creates an empty view
func NewFilteredView() *FilteredView {
	return &FilteredView{}
}

// Replace swaps in a freshly built line number sequence
func (v *FilteredView) Replace(lines []int64) {
	v.lines = lines
}

// Append extends the view with matches from newly ingested lines. Only the
// delta is evaluated on stream growth; history is never re-scanned.
func (v *FilteredView) Append(lines []int64) {
	v.lines = append(v.lines, lines...)
}

// Len returns the number of matched lines
func (v *FilteredView) Len() int64 {
	return int64(len(v.lines))
}

// At returns the original line number at a global filtered index
func (v *FilteredView) At(globalIdx int64) (int64, bool) {
	if globalIdx < 0 || globalIdx >= int64(len(v.lines)) {
		return 0, false
	}
	return v.lines[globalIdx], true
}

// Slice returns line numbers for the half-open filtered range [start, end),
// clamped to the view.
func (v *FilteredView) Slice(start, end int64) []int64 {
	if start < 0 {
		start = 0
	}
	if end > int64(len(v.lines)) {
		end = int64(len(v.lines))
	}
	if start >= end {
		return nil
	}
	return v.lines[start:end]
}

// DropLast removes the final entry when it carries the given line number.
// Used when a tailed file's unterminated last line is reopened for growth;
// the completed line is re-evaluated and re-appended by the caller.
func (v *FilteredView) DropLast(lineNum int64) bool {
	if len(v.lines) == 0 || v.lines[len(v.lines)-1] != lineNum {
		return false
	}
	v.lines = v.lines[:len(v.lines)-1]
	return true
}

// PositionOf locates an original line number within the view, returning its
// global filtered index. The second result is false when the line is
// currently filtered out; the index then points at the first filtered line
// after it, which is what prev/next navigation needs.
func (v *FilteredView) PositionOf(lineNum int64) (int64, bool) {
	i := sort.Search(len(v.lines), func(i int) bool {
		return v.lines[i] >= lineNum
	})
	if i < len(v.lines) && v.lines[i] == lineNum {
		return int64(i), true
	}
	return int64(i), false
}

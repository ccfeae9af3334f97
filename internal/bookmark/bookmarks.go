package bookmark

import (
	"sort"

	"github.com/sindng-ui/tailpane/internal/view"
)

// Set holds user bookmarks keyed by original line number. Keying by line
// number is what lets bookmarks survive rule changes: the filtered position
// of a bookmark is resolved against the current view on demand and never
// stored.
type Set struct {
	marks map[int64]struct{}
}

// NewSet creates an empty bookmark set
func NewSet() *Set {
	return &Set{marks: make(map[int64]struct{})}
}

// Toggle flips the bookmark on an original line number, reporting whether
// the line is bookmarked afterwards.
func (s *Set) Toggle(lineNum int64) bool {
	if _, ok := s.marks[lineNum]; ok {
		delete(s.marks, lineNum)
		return false
	}
	s.marks[lineNum] = struct{}{}
	return true
}

// Has reports whether a line is bookmarked
func (s *Set) Has(lineNum int64) bool {
	_, ok := s.marks[lineNum]
	return ok
}

// Clear removes all bookmarks
func (s *Set) Clear() {
	s.marks = make(map[int64]struct{})
}

// Count returns the number of bookmarks
func (s *Set) Count() int {
	return len(s.marks)
}

// All returns the bookmarked line numbers in ascending order
func (s *Set) All() []int64 {
	out := make([]int64, 0, len(s.marks))
	for line := range s.marks {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Hit is a resolved navigation target
type Hit struct {
	LineNum   int64
	GlobalIdx int64
	Wrapped   bool
}

// Next returns the first bookmark positioned after the given global filtered
// index, wrapping to the earliest bookmark when none follows. Positions are
// looked up against the current view at call time.
func (s *Set) Next(afterGlobalIdx int64, v *view.FilteredView) (Hit, bool) {
	marks := s.All()
	if len(marks) == 0 {
		return Hit{}, false
	}

	best, ok := Hit{}, false
	for _, line := range marks {
		idx, _ := v.PositionOf(line)
		if idx > afterGlobalIdx && idx < v.Len() {
			if !ok || idx < best.GlobalIdx {
				best, ok = Hit{LineNum: line, GlobalIdx: idx}, true
			}
		}
	}
	if ok {
		return best, true
	}

	// Wrap to the earliest positioned bookmark
	for _, line := range marks {
		idx, _ := v.PositionOf(line)
		if idx < v.Len() {
			if !ok || idx < best.GlobalIdx {
				best, ok = Hit{LineNum: line, GlobalIdx: idx, Wrapped: true}, true
			}
		}
	}
	return best, ok
}

// Prev returns the last bookmark positioned before the given global filtered
// index, wrapping to the latest bookmark when none precedes it.
func (s *Set) Prev(beforeGlobalIdx int64, v *view.FilteredView) (Hit, bool) {
	marks := s.All()
	if len(marks) == 0 {
		return Hit{}, false
	}

	best, ok := Hit{}, false
	for _, line := range marks {
		idx, _ := v.PositionOf(line)
		if idx < beforeGlobalIdx && idx < v.Len() {
			if !ok || idx > best.GlobalIdx {
				best, ok = Hit{LineNum: line, GlobalIdx: idx}, true
			}
		}
	}
	if ok {
		return best, true
	}

	for _, line := range marks {
		idx, _ := v.PositionOf(line)
		if idx < v.Len() {
			if !ok || idx > best.GlobalIdx {
				best, ok = Hit{LineNum: line, GlobalIdx: idx, Wrapped: true}, true
			}
		}
	}
	return best, ok
}

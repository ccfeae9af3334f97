package view

// MaxSegmentSize caps how many filtered lines one segment addresses. The
// ceiling comes from the renderer: segment line count times row height must
// stay under its maximum addressable extent.
const MaxSegmentSize = 1_350_000

// Segment is a bounded window over the filtered line sequence. Segments
// carry no identity beyond their offset window.
type Segment struct {
	Index       int
	GlobalStart int64
	LineCount   int64
}

// Segmenter partitions a filtered view into fixed-size windows. Callers
// address lines by global filtered index; segmentation is invisible to
// bookmarks, search and go-to-line.
type Segmenter struct {
	total   int64
	maxSize int64
}

// NewSegmenter creates a segmenter over a view of the given length
func NewSegmenter(totalLines int64) *Segmenter {
	return &Segmenter{total: totalLines, maxSize: MaxSegmentSize}
}

// Resize updates the view length the segmenter partitions
func (s *Segmenter) Resize(totalLines int64) {
	s.total = totalLines
}

// SegmentCount returns how many windows cover the view
func (s *Segmenter) SegmentCount() int {
	if s.total == 0 {
		return 1
	}
	return int((s.total + s.maxSize - 1) / s.maxSize)
}

// LinesInSegment returns the line count of segment i
func (s *Segmenter) LinesInSegment(i int) int64 {
	if i < 0 || i >= s.SegmentCount() {
		return 0
	}
	start := int64(i) * s.maxSize
	remaining := s.total - start
	if remaining > s.maxSize {
		return s.maxSize
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GlobalStart returns the global filtered index where segment i begins
func (s *Segmenter) GlobalStart(i int) int64 {
	return int64(i) * s.maxSize
}

// Segment returns the full descriptor for segment i
func (s *Segmenter) Segment(i int) Segment {
	return Segment{
		Index:       i,
		GlobalStart: s.GlobalStart(i),
		LineCount:   s.LinesInSegment(i),
	}
}

// Locate resolves a global filtered index to its segment and in-segment
// offset, for restoring scroll positions across segment boundaries.
func (s *Segmenter) Locate(globalIdx int64) (segment int, offset int64) {
	if globalIdx < 0 {
		return 0, 0
	}
	segment = int(globalIdx / s.maxSize)
	if max := s.SegmentCount() - 1; segment > max {
		segment = max
	}
	return segment, globalIdx - int64(segment)*s.maxSize
}

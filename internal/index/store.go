package index

// Store is the read side of a line source: the index holds byte ranges,
// a Store yields the bytes. Mapped files and the in-memory stream store
// both satisfy it.
type Store interface {
	ReadRange(start, end int64) ([]byte, error)
}

// MemoryStore is the append-only byte store backing a live stream pane.
// Offsets line up with the LineIndex fed from the same flushes.
type MemoryStore struct {
	buf []byte
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a flushed batch
func (s *MemoryStore) Append(b []byte) {
	s.buf = append(s.buf, b...)
}

// ReadRange returns the bytes in [start, end), clamped to stored content
func (s *MemoryStore) ReadRange(start, end int64) ([]byte, error) {
	if end > int64(len(s.buf)) {
		end = int64(len(s.buf))
	}
	if start < 0 || start >= end {
		return nil, nil
	}
	return s.buf[start:end], nil
}

// Size returns the number of stored bytes
func (s *MemoryStore) Size() int64 {
	return int64(len(s.buf))
}

package index

import (
	"bytes"
	"strings"
	"testing"
)

func TestIngestBasic(t *testing.T) {
	ix := NewLineIndex()
	delta := ix.Ingest([]byte("alpha\nbeta\ngamma\n"))

	if got := len(delta.NewLines); got != 3 {
		t.Fatalf("delta lines = %d, want 3", got)
	}
	if got := ix.LineCount(); got != 3 {
		t.Fatalf("LineCount = %d, want 3", got)
	}

	want := []Record{
		{Offset: 0, Length: 5},
		{Offset: 6, Length: 4},
		{Offset: 11, Length: 5},
	}
	for i, w := range want {
		rec, ok := ix.Record(int64(i + 1))
		if !ok || rec != w {
			t.Errorf("Record(%d) = %+v, %v; want %+v", i+1, rec, ok, w)
		}
	}
}

func TestIngestCarriesUnterminatedTail(t *testing.T) {
	ix := NewLineIndex()

	delta := ix.Ingest([]byte("first\nsec"))
	if len(delta.NewLines) != 1 {
		t.Fatalf("first ingest: %d lines, want 1", len(delta.NewLines))
	}
	if ix.PendingCarry() != 3 {
		t.Fatalf("PendingCarry = %d, want 3", ix.PendingCarry())
	}

	delta = ix.Ingest([]byte("ond\nthird"))
	if len(delta.NewLines) != 1 {
		t.Fatalf("second ingest: %d lines, want 1", len(delta.NewLines))
	}
	rec, _ := ix.Record(2)
	if rec.Offset != 6 || rec.Length != 6 {
		t.Errorf("carried line record = %+v, want {6 6}", rec)
	}

	delta = ix.Finish()
	if len(delta.NewLines) != 1 {
		t.Fatalf("Finish: %d lines, want 1", len(delta.NewLines))
	}
	rec, _ = ix.Record(3)
	if rec.Offset != 13 || rec.Length != 5 {
		t.Errorf("final line record = %+v, want {13 5}", rec)
	}
	if ix.PendingCarry() != 0 {
		t.Errorf("carry not drained after Finish")
	}
}

func TestIngestCRLF(t *testing.T) {
	ix := NewLineIndex()
	ix.Ingest([]byte("win\r\nline\n"))

	rec, _ := ix.Record(1)
	if rec.Length != 3 {
		t.Errorf("CRLF line length = %d, want 3 (CR trimmed)", rec.Length)
	}
	rec, _ = ix.Record(2)
	if rec.Length != 4 {
		t.Errorf("LF line length = %d, want 4", rec.Length)
	}
}

func TestIngestEmptyLines(t *testing.T) {
	ix := NewLineIndex()
	ix.Ingest([]byte("\n\n\n"))
	if got := ix.LineCount(); got != 3 {
		t.Fatalf("LineCount = %d, want 3", got)
	}
	for i := int64(1); i <= 3; i++ {
		rec, _ := ix.Record(i)
		if rec.Length != 0 {
			t.Errorf("line %d length = %d, want 0", i, rec.Length)
		}
	}
}

func TestDecodeWarnings(t *testing.T) {
	ix := NewLineIndex()
	ix.Ingest([]byte("good line\n"))
	ix.Ingest([]byte{'b', 'a', 'd', 0xFF, 0xFE, '\n'})
	ix.Ingest([]byte("another good one\n"))

	if got := ix.DecodeWarnings(); got != 1 {
		t.Errorf("DecodeWarnings = %d, want 1", got)
	}
}

func TestSplitRuneAcrossIngestIsNotAWarning(t *testing.T) {
	// "héllo\n" with the two-byte é split across calls
	full := []byte("h\xc3\xa9llo\n")
	ix := NewLineIndex()
	ix.Ingest(full[:2])
	ix.Ingest(full[2:])

	if got := ix.DecodeWarnings(); got != 0 {
		t.Errorf("DecodeWarnings = %d, want 0 for a split rune", got)
	}
	if got := ix.LineCount(); got != 1 {
		t.Errorf("LineCount = %d, want 1", got)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name         string
		raw          []byte
		want         string
		wantReplaced int
	}{
		{"clean ascii", []byte("hello"), "hello", 0},
		{"clean utf8", []byte("héllo"), "héllo", 0},
		{"single bad byte", []byte{'a', 0xFF, 'b'}, "a�b", 1},
		{"two bad bytes", []byte{0xFF, 0xFE}, "��", 2},
		{"empty", nil, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, replaced := Sanitize(tt.raw)
			if got != tt.want || replaced != tt.wantReplaced {
				t.Errorf("Sanitize = %q, %d; want %q, %d", got, replaced, tt.want, tt.wantReplaced)
			}
		})
	}
}

// readerAt adapts an in-memory byte slice to the scan interface
type readerAt struct{ b []byte }

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, r.b[off:]), nil
}

func (r readerAt) Size() int64 { return int64(len(r.b)) }

func TestScanFrom(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 1000; i++ {
		buf.WriteString(strings.Repeat("x", i%80))
		buf.WriteString("\n")
	}
	buf.WriteString("unterminated tail")

	ix := NewLineIndex()
	var lastPct int
	err := ix.ScanFrom(readerAt{buf.Bytes()}, 0, func(pct int) { lastPct = pct })
	if err != nil {
		t.Fatal(err)
	}
	if got := ix.LineCount(); got != 1001 {
		t.Errorf("LineCount = %d, want 1001", got)
	}
	if lastPct != 100 {
		t.Errorf("final progress = %d, want 100", lastPct)
	}
	rec, _ := ix.Record(1001)
	if rec.Length != int32(len("unterminated tail")) {
		t.Errorf("tail length = %d", rec.Length)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	s.Append([]byte("hello "))
	s.Append([]byte("world"))

	got, err := s.ReadRange(6, 11)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "world" {
		t.Errorf("ReadRange = %q, want %q", got, "world")
	}

	// Clamped past the end
	got, _ = s.ReadRange(6, 100)
	if string(got) != "world" {
		t.Errorf("clamped ReadRange = %q", got)
	}
	if s.Size() != 11 {
		t.Errorf("Size = %d, want 11", s.Size())
	}
}

func TestReopenContinuesUnterminatedTail(t *testing.T) {
	ix := NewLineIndex()
	ix.Ingest([]byte("first\npar"))
	ix.Finish()

	if !ix.TailUnterminated() {
		t.Fatal("flushed carry not marked unterminated")
	}
	if !ix.Reopen([]byte("par")) {
		t.Fatal("Reopen refused the flushed tail")
	}
	if ix.TailUnterminated() {
		t.Error("tail still marked unterminated after Reopen")
	}
	if got := ix.LineCount(); got != 1 {
		t.Fatalf("LineCount after Reopen = %d, want 1", got)
	}

	delta := ix.Ingest([]byte("tial\nlast\n"))
	if len(delta.NewLines) != 2 {
		t.Fatalf("delta = %+v", delta)
	}
	want := []Record{{Offset: 6, Length: 7}, {Offset: 14, Length: 4}}
	for i, rec := range delta.NewLines {
		if rec != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, rec, want[i])
		}
	}
	if ix.TailUnterminated() {
		t.Error("terminated final line marked unterminated")
	}

	if NewLineIndex().Reopen([]byte("x")) {
		t.Error("Reopen on an empty index")
	}
}

package index

import (
	"bytes"
	"unicode/utf8"
)

// Record locates one line inside its source. LineNum is implicit: the i-th
// record is line i+1. Length excludes the line terminator.
type Record struct {
	Offset int64
	Length int32
}

// Delta reports what one Ingest call appended
type Delta struct {
	NewLines []Record
}

// LineIndex maps line numbers to byte ranges. The table is append-only:
// records are pushed as bytes arrive and never mutated or reordered.
type LineIndex struct {
	records []Record
	pos     int64 // absolute offset of the next unseen byte
	carry   []byte
	warns   int
	// tailOpen marks the last record as an unterminated final line flushed
	// by Finish. Growth of the source continues that line, not a new one.
	tailOpen bool
}

// NewLineIndex creates an empty index
func NewLineIndex() *LineIndex {
	return &LineIndex{}
}

// Ingest splits incoming bytes on '\n', appending a record per completed
// line. An unterminated tail is carried into the next call. Incomplete
// multi-byte sequences at a call boundary therefore stay in the carry until
// the rest of the line arrives; malformed bytes inside a completed line are
// counted, not rejected.
func (ix *LineIndex) Ingest(b []byte) Delta {
	var delta Delta
	if len(b) > 0 {
		ix.tailOpen = false
	}
	for len(b) > 0 {
		nl := bytes.IndexByte(b, '\n')
		if nl < 0 {
			ix.carry = append(ix.carry, b...)
			break
		}

		lineLen := len(ix.carry) + nl
		rec := Record{
			Offset: ix.pos,
			Length: int32(trimCR(lineLen, ix.carry, b[:nl])),
		}
		ix.countInvalid(ix.carry, b[:nl])
		ix.records = append(ix.records, rec)
		delta.NewLines = append(delta.NewLines, rec)

		ix.pos += int64(lineLen) + 1
		ix.carry = ix.carry[:0]
		b = b[nl+1:]
	}
	return delta
}

// Finish flushes a non-empty carry as a final unterminated line
func (ix *LineIndex) Finish() Delta {
	if len(ix.carry) == 0 {
		return Delta{}
	}
	rec := Record{Offset: ix.pos, Length: int32(len(ix.carry))}
	ix.countInvalid(ix.carry, nil)
	ix.records = append(ix.records, rec)
	ix.pos += int64(len(ix.carry))
	ix.carry = ix.carry[:0]
	ix.tailOpen = true
	return Delta{NewLines: []Record{rec}}
}

// TailUnterminated reports whether the final record is an unterminated
// line flushed by Finish.
func (ix *LineIndex) TailUnterminated() bool {
	return ix.tailOpen
}

// Reopen pulls the final unterminated record back into the carry so the
// next Ingest extends that line instead of starting a new one. raw must be
// the bytes of that record. Reports whether a record was reopened.
func (ix *LineIndex) Reopen(raw []byte) bool {
	if !ix.tailOpen || len(ix.records) == 0 {
		return false
	}
	last := ix.records[len(ix.records)-1]
	ix.records = ix.records[:len(ix.records)-1]
	ix.pos = last.Offset
	ix.carry = append(ix.carry[:0], raw...)
	ix.tailOpen = false
	// Finish counted the tail once; the completed line is counted again
	if !utf8.Valid(raw) {
		ix.warns--
	}
	return true
}

// trimCR shrinks the length by one when the line ends in '\r'
func trimCR(lineLen int, carry, rest []byte) int {
	if lineLen == 0 {
		return 0
	}
	var last byte
	if len(rest) > 0 {
		last = rest[len(rest)-1]
	} else {
		last = carry[len(carry)-1]
	}
	if last == '\r' {
		return lineLen - 1
	}
	return lineLen
}

func (ix *LineIndex) countInvalid(carry, rest []byte) {
	if utf8.Valid(carry) && utf8.Valid(rest) && !splitRune(carry, rest) {
		return
	}
	full := make([]byte, 0, len(carry)+len(rest))
	full = append(full, carry...)
	full = append(full, rest...)
	if !utf8.Valid(full) {
		ix.warns++
	}
}

// splitRune reports whether a multi-byte sequence may straddle carry and rest
func splitRune(carry, rest []byte) bool {
	return len(carry) > 0 && len(rest) > 0 && rest[0]&0xC0 == 0x80
}

// LineCount returns the number of indexed lines
func (ix *LineIndex) LineCount() int64 {
	return int64(len(ix.records))
}

// Record returns the record for a 1-based line number
func (ix *LineIndex) Record(lineNum int64) (Record, bool) {
	if lineNum < 1 || lineNum > int64(len(ix.records)) {
		return Record{}, false
	}
	return ix.records[lineNum-1], true
}

// Records returns the record table for the half-open line range [from, to),
// 1-based. Out-of-range bounds are clamped.
func (ix *LineIndex) Records(from, to int64) []Record {
	if from < 1 {
		from = 1
	}
	if to > int64(len(ix.records))+1 {
		to = int64(len(ix.records)) + 1
	}
	if from >= to {
		return nil
	}
	return ix.records[from-1 : to-1]
}

// IndexedBytes returns the absolute offset of the next unseen byte
func (ix *LineIndex) IndexedBytes() int64 {
	return ix.pos
}

// PendingCarry returns the number of carried, not yet indexed bytes
func (ix *LineIndex) PendingCarry() int {
	return len(ix.carry)
}

// DecodeWarnings returns how many lines contained undecodable bytes.
// Recovery is local: bad bytes are replaced at render time, never fatal.
func (ix *LineIndex) DecodeWarnings() int {
	return ix.warns
}

// Sanitize decodes raw line bytes, replacing invalid sequences with U+FFFD.
// The second result is the number of replacements made.
func Sanitize(raw []byte) (string, int) {
	if utf8.Valid(raw) {
		return string(raw), 0
	}
	var sb bytes.Buffer
	sb.Grow(len(raw))
	replaced := 0
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
			replaced++
		} else {
			sb.Write(raw[:size])
		}
		raw = raw[size:]
	}
	return sb.String(), replaced
}

package index

import "io"

// scanChunkSize bounds how much of a file is resident per read while
// indexing, so multi-gigabyte files never load wholesale.
const scanChunkSize = 256 * 1024

// ReaderAtSize is the slice of a mapped file the scanner needs
type ReaderAtSize interface {
	io.ReaderAt
	Size() int64
}

// ScanFrom feeds the byte range [from, size) of a file through Ingest in
// bounded chunks. progress, when non-nil, receives 0-100. A final
// unterminated line is flushed so whole-file indexes cover every byte.
func (ix *LineIndex) ScanFrom(f ReaderAtSize, from int64, progress func(pct int)) error {
	size := f.Size()
	buf := make([]byte, scanChunkSize)

	lastPct := -1
	for pos := from; pos < size; {
		n := scanChunkSize
		if pos+int64(n) > size {
			n = int(size - pos)
		}

		read, err := f.ReadAt(buf[:n], pos)
		if err != nil && err != io.EOF {
			return err
		}

		ix.Ingest(buf[:read])
		pos += int64(read)

		if progress != nil {
			pct := int(pos * 100 / size)
			if pct != lastPct {
				progress(pct)
				lastPct = pct
			}
		}
	}

	ix.Finish()
	return nil
}

package engine

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/sindng-ui/tailpane/internal/filter"
	"github.com/sindng-ui/tailpane/internal/index"
)

// filterChunkSize bounds how many file bytes a worker holds at once
const filterChunkSize = 256 * 1024

// chunkResult is one worker's output: sparse relative line numbers plus the
// chunk's total line count. Results are merged in chunk index order no
// matter when workers finish.
type chunkResult struct {
	matches   []int64 // 0-based, relative to the chunk
	lineCount int64
	err       error
}

// filterParallel fans the byte range of f out to workers, one contiguous
// chunk each, and merges their sparse matches into global 1-based line
// numbers. The merged sequence is identical to a single-threaded pass.
func filterParallel(ctx context.Context, f index.ReaderAtSize, rule *filter.CompiledRule, bypassShell bool, workers int) ([]int64, int64, error) {
	size := f.Size()
	starts, err := chunkStarts(f, size, workers)
	if err != nil {
		return nil, 0, err
	}

	results := make([]chunkResult, len(starts))
	var wg sync.WaitGroup
	for i := range starts {
		end := size
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		wg.Add(1)
		go func(id int, start, end int64) {
			defer wg.Done()
			results[id] = filterRange(ctx, f, start, end, rule, bypassShell)
		}(i, starts[i], end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	var merged []int64
	for _, res := range results {
		if res.err != nil {
			return nil, 0, res.err
		}
		for _, rel := range res.matches {
			merged = append(merged, total+rel+1)
		}
		total += res.lineCount
	}
	return merged, total, nil
}

// filterSequential runs the same pass on a single goroutine, used below the
// chunking threshold and as the oracle the parallel path must agree with.
func filterSequential(ctx context.Context, f index.ReaderAtSize, rule *filter.CompiledRule, bypassShell bool) ([]int64, int64, error) {
	res := filterRange(ctx, f, 0, f.Size(), rule, bypassShell)
	if res.err != nil {
		return nil, 0, res.err
	}
	matches := make([]int64, len(res.matches))
	for i, rel := range res.matches {
		matches[i] = rel + 1
	}
	return matches, res.lineCount, nil
}

// filterRange indexes [start, end) into relative line numbers and applies
// the rule to each line. A final unterminated line counts as a line.
func filterRange(ctx context.Context, f io.ReaderAt, start, end int64, rule *filter.CompiledRule, bypassShell bool) chunkResult {
	var res chunkResult
	var carry []byte
	buf := make([]byte, filterChunkSize)

	apply := func(raw []byte) {
		raw = bytes.TrimSuffix(raw, []byte{'\r'})
		line, _ := index.Sanitize(raw)
		if rule.Match(line, bypassShell) {
			res.matches = append(res.matches, res.lineCount)
		}
		res.lineCount++
	}

	for pos := start; pos < end; {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		n := filterChunkSize
		if pos+int64(n) > end {
			n = int(end - pos)
		}
		read, err := f.ReadAt(buf[:n], pos)
		if err != nil && err != io.EOF {
			res.err = err
			return res
		}

		chunk := buf[:read]
		for {
			nl := bytes.IndexByte(chunk, '\n')
			if nl < 0 {
				carry = append(carry, chunk...)
				break
			}
			if len(carry) > 0 {
				carry = append(carry, chunk[:nl]...)
				apply(carry)
				carry = carry[:0]
			} else {
				apply(chunk[:nl])
			}
			chunk = chunk[nl+1:]
		}
		pos += int64(read)
		if read == 0 {
			break
		}
	}

	if len(carry) > 0 {
		apply(carry)
	}
	return res
}

// chunkStarts computes contiguous, non-overlapping chunk start offsets with
// every boundary snapped forward to a line start, so no worker sees a torn
// line.
func chunkStarts(f io.ReaderAt, size int64, workers int) ([]int64, error) {
	if workers < 1 {
		workers = 1
	}
	starts := []int64{0}
	buf := make([]byte, 4096)

	for i := 1; i < workers; i++ {
		nominal := size * int64(i) / int64(workers)
		boundary, err := nextLineStart(f, nominal, size, buf)
		if err != nil {
			return nil, err
		}
		if boundary > starts[len(starts)-1] && boundary < size {
			starts = append(starts, boundary)
		}
	}
	return starts, nil
}

// nextLineStart returns the offset just past the first '\n' at or after pos
func nextLineStart(f io.ReaderAt, pos, size int64, buf []byte) (int64, error) {
	for pos < size {
		n := len(buf)
		if pos+int64(n) > size {
			n = int(size - pos)
		}
		read, err := f.ReadAt(buf[:n], pos)
		if err != nil && err != io.EOF {
			return 0, err
		}
		if idx := bytes.IndexByte(buf[:read], '\n'); idx >= 0 {
			return pos + int64(idx) + 1, nil
		}
		pos += int64(read)
		if read == 0 {
			break
		}
	}
	return size, nil
}

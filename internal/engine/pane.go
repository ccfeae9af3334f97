package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sindng-ui/tailpane/internal/bookmark"
	"github.com/sindng-ui/tailpane/internal/filter"
	"github.com/sindng-ui/tailpane/internal/index"
	tio "github.com/sindng-ui/tailpane/internal/io"
	"github.com/sindng-ui/tailpane/internal/stream"
	"github.com/sindng-ui/tailpane/internal/view"
	"github.com/sindng-ui/tailpane/pkg/logformat"
)

// ErrNoSource is returned for line queries before a source is attached
var ErrNoSource = errors.New("no source attached")

// ErrPaneClosed is returned for operations on a closed pane
var ErrPaneClosed = errors.New("pane closed")

// LineOut is the query result the UI renders: original line number plus
// decoded content.
type LineOut struct {
	LineNum int64
	Content string
}

// Position resolves a global filtered index into the segment scheme
type Position struct {
	GlobalIdx int64
	Segment   int
	Offset    int64
}

// FindResult reports a find-text hit. Wrapped is true when the match was
// found only after retrying from the opposite end.
type FindResult struct {
	LineNum   int64
	GlobalIdx int64
	Wrapped   bool
}

// Options tunes a pane. Zero fields take defaults.
type Options struct {
	ChunkThreshold int64
	MaxWorkers     int
	Stream         stream.Config
	TailPoll       time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChunkThreshold <= 0 {
		o.ChunkThreshold = 4 * 1024 * 1024
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = runtime.NumCPU()
	}
	if o.MaxWorkers > 8 {
		o.MaxWorkers = 8
	}
	return o
}

// Pane owns one source with its line index, filtered view, segmenter and
// bookmark set. Two panes run side by side and share nothing mutable; an
// error in one never corrupts or stalls the other.
//
// Static-file filtering fans out to parallel chunk workers; live ingestion
// is strictly sequential per pane to preserve fragment order.
type Pane struct {
	id   string
	opts Options
	emit func(Event)

	mu          sync.Mutex
	file        *tio.MappedFile
	mem         *index.MemoryStore
	store       index.Store
	idx         *index.LineIndex
	fview       *view.FilteredView
	seg         *view.Segmenter
	marks       *bookmark.Set
	rule        filter.Rule
	compiled    *filter.CompiledRule
	bypassShell bool
	ready       bool
	warns       int
	generation  uint64
	sourceSeq   uint64
	cancelPass  context.CancelFunc
	cancelTail  context.CancelFunc
	buffer      *stream.Buffer
	closed      bool

	tsParser *logformat.TimestampParser
}

// NewPane creates an empty pane. emit receives status events and must not
// block; it may be called from pane-internal goroutines.
func NewPane(id string, opts Options, emit func(Event)) *Pane {
	return &Pane{
		id:       id,
		opts:     opts.withDefaults(),
		emit:     emit,
		fview:    view.NewFilteredView(),
		seg:      view.NewSegmenter(0),
		marks:    bookmark.NewSet(),
		compiled: filter.Compile(filter.Rule{}),
		tsParser: logformat.NewTimestampParser(),
	}
}

// ID returns the pane identifier used in events
func (p *Pane) ID() string {
	return p.id
}

func (p *Pane) notify(ev Event) {
	if p.emit != nil {
		p.emit(ev)
	}
}

// AttachFile resets the pane and indexes the file off-thread. Ready and
// filter-complete events follow; queries are valid as soon as Ready fires.
func (p *Pane) AttachFile(path string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPaneClosed
	}
	p.resetLocked()

	f, err := tio.OpenMapped(path)
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("attach %s: %w", path, err)
	}
	seq := p.sourceSeq
	p.mu.Unlock()

	// The mapping is installed only once indexing succeeds; a reset racing
	// the build just orphans the file, which the builder then closes.
	go p.buildFileIndex(f, seq)
	return nil
}

// AttachStream resets the pane for live shell ingestion. Fragments pushed
// via PushFragment accumulate in the stream buffer and flush on its
// size-or-time trigger.
func (p *Pane) AttachStream() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPaneClosed
	}
	p.resetLocked()

	p.mem = index.NewMemoryStore()
	p.store = p.mem
	p.idx = index.NewLineIndex()
	p.bypassShell = true
	p.ready = true
	seq := p.sourceSeq
	p.buffer = stream.NewBuffer(p.opts.Stream, func(batch []byte) { p.ingestBatch(seq, batch) })
	p.notify(ReadyEvent{eventBase{p.id}, 0})
	return nil
}

// PushFragment queues one raw text fragment from the shell transport
func (p *Pane) PushFragment(fragment string) {
	p.mu.Lock()
	buf := p.buffer
	p.mu.Unlock()
	if buf != nil {
		buf.Push(fragment)
	}
}

// Follow tails the attached file, applying growth through the stream
// buffer's batching. Returns a stop function.
func (p *Pane) Follow() (func(), error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPaneClosed
	}
	if p.file == nil {
		p.mu.Unlock()
		return nil, ErrNoSource
	}
	if p.cancelTail != nil {
		p.mu.Unlock()
		return func() {}, nil
	}
	if p.buffer == nil {
		seq := p.sourceSeq
		p.buffer = stream.NewBuffer(p.opts.Stream, func(batch []byte) { p.ingestBatch(seq, batch) })
	}
	buf := p.buffer
	path := p.file.Path()
	offset := p.file.Size()
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelTail = cancel
	p.mu.Unlock()

	tail := stream.NewTailSource(path, offset, p.opts.TailPoll, func(fragment []byte) {
		buf.Push(string(fragment))
	})
	go func() {
		if err := tail.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.notify(SourceErrorEvent{eventBase{p.id}, err})
		}
	}()

	stop := func() {
		p.mu.Lock()
		if p.cancelTail != nil {
			p.cancelTail()
			p.cancelTail = nil
		}
		p.mu.Unlock()
	}
	return stop, nil
}

// ingestBatch applies one stream flush: extend the store, index the new
// bytes, evaluate only the delta against the current rule, and append the
// matches. Runs serialized on the buffer's flush goroutine.
func (p *Pane) ingestBatch(seq uint64, batch []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// A stale buffer draining after a reset must never touch the new source
	if p.closed || p.idx == nil || p.sourceSeq != seq {
		return
	}

	if p.mem != nil {
		p.mem.Append(batch)
	} else if p.file != nil {
		if _, _, err := p.file.Refresh(); err != nil {
			p.notify(SourceErrorEvent{eventBase{p.id}, err})
			return
		}
		// A final line indexed without a terminator continues here rather
		// than on a new line. Reopen it so the index stays identical to a
		// fresh scan of the grown file, which re-filter passes rely on.
		if p.idx.TailUnterminated() {
			last := p.idx.LineCount()
			if rec, ok := p.idx.Record(last); ok {
				raw, err := p.store.ReadRange(rec.Offset, rec.Offset+int64(rec.Length))
				if err != nil {
					p.notify(SourceErrorEvent{eventBase{p.id}, err})
					return
				}
				p.idx.Reopen(raw)
				if p.fview.DropLast(last) {
					p.seg.Resize(p.fview.Len())
				}
			}
		}
	}

	delta := p.idx.Ingest(batch)
	if len(delta.NewLines) == 0 {
		return
	}

	base := p.idx.LineCount() - int64(len(delta.NewLines))
	var matches []int64
	for i, rec := range delta.NewLines {
		lineNum := base + int64(i) + 1
		raw, err := p.store.ReadRange(rec.Offset, rec.Offset+int64(rec.Length))
		if err != nil {
			p.notify(SourceErrorEvent{eventBase{p.id}, err})
			return
		}
		line, _ := index.Sanitize(raw)
		if p.compiled.Match(line, p.bypassShell) {
			matches = append(matches, lineNum)
		}
	}
	p.fview.Append(matches)
	p.seg.Resize(p.fview.Len())

	if w := p.idx.DecodeWarnings(); w != p.warns {
		p.warns = w
		p.notify(DecodeWarningsEvent{eventBase{p.id}, w})
	}
	p.notify(AppendedEvent{eventBase{p.id}, p.idx.LineCount(), p.fview.Len()})
}

// buildFileIndex scans the file into a fresh line table, installs it if the
// pane has not been reset meanwhile, and kicks the first filter pass.
func (p *Pane) buildFileIndex(f *tio.MappedFile, seq uint64) {
	ix := index.NewLineIndex()
	err := ix.ScanFrom(f, 0, func(pct int) {
		p.notify(ProgressEvent{eventBase{p.id}, pct})
	})

	p.mu.Lock()
	if p.sourceSeq != seq || p.closed {
		p.mu.Unlock()
		f.Close()
		return
	}
	if err != nil {
		p.mu.Unlock()
		f.Close()
		p.notify(SourceErrorEvent{eventBase{p.id}, err})
		return
	}
	p.file = f
	p.store = f
	p.idx = ix
	p.ready = true
	p.warns = ix.DecodeWarnings()
	lineCount := ix.LineCount()
	warns := p.warns
	gen := p.generation
	p.mu.Unlock()

	p.notify(ReadyEvent{eventBase{p.id}, lineCount})
	if warns > 0 {
		p.notify(DecodeWarningsEvent{eventBase{p.id}, warns})
	}
	p.startFilterPass(gen)
}

// ApplyRule replaces the active rule. The previous pass, if still running,
// is cancelled and its results are dropped as stale.
func (p *Pane) ApplyRule(rule filter.Rule) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPaneClosed
	}
	p.rule = rule.Normalize()
	p.compiled = filter.Compile(p.rule)
	p.generation++
	gen := p.generation
	if p.cancelPass != nil {
		p.cancelPass()
		p.cancelPass = nil
	}
	ready := p.ready
	p.mu.Unlock()

	if ready {
		p.startFilterPass(gen)
	}
	return nil
}

// Rule returns the active (normalized) rule
func (p *Pane) Rule() filter.Rule {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rule
}

// startFilterPass rebuilds the filtered view for the given generation on a
// worker goroutine. Stale generations are dropped on completion.
func (p *Pane) startFilterPass(gen uint64) {
	p.mu.Lock()
	if p.closed || p.generation != gen || !p.ready {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelPass = cancel
	compiled := p.compiled
	bypass := p.bypassShell
	file := p.file
	ix := p.idx
	st := p.store
	p.mu.Unlock()

	go func() {
		defer cancel()
		var matches []int64
		var err error

		switch {
		case file != nil && file.Size() >= p.opts.ChunkThreshold:
			matches, _, err = filterParallel(ctx, file, compiled, bypass, p.opts.MaxWorkers)
		case file != nil:
			matches, _, err = filterSequential(ctx, file, compiled, bypass)
		default:
			matches, err = filterIndexed(ctx, ix, st, compiled, bypass)
		}

		if err != nil {
			if !errors.Is(err, context.Canceled) {
				p.notify(SourceErrorEvent{eventBase{p.id}, err})
			}
			return
		}

		p.mu.Lock()
		if p.generation != gen || p.closed {
			p.mu.Unlock()
			return
		}
		p.fview.Replace(matches)
		p.seg.Resize(p.fview.Len())
		count := p.fview.Len()
		p.mu.Unlock()

		p.notify(FilterDoneEvent{eventBase{p.id}, count, gen})
	}()
}

// filterIndexed evaluates every indexed line through the store. Used for
// stream panes, whose bytes live in memory rather than a file.
func filterIndexed(ctx context.Context, ix *index.LineIndex, st index.Store, rule *filter.CompiledRule, bypassShell bool) ([]int64, error) {
	var matches []int64
	total := ix.LineCount()
	for lineNum := int64(1); lineNum <= total; lineNum++ {
		if lineNum%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, _ := ix.Record(lineNum)
		raw, err := st.ReadRange(rec.Offset, rec.Offset+int64(rec.Length))
		if err != nil {
			return nil, err
		}
		line, _ := index.Sanitize(raw)
		if rule.Match(line, bypassShell) {
			matches = append(matches, lineNum)
		}
	}
	return matches, nil
}

// Lines returns up to count lines starting at a global filtered index
func (p *Pane) Lines(startGlobalIdx, count int64) ([]LineOut, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx == nil {
		return nil, ErrNoSource
	}

	nums := p.fview.Slice(startGlobalIdx, startGlobalIdx+count)
	out := make([]LineOut, 0, len(nums))
	for _, lineNum := range nums {
		line, err := p.readLineLocked(lineNum)
		if err != nil {
			return nil, err
		}
		out = append(out, LineOut{LineNum: lineNum, Content: line})
	}
	return out, nil
}

// LinesByIndices returns lines for arbitrary global filtered indices,
// preserving argument order. Used for copy-selection.
func (p *Pane) LinesByIndices(indices []int64) ([]LineOut, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx == nil {
		return nil, ErrNoSource
	}

	out := make([]LineOut, 0, len(indices))
	for _, idx := range indices {
		lineNum, ok := p.fview.At(idx)
		if !ok {
			continue
		}
		line, err := p.readLineLocked(lineNum)
		if err != nil {
			return nil, err
		}
		out = append(out, LineOut{LineNum: lineNum, Content: line})
	}
	return out, nil
}

// FullText returns every ingested byte of the source
func (p *Pane) FullText() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx == nil || p.store == nil {
		return nil, ErrNoSource
	}
	end := p.idx.IndexedBytes()
	if p.file != nil {
		end = p.file.Size()
	}
	return p.store.ReadRange(0, end)
}

func (p *Pane) readLineLocked(lineNum int64) (string, error) {
	rec, ok := p.idx.Record(lineNum)
	if !ok {
		return "", fmt.Errorf("line %d out of range", lineNum)
	}
	raw, err := p.store.ReadRange(rec.Offset, rec.Offset+int64(rec.Length))
	if err != nil {
		return "", err
	}
	line, _ := index.Sanitize(raw)
	return line, nil
}

// Stats is a queryable snapshot of pane state
type Stats struct {
	Ready          bool
	LineCount      int64
	MatchCount     int64
	SegmentCount   int
	DecodeWarnings int
	Accelerated    bool
}

// Stats returns the pane's current counters
func (p *Pane) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{
		Ready:        p.ready,
		MatchCount:   p.fview.Len(),
		SegmentCount: p.seg.SegmentCount(),
		Accelerated:  p.compiled.Accelerated(),
	}
	if p.idx != nil {
		s.LineCount = p.idx.LineCount()
		s.DecodeWarnings = p.idx.DecodeWarnings()
	}
	return s
}

// Segment returns the descriptor for segment i
func (p *Pane) Segment(i int) view.Segment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seg.Segment(i)
}

// RestoreToLine resolves an original line number to its position in the
// current filtered view and segment scheme, for scroll restoration.
func (p *Pane) RestoreToLine(lineNum int64) (Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, exact := p.fview.PositionOf(lineNum)
	if idx >= p.fview.Len() {
		if p.fview.Len() == 0 {
			return Position{}, false
		}
		idx = p.fview.Len() - 1
	}
	seg, off := p.seg.Locate(idx)
	return Position{GlobalIdx: idx, Segment: seg, Offset: off}, exact
}

// Find searches filtered lines for a substring, forward or backward from
// the cursor. When nothing is found up to the end, the scan retries once
// from the opposite end; a hit after the wrap is reported as wrapped.
func (p *Pane) Find(term string, fromGlobalIdx int64, backward bool) (FindResult, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx == nil {
		return FindResult{}, false, ErrNoSource
	}
	if term == "" || p.fview.Len() == 0 {
		return FindResult{}, false, nil
	}

	total := p.fview.Len()
	scan := func(from, to int64, step int64, wrapped bool) (FindResult, bool, error) {
		for i := from; i != to; i += step {
			lineNum, _ := p.fview.At(i)
			line, err := p.readLineLocked(lineNum)
			if err != nil {
				return FindResult{}, false, err
			}
			if strings.Contains(line, term) {
				return FindResult{LineNum: lineNum, GlobalIdx: i, Wrapped: wrapped}, true, nil
			}
		}
		return FindResult{}, false, nil
	}

	if backward {
		if res, ok, err := scan(clamp(fromGlobalIdx-1, -1, total-1), -1, -1, false); ok || err != nil {
			return res, ok, err
		}
		return scan(total-1, clamp(fromGlobalIdx-1, -1, total-1), -1, true)
	}
	if res, ok, err := scan(clamp(fromGlobalIdx+1, 0, total), total, 1, false); ok || err != nil {
		return res, ok, err
	}
	return scan(0, clamp(fromGlobalIdx+1, 0, total), 1, true)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LineAtTime returns the first line whose extracted timestamp is at or
// after the target. Lines without a recognizable timestamp are skipped.
func (p *Pane) LineAtTime(target time.Time) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx == nil {
		return 0, false
	}
	total := p.idx.LineCount()
	for lineNum := int64(1); lineNum <= total; lineNum++ {
		line, err := p.readLineLocked(lineNum)
		if err != nil {
			return 0, false
		}
		ts := p.tsParser.Parse(line)
		if ts != nil && !ts.Before(target) {
			return lineNum, true
		}
	}
	return 0, false
}

// ToggleBookmark flips a bookmark on an original line number
func (p *Pane) ToggleBookmark(lineNum int64) bool {
	p.mu.Lock()
	on := p.marks.Toggle(lineNum)
	count := p.marks.Count()
	p.mu.Unlock()
	p.notify(BookmarksChangedEvent{eventBase{p.id}, count})
	return on
}

// Bookmarks returns the bookmarked original line numbers, ascending
func (p *Pane) Bookmarks() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marks.All()
}

// IsBookmarked reports whether an original line number is bookmarked
func (p *Pane) IsBookmarked(lineNum int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marks.Has(lineNum)
}

// NextBookmark navigates to the first bookmark after a global filtered
// index, resolving positions against the current view.
func (p *Pane) NextBookmark(afterGlobalIdx int64) (bookmark.Hit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marks.Next(afterGlobalIdx, p.fview)
}

// PrevBookmark navigates to the last bookmark before a global filtered index
func (p *Pane) PrevBookmark(beforeGlobalIdx int64) (bookmark.Hit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marks.Prev(beforeGlobalIdx, p.fview)
}

// ClearBookmarks removes all bookmarks
func (p *Pane) ClearBookmarks() {
	p.mu.Lock()
	p.marks.Clear()
	p.mu.Unlock()
	p.notify(BookmarksChangedEvent{eventBase{p.id}, 0})
}

// Reset terminates outstanding work and discards all pane state atomically.
// Bookmarks are cleared; the pane accepts a new source afterwards.
func (p *Pane) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Pane) resetLocked() {
	p.generation++
	p.sourceSeq++
	if p.cancelPass != nil {
		p.cancelPass()
		p.cancelPass = nil
	}
	if p.cancelTail != nil {
		p.cancelTail()
		p.cancelTail = nil
	}
	if p.buffer != nil {
		buf := p.buffer
		p.buffer = nil
		// The flush goroutine takes p.mu in ingestBatch; close outside the lock
		go buf.Close()
	}
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
	p.mem = nil
	p.store = nil
	p.idx = nil
	p.fview = view.NewFilteredView()
	p.seg = view.NewSegmenter(0)
	p.marks = bookmark.NewSet()
	p.bypassShell = false
	p.ready = false
	p.warns = 0
}

// Close resets the pane and rejects further operations
func (p *Pane) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.resetLocked()
	p.closed = true
}

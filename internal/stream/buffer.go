package stream

import (
	"sync"
	"time"
)

// Tuning defaults: a flush fires when 500 fragments are pending or 250 ms
// after the first pending fragment, whichever comes first. One flush
// concatenates at most 512 KiB; a larger backlog is chunked across flushes
// so a single oversized flush never stalls the consumer.
const (
	DefaultMaxFragments = 500
	DefaultIdleFlush    = 250 * time.Millisecond
	DefaultMaxBytes     = 512 * 1024
)

// Config tunes a Buffer. Zero fields take the defaults.
type Config struct {
	MaxFragments int
	IdleFlush    time.Duration
	MaxBytes     int
}

func (c Config) withDefaults() Config {
	if c.MaxFragments <= 0 {
		c.MaxFragments = DefaultMaxFragments
	}
	if c.IdleFlush <= 0 {
		c.IdleFlush = DefaultIdleFlush
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	return c
}

// Buffer accumulates incoming text fragments and flushes them to a single
// consumer on a size-or-time trigger. Ordering is strict FIFO within the
// buffer: fragments are never reordered or dropped, only chunked across
// flushes.
type Buffer struct {
	cfg  Config
	sink func(batch []byte)

	mu      sync.Mutex
	pending []string
	bytes   int
	timer   *time.Timer
	closed  bool

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewBuffer creates a buffer delivering batches to sink. The sink runs on
// the buffer's own goroutine, one call at a time, in push order.
func NewBuffer(cfg Config, sink func(batch []byte)) *Buffer {
	b := &Buffer{
		cfg:  cfg.withDefaults(),
		sink: sink,
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Push queues one fragment. It never blocks on the consumer.
func (b *Buffer) Push(fragment string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = append(b.pending, fragment)
	b.bytes += len(fragment)

	full := len(b.pending) >= b.cfg.MaxFragments || b.bytes >= b.cfg.MaxBytes
	if len(b.pending) == 1 && b.timer == nil {
		b.timer = time.AfterFunc(b.cfg.IdleFlush, b.signal)
	}
	b.mu.Unlock()

	if full {
		b.signal()
	}
}

// Close flushes anything still pending and stops the flush goroutine
func (b *Buffer) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
}

func (b *Buffer) signal() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

func (b *Buffer) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.kick:
			b.drain()
		case <-b.done:
			b.drain()
			return
		}
	}
}

// drain delivers pending fragments as one or more bounded batches
func (b *Buffer) drain() {
	for {
		batch := b.takeBatch()
		if batch == nil {
			return
		}
		b.sink(batch)
	}
}

// takeBatch removes at most MaxFragments fragments and MaxBytes bytes from
// the queue and concatenates them. Always takes at least one fragment so an
// oversized single fragment still moves.
func (b *Buffer) takeBatch() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
		return nil
	}

	count := 0
	size := 0
	for count < len(b.pending) && count < b.cfg.MaxFragments {
		fragLen := len(b.pending[count])
		if count > 0 && size+fragLen > b.cfg.MaxBytes {
			break
		}
		size += fragLen
		count++
	}

	batch := make([]byte, 0, size)
	for _, frag := range b.pending[:count] {
		batch = append(batch, frag...)
	}
	b.pending = b.pending[count:]
	b.bytes -= size

	if len(b.pending) == 0 && b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return batch
}

// PendingFragments reports the queue depth, for status display
func (b *Buffer) PendingFragments() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

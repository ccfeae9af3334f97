package stream

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// collector gathers flushed batches for assertions
type collector struct {
	mu      sync.Mutex
	batches [][]byte
}

func (c *collector) sink(batch []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(batch))
	copy(cp, batch)
	c.batches = append(c.batches, cp)
}

func (c *collector) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.batches))
	copy(out, c.batches)
	return out
}

func (c *collector) joined() string {
	var b strings.Builder
	for _, batch := range c.snapshot() {
		b.Write(batch)
	}
	return b.String()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestFlushOnFragmentCount(t *testing.T) {
	var c collector
	b := NewBuffer(Config{MaxFragments: 10, IdleFlush: time.Hour}, c.sink)
	defer b.Close()

	for i := 0; i < 10; i++ {
		b.Push(fmt.Sprintf("frag%d\n", i))
	}

	waitFor(t, time.Second, func() bool { return len(c.snapshot()) >= 1 })
	if got := c.joined(); !strings.HasPrefix(got, "frag0\nfrag1\n") {
		t.Errorf("flushed content out of order: %q", got)
	}
}

func TestFlushOnIdleTimer(t *testing.T) {
	var c collector
	b := NewBuffer(Config{MaxFragments: 1000, IdleFlush: 20 * time.Millisecond}, c.sink)
	defer b.Close()

	b.Push("lonely fragment\n")

	waitFor(t, time.Second, func() bool { return len(c.snapshot()) == 1 })
	if got := c.joined(); got != "lonely fragment\n" {
		t.Errorf("idle flush content = %q", got)
	}
}

func TestBurstSplitsIntoMultipleBatches(t *testing.T) {
	var c collector
	b := NewBuffer(Config{MaxFragments: 500, IdleFlush: 20 * time.Millisecond}, c.sink)
	defer b.Close()

	var want strings.Builder
	for i := 0; i < 501; i++ {
		frag := fmt.Sprintf("line %04d\n", i)
		want.WriteString(frag)
		b.Push(frag)
	}

	waitFor(t, 2*time.Second, func() bool { return c.joined() == want.String() })

	if got := len(c.snapshot()); got < 2 {
		t.Errorf("501 fragments flushed in %d batches, want at least 2", got)
	}
}

func TestOrderPreservedAcrossFlushes(t *testing.T) {
	var c collector
	b := NewBuffer(Config{MaxFragments: 7, IdleFlush: 10 * time.Millisecond}, c.sink)

	var want strings.Builder
	for i := 0; i < 100; i++ {
		frag := fmt.Sprintf("%d|", i)
		want.WriteString(frag)
		b.Push(frag)
		if i%13 == 0 {
			time.Sleep(2 * time.Millisecond)
		}
	}
	b.Close()

	if got := c.joined(); got != want.String() {
		t.Errorf("fragments reordered or lost:\ngot  %q\nwant %q", got, want.String())
	}
}

func TestMaxBytesCapsBatchSize(t *testing.T) {
	var c collector
	b := NewBuffer(Config{MaxFragments: 100, IdleFlush: 10 * time.Millisecond, MaxBytes: 64}, c.sink)
	defer b.Close()

	big := strings.Repeat("x", 50)
	for i := 0; i < 4; i++ {
		b.Push(big)
	}

	waitFor(t, time.Second, func() bool { return len(c.joined()) == 200 })
	for i, batch := range c.snapshot() {
		if len(batch) > 64+50 {
			t.Errorf("batch %d is %d bytes, exceeds cap", i, len(batch))
		}
	}
	if got := len(c.snapshot()); got < 2 {
		t.Errorf("oversized backlog delivered in %d batches, want chunked", got)
	}
}

func TestCloseFlushesPending(t *testing.T) {
	var c collector
	b := NewBuffer(Config{MaxFragments: 1000, IdleFlush: time.Hour}, c.sink)

	b.Push("pending at close\n")
	b.Close()

	if got := c.joined(); got != "pending at close\n" {
		t.Errorf("Close dropped pending fragments: %q", got)
	}
}

func TestPushAfterCloseIsIgnored(t *testing.T) {
	var c collector
	b := NewBuffer(Config{}, c.sink)
	b.Close()
	b.Push("late\n")

	time.Sleep(20 * time.Millisecond)
	if got := c.joined(); got != "" {
		t.Errorf("fragment accepted after close: %q", got)
	}
}

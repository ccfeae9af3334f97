package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned when a request's correlation id is never answered
// within the broker's deadline.
var ErrTimeout = errors.New("request timed out")

// DefaultRequestTimeout bounds how long a caller waits for a reply
const DefaultRequestTimeout = 10 * time.Second

// Request is one unit of work submitted to a pane's inbox. Do runs on the
// pane's serve goroutine; the result is routed back by correlation id.
type Request struct {
	ID uint64
	Do func() (any, error)
}

// Reply carries a request's result back through the broker
type Reply struct {
	ID    uint64
	Value any
	Err   error
}

// Broker matches asynchronous replies to outstanding requests. Every
// outstanding id is retired exactly once: by its reply or by timeout,
// never both, never neither.
type Broker struct {
	timeout time.Duration
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan Reply
}

// NewBroker creates a broker with the given reply deadline
func NewBroker(timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Broker{
		timeout: timeout,
		pending: make(map[uint64]chan Reply),
	}
}

// Call submits do to the inbox and waits for the matching reply. It fails
// fast with ErrTimeout rather than hanging the caller.
func (b *Broker) Call(ctx context.Context, inbox chan<- Request, do func() (any, error)) (any, error) {
	id := b.nextID.Add(1)
	ch := make(chan Reply, 1)

	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()
	defer b.retire(id)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case inbox <- Request{ID: id, Do: do}:
	case <-timer.C:
		return nil, fmt.Errorf("submitting request %d: %w", id, ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case reply := <-ch:
		return reply.Value, reply.Err
	case <-timer.C:
		return nil, fmt.Errorf("request %d: %w", id, ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Deliver routes a reply to its waiting caller. Replies for already retired
// ids (timed out or cancelled) are dropped.
func (b *Broker) Deliver(reply Reply) {
	b.mu.Lock()
	ch, ok := b.pending[reply.ID]
	delete(b.pending, reply.ID)
	b.mu.Unlock()
	if ok {
		ch <- reply
	}
}

// Outstanding reports how many requests await replies
func (b *Broker) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Broker) retire(id uint64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Serve runs a pane inbox loop: each request executes in submission order
// and its reply is delivered through the broker. Serve returns when the
// context is cancelled or the inbox closes.
func (b *Broker) Serve(ctx context.Context, inbox <-chan Request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-inbox:
			if !ok {
				return
			}
			value, err := req.Do()
			b.Deliver(Reply{ID: req.ID, Value: value, Err: err})
		}
	}
}

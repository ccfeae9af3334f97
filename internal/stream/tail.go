package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// readChunkSize bounds one tail read so a huge append is delivered as
// multiple fragments instead of one allocation.
const readChunkSize = 64 * 1024

// DefaultPollInterval is the fallback cadence when no watcher is available
const DefaultPollInterval = 500 * time.Millisecond

// TailSource follows a growing file and delivers appended bytes as raw
// fragments, in order. Growth detection is watch-driven via fsnotify with a
// polling fallback for filesystems that do not emit events.
type TailSource struct {
	path   string
	offset int64
	poll   time.Duration
	sink   func(fragment []byte)
}

// NewTailSource creates a tail source starting at the given byte offset
func NewTailSource(path string, startOffset int64, poll time.Duration, sink func(fragment []byte)) *TailSource {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &TailSource{path: path, offset: startOffset, poll: poll, sink: sink}
}

// Run follows the file until the context is cancelled or the source fails.
// A source failure is fatal to this source only; everything delivered
// before the failure stands.
func (t *TailSource) Run(ctx context.Context) error {
	watcher, werr := fsnotify.NewWatcher()
	if werr == nil {
		defer watcher.Close()
		if err := watcher.Add(t.path); err != nil {
			watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		if err := t.deliverGrowth(); err != nil {
			return err
		}

		if watcher != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-watcher.Events:
				if !ok {
					watcher = nil
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
			case err, ok := <-watcher.Errors:
				if ok && err != nil {
					// Degrade to polling rather than kill the pane
					watcher = nil
				}
			case <-ticker.C:
				// Safety net behind the watcher
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// deliverGrowth reads any bytes appended since the last delivery
func (t *TailSource) deliverGrowth() error {
	info, err := os.Stat(t.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.path, err)
	}
	size := info.Size()
	if size <= t.offset {
		return nil
	}

	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	buf := make([]byte, readChunkSize)
	for t.offset < size {
		n := readChunkSize
		if t.offset+int64(n) > size {
			n = int(size - t.offset)
		}
		read, err := f.ReadAt(buf[:n], t.offset)
		if read > 0 {
			fragment := make([]byte, read)
			copy(fragment, buf[:read])
			t.sink(fragment)
			t.offset += int64(read)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", t.path, err)
		}
	}
	return nil
}

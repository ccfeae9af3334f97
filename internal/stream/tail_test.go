package stream

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestTailDeliversAppendedBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("existing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []byte
	tail := NewTailSource(path, int64(len("existing\n")), 10*time.Millisecond, func(fragment []byte) {
		mu.Lock()
		got = append(got, fragment...)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- tail.Run(ctx) }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("new line one\n"); err != nil {
		t.Fatal(err)
	}
	f.Sync()
	time.Sleep(50 * time.Millisecond)
	if _, err := f.WriteString("new line two\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	want := "new line one\nnew line two\n"
	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(got) == want
	})

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestTailStartOffsetSkipsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("old content\nmore old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []byte
	tail := NewTailSource(path, 21, 10*time.Millisecond, func(fragment []byte) {
		mu.Lock()
		got = append(got, fragment...)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tail.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 0 {
		t.Errorf("tail delivered history: %q", got)
	}
}

func TestTailMissingFileFails(t *testing.T) {
	tail := NewTailSource(filepath.Join(t.TempDir(), "gone.log"), 0, 10*time.Millisecond, func([]byte) {})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tail.Run(ctx); err == nil || err == context.DeadlineExceeded {
		t.Errorf("Run on missing file returned %v, want stat error", err)
	}
}

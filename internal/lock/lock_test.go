package lock

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestNonBlockingContention(t *testing.T) {
	t.Parallel()
	g := New(filepath.Join(t.TempDir(), "jobq.lock"))

	first, err := g.Acquire(false)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := g.Acquire(false); !errors.Is(err, ErrBusy) {
		t.Fatalf("second acquire: got %v, want ErrBusy", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}

	again, err := g.Acquire(false)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again.Release()
}

func TestBlockingWaitsForRelease(t *testing.T) {
	t.Parallel()
	g := New(filepath.Join(t.TempDir(), "jobq.lock"))

	held, err := g.Acquire(true)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		l, err := g.Acquire(true)
		if err != nil {
			t.Errorf("blocking acquire: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		_ = l.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("blocking acquire returned while lock was held")
	case <-time.After(100 * time.Millisecond):
	}

	_ = held.Release()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("blocking acquire never returned after release")
	}
}

package syncs

import (
	"context"
	"errors"
	"testing"
)

func TestSemaphore(t *testing.T) {
	sem := NewSemaphore(1)
	sem.Acquire()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := sem.AcquireContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	sem.Release()
	if err := sem.AcquireContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled context must not acquire, got %v", err)
	}
	if err := sem.AcquireContext(t.Context()); err != nil {
		t.Fatal(err)
	}
	sem.Release()
}

func TestSemaphoreMinimum(t *testing.T) {
	sem := NewSemaphore(0)
	if cap(sem) != 1 {
		t.Fatalf("got %d", cap(sem))
	}
}

package engine

import (
	"context"
	"testing"
	"time"
)

func TestQueuePutPop(t *testing.T) {
	q := NewQueue[int](4)

	if err := q.Put(context.Background(), 42); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got := q.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}

	v, ok := q.Pop(time.Second)
	if !ok {
		t.Fatal("Pop returned no item")
	}
	if v != 42 {
		t.Fatalf("Pop = %d, want 42", v)
	}
}

func TestQueuePopTimeout(t *testing.T) {
	q := NewQueue[int](4)

	start := time.Now()
	_, ok := q.Pop(20 * time.Millisecond)
	if ok {
		t.Fatal("Pop returned an item from an empty queue")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("Pop returned after %v, want at least 20ms", elapsed)
	}
}

func TestQueuePopWakesOnPut(t *testing.T) {
	q := NewQueue[string](1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = q.Put(context.Background(), "late")
	}()

	v, ok := q.Pop(time.Second)
	if !ok {
		t.Fatal("Pop timed out waiting for a late Put")
	}
	if v != "late" {
		t.Fatalf("Pop = %q, want %q", v, "late")
	}
}

func TestQueuePutCancelled(t *testing.T) {
	q := NewQueue[int](1)
	if err := q.Put(context.Background(), 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Put(ctx, 2); err == nil {
		t.Fatal("Put on a full queue with a cancelled context did not fail")
	}
}

func TestQueueDefaultDepth(t *testing.T) {
	q := NewQueue[int](0)
	if cap(q.ch) != DefaultQueueDepth {
		t.Fatalf("cap = %d, want %d", cap(q.ch), DefaultQueueDepth)
	}
}

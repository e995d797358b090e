package concurrency

import (
	"context"
	"errors"
	"testing"
)

func TestWorkerPoolRunPreservesOrder(t *testing.T) {
	wp := NewWorkerPool(3)
	errs := wp.Run(context.Background(), 5, func(ctx context.Context, i int) error {
		if i == 2 {
			return errors.New("boom")
		}
		return nil
	})
	if len(errs) != 5 {
		t.Fatalf("expected 5 results, got %d", len(errs))
	}
	if errs[2] == nil {
		t.Fatalf("expected index 2 to fail")
	}
	for i, e := range errs {
		if i != 2 && e != nil {
			t.Fatalf("expected index %d to succeed, got %v", i, e)
		}
	}
	stats := wp.Stats()
	if stats.Processed != 4 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPriorityQueueOrdersDescendingWithFIFOTiebreak(t *testing.T) {
	pq := NewPriorityQueue()
	pq.Push("low-a", 1)
	pq.Push("high", 5)
	pq.Push("low-b", 1)

	first, _ := pq.Pop()
	if first != "high" {
		t.Fatalf("expected highest priority first, got %v", first)
	}
	second, _ := pq.Pop()
	if second != "low-a" {
		t.Fatalf("expected FIFO tiebreak among equal priority, got %v", second)
	}
}

func TestSemaphoreTryAcquire(t *testing.T) {
	s := NewSemaphore(1)
	if !s.TryAcquire() {
		t.Fatalf("expected first acquire to succeed")
	}
	if s.TryAcquire() {
		t.Fatalf("expected second acquire to fail while saturated")
	}
	s.Release()
	if !s.TryAcquire() {
		t.Fatalf("expected acquire to succeed after release")
	}
}

func TestTokenBucketAllow(t *testing.T) {
	b := NewTokenBucket(60, 2)
	if !b.Allow() || !b.Allow() {
		t.Fatalf("expected burst of 2 to be allowed immediately")
	}
	if b.Allow() {
		t.Fatalf("expected third immediate call to be rate-limited")
	}
}

// Package concurrency adapts the teacher's processing-queue primitives
// (pkg/processing/queue/{worker_pool,rate_limiter,priority_queue}.go) into
// the retrieval domain's three concurrency needs (spec §5): bounded-fan-out
// detail hydration, the reasoner's global rate bucket, and query-variant
// priority ordering.
package concurrency

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
)

// Task is one unit of bounded-concurrency work. Work is pre-sized and
// indexed by input position so the caller can preserve order regardless of
// completion order (spec §9: "the result array is pre-sized and indexed by
// input position").
type Task func(ctx context.Context, index int) error

// WorkerPool runs a bounded set of tasks concurrently, the idiom the
// teacher uses for document-processing workers, adapted here for
// verifier detail hydration (default 4, cap 6) and retrieval provider
// fan-out.
type WorkerPool struct {
	concurrency int

	processed int64
	failed    int64
}

// NewWorkerPool builds a WorkerPool with the given concurrency (clamped to
// >=1).
func NewWorkerPool(concurrency int) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorkerPool{concurrency: concurrency}
}

// Run executes n tasks with bounded concurrency and returns the per-index
// errors (nil entries mean success). It respects ctx cancellation: tasks not
// yet started when ctx is done are skipped and receive ctx.Err().
func (wp *WorkerPool) Run(ctx context.Context, n int, task Task) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	sem := make(chan struct{}, wp.concurrency)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		default:
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			err := task(ctx, idx)
			errs[idx] = err
			if err != nil {
				atomic.AddInt64(&wp.failed, 1)
			} else {
				atomic.AddInt64(&wp.processed, 1)
			}
		}(i)
	}

	wg.Wait()
	return errs
}

// Stats is a read-only snapshot of pool activity, following the teacher's
// WorkerPoolStats idiom.
type Stats struct {
	Processed int64
	Failed    int64
}

// Stats returns a snapshot of processed/failed task counts.
func (wp *WorkerPool) Stats() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&wp.processed),
		Failed:    atomic.LoadInt64(&wp.failed),
	}
}

// Semaphore is a simple counting semaphore, used for the reasoner's local
// in-flight cap (LLM_REASONER_MAX_INFLIGHT).
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore builds a Semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity < 1 {
		capacity = 1
	}
	return &Semaphore{ch: make(chan struct{}, capacity)}
}

// TryAcquire attempts to acquire a slot without blocking.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a previously-acquired slot.
func (s *Semaphore) Release() {
	select {
	case <-s.ch:
	default:
	}
}

// priorityItem is one entry in the variant priority queue.
type priorityItem struct {
	value    interface{}
	priority int
	seq      int // tiebreak: lower seq (older) wins on equal priority
}

type priorityHeap []*priorityItem

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x interface{}) { *h = append(*h, x.(*priorityItem)) }
func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PriorityQueue orders query variants by descending priority with FIFO
// tiebreak, adapted from the teacher's container/heap-based priorityHeap
// (spec §4.3 step 5 / §5: "within a phase, variants issued in priority
// order descending").
type PriorityQueue struct {
	mu    sync.Mutex
	items priorityHeap
	next  int
}

// NewPriorityQueue builds an empty PriorityQueue.
func NewPriorityQueue() *PriorityQueue {
	pq := &PriorityQueue{}
	heap.Init(&pq.items)
	return pq
}

// Push adds a value with the given priority.
func (pq *PriorityQueue) Push(value interface{}, priority int) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	heap.Push(&pq.items, &priorityItem{value: value, priority: priority, seq: pq.next})
	pq.next++
}

// Pop removes and returns the highest-priority value. ok is false when
// empty.
func (pq *PriorityQueue) Pop() (value interface{}, ok bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if pq.items.Len() == 0 {
		return nil, false
	}
	item := heap.Pop(&pq.items).(*priorityItem)
	return item.value, true
}

// Len reports the number of queued items.
func (pq *PriorityQueue) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.items.Len()
}

// DrainOrdered pops every item off the queue in priority order.
func (pq *PriorityQueue) DrainOrdered() []interface{} {
	var out []interface{}
	for {
		v, ok := pq.Pop()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// Package gate implements the bounded-concurrency admission primitive shared
// by kvtask's orchestrator: a count bound on simultaneously active provider
// invocations plus a pending-key queue ordered LIFO or FIFO.
//
// Built on semaphore.Weighted for the count bound and a container/list for
// the pending queue: semaphore's own wait queue is strictly FIFO and cannot
// express LIFO admission, so Gate never blocks on Acquire — it only ever
// calls TryAcquire and keeps ordering decisions in its own list.
package gate

import (
	"container/list"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// Priority selects the order in which pending keys are admitted.
type Priority int

const (
	// FIFO admits the oldest-enqueued pending key first.
	FIFO Priority = iota
	// LIFO admits the newest-enqueued pending key first.
	LIFO
)

// Gate bounds active admissions to maxConcurrent and orders pending-key
// admission by Priority. Pending-queue operations serialize under g.mu; the
// slot count is held by the semaphore and the active mirror by an atomic,
// so Release and ActiveCount do not take g.mu.
type Gate[K comparable] struct {
	mu       sync.Mutex
	pending  *list.List
	sem      *semaphore.Weighted
	priority Priority
	active   atomic.Int64
}

// New constructs a Gate. maxConcurrent <= 0 is coerced to 1 (callers that
// need to reject <0 instead do so before calling New — see kvtask.New).
func New[K comparable](maxConcurrent int, priority Priority) *Gate[K] {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Gate[K]{
		pending:  list.New(),
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		priority: priority,
	}
}

// Enqueue adds a key to the pending queue, to be admitted by a later
// DrainOne/DrainBatch call (its own or another caller's, once a slot frees).
func (g *Gate[K]) Enqueue(k K) {
	g.mu.Lock()
	g.pending.PushBack(k)
	g.mu.Unlock()
}

// pop removes and returns the next key per priority ordering.
// Caller must hold g.mu.
func (g *Gate[K]) pop() (K, bool) {
	var zero K
	var e *list.Element
	if g.priority == LIFO {
		e = g.pending.Back()
	} else {
		e = g.pending.Front()
	}
	if e == nil {
		return zero, false
	}
	g.pending.Remove(e)
	return e.Value.(K), true
}

// DrainOne tries to acquire one slot and admit a single pending key, for a
// monofetch admission. ok is false if no slot is free, or a slot was free
// but the queue was empty (the slot is released again in that case).
func (g *Gate[K]) DrainOne() (k K, ok bool) {
	if !g.sem.TryAcquire(1) {
		return k, false
	}
	g.mu.Lock()
	k, ok = g.pop()
	g.mu.Unlock()
	if !ok {
		g.sem.Release(1)
		return k, false
	}
	g.active.Inc()
	return k, true
}

// DrainBatch tries to acquire one slot and admit up to maxBatch pending
// keys as a single batch (one batch = one active invocation, regardless of
// its size). Returns ok=false if no slot was free or the queue was empty.
func (g *Gate[K]) DrainBatch(maxBatch int) (batch []K, ok bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	g.mu.Lock()
	for len(batch) < maxBatch {
		k, popped := g.pop()
		if !popped {
			break
		}
		batch = append(batch, k)
	}
	g.mu.Unlock()
	if len(batch) == 0 {
		g.sem.Release(1)
		return nil, false
	}
	g.active.Inc()
	return batch, true
}

// Release frees the slot held by one completed admission (a monofetch call
// or a multifetch batch — both occupy exactly one slot). It does not drain
// the queue itself; the caller calls DrainOne/DrainBatch afterwards.
func (g *Gate[K]) Release() {
	g.active.Dec()
	g.sem.Release(1)
}

// ActiveCount reports the number of currently active admissions, for the
// "0 <= active <= max" gate invariant.
func (g *Gate[K]) ActiveCount() int64 { return g.active.Load() }

// Pending reports the number of keys currently queued awaiting admission.
func (g *Gate[K]) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending.Len()
}

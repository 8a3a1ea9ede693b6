// Package inflight tracks, per key, the current provider-invocation state:
// which attempt is in progress, which waiters are attached, and whether the
// caller has cancelled it out from under the provider. Each key gets an
// ordered waiter.Registry rather than a single done-channel, so that every
// attached caller — not just the first — is notified, in order, and a
// caller can still attach after the provider call already started.
package inflight

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/kvlight/kvlighttasks/internal/waiter"
)

// Record is the in-flight state for one key (or, for a multifetch batch,
// shared — via the same BatchID — across every key admitted together).
type Record[K comparable, V any] struct {
	Key     K
	BatchID uuid.UUID
	Waiters waiter.Registry[V]
	Attempt int
	Started time.Time

	// Cancelled mirrors MonoTask's clearResult(cancel|restart) flag shape.
	// kvtask does not currently expose per-key cancellation, so nothing sets
	// this today, but ProviderDriver's callback-drop logic stays identical
	// in shape to MonoTask's by carrying the same field.
	Cancelled atomic.Bool
}

// Table maps key -> *Record for every key currently tracked, whether still
// pending admission or already handed to the provider. Table holds no lock
// of its own: callers serialize access under the owning engine's mutex, so
// that Lookup/Start/Remove compose atomically with cache probes and gate
// enqueue/admit decisions in the same critical section.
type Table[K comparable, V any] struct {
	m map[K]*Record[K, V]
}

// New constructs an empty Table.
func New[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{m: make(map[K]*Record[K, V])}
}

// Lookup returns the record tracking k, if one is already in flight.
func (t *Table[K, V]) Lookup(k K) (*Record[K, V], bool) {
	r, ok := t.m[k]
	return r, ok
}

// Start creates and registers a new Record for k. Callers must Lookup first
// and only call Start on a miss; Start does not check for an existing entry.
func (t *Table[K, V]) Start(k K, batchID uuid.UUID) *Record[K, V] {
	r := &Record[K, V]{Key: k, BatchID: batchID, Started: time.Now()}
	t.m[k] = r
	return r
}

// Remove detaches k's record, once its terminal outcome has been taken for
// delivery (or it was cancelled).
func (t *Table[K, V]) Remove(k K) {
	delete(t.m, k)
}

// Len reports how many keys are currently tracked (pending or admitted).
func (t *Table[K, V]) Len() int { return len(t.m) }

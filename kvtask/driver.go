package kvtask

import (
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/kvlight/kvlighttasks/internal/waiter"
)

// drainAndInvoke admits as much pending work as the gate currently allows,
// invoking the configured provider for each admission. Called once after a
// new key is enqueued and once after every terminal provider event frees a
// slot, so that queued work is picked up without a caller having to poll.
func (t *Task[K, V]) drainAndInvoke() {
	if t.cfg.DataProvider.isMulti() {
		for {
			batch, ok := t.gt.DrainBatch(t.cfg.DataProvider.maxBatchCount)
			if !ok {
				return
			}
			t.metrics.ProviderCalled()
			t.invokeMultifetch(batch)
		}
	}
	for {
		k, ok := t.gt.DrainOne()
		if !ok {
			return
		}
		t.metrics.ProviderCalled()
		t.invokeMonofetch(k)
	}
}

func (t *Task[K, V]) setKeyAttempt(k K, attempt int) {
	t.mu.Lock()
	if rec, ok := t.inflight.Lookup(k); ok {
		rec.Attempt = attempt
	}
	t.mu.Unlock()
}

func (t *Task[K, V]) invokeMonofetch(k K) {
	t.setKeyAttempt(k, 1)
	t.runMonofetch(k, 1)
}

// runMonofetch calls the monofetch provider for k. fired guards against a
// provider that calls its callback more than once: only the first call is
// honored, extra calls are simply ignored rather than triggering a retry.
func (t *Task[K, V]) runMonofetch(k K, attempt int) {
	var fired atomic.Bool
	t.cfg.DataProvider.mono(k, func(v Option[V], err error) {
		if fired.Swap(true) {
			return
		}
		t.completeMono(k, attempt, v, err)
	})
}

func (t *Task[K, V]) completeMono(k K, attempt int, v Option[V], err error) {
	if err != nil {
		if attempt <= t.cfg.RetryCount {
			t.metrics.ProviderRetried()
			next := attempt + 1
			t.setKeyAttempt(k, next)
			t.runMonofetch(k, next)
			return
		}
		t.metrics.ProviderExhausted()
		t.terminate(k, Outcome[V]{Err: err})
		t.gt.Release()
		t.drainAndInvoke()
		return
	}
	t.terminate(k, Outcome[V]{Value: v})
	t.gt.Release()
	t.drainAndInvoke()
}

func (t *Task[K, V]) setBatchAttempt(batch []K, batchID uuid.UUID, attempt int) {
	t.mu.Lock()
	for _, k := range batch {
		if rec, ok := t.inflight.Lookup(k); ok {
			rec.BatchID = batchID
			rec.Attempt = attempt
		}
	}
	t.mu.Unlock()
}

func (t *Task[K, V]) invokeMultifetch(batch []K) {
	batchID := uuid.New()
	t.setBatchAttempt(batch, batchID, 1)
	t.runMultifetch(batch, batchID, 1)
}

func (t *Task[K, V]) runMultifetch(batch []K, batchID uuid.UUID, attempt int) {
	var fired atomic.Bool
	t.cfg.DataProvider.multi(batch, func(m map[K]Option[V], err error) {
		if fired.Swap(true) {
			return
		}
		t.completeMulti(batch, batchID, attempt, m, err)
	})
}

// completeMulti fans a batch outcome back out to its keys: a batch failure
// fails every key in the batch (no partial success), while a batch success
// is resolved per key — a key absent from the success map is a per-key
// provider error (ErrKeyMissingFromBatchResult), never an inferred null.
func (t *Task[K, V]) completeMulti(batch []K, batchID uuid.UUID, attempt int, m map[K]Option[V], err error) {
	if err != nil {
		if attempt <= t.cfg.RetryCount {
			t.metrics.ProviderRetried()
			next := attempt + 1
			t.setBatchAttempt(batch, batchID, next)
			t.runMultifetch(batch, batchID, next)
			return
		}
		t.metrics.ProviderExhausted()
		for _, k := range batch {
			t.terminate(k, Outcome[V]{Err: err})
		}
		t.gt.Release()
		t.drainAndInvoke()
		return
	}

	for _, k := range batch {
		v, ok := m[k]
		if !ok {
			t.terminate(k, Outcome[V]{Err: ErrKeyMissingFromBatchResult})
			continue
		}
		t.terminate(k, Outcome[V]{Value: v})
	}
	t.gt.Release()
	t.drainAndInvoke()
}

// terminate commits a successful outcome to the cache (skipping the commit,
// but not the delivery, when KeyValidator rejects k), detaches k's waiters,
// and drains them on the configured callback context.
func (t *Task[K, V]) terminate(k K, out Outcome[V]) {
	t.mu.Lock()
	rec, ok := t.inflight.Lookup(k)
	if !ok {
		t.mu.Unlock()
		return
	}
	t.inflight.Remove(k)
	ws := rec.Waiters.Take()
	t.mu.Unlock()

	if out.Err == nil {
		if t.cfg.CacheConfig.KeyValidator != nil && !t.cfg.CacheConfig.KeyValidator(k) {
			t.metrics.KeyRejected()
		} else if out.Value.Valid {
			t.cache.Set(k, out.Value.Value)
		} else {
			t.cache.SetNull(k)
		}
	}

	t.cfg.CallbackContext.Schedule(func() {
		waiter.Deliver(ws, out)
	})
}

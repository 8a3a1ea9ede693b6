// Package kvtask implements KVLightTasks: a multi-key, bounded-concurrency
// coalescing fetcher over a pluggable provider, backed by an in-memory
// cache. At most one provider invocation is ever in flight per key; callers
// that ask for a key already in flight attach as waiters and are delivered
// the same outcome.
package kvtask

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kvlight/kvlighttasks/cache"
	"github.com/kvlight/kvlighttasks/internal/gate"
	"github.com/kvlight/kvlighttasks/internal/inflight"
)

// Task is a configured KVLightTasks instance. The zero value is not usable;
// construct one with New.
type Task[K comparable, V any] struct {
	mu       sync.Mutex
	cfg      Config[K, V]
	cache    cache.Cache[K, V]
	gt       *gate.Gate[K]
	inflight *inflight.Table[K, Option[V]]
	metrics  Metrics
}

// New validates cfg and constructs a Task. Errors are configuration errors
// only: a missing provider, a batch count below 1 and a negative
// concurrency are rejected; a zero concurrency is coerced to 1 and a
// non-positive cache capacity to defaultCapacity. Every successfully
// constructed Task runs forever until its
// process ends; there is no Close, since the underlying cache it owns
// only ever soft-closes too.
func New[K comparable, V any](cfg Config[K, V]) (*Task[K, V], error) {
	if !cfg.DataProvider.isValid() {
		return nil, ErrNoDataProvider
	}
	if cfg.DataProvider.isMulti() && cfg.DataProvider.maxBatchCount < 1 {
		return nil, ErrInvalidBatchCount
	}
	if cfg.MaxConcurrentRunningThreadNumber < 0 {
		return nil, ErrInvalidConcurrency
	}
	maxConc := cfg.MaxConcurrentRunningThreadNumber
	if maxConc == 0 {
		maxConc = 1
	}

	capacity := cfg.CacheConfig.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	c := cache.New[K, V](cache.Options[K, V]{
		Capacity:                    capacity,
		Shards:                      cfg.CacheConfig.Shards,
		DefaultTTL:                  cfg.CacheConfig.DefaultTTL,
		DefaultTTLForNull:           cfg.CacheConfig.DefaultTTLForNull,
		TTLRandomizationRange:       cfg.CacheConfig.TTLRandomizationRange,
		MemoryMB:                    cfg.CacheConfig.MemoryMB,
		Cost:                        cfg.CacheConfig.CostProvider,
		StatisticsReport:            cfg.CacheStatisticsReport,
		EnableThreadSynchronization: cfg.CacheConfig.EnableThreadSynchronization,
	})

	if cfg.CallbackContext == nil {
		cfg.CallbackContext = DirectDispatcher{}
	}
	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	return &Task[K, V]{
		cfg:      cfg,
		cache:    c,
		gt:       gate.New[K](maxConc, cfg.KeyPriority),
		inflight: inflight.New[K, Option[V]](),
		metrics:  m,
	}, nil
}

// Fetch issues a request for keys. cb is invoked once per occurrence of
// each key in the input (duplicates collapse to one provider call but
// still produce one callback per occurrence, preserving caller-visible
// arity). An empty keys list is a no-op: the provider is never invoked and
// cb is never called.
func (t *Task[K, V]) Fetch(keys []K, cb func(key K, value Option[V], err error)) {
	if len(keys) == 0 || cb == nil {
		return
	}

	order := make([]K, 0, len(keys))
	occurrences := make(map[K]int, len(keys))
	for _, k := range keys {
		if occurrences[k] == 0 {
			order = append(order, k)
		}
		occurrences[k]++
	}

	t.fetchBatch(order, func(k K, res Outcome[V]) {
		n := occurrences[k]
		for i := 0; i < n; i++ {
			cb(k, res.Value, res.Err)
		}
	})
}

// FetchOne is Fetch([key], ...) for a single key.
func (t *Task[K, V]) FetchOne(key K, cb func(value Option[V], err error)) {
	if cb == nil {
		return
	}
	t.Fetch([]K{key}, func(_ K, v Option[V], err error) { cb(v, err) })
}

// FetchMulti issues a single logical request for the distinct keys in keys
// and invokes cb exactly once, with the complete outcome map for the
// distinct key set, once every key's outcome is known. Duplicate input
// keys collapse; the result map is keyed by the distinct set only.
func (t *Task[K, V]) FetchMulti(keys []K, cb func(results map[K]Outcome[V])) {
	if len(keys) == 0 || cb == nil {
		return
	}

	seen := make(map[K]struct{}, len(keys))
	distinct := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			distinct = append(distinct, k)
		}
	}

	var mu sync.Mutex
	results := make(map[K]Outcome[V], len(distinct))
	remaining := len(distinct)

	t.fetchBatch(distinct, func(k K, res Outcome[V]) {
		mu.Lock()
		results[k] = res
		remaining--
		done := remaining == 0
		mu.Unlock()
		if done {
			cb(results)
		}
	})
}

// AsyncFetch suspends the calling goroutine until key's outcome is known
// and returns it directly, bridging the callback API to a blocking call.
func (t *Task[K, V]) AsyncFetch(key K) (Option[V], error) {
	ch := make(chan Outcome[V], 1)
	t.FetchOne(key, func(v Option[V], err error) { ch <- Outcome[V]{Value: v, Err: err} })
	res := <-ch
	return res.Value, res.Err
}

// AsyncFetchMap is AsyncFetch for a batch of keys: it blocks until every
// distinct key has an outcome and returns the complete map.
func (t *Task[K, V]) AsyncFetchMap(keys []K) map[K]Outcome[V] {
	ch := make(chan map[K]Outcome[V], 1)
	t.FetchMulti(keys, func(m map[K]Outcome[V]) { ch <- m })
	return <-ch
}

// AsyncFetchThrowing is AsyncFetch but panics with the provider error
// instead of returning it as a second value, for call sites that model a
// provider failure as a thrown error rather than an (Option, error) pair.
func (t *Task[K, V]) AsyncFetchThrowing(key K) Option[V] {
	v, err := t.AsyncFetch(key)
	if err != nil {
		panic(err)
	}
	return v
}

// fetchBatch is the orchestrator algorithm for a set of distinct keys:
// cache probe, then in-flight attach-or-create, for every key under one
// critical section, exactly as a multifetch admission needs its whole
// miss set enqueued together before the gate is ever asked to drain.
// Cache-hit delivery and provider admission both happen after the lock
// is released, and the gate is drained at most once, after every newly
// admitted key has been enqueued — never once per key.
func (t *Task[K, V]) fetchBatch(keys []K, deliver func(K, Outcome[V])) {
	type hit struct {
		key K
		out Outcome[V]
	}
	var hits []hit
	admitted := false

	t.mu.Lock()
	for _, k := range keys {
		if e, ok := t.cache.Get(k); ok {
			hits = append(hits, hit{key: k, out: Outcome[V]{Value: Option[V]{Valid: !e.IsNull, Value: e.Value}}})
			continue
		}
		if rec, ok := t.inflight.Lookup(k); ok {
			rec.Waiters.Attach(func(res Outcome[V]) { deliver(k, res) })
			continue
		}
		rec := t.inflight.Start(k, uuid.New())
		rec.Waiters.Attach(func(res Outcome[V]) { deliver(k, res) })
		t.gt.Enqueue(k)
		admitted = true
	}
	t.mu.Unlock()

	for _, h := range hits {
		h := h
		t.cfg.CallbackContext.Schedule(func() { deliver(h.key, h.out) })
	}
	if admitted {
		t.drainAndInvoke()
	}
}

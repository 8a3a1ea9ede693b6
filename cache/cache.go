package cache

import (
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/kvlight/kvlighttasks/internal/util"
	"github.com/kvlight/kvlighttasks/policy/lru"
)

// cache is a sharded in-memory KV store with a pluggable eviction policy.
// All methods are safe for concurrent use by multiple goroutines.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]
}

// New constructs a cache with the provided Options.
// Defaults:
//   - nil Metrics  -> NoopMetrics
//   - nil Policy   -> LRU
//   - Shards <= 0  -> auto, rounded up to the next power of two
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity <= 0 {
		panic("Capacity must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}

	// number of shards -> power of two
	sh := opt.Shards
	if sh <= 0 {
		auto := 2 * runtime.GOMAXPROCS(0)
		sh = int(util.NextPow2(uint64(auto)))
		if sh < 1 {
			sh = 1
		}
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	cs := make([]*shard[K, V], sh)
	perShardCap := (opt.Capacity + sh - 1) / sh // split capacity evenly (ceil)
	for i := 0; i < sh; i++ {
		cs[i] = newShard[K, V](perShardCap, opt.Policy, opt)
	}

	// return pointer-to-impl as the interface (avoids unexported-return lint)
	return &cache[K, V]{
		shards: cs,
		hash:   util.Fnv64a[K], // fast non-crypto hash for sharding
		opt:    opt,
	}
}

// ---- Cache[K,V] implementation ----

// Add inserts k→v only if absent, using DefaultTTL if set.
// Returns false if the key already exists (no update is performed), and
// false if the key is rejected by KeyValidator without attempting insertion.
func (c *cache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() || !c.validKey(k) {
		return false
	}
	s := c.getShard(k)
	return s.Add(k, v, false, c.opt.DefaultTTL, c.costOf(v))
}

// Set inserts or updates k→v, using DefaultTTL if set,
// and promotes the entry according to the active policy.
// Rejected by KeyValidator: the write is silently skipped.
func (c *cache[K, V]) Set(k K, v V) {
	if c.closed.Load() || !c.validKey(k) {
		return
	}
	s := c.getShard(k)
	s.Set(k, v, false, c.opt.DefaultTTL, c.costOf(v))
}

// SetWithTTL inserts or updates k→v with a per-key TTL (relative duration).
// A non-positive ttl disables expiration for this entry.
func (c *cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if c.closed.Load() || !c.validKey(k) {
		return
	}
	s := c.getShard(k)
	s.Set(k, v, false, ttl, c.costOf(v))
}

// SetNull caches an explicit "no value" outcome for k.
func (c *cache[K, V]) SetNull(k K) {
	c.setNull(k, c.nullTTL())
}

// SetNullWithTTL is SetNull with an explicit per-key TTL override.
func (c *cache[K, V]) SetNullWithTTL(k K, ttl time.Duration) {
	c.setNull(k, ttl)
}

func (c *cache[K, V]) setNull(k K, ttl time.Duration) {
	if c.closed.Load() || !c.validKey(k) {
		return
	}
	var zero V
	c.getShard(k).Set(k, zero, true, ttl, 0)
}

// nullTTL returns DefaultTTLForNull, falling back to DefaultTTL.
func (c *cache[K, V]) nullTTL() time.Duration {
	if c.opt.DefaultTTLForNull > 0 {
		return c.opt.DefaultTTLForNull
	}
	return c.opt.DefaultTTL
}

// Get returns the entry for k and a presence flag.
// On hit, the entry is promoted according to the active policy.
func (c *cache[K, V]) Get(k K) (Entry[V], bool) {
	if c.closed.Load() {
		return Entry[V]{}, false
	}
	return c.getShard(k).Get(k)
}

// Remove deletes k if present and returns true on success.
func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).Remove(k)
}

// Len returns the total number of resident entries across all shards.
func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// Close marks the cache as closed. Future operations are ignored.
// If background workers are added (TTL/SWR revalidation), they should stop here.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// ---- helpers ----

// getShard picks a shard by hashing the key and masking with len-1.
// len(c.shards) is guaranteed to be a power of two.
func (c *cache[K, V]) getShard(k K) *shard[K, V] {
	h := c.hash(k)
	idx := int(h) & (len(c.shards) - 1)
	return c.shards[idx]
}

// validKey reports whether k may be committed, per Options.KeyValidator.
// A nil validator accepts every key.
func (c *cache[K, V]) validKey(k K) bool {
	if c.opt.KeyValidator == nil {
		return true
	}
	return c.opt.KeyValidator(k)
}

// costOf computes the per-entry cost (clamped to int32 range).
func (c *cache[K, V]) costOf(v V) int32 {
	if c.opt.Cost == nil {
		return 0
	}
	iv := c.opt.Cost(v)
	if iv < 0 {
		iv = 0
	}
	if iv > math.MaxInt32 {
		iv = math.MaxInt32
	}
	return int32(iv)
}

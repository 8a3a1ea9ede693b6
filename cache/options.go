package cache

import (
	"time"

	"github.com/kvlight/kvlighttasks/policy"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy — removed by the active eviction policy (e.g., LRU/2Q/TinyLFU).
	EvictPolicy EvictReason = iota
	// EvictTTL — expired by TTL (lazy eviction on access).
	EvictTTL
	// EvictCapacity — removed to satisfy capacity/cost limits.
	EvictCapacity
)

// Metrics exposes cheap cache-level counters.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, cost int64)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// CacheStatistics is a point-in-time snapshot passed to StatisticsReport
// alongside the CacheRecord describing the event that triggered the report.
type CacheStatistics struct {
	Entries   int
	Cost      int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// CacheRecord describes a single cache event for StatisticsReport.
// Event is one of "hit", "miss", "set", "remove", "evict".
type CacheRecord[K comparable, V any] struct {
	Key    K
	Value  V
	IsNull bool
	Event  string
	Reason EvictReason
}

// Options configures the cache behavior. Capacity must be > 0 (New panics
// otherwise); for the other fields zero values are safe, and
// sane defaults are applied in New():
//   - nil Policy   => LRU
//   - Shards <= 0  => auto (rounded up to power of two)
//   - nil Metrics  => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit (used together with MaxCost if set).
	Capacity int

	// Shards defines the number of shards. If 0, an automatic value is chosen
	// (≈ 2*GOMAXPROCS) and rounded to the next power of two.
	Shards int

	// Policy is a pluggable eviction policy (LRU/2Q/…); nil => LRU by default.
	Policy policy.Policy[K, V]

	// DefaultTTL applies to Set when a per-key TTL is not provided (0 = no TTL).
	DefaultTTL time.Duration

	// DefaultTTLForNull applies to SetNull when no per-key TTL is given.
	// 0 falls back to DefaultTTL.
	DefaultTTLForNull time.Duration

	// TTLRandomizationRange adds a uniform random jitter in
	// [-range/2, +range/2] to every computed deadline, to avoid synchronized
	// mass expiry (thundering herd on TTL boundaries). 0 disables jitter.
	TTLRandomizationRange time.Duration

	// Cost-based limiting (e.g., bytes). If Cost is non-nil and MaxCost > 0,
	// the cache evicts until both entry count and total cost limits are satisfied.
	Cost    func(v V) int // nil = all entries have equal cost (0)
	MaxCost int64         // total cost limit; 0 disables cost limiting

	// MemoryMB is a convenience limit: when > 0 and MaxCost == 0, it is
	// converted to a MaxCost expressed in bytes (MemoryMB * 1<<20).
	MemoryMB int64

	// KeyValidator rejects keys that must never be committed to the cache.
	// A rejected key's outcome is still delivered to callers by the engines
	// above this package; only the Set/SetNull call is silently skipped.
	// nil => all keys are valid.
	KeyValidator func(k K) bool

	// EnableThreadSynchronization toggles the cache's own internal locking.
	// nil (the zero value) behaves as true: the cache takes its own shard
	// locks, which is always safe. Set to a pointer to false only when the
	// caller already serializes every access under its own mutex, to skip a
	// redundant lock. kvtask commits outside its own mutex, so it needs the
	// default.
	EnableThreadSynchronization *bool

	// Observability
	// OnEvict is called on eviction under the shard lock; keep callbacks lightweight.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics

	// StatisticsReport receives a (CacheStatistics, CacheRecord) pair for
	// every hit/miss/set/remove/evict event. Keep it lightweight: it runs
	// under the shard lock, same as OnEvict.
	StatisticsReport func(CacheStatistics, CacheRecord[K, V])

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock
}

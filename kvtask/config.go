package kvtask

import (
	"time"

	"github.com/kvlight/kvlighttasks/cache"
	"github.com/kvlight/kvlighttasks/internal/gate"
)

// defaultCapacity is applied when CacheConfig.Capacity is left at zero; the
// underlying cache panics on a non-positive capacity, so Task must pick a
// sane one rather than forward a value that would crash construction.
const defaultCapacity = 10_000

// CacheConfig forwards the cache-level options that back a Task's
// result cache.
type CacheConfig[K comparable, V any] struct {
	DefaultTTL            time.Duration
	DefaultTTLForNull     time.Duration
	TTLRandomizationRange time.Duration
	Capacity              int
	Shards                int
	MemoryMB              int64
	CostProvider          func(V) int
	KeyValidator          func(K) bool

	// EnableThreadSynchronization forwards to cache.Options.
	// nil (the default) leaves the cache's own shard locking on, which is
	// required for correctness here: Task commits outcomes to the cache
	// from terminate(), outside Task.mu, so concurrent terminations for
	// different keys are not otherwise serialized against each other. Only
	// set this to false if some other layer already guarantees that.
	EnableThreadSynchronization *bool
}

// Config configures a Task.
type Config[K comparable, V any] struct {
	// DataProvider selects Monofetch or Multifetch; required.
	DataProvider DataProvider[K, V]

	// RetryCount is the number of retries per admission (>=0). 0 means a
	// single attempt with no retry.
	RetryCount int

	// MaxConcurrentRunningThreadNumber bounds active provider invocations.
	// 0 is coerced to 1; negative values are rejected at construction.
	MaxConcurrentRunningThreadNumber int

	// KeyPriority orders pending-key admission (FIFO is the zero value).
	KeyPriority gate.Priority

	// CacheConfig configures the Task's internal cache.
	CacheConfig CacheConfig[K, V]

	// CacheStatisticsReport observes every cache hit/miss/set/remove/evict
	// event, if set.
	CacheStatisticsReport func(cache.CacheStatistics, cache.CacheRecord[K, V])

	// CallbackContext dispatches cache-hit deliveries and waiter drains.
	// nil defaults to DirectDispatcher.
	CallbackContext Dispatcher

	// Metrics receives provider-call/retry/exhaustion/key-rejection counts.
	// nil disables reporting.
	Metrics Metrics
}

// Package cache provides the MemoryCache this module's coalescing engines
// depend on: a fast, generic, sharded in-memory cache with pluggable
// eviction policies (LRU by default), per-entry TTL with optional jitter,
// explicit cached-null support, key validation, cost-based capacity, and
// statistics reporting.
//
// Design
//
//   - Concurrency: the cache is split into shards, each protected by an
//     RWMutex (or a no-op locker when the caller already synchronizes
//     access — see Options.EnableThreadSynchronization). Picking shards
//     reduces contention while keeping memory overhead small.
//
//   - Storage: each shard keeps a map[K]*node for lookups and an intrusive
//     MRU<->LRU doubly linked list for ordering. All operations are O(1)
//     expected.
//
//   - Policies: eviction policy is pluggable via the policy package.
//     LRU is the default. A 2Q policy is provided (resists scan pollution).
//
//   - TTL: entries carry an absolute deadline (UnixNano). Expiration is
//     lazy: an expired entry is evicted when it is read. Trimming to
//     capacity evicts from the LRU end and does not look at deadlines.
//     Options.TTLRandomizationRange adds uniform jitter to every computed
//     deadline so a burst of same-TTL writes does not expire in lockstep.
//
//   - Cached null: Set/SetWithTTL store a real value; SetNull/SetNullWithTTL
//     store an explicit "no value" outcome that Get reports via
//     Entry.IsNull, distinct from a miss (Get's second return value).
//
//   - Key validation: Options.KeyValidator can reject keys that must never
//     be persisted. Rejected writes are silently skipped; kvtask, above
//     this package, still delivers the fetched outcome to its waiters when
//     a key is rejected.
//
//   - Cost/MaxCost/MemoryMB: besides entry count (Capacity), a user-defined
//     "cost" per value (Options.Cost) can be accounted against a global
//     MaxCost, or against MemoryMB converted to bytes.
//
//   - Statistics: Options.Metrics receives cheap Hit/Miss/Evict/Size
//     signals; Options.StatisticsReport receives a richer
//     (CacheStatistics, CacheRecord) pair per event, matching this
//     project's cache_statistics_report configuration knob.
//
// Basic usage
//
//	c := cache.New[string, string](cache.Options[string, string]{Capacity: 1024})
//	c.Set("a", "1")
//	if e, ok := c.Get("a"); ok {
//	    _ = e.Value
//	}
//	c.Remove("a")
//
// See cache/options.go for all available Options fields and package policy
// for the Policy/Hooks interfaces used to implement custom strategies.
package cache

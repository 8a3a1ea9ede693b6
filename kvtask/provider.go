package kvtask

// MonofetchFunc fetches a single key. callback must be invoked exactly
// once; subsequent invocations are ignored (see runMonofetch in
// driver.go).
type MonofetchFunc[K comparable, V any] func(key K, callback func(Option[V], error))

// MultifetchFunc fetches a batch of up to max_batch_count keys. callback
// must be invoked exactly once, with either a success map covering (some
// of) the requested keys, or a single error for the whole batch.
type MultifetchFunc[K comparable, V any] func(keys []K, callback func(map[K]Option[V], error))

// DataProvider selects between the two provider shapes a Task is
// configured with. Build one with Monofetch or Multifetch; its fields are
// unexported so a zero DataProvider is recognizably invalid.
type DataProvider[K comparable, V any] struct {
	mono          MonofetchFunc[K, V]
	multi         MultifetchFunc[K, V]
	maxBatchCount int
}

// Monofetch configures a Task to call fn once per admitted key.
func Monofetch[K comparable, V any](fn MonofetchFunc[K, V]) DataProvider[K, V] {
	return DataProvider[K, V]{mono: fn}
}

// Multifetch configures a Task to call fn once per admitted batch of up to
// maxBatchCount keys, assembled greedily from the pending queue.
func Multifetch[K comparable, V any](maxBatchCount int, fn MultifetchFunc[K, V]) DataProvider[K, V] {
	return DataProvider[K, V]{multi: fn, maxBatchCount: maxBatchCount}
}

func (p DataProvider[K, V]) isMulti() bool { return p.multi != nil }
func (p DataProvider[K, V]) isValid() bool { return p.mono != nil || p.multi != nil }

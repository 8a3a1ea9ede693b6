package kvtask

import "errors"

var (
	// ErrNoDataProvider is returned by New when Config.DataProvider is the
	// zero value (neither Monofetch nor Multifetch was used to build it).
	ErrNoDataProvider = errors.New("kvtask: DataProvider must be set via Monofetch or Multifetch")

	// ErrInvalidBatchCount is returned by New when a Multifetch provider's
	// max_batch_count is less than 1.
	ErrInvalidBatchCount = errors.New("kvtask: max_batch_count must be >= 1")

	// ErrInvalidConcurrency is returned by New when
	// maximum_concurrent_running_thread_number is negative. Zero is coerced
	// to 1 rather than rejected.
	ErrInvalidConcurrency = errors.New("kvtask: maximum_concurrent_running_thread_number must be >= 0")

	// ErrKeyMissingFromBatchResult is delivered to a key's waiters when a
	// multifetch success map omits a key that was part of the requested
	// batch. It is never inferred as a cached null.
	ErrKeyMissingFromBatchResult = errors.New("kvtask: key missing from multifetch success map")
)

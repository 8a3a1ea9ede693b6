package monotask

import "time"

// Config configures a Task.
type Config[V any] struct {
	// Retry selects Never or Count(n, proxy). The zero value is Never.
	Retry RetryPolicy

	// ResultExpireDuration is the TTL applied to a successful result once
	// cached. A non-positive value means the result is never treated as
	// fresh, so every Execute call after the first re-invokes Body.
	ResultExpireDuration time.Duration

	// TaskQueue dispatches the Body invocation itself. nil defaults to
	// DirectDispatcher.
	TaskQueue Dispatcher

	// CallbackQueue dispatches waiter deliveries. nil defaults to
	// DirectDispatcher.
	CallbackQueue Dispatcher

	// Body performs the unit of work, invoking callback exactly once.
	// Required.
	Body func(callback func(V, error))

	// Metrics receives provider-call/retry/exhaustion counts. nil disables
	// reporting.
	Metrics Metrics
}

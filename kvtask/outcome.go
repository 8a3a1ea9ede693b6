package kvtask

import "github.com/kvlight/kvlighttasks/internal/waiter"

// Outcome is the terminal result delivered for one key: either a present or
// null value (Err == nil), or a provider error after retries are exhausted.
// It is an alias for waiter.Result[Option[V]] so that a Registry[Option[V]]
// waiter's Deliver func can be passed around under this more readable name.
type Outcome[V any] = waiter.Result[Option[V]]

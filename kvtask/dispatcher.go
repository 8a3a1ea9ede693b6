package kvtask

// Dispatcher is the injectable callback context: every cache-hit delivery
// and waiter drain is scheduled through it instead of being invoked
// directly by whichever goroutine produced the outcome.
type Dispatcher interface {
	Schedule(fn func())
}

// DirectDispatcher runs fn synchronously on the calling goroutine. It is
// the default, and is the right choice for deterministic tests.
type DirectDispatcher struct{}

// Schedule implements Dispatcher.
func (DirectDispatcher) Schedule(fn func()) { fn() }

// GoroutineDispatcher runs fn on a newly spawned goroutine, decoupling
// callers from however long a user callback takes to run.
type GoroutineDispatcher struct{}

// Schedule implements Dispatcher.
func (GoroutineDispatcher) Schedule(fn func()) { go fn() }

package monotask

// Dispatcher is the injectable callback context for a Task, identical in
// shape to kvtask.Dispatcher: provider invocations run on TaskQueue, waiter
// deliveries run on CallbackQueue, and either can be substituted
// independently (e.g. a real task queue feeding a direct callback queue).
type Dispatcher interface {
	Schedule(fn func())
}

// DirectDispatcher runs fn synchronously on the calling goroutine.
type DirectDispatcher struct{}

// Schedule implements Dispatcher.
func (DirectDispatcher) Schedule(fn func()) { fn() }

// GoroutineDispatcher runs fn on a newly spawned goroutine.
type GoroutineDispatcher struct{}

// Schedule implements Dispatcher.
func (GoroutineDispatcher) Schedule(fn func()) { go fn() }

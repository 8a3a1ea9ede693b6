// Package monotask implements MonoTask: a single-shot coalescing executor
// for one logical unit of work, with retry, a TTL cache of the last result,
// and a clear-result operation that can allow an in-flight execution to
// complete, cancel it, or cancel-and-immediately-restart it.
package monotask

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/kvlight/kvlighttasks/internal/waiter"
)

type state int

const (
	stateIdle state = iota
	stateExecuting
	stateCached
)

// ClearStrategy governs how ClearResult treats cached state and any
// in-flight execution.
type ClearStrategy int

const (
	// AllowCompletion forgets the cached value (and expiry) immediately;
	// an in-flight execution keeps running and its waiters still receive
	// its outcome, but the result will not be cached.
	AllowCompletion ClearStrategy = iota
	// Cancel forgets the cached value and marks any in-flight execution
	// cancelled: every attached waiter receives
	// ErrExecutionCancelledDueToClearResult, and the provider's eventual
	// callback (if it ever arrives) is dropped.
	Cancel
	// Restart applies Cancel semantics to current waiters, then
	// immediately starts a fresh execution with a new, empty waiter set.
	Restart
)

type cachedValue[V any] struct {
	value   V
	expires time.Time
}

// Task is a configured MonoTask instance. The zero value is not usable;
// construct one with New.
type Task[V any] struct {
	mu      sync.Mutex
	cfg     Config[V]
	metrics Metrics

	state   state
	execID  int
	attempt int
	waiters waiter.Registry[V]

	cancelled     atomic.Bool
	suppressCache bool
	cached        cachedValue[V]
}

// New validates cfg and constructs a Task.
func New[V any](cfg Config[V]) (*Task[V], error) {
	if cfg.Body == nil {
		return nil, ErrNoBody
	}
	if cfg.Retry.interval == nil {
		cfg.Retry.interval = Fixed(0)
	}
	if cfg.TaskQueue == nil {
		cfg.TaskQueue = DirectDispatcher{}
	}
	if cfg.CallbackQueue == nil {
		cfg.CallbackQueue = DirectDispatcher{}
	}
	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	return &Task[V]{cfg: cfg, metrics: m, state: stateIdle}, nil
}

// Execute attaches cb (if non-nil) as a waiter and ensures an execution is
// running: a fresh Idle task starts one; an already-Executing task just
// attaches; a fresh Cached result (now < expires_at) delivers immediately
// without invoking Body; an expired Cached result starts a new execution.
func (t *Task[V]) Execute(cb func(V, error)) {
	var invoke bool
	var id, attempt int

	t.mu.Lock()
	switch t.state {
	case stateCached:
		if time.Now().Before(t.cached.expires) {
			v := t.cached.value
			t.mu.Unlock()
			if cb != nil {
				t.cfg.CallbackQueue.Schedule(func() { cb(v, nil) })
			}
			return
		}
		t.beginLocked(cb)
		invoke, id, attempt = true, t.execID, t.attempt
	case stateExecuting:
		if cb != nil {
			t.attach(cb)
		}
	case stateIdle:
		t.beginLocked(cb)
		invoke, id, attempt = true, t.execID, t.attempt
	}
	t.mu.Unlock()

	if invoke {
		t.runBody(id, attempt)
	}
}

// JustExecute is Execute(nil): ensure an execution is running without
// attaching a waiter for its outcome.
func (t *Task[V]) JustExecute() { t.Execute(nil) }

// AsyncExecute suspends the calling goroutine until the outcome is known
// and returns it directly.
func (t *Task[V]) AsyncExecute() (V, error) {
	ch := make(chan waiter.Result[V], 1)
	t.Execute(func(v V, err error) { ch <- waiter.Result[V]{Value: v, Err: err} })
	res := <-ch
	return res.Value, res.Err
}

// CurrentResult returns the cached value and true iff the task is in the
// Cached state and its result has not expired.
func (t *Task[V]) CurrentResult() (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateCached && time.Now().Before(t.cached.expires) {
		return t.cached.value, true
	}
	var zero V
	return zero, false
}

// IsExecuting reports whether an execution is currently in progress.
func (t *Task[V]) IsExecuting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateExecuting
}

// ClearResult applies strategy to the task's cached state and, per
// strategy, to any in-flight execution's waiters.
func (t *Task[V]) ClearResult(strategy ClearStrategy) {
	switch strategy {
	case AllowCompletion:
		t.mu.Lock()
		switch t.state {
		case stateCached:
			t.state = stateIdle
			t.cached = cachedValue[V]{}
		case stateExecuting:
			// Let the execution run to completion and still deliver to its
			// waiters, but its result must not enter the cache.
			t.suppressCache = true
		}
		t.mu.Unlock()

	case Cancel:
		t.mu.Lock()
		if t.state == stateExecuting {
			t.cancelled.Store(true)
			ws := t.waiters.Take()
			t.state = stateIdle
			t.mu.Unlock()
			t.deliverErr(ws, ErrExecutionCancelledDueToClearResult)
			return
		}
		if t.state == stateCached {
			t.state = stateIdle
			t.cached = cachedValue[V]{}
		}
		t.mu.Unlock()

	case Restart:
		t.mu.Lock()
		var ws []waiter.Waiter[V]
		if t.state == stateExecuting {
			t.cancelled.Store(true)
			ws = t.waiters.Take()
		} else if t.state == stateCached {
			t.cached = cachedValue[V]{}
		}
		t.beginLocked(nil)
		id, attempt := t.execID, t.attempt
		t.mu.Unlock()

		if ws != nil {
			t.deliverErr(ws, ErrExecutionCancelledDueToClearResult)
		}
		t.runBody(id, attempt)
	}
}

// beginLocked starts a fresh execution: a new execID (so stale callbacks
// from whatever execution preceded it are recognizably stale), attempt 1,
// and an empty waiter set. Caller holds t.mu.
func (t *Task[V]) beginLocked(cb func(V, error)) {
	t.execID++
	t.attempt = 1
	t.state = stateExecuting
	t.cancelled.Store(false)
	t.suppressCache = false
	t.waiters = waiter.Registry[V]{}
	if cb != nil {
		t.attach(cb)
	}
}

// attach registers cb as a waiter. Caller holds t.mu.
func (t *Task[V]) attach(cb func(V, error)) {
	t.waiters.Attach(func(res waiter.Result[V]) { cb(res.Value, res.Err) })
}

func (t *Task[V]) deliverErr(ws []waiter.Waiter[V], err error) {
	t.cfg.CallbackQueue.Schedule(func() {
		waiter.Deliver(ws, waiter.Result[V]{Err: err})
	})
}

func (t *Task[V]) deliverVal(ws []waiter.Waiter[V], v V) {
	t.cfg.CallbackQueue.Schedule(func() {
		waiter.Deliver(ws, waiter.Result[V]{Value: v})
	})
}

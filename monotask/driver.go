package monotask

import (
	"time"

	"go.uber.org/atomic"
)

// runBody schedules one invocation of Body on TaskQueue for execution id at
// the given attempt number. fired guards against Body calling its callback
// more than once: only the first call is honored.
func (t *Task[V]) runBody(id, attempt int) {
	if attempt == 1 {
		t.metrics.ProviderCalled()
	}
	t.cfg.TaskQueue.Schedule(func() {
		var fired atomic.Bool
		t.cfg.Body(func(v V, err error) {
			if fired.Swap(true) {
				return
			}
			t.complete(id, attempt, v, err)
		})
	})
}

// complete processes one terminal callback from Body. A callback whose
// execID no longer matches the task's current execution (superseded by a
// clearResult(restart), or simply stale) is dropped.
func (t *Task[V]) complete(id, attempt int, v V, err error) {
	t.mu.Lock()
	if t.state != stateExecuting || t.execID != id {
		t.mu.Unlock()
		return
	}

	if t.cancelled.Load() {
		ws := t.waiters.Take()
		t.state = stateIdle
		t.mu.Unlock()
		t.deliverErr(ws, ErrExecutionCancelledDueToClearResult)
		return
	}

	if err != nil {
		if attempt <= t.cfg.Retry.maxRetries {
			next := attempt + 1
			t.attempt = next
			interval := t.cfg.Retry.interval(attempt)
			t.mu.Unlock()
			t.metrics.ProviderRetried()
			if interval > 0 {
				time.AfterFunc(interval, func() { t.runBody(id, next) })
			} else {
				t.runBody(id, next)
			}
			return
		}
		t.metrics.ProviderExhausted()
		ws := t.waiters.Take()
		t.state = stateIdle
		t.mu.Unlock()
		t.deliverErr(ws, err)
		return
	}

	ws := t.waiters.Take()
	if t.suppressCache {
		t.state = stateIdle
		t.suppressCache = false
	} else {
		t.state = stateCached
		t.cached = cachedValue[V]{value: v, expires: time.Now().Add(t.cfg.ResultExpireDuration)}
	}
	t.mu.Unlock()
	t.deliverVal(ws, v)
}

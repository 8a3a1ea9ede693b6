package monotask

import "errors"

var (
	// ErrNoBody is returned by New when Config.Body is nil.
	ErrNoBody = errors.New("monotask: Body must be set")

	// ErrExecutionCancelledDueToClearResult is delivered to every waiter
	// attached at the moment ClearResult(Cancel) or ClearResult(Restart) is
	// called, in place of whatever outcome the in-flight execution would
	// otherwise have produced.
	ErrExecutionCancelledDueToClearResult = errors.New("monotask: execution cancelled due to clearResult")
)

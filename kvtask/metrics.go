package kvtask

// Metrics receives engine-level counters. metrics/prom.Adapter implements
// this shape in addition to cache.Metrics, so a single adapter instance
// can back both the cache and the coalescing layer above it.
type Metrics interface {
	ProviderCalled()
	ProviderRetried()
	ProviderExhausted()
	KeyRejected()
}

type noopMetrics struct{}

func (noopMetrics) ProviderCalled()    {}
func (noopMetrics) ProviderRetried()   {}
func (noopMetrics) ProviderExhausted() {}
func (noopMetrics) KeyRejected()       {}

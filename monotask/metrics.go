package monotask

// Metrics receives engine-level counters, the MonoTask analogue of
// kvtask.Metrics (it has no KeyRejected counterpart: MonoTask has no keys
// or cache validator, only a single cached result).
type Metrics interface {
	ProviderCalled()
	ProviderRetried()
	ProviderExhausted()
}

type noopMetrics struct{}

func (noopMetrics) ProviderCalled()    {}
func (noopMetrics) ProviderRetried()   {}
func (noopMetrics) ProviderExhausted() {}

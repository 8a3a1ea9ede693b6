package prom

import (
	"github.com/kvlight/kvlighttasks/cache"
	"github.com/kvlight/kvlighttasks/kvtask"
	"github.com/kvlight/kvlighttasks/monotask"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// It also exposes engine-level counters (kvtask.Metrics / monotask.Metrics
// shape: ProviderCalled/ProviderRetried/ProviderExhausted/KeyRejected) so one
// adapter can back both the cache and the coalescing engines above it.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	evicts   *prometheus.CounterVec
	sizeEnt  prometheus.Gauge
	sizeCost prometheus.Gauge

	providerCalls     prometheus.Counter
	providerRetries   prometheus.Counter
	providerExhausted prometheus.Counter
	keyRejected       prometheus.Counter
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
		sizeCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_cost",
			Help:        "Total resident cost",
			ConstLabels: constLabels,
		}),
		providerCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "provider_calls_total",
			Help:        "Provider invocations admitted through the concurrency gate",
			ConstLabels: constLabels,
		}),
		providerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "provider_retries_total",
			Help:        "Provider re-invocations due to retry policy",
			ConstLabels: constLabels,
		}),
		providerExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "provider_retries_exhausted_total",
			Help:        "Terminal failures after exhausting retry_count",
			ConstLabels: constLabels,
		}),
		keyRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "key_validator_rejected_total",
			Help:        "Successful outcomes whose cache commit was skipped by KeyValidator",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt, a.sizeCost,
		a.providerCalls, a.providerRetries, a.providerExhausted, a.keyRejected)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Size updates gauges for the number of entries and total cost.
func (a *Adapter) Size(entries int, cost int64) {
	a.sizeEnt.Set(float64(entries))
	a.sizeCost.Set(float64(cost))
}

// ProviderCalled records one provider admission (one monofetch call or one
// multifetch batch, regardless of batch size).
func (a *Adapter) ProviderCalled() { a.providerCalls.Inc() }

// ProviderRetried records a retry re-invocation of the same admission.
func (a *Adapter) ProviderRetried() { a.providerRetries.Inc() }

// ProviderExhausted records a terminal failure after retry_count is spent.
func (a *Adapter) ProviderExhausted() { a.providerExhausted.Inc() }

// KeyRejected records a successful outcome whose cache commit KeyValidator
// refused; the outcome was still delivered to waiters.
func (a *Adapter) KeyRejected() { a.keyRejected.Inc() }

// reason maps EvictReason to a stable label value.
func reason(r cache.EvictReason) string {
	switch r {
	case cache.EvictTTL:
		return "ttl"
	case cache.EvictCapacity:
		return "capacity"
	default:
		return "policy"
	}
}

// Compile-time checks: Adapter backs both the cache and kvtask/monotask's
// engine-level metrics contracts.
var (
	_ cache.Metrics    = (*Adapter)(nil)
	_ kvtask.Metrics   = (*Adapter)(nil)
	_ monotask.Metrics = (*Adapter)(nil)
)

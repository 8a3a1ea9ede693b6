// Command bench runs a synthetic coalescing/batching workload against a
// kvtask.Task and exposes optional pprof/Prometheus endpoints, in the same
// flag-driven, dual-server shape as a raw-cache load generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kvlight/kvlighttasks/internal/gate"
	pmet "github.com/kvlight/kvlighttasks/metrics/prom"
	"github.com/kvlight/kvlighttasks/kvtask"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var (
		capacity      = flag.Int("cap", 100_000, "cache capacity (entries)")
		maxConcurrent = flag.Int("concurrency", 2*runtime.GOMAXPROCS(0), "max concurrent provider invocations")
		priority      = flag.String("priority", "fifo", "pending-key admission order: fifo | lifo")
		maxBatch      = flag.Int("batch", 16, "max_batch_count for the multifetch provider (0 = monofetch)")
		latency       = flag.Duration("latency", 2*time.Millisecond, "simulated per-call provider latency")

		workers  = flag.Int("workers", 4*runtime.GOMAXPROCS(0), "number of worker goroutines issuing fetches")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		fanIn    = flag.Int("fanin", 4, "keys per Fetch call, chosen from the Zipf keyspace")

		keys  = flag.Int("keys", 100_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	metrics := pmet.New(nil, "kvlight", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	keyPriority := gate.FIFO
	if *priority == "lifo" {
		keyPriority = gate.LIFO
	}

	var providerCalls int64
	cfg := kvtask.Config[string, string]{
		MaxConcurrentRunningThreadNumber: *maxConcurrent,
		KeyPriority:                      keyPriority,
		CacheConfig:                      kvtask.CacheConfig[string, string]{Capacity: *capacity, DefaultTTL: time.Second},
		Metrics:                          metrics,
	}
	if *maxBatch > 0 {
		cfg.DataProvider = kvtask.Multifetch(*maxBatch, func(ks []string, cb func(map[string]kvtask.Option[string], error)) {
			atomic.AddInt64(&providerCalls, 1)
			time.Sleep(*latency)
			out := make(map[string]kvtask.Option[string], len(ks))
			for _, k := range ks {
				out[k] = kvtask.Some("v:" + k)
			}
			cb(out, nil)
		})
	} else {
		cfg.DataProvider = kvtask.Monofetch(func(k string, cb func(kvtask.Option[string], error)) {
			atomic.AddInt64(&providerCalls, 1)
			time.Sleep(*latency)
			cb(kvtask.Some("v:"+k), nil)
		})
	}

	task, err := kvtask.New(cfg)
	if err != nil {
		log.Fatalf("kvtask.New: %v", err)
	}

	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}
	keysMax := uint64(*keys - 1)

	var totalFetches, totalKeys uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()
			localR := rand.New(rand.NewSource(*seed + int64(id)*9973))
			localZipf := rand.NewZipf(localR, *zipfS, *zipfV, keysMax)

			batch := make([]string, *fanIn)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				for i := range batch {
					batch[i] = "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
				}
				var inner sync.WaitGroup
				inner.Add(len(batch))
				task.Fetch(batch, func(string, kvtask.Option[string], error) { inner.Done() })
				inner.Wait()

				atomic.AddUint64(&totalFetches, 1)
				atomic.AddUint64(&totalKeys, uint64(len(batch)))
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	fetches := atomic.LoadUint64(&totalFetches)
	keysIssued := atomic.LoadUint64(&totalKeys)
	calls := atomic.LoadInt64(&providerCalls)

	fmt.Printf("concurrency=%d priority=%s batch=%d workers=%d keys=%d dur=%v\n",
		*maxConcurrent, *priority, *maxBatch, workersN, *keys, elapsed)
	fmt.Printf("fetches=%d keys_issued=%d (%.0f keys/s)  provider_calls=%d  coalescing_ratio=%.2fx\n",
		fetches, keysIssued, float64(keysIssued)/elapsed.Seconds(), calls,
		float64(keysIssued)/float64(max64(calls, 1)))
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

package metrics

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mount serves the registry at /metrics and the runtime profiles under
// /debug/pprof.
func Mount(r chi.Router, gatherer prometheus.Gatherer, registerer prometheus.Registerer) {
	runtimeGauges := newRuntimeGauges(registerer)

	r.With(runtimeGauges.middleware).Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/debug/pprof", func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.Handle("/allocs", pprof.Handler("allocs"))
		r.Handle("/block", pprof.Handler("block"))
		r.Handle("/goroutine", pprof.Handler("goroutine"))
		r.Handle("/heap", pprof.Handler("heap"))
		r.Handle("/mutex", pprof.Handler("mutex"))
		r.Handle("/threadcreate", pprof.Handler("threadcreate"))
	})
}

type runtimeGauges struct {
	goroutines  prometheus.Gauge
	memoryAlloc prometheus.Gauge
	numGC       prometheus.Gauge
}

func newRuntimeGauges(reg prometheus.Registerer) *runtimeGauges {
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		_ = reg.Register(g)
		return g
	}

	return &runtimeGauges{
		goroutines:  gauge("app_go_routines", "Goroutines at the last scrape."),
		memoryAlloc: gauge("app_sys_memory_alloc", "Heap bytes allocated at the last scrape."),
		numGC:       gauge("app_go_num_gc", "Completed GC cycles at the last scrape."),
	}
}

func (g *runtimeGauges) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)

		g.goroutines.Set(float64(runtime.NumGoroutine()))
		g.memoryAlloc.Set(float64(stats.Alloc))
		g.numGC.Set(float64(stats.NumGC))

		next.ServeHTTP(w, r)
	})
}

// Instrument records request count and latency labelled by the matched route
// pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Package metrics exposes Prometheus collectors for the word server.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/words"
)

// Metrics holds the server collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	words    prometheus.GaugeFunc
}

// New registers the request collectors and a gauge backed by counter.
// counter may be nil, in which case no word gauge is registered.
func New(counter func(ctx context.Context) (int, error)) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordfeed",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wordfeed",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	m.registry.MustRegister(m.requests, m.latency)

	if counter != nil {
		m.words = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "wordfeed",
			Name:      "words_live",
			Help:      "Number of live words in the store.",
		}, func() float64 {
			n, err := counter(context.Background())
			if err != nil {
				obs.Pkg("metrics").Warn("word_count_failed", "error", err.Error())
				return 0
			}
			return float64(n)
		})
		m.registry.MustRegister(m.words)
	}
	return m
}

// WordCounter adapts a word store to the gauge callback.
func WordCounter(store words.Store) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		_, total, err := store.Slice(ctx, 0, 0)
		return total, err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latency. Routes are labelled by the
// ServeMux pattern so ids in paths do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped, rec := obs.NewResponseRecorder(w)
		next.ServeHTTP(wrapped, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.StatusCode())).Inc()
		m.latency.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

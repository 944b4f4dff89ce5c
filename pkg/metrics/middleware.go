package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpRequestsTotal   = "http_requests_total"
	httpRequestDuration = "http_request_duration_milliseconds"
)

var latencyBuckets = []float64{1, 5, 25, 100, 500}

// Middleware counts the requests served by the metrics endpoint, partitioned
// by status code, method and route pattern.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewMiddleware() *Middleware {
	return &Middleware{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: vsphereInspector,
				Name:      httpRequestsTotal,
				Help:      "Number of HTTP requests partitioned by status code, method and HTTP path.",
			}, []string{"code", "method", "path"}),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: vsphereInspector,
				Name:      httpRequestDuration,
				Help:      "Time spent on the request partitioned by status code, method and HTTP path.",
				Buckets:   latencyBuckets,
			}, []string{"code", "method", "path"}),
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			code := strconv.Itoa(ww.Status())
			rp := rctx.RoutePattern()
			m.requests.WithLabelValues(code, r.Method, rp).Inc()
			m.latency.WithLabelValues(code, r.Method, rp).Observe(float64(time.Since(start).Milliseconds()))
		}
	}
	return http.HandlerFunc(fn)
}

// Register adds the collectors to r. When r already has them, m records into
// the registered ones so that a router can be built more than once.
func (m *Middleware) Register(r prometheus.Registerer) error {
	var are prometheus.AlreadyRegisteredError

	if err := r.Register(m.requests); err != nil {
		if !errors.As(err, &are) {
			return err
		}
		m.requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := r.Register(m.latency); err != nil {
		if !errors.As(err, &are) {
			return err
		}
		m.latency = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return nil
}

package poller

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kubev2v/vsphere-inspector/pkg/correlation"
	"github.com/kubev2v/vsphere-inspector/pkg/log"
	"github.com/kubev2v/vsphere-inspector/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const gracefulShutdownTimeout = 5 * time.Second

// MetricServer exposes the poller gauges on /metrics.
type MetricServer struct {
	bindAddress string
	httpServer  *http.Server
	listener    net.Listener
}

func NewMetricServer(bindAddress string, listener net.Listener) *MetricServer {
	return &MetricServer{
		bindAddress: bindAddress,
		listener:    listener,
		httpServer: &http.Server{
			Addr:              bindAddress,
			Handler:           NewRouter(prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter serves /metrics from gatherer and a liveness probe on /health.
// The request metrics of the router itself are registered on registerer.
func NewRouter(registerer prometheus.Registerer, gatherer prometheus.Gatherer) http.Handler {
	m := metrics.NewMiddleware()
	if err := m.Register(registerer); err != nil {
		zap.S().Named("metrics_server").Warnf("http metrics not registered: %v", err)
	}

	router := chi.NewRouter()
	router.Use(
		correlation.Middleware,
		log.Logger(zap.L(), "metrics_server"),
		m.Handler,
	)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}

func (m *MetricServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		m.httpServer.SetKeepAlivesEnabled(false)
		_ = m.httpServer.Shutdown(ctxTimeout)
		zap.S().Named("metrics_server").Info("metrics server terminated")
	}()

	zap.S().Named("metrics_server").Infof("serving metrics: %s", m.bindAddress)
	if err := m.httpServer.Serve(m.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

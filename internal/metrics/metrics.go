// Package metrics exposes prometheus counters and histograms for the two
// places Kukur's request path can fail or slow down: the dispatcher's
// adapter calls (internal/dispatcher) and the RPC surface's authentication
// (internal/rpc). It follows the teacher's internal/metrics package: a set
// of promauto-registered collectors, a small MetricsServer that exposes
// them over /metrics, and a handful of Record*/Set* helper functions
// callers reach for instead of touching the collectors directly.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// DispatchCallsTotal counts every dispatcher adapter call, whether it
	// ultimately succeeded or failed.
	DispatchCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kukur_dispatch_calls_total",
			Help: "Total number of dispatcher adapter calls",
		},
		[]string{"source", "operation", "status"},
	)

	// DispatchCallDuration measures wall-clock time per adapter call,
	// including retries.
	DispatchCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kukur_dispatch_call_duration_seconds",
			Help:    "Time spent in a dispatcher adapter call, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "operation"},
	)

	// DispatchRetriesTotal counts each retry attempt the recovery policy
	// takes, separate from the call total above.
	DispatchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kukur_dispatch_retries_total",
			Help: "Total number of adapter call retries",
		},
		[]string{"source", "operation"},
	)

	// DispatchErrorsTotal counts adapter failures by the errkind.Kind that
	// classified them, so an operator can see whether a source is mostly
	// timing out or mostly misconfigured.
	DispatchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kukur_dispatch_errors_total",
			Help: "Total number of adapter call failures by error kind",
		},
		[]string{"source", "operation", "kind"},
	)

	// AuthAttemptsTotal counts every credential check the RPC layer
	// performs, whether for an Action or a Get call.
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kukur_auth_attempts_total",
			Help: "Total number of API key authentication attempts",
		},
		[]string{"result"},
	)

	// RPCRequestsTotal counts every Flight DoAction/DoGet call Kukur
	// served, by the action or query name and its outcome.
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kukur_rpc_requests_total",
			Help: "Total number of RPC requests served",
		},
		[]string{"operation", "status"},
	)

	// RPCRequestDuration measures one full RPC call, from authentication
	// through the last byte written to the stream.
	RPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kukur_rpc_request_duration_seconds",
			Help:    "Time spent serving one RPC request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// ApiKeysActive reports the current number of non-revoked API keys.
	ApiKeysActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kukur_api_keys_active",
		Help: "Current number of active (non-revoked) API keys",
	})

	// RegisteredSources reports the number of sources the registry built
	// adapters for at startup.
	RegisteredSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kukur_registered_sources",
		Help: "Number of sources currently registered",
	})
)

// RecordDispatchCall records the outcome and duration of one dispatcher
// adapter call.
func RecordDispatchCall(source, operation, status string, duration time.Duration) {
	DispatchCallsTotal.WithLabelValues(source, operation, status).Inc()
	DispatchCallDuration.WithLabelValues(source, operation).Observe(duration.Seconds())
}

// RecordDispatchRetry records one retry attempt for an adapter call.
func RecordDispatchRetry(source, operation string) {
	DispatchRetriesTotal.WithLabelValues(source, operation).Inc()
}

// RecordDispatchError records an adapter failure classified by kind.
func RecordDispatchError(source, operation, kind string) {
	DispatchErrorsTotal.WithLabelValues(source, operation, kind).Inc()
}

// RecordAuthAttempt records one API key authentication outcome: "success",
// "invalid_key", "missing_credentials", or "malformed_credentials".
func RecordAuthAttempt(result string) {
	AuthAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordRPCRequest records the outcome and duration of one RPC call.
func RecordRPCRequest(operation, status string, duration time.Duration) {
	RPCRequestsTotal.WithLabelValues(operation, status).Inc()
	RPCRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetApiKeysActive updates the active API key count gauge.
func SetApiKeysActive(count int) {
	ApiKeysActive.Set(float64(count))
}

// SetRegisteredSources updates the registered source count gauge.
func SetRegisteredSources(count int) {
	RegisteredSources.Set(float64(count))
}

// Server serves the prometheus registry over HTTP, the same shape as the
// teacher's MetricsServer: a /metrics endpoint plus a bare /health check.
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer builds a metrics HTTP server listening on addr. It does not
// start listening until Start is called.
func NewServer(addr string, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return &Server{
		server: &http.Server{Addr: addr, Handler: mux},
		logger: logger,
	}
}

// Start begins serving in the background. It returns immediately; a
// listen failure is logged rather than returned, matching the teacher's
// fire-and-forget metrics server startup.
func (s *Server) Start() {
	s.logger.WithField("addr", s.server.Addr).Info("starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("metrics server error")
		}
	}()
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping metrics server")
	return s.server.Shutdown(ctx)
}

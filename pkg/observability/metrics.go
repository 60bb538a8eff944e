package observability

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Hover request outcomes.
const (
	OutcomeShown = "shown"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Trigger kinds.
const (
	TriggerPointer  = "pointer"
	TriggerKeyboard = "keyboard"
)

var (
	HoverRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hoverkit",
			Subsystem: "hover",
			Name:      "requests_total",
			Help:      "Hover requests started, by trigger kind",
		},
		[]string{"trigger"},
	)

	HoverResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hoverkit",
			Subsystem: "hover",
			Name:      "results_total",
			Help:      "Hover requests finished, by outcome",
		},
		[]string{"outcome"},
	)

	HoverCancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hoverkit",
			Subsystem: "hover",
			Name:      "cancellations_total",
			Help:      "In-flight hover requests superseded or dismissed",
		},
	)

	DiagnosticPopovers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hoverkit",
			Subsystem: "hover",
			Name:      "diagnostic_popovers_total",
			Help:      "Diagnostic popovers shown, by severity",
		},
		[]string{"severity"},
	)

	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hoverkit",
			Subsystem: "backend",
			Name:      "latency_seconds",
			Help:      "Backend hover call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"backend"},
	)

	RenderCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hoverkit",
			Subsystem: "render",
			Name:      "cache_total",
			Help:      "Info popover render cache lookups, by result",
		},
		[]string{"result"},
	)
)

// ObserveBackend records one backend call.
func ObserveBackend(backend string, elapsed time.Duration) {
	BackendLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ServeMetrics serves /metrics on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

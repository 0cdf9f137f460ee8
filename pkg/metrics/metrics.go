// Package metrics provides the Prometheus registry and the optional HTTP
// listener for the artwork table.
// All metrics are defined in their respective packages (client, ratelimit,
// selection, view) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Registry is where the handler registers its own request metrics.
	// Package metrics are registered via promauto on the default registry.
	Registry = prometheus.DefaultRegisterer

	// Gatherer is what /metrics exposes.
	Gatherer = prometheus.DefaultGatherer
)

// ReadyFunc reports whether the backing services are reachable.
type ReadyFunc func(ctx context.Context) error

// NewHandler returns a mux serving /metrics, /health and /ready.
// A nil ready func is always ready.
func NewHandler(ready ReadyFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}),
	))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(ready))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				http.Error(w, fmt.Sprintf("not ready: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// Serve runs the metrics listener on addr until ctx is done.
func Serve(ctx context.Context, addr string, ready ReadyFunc, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(ready),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Starting metrics listener")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics listener: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics listener: %w", err)
		}
		logger.Info().Msg("Metrics listener stopped")
		return nil
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - artwork_requests_total{status} (Counter): Total page requests by HTTP status
//   - artwork_request_duration_seconds (Histogram): Page request duration
//   - artwork_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, malformed)
//
// Retry Metrics (pkg/client):
//   - artwork_retries_total{error_class} (Counter): Retry attempts by error class
//   - artwork_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - artwork_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - artwork_requests_in_window (Gauge): Requests counted in the current window
//   - artwork_rate_limit_blocks_total (Counter): Requests held back until the window reset
//   - artwork_rate_limit_throttles_total (Counter): Requests slowed past the warning ratio
//
// Selection Metrics (pkg/selection):
//   - artwork_selection_size (Gauge): Records in the most recently changed selection
//   - artwork_bulk_selections_total{result} (Counter): Bulk selections by result (success, failure, superseded)
//   - artwork_bulk_pages_fetched_total (Counter): Pages fetched for bulk selections
//
// View Metrics (pkg/view):
//   - artwork_stale_pages_discarded_total (Counter): Page responses dropped for a newer request
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(artwork_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(artwork_request_duration_seconds_bucket[5m]))
//
//   # Bulk Selection Failure Ratio
//   sum(rate(artwork_bulk_selections_total{result="failure"}[1h])) /
//   sum(rate(artwork_bulk_selections_total[1h]))
//
//   # Window Budget Usage
//   artwork_requests_in_window / 60

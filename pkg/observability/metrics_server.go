package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeMetrics exposes the process's registered Prometheus collectors
// (everything created through PrometheusMetricsClient uses the default
// registerer) on addr until ctx is canceled. Errors other than a clean
// shutdown are sent on the returned channel.
func ServeMetrics(ctx context.Context, addr string) <-chan error {
	errCh := make(chan error, 1)
	if addr == "" {
		close(errCh)
		return errCh
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		close(errCh)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return errCh
}

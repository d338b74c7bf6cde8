// Package metrics exposes import counters for Prometheus
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Result label values
const (
	ResultCreated  = "created"
	ResultInserted = "inserted"
	ResultExisting = "existing"
	ResultFailed   = "failed"
	ResultSkipped  = "skipped"
	ResultLinked   = "linked"
	ResultUnlinked = "unlinked"
	ResultUploaded = "uploaded"
)

var (
	// Brands counts brand rows by outcome
	Brands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_brands_total",
		Help: "Brands processed by result",
	}, []string{"result"})

	// Categories counts category rows by outcome
	Categories = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_categories_total",
		Help: "Category rows processed by result",
	}, []string{"result"})

	// Products counts product rows by outcome
	Products = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_products_total",
		Help: "Product rows processed by result",
	}, []string{"result"})

	// ProductLinks counts product-category link attempts by outcome
	ProductLinks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_product_links_total",
		Help: "Product to category links by result",
	}, []string{"result"})

	// Images counts image uploads by entity kind and outcome
	Images = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_images_total",
		Help: "Image uploads by kind (category, product) and result",
	}, []string{"kind", "result"})

	// HTTPRequestDuration tracks outbound request latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_import_http_request_duration_seconds",
		Help:    "Outbound HTTP request duration by target (admin, legacy, storage)",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
	}, []string{"target"})
)

// ObserveHTTP records the duration of one outbound request
func ObserveHTTP(target string, started time.Time) {
	HTTPRequestDuration.WithLabelValues(target).Observe(time.Since(started).Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

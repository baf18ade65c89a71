// Package metrics exposes per-cycle rebalancing gauges on a private
// Prometheus registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DrSkyle/skybalance/pkg/airspace"
)

const defaultNamespace = "skybalance"

// Recorder holds the collectors for one process. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	cycle         prometheus.Gauge
	threshold     prometheus.Gauge
	overloaded    prometheus.Gauge
	facilityLoad  *prometheus.GaugeVec
	fetchFailures *prometheus.CounterVec
	coincident    prometheus.Counter
	displacement  prometheus.Histogram
}

// NewRecorder registers every collector under namespace ("skybalance" when empty).
func NewRecorder(namespace string) *Recorder {
	if namespace == "" {
		namespace = defaultNamespace
	}
	r := &Recorder{reg: prometheus.NewRegistry()}

	r.cycle = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cycle",
		Help:      "Index of the most recently completed rebalancing cycle.",
	})
	r.threshold = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "overload_threshold",
		Help:      "Load above which a facility counts as overloaded.",
	})
	r.overloaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "overloaded_facilities",
		Help:      "Number of facilities above the overload threshold in the last cycle.",
	})
	r.facilityLoad = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "facility",
		Name:      "load",
		Help:      "Aircraft assigned to each facility in the last cycle.",
	}, []string{"facility"})
	r.fetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "traffic",
		Name:      "fetch_failures_total",
		Help:      "Traffic queries that failed after retries, by facility.",
	}, []string{"facility"})
	r.coincident = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "solver",
		Name:      "coincident_pairs_total",
		Help:      "Facility pairs skipped because they share a position.",
	})
	r.displacement = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "solver",
		Name:      "displacement_degrees",
		Help:      "Total facility displacement applied per cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8), // 0.001 .. ~16
	})

	r.reg.MustRegister(
		r.cycle,
		r.threshold,
		r.overloaded,
		r.facilityLoad,
		r.fetchFailures,
		r.coincident,
		r.displacement,
	)
	return r
}

// Registry returns the underlying registry for gathering in tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveCycle publishes the classified loads of one cycle.
func (r *Recorder) ObserveCycle(cycle int, threshold float64, facilities []airspace.Facility) {
	if r == nil {
		return
	}
	r.cycle.Set(float64(cycle))
	r.threshold.Set(threshold)
	over := 0
	for _, f := range facilities {
		r.facilityLoad.WithLabelValues(f.Name).Set(float64(f.Load))
		if f.Overloaded {
			over++
		}
	}
	r.overloaded.Set(float64(over))
}

// FetchFailed counts a facility whose traffic query gave up.
func (r *Recorder) FetchFailed(facility string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(facility).Inc()
}

// ObserveAdjustment records the outcome of one position adjustment.
func (r *Recorder) ObserveAdjustment(displacement float64, coincident int) {
	if r == nil {
		return
	}
	r.displacement.Observe(displacement)
	if coincident > 0 {
		r.coincident.Add(float64(coincident))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Package metrics exposes repository call outcomes as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

// Outcome label values that are not an adapters.Category.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidInput = "invalid_input"
)

// Recorder implements adapters.Observer.
type Recorder struct {
	gatherer   prometheus.Gatherer
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ adapters.Observer = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them on reg. A nil reg
// gets a private registry.
func NewRecorder(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		gatherer: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbgate",
			Name:      "operations_total",
			Help:      "Repository calls by backend, operation and outcome.",
		}, []string{"provider", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbgate",
			Name:      "operation_duration_seconds",
			Help:      "Repository call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "op"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveOperation implements adapters.Observer. The resource is left out of
// the labels to keep cardinality bounded.
func (r *Recorder) ObserveOperation(provider adapters.Provider, op, _ string, elapsed time.Duration, err error) {
	r.operations.WithLabelValues(string(provider), op, Outcome(err)).Inc()
	r.duration.WithLabelValues(string(provider), op).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Outcome maps an operation error to a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var opErr *adapters.OperationError
	if errors.As(err, &opErr) {
		return string(opErr.Category)
	}
	if errors.Is(err, adapters.ErrInvalidInput) {
		return OutcomeInvalidInput
	}
	if c, ok := adapters.ContextCategory(err); ok {
		return string(c)
	}
	return string(adapters.CategoryUnknown)
}

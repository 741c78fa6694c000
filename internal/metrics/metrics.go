// Package metrics records analysis runs in a prometheus registry and writes
// them out in textfile-collector format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pable/go-cs-contagion/internal/analysis"
	"github.com/pable/go-cs-contagion/internal/inference"
)

const namespace = "contagion"

// Recorder implements analysis.Recorder on a private registry.
type Recorder struct {
	reg *prometheus.Registry

	observed      *prometheus.GaugeVec
	expectedMean  *prometheus.GaugeVec
	expectedLower *prometheus.GaugeVec
	expectedUpper *prometheus.GaugeVec
	trialSeconds  *prometheus.HistogramVec
	trials        *prometheus.CounterVec
}

var _ analysis.Recorder = (*Recorder)(nil)

// New creates a Recorder. runID is attached to every series as a const label.
func New(runID string) *Recorder {
	constLabels := prometheus.Labels{}
	if runID != "" {
		constLabels["run_id"] = runID
	}
	r := &Recorder{reg: prometheus.NewRegistry()}

	r.observed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "observed_value",
		Help:        "Statistic measured on the observed data.",
		ConstLabels: constLabels,
	}, []string{"question", "bucket"})
	r.expectedMean = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "expected_mean",
		Help:        "Mean of the statistic under randomization.",
		ConstLabels: constLabels,
	}, []string{"question", "bucket"})
	r.expectedLower = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "expected_lower",
		Help:        "Lower bound of the confidence interval under randomization.",
		ConstLabels: constLabels,
	}, []string{"question", "bucket"})
	r.expectedUpper = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "expected_upper",
		Help:        "Upper bound of the confidence interval under randomization.",
		ConstLabels: constLabels,
	}, []string{"question", "bucket"})
	r.trialSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        "trial_duration_seconds",
		Help:        "Duration of a single randomization trial.",
		ConstLabels: constLabels,
		Buckets:     prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"question"})
	r.trials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "trials_total",
		Help:        "Randomization trials completed.",
		ConstLabels: constLabels,
	}, []string{"question"})

	r.reg.MustRegister(r.observed, r.expectedMean, r.expectedLower, r.expectedUpper, r.trialSeconds, r.trials)
	return r
}

// Observed sets the observed gauge for one question and conversion label.
func (r *Recorder) Observed(q analysis.Question, label string, value float64) {
	r.observed.WithLabelValues(string(q), label).Set(value)
}

// Expected sets the mean and interval bound gauges of the null distribution.
func (r *Recorder) Expected(q analysis.Question, label string, iv inference.Interval) {
	r.expectedMean.WithLabelValues(string(q), label).Set(iv.Mean)
	r.expectedLower.WithLabelValues(string(q), label).Set(iv.Lower)
	r.expectedUpper.WithLabelValues(string(q), label).Set(iv.Upper)
}

// Trial may be called concurrently from inference workers.
func (r *Recorder) Trial(q analysis.Question, elapsed time.Duration) {
	r.trialSeconds.WithLabelValues(string(q)).Observe(elapsed.Seconds())
	r.trials.WithLabelValues(string(q)).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// WriteTextfile writes all series to path, replacing it atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

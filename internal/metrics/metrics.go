// Package metrics records run metrics in a Prometheus registry and writes
// them in the text exposition format for CI textfile collectors.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/scheduler"
)

const namespace = "testshard"

// Recorder collects shard and test metrics for one run. It implements
// scheduler.Observer.
type Recorder struct {
	registry *prometheus.Registry

	attemptDuration *prometheus.HistogramVec
	attempts        *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	tests           *prometheus.CounterVec
	status          *prometheus.GaugeVec
	runDuration     prometheus.Gauge
	shardTime       prometheus.Gauge
	workers         prometheus.Gauge
}

var _ scheduler.Observer = (*Recorder)(nil)

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shard_attempt_duration_seconds",
			Help:      "Wall-clock duration of shard attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"result"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shard_attempts_total",
			Help:      "Shard attempts by result (success, tests, timeout, crash, cancelled).",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shard_transitions_total",
			Help:      "Shard state transitions by target state.",
		}, []string{"state"}),
		tests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tests_total",
			Help:      "Final test outcomes.",
		}, []string{"outcome"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_status",
			Help:      "1 for the status of the run, 0 for the others.",
		}, []string{"status"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the run.",
		}),
		shardTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shard_time_seconds",
			Help:      "Sum of all shard attempt durations.",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Worker slots used by the run.",
		}),
	}
	r.registry.MustRegister(r.attemptDuration, r.attempts, r.transitions, r.tests,
		r.status, r.runDuration, r.shardTime, r.workers)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ShardTransition records a scheduler state change.
func (r *Recorder) ShardTransition(e scheduler.Event) {
	r.transitions.WithLabelValues(string(e.To)).Inc()
	if e.Result == nil {
		return
	}
	result := resultLabel(e.Result.Failure)
	r.attempts.WithLabelValues(result).Inc()
	r.attemptDuration.WithLabelValues(result).Observe(e.Result.Duration.Seconds())
}

// SetWorkers records the number of worker slots.
func (r *Recorder) SetWorkers(n int) {
	r.workers.Set(float64(n))
}

// ObserveReport records the final verdict of a run.
func (r *Recorder) ObserveReport(rep *model.SuiteReport) {
	for _, o := range model.Outcomes {
		r.tests.WithLabelValues(string(o)).Add(float64(rep.Counts.Get(o)))
	}
	for _, s := range []model.RunStatus{model.StatusPassed, model.StatusFailed, model.StatusError, model.StatusCancelled} {
		v := 0.0
		if rep.Status == s {
			v = 1
		}
		r.status.WithLabelValues(string(s)).Set(v)
	}
	r.runDuration.Set(rep.Duration.Seconds())
	r.shardTime.Set(rep.ShardTime.Seconds())
}

// WriteFile writes the metrics to path in the Prometheus text format. The
// file is replaced atomically so a collector never reads a partial file.
func (r *Recorder) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func resultLabel(f model.FailureKind) string {
	if f == model.FailureNone {
		return "success"
	}
	return string(f)
}

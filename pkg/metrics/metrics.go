// Package metrics exports analysis results in the Prometheus text format, for the
// node_exporter textfile collector or any scraper that reads .prom files.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dump-analysis/pkg/errors"
)

const namespace = "dump_analysis"

// Recorder holds the gauges for one run. Each Recorder owns its registry, so
// recorders never collide with each other or with the default registry.
type Recorder struct {
	registry         *prometheus.Registry
	exitCode         prometheus.Gauge
	snapshots        prometheus.Gauge
	lastRun          prometheus.Gauge
	analyzerExitCode *prometheus.GaugeVec
	analyzerDuration *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with every gauge registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exit_code",
			Help:      "Exit code of the last analysis run (highest analyzer severity).",
		}),
		snapshots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots",
			Help:      "Number of snapshots analyzed in the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last analysis run finished.",
		}),
		analyzerExitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyzer_exit_code",
			Help:      "Exit code reported by each analyzer in the last run.",
		}, []string{"analyzer"}),
		analyzerDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyzer_duration_seconds",
			Help:      "Time each analyzer spent in the last run.",
		}, []string{"analyzer"}),
	}

	r.registry.MustRegister(r.exitCode, r.snapshots, r.lastRun, r.analyzerExitCode, r.analyzerDuration)
	return r
}

// RecordRun sets the run level gauges.
func (r *Recorder) RecordRun(exitCode, snapshots int, finishedAt time.Time) {
	r.exitCode.Set(float64(exitCode))
	r.snapshots.Set(float64(snapshots))
	r.lastRun.Set(float64(finishedAt.Unix()))
}

// RecordAnalyzer sets the gauges for one analyzer.
func (r *Recorder) RecordAnalyzer(name string, exitCode int, duration time.Duration) {
	r.analyzerExitCode.WithLabelValues(name).Set(float64(exitCode))
	r.analyzerDuration.WithLabelValues(name).Set(duration.Seconds())
}

// Gatherer exposes the registry, e.g. for promhttp or tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every gauge to path. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to write metrics textfile", err)
	}
	return nil
}

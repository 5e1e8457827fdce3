// Package metrics exposes build results as Prometheus metrics written to a
// textfile after each run.
package metrics

import (
	"github.com/mmo-fsw/maxbuild/model"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "maxbuild"

// NewService creates a metrics service with its own registry.
func NewService() Service {
	s := &service{
		registry: prometheus.NewRegistry(),
		compileUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compile_units_total",
			Help:      "Translation units processed, by result (compiled or up_to_date).",
		}, []string{"program", "mode", "result"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of a program build.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"program", "mode"}),
		artifactBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of the last built executable.",
		}, []string{"program", "mode"}),
		lastBuildEpoch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_build_epoch",
			Help:      "BUILD_EPOCH stamped into the last built executable.",
		}, []string{"program", "mode"}),
		targetFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "target_failures_total",
			Help:      "Targets that aborted with an error.",
		}, []string{"target"}),
	}
	s.registry.MustRegister(s.compileUnits, s.buildDuration, s.artifactBytes, s.lastBuildEpoch, s.targetFailures)
	return s
}

func (s *service) ObserveBuild(res *model.BuildResult) {
	if res == nil {
		return
	}
	mode := string(res.Mode)
	s.compileUnits.WithLabelValues(res.Program, mode, "compiled").Add(float64(res.Compiled))
	s.compileUnits.WithLabelValues(res.Program, mode, "up_to_date").Add(float64(res.UpToDate))
	s.buildDuration.WithLabelValues(res.Program, mode).Observe(res.Duration.Seconds())
	s.artifactBytes.WithLabelValues(res.Program, mode).Set(float64(res.Size))
	s.lastBuildEpoch.WithLabelValues(res.Program, mode).Set(float64(res.Stamp.Epoch))
}

func (s *service) TargetFailed(target string) {
	s.targetFailures.WithLabelValues(target).Inc()
}

func (s *service) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}

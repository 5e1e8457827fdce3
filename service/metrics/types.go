package metrics

import (
	"github.com/mmo-fsw/maxbuild/model"
	"github.com/prometheus/client_golang/prometheus"
)

type service struct {
	registry       *prometheus.Registry
	compileUnits   *prometheus.CounterVec
	buildDuration  *prometheus.HistogramVec
	artifactBytes  *prometheus.GaugeVec
	lastBuildEpoch *prometheus.GaugeVec
	targetFailures *prometheus.CounterVec
}

// Service collects per-run build metrics for the node exporter textfile collector.
type Service interface {
	ObserveBuild(res *model.BuildResult)
	TargetFailed(target string)
	WriteTextfile(path string) error
}

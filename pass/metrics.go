package pass

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagegen_passes_total",
		Help: "Generation passes by generator and final state",
	}, []string{"generator", "state"})

	candidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagegen_candidates_total",
		Help: "Candidates handed to Generate, by generator and phase",
	}, []string{"generator", "phase"})

	artifactsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagegen_artifacts_total",
		Help: "Artifacts emitted, by generator",
	}, []string{"generator"})

	foldsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stagegen_folds_total",
		Help: "Snapshot folds performed, by generator",
	}, []string{"generator"})

	passDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stagegen_pass_duration_seconds",
		Help:    "Wall time of generation passes",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
	}, []string{"generator"})
)

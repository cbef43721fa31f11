package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadwatch_source_fetches_total",
			Help: "Road observation source fetch attempts",
		},
		[]string{"source", "status"},
	)

	SourceFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadwatch_source_fetch_latency_seconds",
			Help:    "Road observation source fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	WeatherFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadwatch_weather_fetches_total",
			Help: "Weather provider fetch attempts by outcome",
		},
		[]string{"provider", "status"},
	)

	ObservationsValidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadwatch_observations_validated_total",
			Help: "Observations processed by the validator",
		},
		[]string{"result"},
	)

	ConflictsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roadwatch_conflicts_detected_total",
			Help: "Identity groups whose sources failed to reach majority agreement",
		},
	)

	AssessmentsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadwatch_assessments_scored_total",
			Help: "Risk assessments produced, by safety level",
		},
		[]string{"level"},
	)

	PredictionsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadwatch_closure_predictions_total",
			Help: "Closure predictions computed, by district",
		},
		[]string{"district"},
	)
)

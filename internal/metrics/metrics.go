package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResourcesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imposter_resources_created_total",
		Help: "Total number of disposable resources created, labelled by kind.",
	}, []string{"kind"})

	ResourcesExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imposter_resources_expired_total",
		Help: "Total number of resources soft-deleted by the TTL scheduler.",
	}, []string{"kind"})

	EventsSynced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imposter_events_synced_total",
		Help: "Total number of remote events inserted by the sync engine.",
	}, []string{"kind"})

	EventsSimulated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imposter_events_simulated_total",
		Help: "Total number of synthetic events produced, labelled by kind.",
	}, []string{"kind"})

	EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imposter_events_broadcast_total",
		Help: "Total number of event frames delivered to subscribers.",
	}, []string{"event"})

	BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imposter_broadcast_dropped_total",
		Help: "Total number of frames dropped because a subscriber buffer was full.",
	})

	SyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imposter_sync_failures_total",
		Help: "Total number of sync cycles that ended with a provider error.",
	})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "imposter_sync_duration_ms",
		Help:    "Per-resource sync cycle latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "imposter_provider_request_duration_seconds",
		Help:    "Latency of outbound provider HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "op"})

	ActiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "imposter_stream_subscribers",
		Help: "Number of currently connected realtime subscribers.",
	})
)

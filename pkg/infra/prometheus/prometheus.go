package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	DetectionsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "injectguard_detections_total",
			Help: "Total detections by kind and severity",
		},
		[]string{"kind", "severity"},
	)

	BlockedRequestsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "injectguard_blocked_requests_total",
			Help: "Requests rejected by the guard",
		},
		[]string{"endpoint"},
	)

	AlertsDispatchedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "injectguard_alerts_dispatched_total",
			Help: "External notifications dispatched",
		},
	)

	AlertsSuppressedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "injectguard_alerts_suppressed_total",
			Help: "Notifications suppressed by the deduplication window",
		},
	)

	AttemptPersistFailures = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "injectguard_attempt_persist_failures_total",
			Help: "Attempt writes that failed after retry",
		},
	)

	RetentionDeletedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "injectguard_retention_deleted_total",
			Help: "Rows removed by the retention job",
		},
		[]string{"store"},
	)
)

func Initialize() {
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Consumer pipeline metrics
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_events_consumed_total",
			Help: "Inbound metric events by processing result",
		},
		[]string{"result"}, // processed, malformed, no_tenant, encode_error, persist_error, publish_error
	)

	RecommendationsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reco_recommendations_published_total",
			Help: "Recommendations published to the outbound stream",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reco_persist_failures_total",
			Help: "Store insert failures leaving the delivery unacked for redelivery",
		},
	)

	// Gateway metrics
	QueryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reco_query_requests_total",
			Help: "Query gateway requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
)

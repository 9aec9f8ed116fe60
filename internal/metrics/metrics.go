package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Total number of document store operations broken down by operation and result.",
	}, []string{"op", "result"})

	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Total number of snapshot cache lookups broken down by hit/miss.",
	}, []string{"result"})

	cacheInvalidate = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "cache",
		Name:      "invalidate_total",
		Help:      "Total number of snapshot cache invalidations broken down by reason.",
	}, []string{"reason"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "notify",
		Name:      "messages_total",
		Help:      "Total number of change notifications broken down by sink and result.",
	}, []string{"sink", "result"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordStoreOp(op string, err error) {
	storeOps.WithLabelValues(op, outcome(err)).Inc()
}

func RecordCacheRequest(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequests.WithLabelValues(result).Inc()
}

func RecordCacheInvalidate(reason string) {
	if reason == "" {
		reason = "manual"
	}
	cacheInvalidate.WithLabelValues(reason).Inc()
}

func RecordNotification(sink string, err error) {
	notifications.WithLabelValues(sink, outcome(err)).Inc()
}

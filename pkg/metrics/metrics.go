package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	remoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_remote_requests_total",
			Help: "Calls made to the remote user service, by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	remoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_remote_request_seconds",
			Help:    "Latency of calls to the remote user service.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	staleDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_stale_responses_dropped_total",
			Help: "Fetch results discarded because a newer request or session superseded them.",
		},
	)

	cachedUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_cached_users",
			Help: "Users currently held in the list cache.",
		},
	)

	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_mutations_total",
			Help: "Create, update and delete calls by outcome.",
		},
		[]string{"action", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(remoteRequests)
	prometheus.MustRegister(remoteLatency)
	prometheus.MustRegister(staleDropped)
	prometheus.MustRegister(cachedUsers)
	prometheus.MustRegister(mutations)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveRemote records one call to the remote service.
func ObserveRemote(op string, start time.Time, err error) {
	remoteRequests.WithLabelValues(op, outcome(err)).Inc()
	remoteLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// StaleDropped counts a superseded fetch result.
func StaleDropped() { staleDropped.Inc() }

// SetCachedUsers reports the size of the list cache.
func SetCachedUsers(n int) { cachedUsers.Set(float64(n)) }

// ObserveMutation records the outcome of a create/update/delete.
func ObserveMutation(action string, err error) {
	mutations.WithLabelValues(action, outcome(err)).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymdesk_registrations_total",
		Help: "Members registered.",
	})

	Renewals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymdesk_renewals_total",
		Help: "Membership renewals committed, by package and payment method.",
	}, []string{"paket", "metode"})

	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymdesk_checkins_total",
		Help: "Attendance records written, by visitor type and source.",
	}, []string{"tipe", "sumber"})

	AggregateDayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymdesk_aggregate_day_failures_total",
		Help: "Chart days whose attendance fetch failed and were reported as zero.",
	})

	QueryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gymdesk_query_fallbacks_total",
		Help: "Ordered attendance queries that fell back to client-side sorting.",
	})

	storeOps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gymdesk_store_op_seconds",
		Help:    "Latency of repository operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// Time starts a store latency observation; call the returned func when done.
//
//	defer metrics.Time("insert_member")()
func Time(op string) func() {
	start := time.Now()
	return func() {
		storeOps.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

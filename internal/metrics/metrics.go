// Package metrics exposes Prometheus counters for the reservation
// service. Register must be called once before the /metrics endpoint
// is served; the Inc helpers are safe to call regardless.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	availabilityQueries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bro_reserve",
		Name:      "availability_queries_total",
		Help:      "Number of availability resolutions performed.",
	})

	reservationsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bro_reserve",
		Name:      "reservations_created_total",
		Help:      "Number of reservations admitted, by initial status.",
	}, []string{"status"})

	admissionConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bro_reserve",
		Name:      "admission_conflicts_total",
		Help:      "Number of booking requests rejected due to slot conflicts.",
	})

	admissionLockTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bro_reserve",
		Name:      "admission_lock_timeouts_total",
		Help:      "Number of booking requests that timed out waiting for the staff-day lock.",
	})

	staffDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bro_reserve",
		Name:      "staff_decisions_total",
		Help:      "Number of reservation status decisions, by decision.",
	}, []string{"decision"})

	scheduleGaps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bro_reserve",
		Name:      "schedule_gaps_total",
		Help:      "Number of availability resolutions that hit a missing weekly schedule entry.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bro_reserve",
		Name:      "http_requests_total",
		Help:      "Number of API requests served, by endpoint.",
	}, []string{"endpoint"})
)

// Register registers all collectors with the default registry.
// Subsequent calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			availabilityQueries,
			reservationsCreated,
			admissionConflicts,
			admissionLockTimeouts,
			staffDecisions,
			scheduleGaps,
			httpRequests,
		)
	})
}

func IncAvailabilityQuery() { availabilityQueries.Inc() }

func IncReservationCreated(status string) {
	reservationsCreated.WithLabelValues(status).Inc()
}

func IncAdmissionConflict() { admissionConflicts.Inc() }

func IncAdmissionLockTimeout() { admissionLockTimeouts.Inc() }

func IncStaffDecision(decision string) {
	staffDecisions.WithLabelValues(decision).Inc()
}

func IncScheduleGap() { scheduleGaps.Inc() }

func IncHTTPRequest(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

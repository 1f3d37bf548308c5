package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	measurementsRegistered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vitalog",
		Subsystem: "bodymetrics",
		Name:      "measurements_registered_total",
		Help:      "Number of measurement versions appended, patches included.",
	})
	measurementsTombstoned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vitalog",
		Subsystem: "bodymetrics",
		Name:      "measurements_tombstoned_total",
		Help:      "Number of measurement records marked deleted.",
	})
	sessionsImported = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vitalog",
		Subsystem: "exercise",
		Name:      "sessions_imported_total",
		Help:      "Number of sessions accepted through bulk import.",
	})
	sessionsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vitalog",
		Subsystem: "exercise",
		Name:      "sessions_dropped_total",
		Help:      "Number of bulk import sessions dropped as duplicates.",
	})
	extractTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vitalog",
		Subsystem: "ocr",
		Name:      "extract_timeouts_total",
		Help:      "Number of sheet extractions abandoned at the deadline.",
	})
)

func init() {
	prometheus.MustRegister(
		measurementsRegistered,
		measurementsTombstoned,
		sessionsImported,
		sessionsDropped,
		extractTimeouts,
	)
}

// RecordMeasurementRegistered counts one appended measurement version.
func RecordMeasurementRegistered() {
	measurementsRegistered.Inc()
}

// RecordMeasurementTombstoned counts one deleted measurement record.
func RecordMeasurementTombstoned() {
	measurementsTombstoned.Inc()
}

// RecordImportOutcome counts the accepted and dropped sessions of one batch.
func RecordImportOutcome(imported, dropped int) {
	sessionsImported.Add(float64(imported))
	sessionsDropped.Add(float64(dropped))
}

// RecordExtractTimeout counts one extraction that hit the deadline.
func RecordExtractTimeout() {
	extractTimeouts.Inc()
}

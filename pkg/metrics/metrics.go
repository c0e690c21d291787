package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Ledger metrics
	LedgerAppends        *prometheus.CounterVec
	LedgerValidations    prometheus.Counter
	LedgerTamperDetected prometheus.Counter
	LedgerHeight         prometheus.Gauge

	// Workflow metrics
	WorkflowTransitions *prometheus.CounterVec
	WorkflowRejections  prometheus.Counter

	// Credential metrics
	CredentialsIssued  prometheus.Counter
	CredentialsExpired prometheus.Counter
	OrphanedEntries    prometheus.Counter

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		LedgerAppends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ledger_appends_total",
			Help:      "Total number of blocks appended to the ledger, by payload type",
		}, []string{"payload_type"}),
		LedgerValidations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ledger_validations_total",
			Help:      "Total number of full chain validations performed",
		}),
		LedgerTamperDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ledger_tamper_detected_total",
			Help:      "Total number of validations that found a broken chain",
		}),
		LedgerHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ledger_height",
			Help:      "Current number of blocks in the ledger",
		}),
		WorkflowTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workflow_transitions_total",
			Help:      "Total number of verification workflow transitions, by target status",
		}, []string{"status"}),
		WorkflowRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workflow_rejected_transitions_total",
			Help:      "Total number of transitions rejected as out of order",
		}),
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "credentials_issued_total",
			Help:      "Total number of credentials issued",
		}),
		CredentialsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "credentials_expired_total",
			Help:      "Total number of credentials flipped to expired by the sweep",
		}),
		OrphanedEntries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ledger_orphaned_entries_total",
			Help:      "Total number of ledger entries found with no matching record",
		}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations, by operation and result",
		}, []string{"operation", "result"}),
	}
}

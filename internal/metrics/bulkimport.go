package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Import session metrics
	importSessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "treasury",
			Subsystem: "import",
			Name:      "sessions_total",
			Help:      "Total number of import sessions created",
		},
	)

	importRowsParsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "treasury",
			Subsystem: "import",
			Name:      "rows_parsed_total",
			Help:      "Total number of recipient rows parsed from pasted text",
		},
	)

	importRowsInvalidTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "treasury",
			Subsystem: "import",
			Name:      "rows_invalid_total",
			Help:      "Total number of rows rejected by validation",
		},
	)

	// Registration check metrics
	importRegistrationChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "treasury",
			Subsystem: "import",
			Name:      "registration_checks_total",
			Help:      "Total number of storage registration checks",
		},
		[]string{"status"}, // success, error
	)

	importUnregisteredRecipientsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "treasury",
			Subsystem: "import",
			Name:      "unregistered_recipients_total",
			Help:      "Total number of recipients found without storage registration",
		},
	)

	// Submission metrics
	importSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "treasury",
			Subsystem: "import",
			Name:      "submissions_total",
			Help:      "Total number of bulk submissions",
		},
		[]string{"status"}, // done, unconfirmed, error
	)

	importSubmissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "treasury",
			Subsystem: "import",
			Name:      "submission_duration_seconds",
			Help:      "Time from signing to on-chain confirmation",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	importDepositsFundedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "treasury",
			Subsystem: "import",
			Name:      "deposits_funded_total",
			Help:      "Total number of storage deposits paid on behalf of recipients",
		},
	)
)

// ImportMetrics records bulk-import pipeline activity.
type ImportMetrics struct{}

func NewImportMetrics() *ImportMetrics {
	return &ImportMetrics{}
}

// RecordSessionCreated records a new import session and its row counts.
func (im *ImportMetrics) RecordSessionCreated(rows, invalid int) {
	importSessionsTotal.Inc()
	importRowsParsedTotal.Add(float64(rows))
	importRowsInvalidTotal.Add(float64(invalid))
}

// RecordRegistrationCheck records one registration check run.
func (im *ImportMetrics) RecordRegistrationCheck(unregistered int, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	importRegistrationChecksTotal.WithLabelValues(status).Inc()
	if success {
		importUnregisteredRecipientsTotal.Add(float64(unregistered))
	}
}

// RecordSubmission records a submission outcome and its deposit count.
func (im *ImportMetrics) RecordSubmission(status string, deposits int, duration time.Duration) {
	importSubmissionsTotal.WithLabelValues(status).Inc()
	if status != "error" {
		importSubmissionDuration.Observe(duration.Seconds())
		importDepositsFundedTotal.Add(float64(deposits))
	}
}

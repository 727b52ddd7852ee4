package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// Service names for metrics registration
const (
	ServiceHTTP   = "http"
	ServiceImport = "import"
)

// RegisterMetrics registers metrics for the specified services
func RegisterMetrics(services []string, logger *logrus.Logger) {
	// Always register Go and process metrics
	registerIfNotExists(collectors.NewGoCollector(), "go_collector", logger)
	registerIfNotExists(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector", logger)

	// Register service-specific metrics
	for _, service := range services {
		switch service {
		case ServiceHTTP:
			registerHTTPMetrics(logger)
		case ServiceImport:
			registerImportMetrics(logger)
		default:
			logger.Warnf("Unknown service type for metrics registration: %s", service)
		}
	}
}

// registerIfNotExists registers a collector if it's not already registered
func registerIfNotExists(collector prometheus.Collector, name string, logger *logrus.Logger) {
	if err := prometheus.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegErr) {
			// This is expected on restart/reload - just debug log
			logger.Debugf("%s already registered", name)
		} else {
			// This is a real problem (descriptor mismatch, etc.) - fatal error
			logger.Errorf("Failed to register %s: %v", name, err)
		}
	}
}

// registerHTTPMetrics registers HTTP-related metrics
func registerHTTPMetrics(logger *logrus.Logger) {
	registerIfNotExists(httpRequestsTotal, "http_requests_total", logger)
	registerIfNotExists(httpRequestDuration, "http_request_duration", logger)
	registerIfNotExists(httpErrorsTotal, "http_errors_total", logger)
}

// registerImportMetrics registers bulk-import pipeline metrics
func registerImportMetrics(logger *logrus.Logger) {
	registerIfNotExists(importSessionsTotal, "import_sessions_total", logger)
	registerIfNotExists(importRowsParsedTotal, "import_rows_parsed_total", logger)
	registerIfNotExists(importRowsInvalidTotal, "import_rows_invalid_total", logger)
	registerIfNotExists(importRegistrationChecksTotal, "import_registration_checks_total", logger)
	registerIfNotExists(importUnregisteredRecipientsTotal, "import_unregistered_recipients_total", logger)
	registerIfNotExists(importSubmissionsTotal, "import_submissions_total", logger)
	registerIfNotExists(importSubmissionDuration, "import_submission_duration", logger)
	registerIfNotExists(importDepositsFundedTotal, "import_deposits_funded_total", logger)
}

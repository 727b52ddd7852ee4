package metrics

// Package metrics provides Prometheus metrics collection for the treasury
// services.
//
// This package includes:
// - HTTP request metrics (count, latency, errors)
// - Bulk-import pipeline metrics (imports, rows, submissions)
// - Metrics HTTP server on configurable port
// - Echo middleware for automatic request instrumentation
//
// Usage:
//   import "github.com/NEAR-DevHub/near-treasury-sub001/internal/metrics"
//
//   // Start metrics server
//   metricsServer := metrics.StartMetricsServer(cfg.Metrics, []string{metrics.ServiceHTTP, metrics.ServiceImport}, logger)
//   defer metricsServer.Stop(context.Background())
//
//   // Add middleware to Echo
//   e.Use(metrics.HTTPMiddleware())

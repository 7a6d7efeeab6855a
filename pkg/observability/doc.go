// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry setup, health probes and ordered shutdown.
//
// # Logging
//
//	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Level), os.Stdout)
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).WithField("organization_id", id).Info("organization created")
//
// FromContext adds the request id, the authenticated subject and the active
// trace ids when present.
//
// # Metrics
//
// Metrics implements rbac.DecisionRecorder, so every permission check is
// counted in tenancy_permission_decisions_total{check,decision}. Cascade
// failures, janitor purges, broker publishes and rate-limit rejections have
// their own counters.
//
// # Health
//
//	checker := observability.NewHealthChecker(version)
//	checker.Require("database", cm.HealthCheck)
//	checker.Optional("redis", redisClient.Ping)
package observability

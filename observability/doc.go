// Package observability provides OpenTelemetry metrics export and health
// reporting.
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-service"))
//	defer mp.Shutdown(ctx)
//
// Once the meter provider is installed, the resilience engine's instruments
// export through it automatically.
//
// Health checks:
//
//	health := observability.NewServiceHealth("my-service", version.Version)
//	health.AddComponent(registry.CheckHealth(ctx))
package observability

// Package otel binds thunderauth client metrics to OpenTelemetry.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family,
// such as thunderauth_token_refresh_total with a "result" attribute, and
// bucket and count gauges for the attempt-duration histogram with an "le"
// attribute. One callback reads [thunderauth.Client.MetricsSnapshot] per
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel

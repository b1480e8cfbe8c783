// Package prometheus renders thunderauth client metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] takes a [thunderauth.Client] and exposes an
// [http.Handler]. Counters are grouped into labelled families: HTTP attempts by
// outcome, token refreshes by result, replays after refresh by outcome and
// account operations by kind. The single histogram is
// thunderauth_http_attempt_duration_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate client state.
package prometheus

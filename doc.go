// Package thunderauth is the authenticated network access layer of the
// Project Thunder client. It sends requests to the auth API, classifies every
// response into a typed error, keeps credentials in a pluggable secret store
// and recovers from an expired access token with one refresh and one retry.
//
// Build a [Client] with [New]; its methods are safe to call from multiple
// goroutines.
//
// # Architecture boundaries
//
// thunderauth is the public surface: [Builder], [Client], [Config] and the
// response types. Request building lives in endpoint, HTTP execution and
// status classification in transport, credential persistence in credstore.
// The refresh-and-retry state machine lives under internal/flows and is never
// exported.
//
// # What this package must NOT do
//
//   - Log or otherwise expose token values.
//   - Attach an Authorization header unless a descriptor opts in.
//   - Recover from an Unauthorized refresh call; the refresh path has its own
//     requester that never refreshes.
//   - Keep credentials in package-level state; every Client owns its store.
package thunderauth

// Package flows contains pure-function orchestrators for Client operations.
//
// Each flow function (RunWithRefresh, RunPersistTokens) accepts a typed
// dependency struct and returns a result struct without side-effects beyond
// those dependencies, so every branch can be unit tested with stub functions.
//
// # Architecture boundaries
//
// Flow functions coordinate the transport attempt, the credential store and the
// refresh call. They do NOT own any of these resources; ownership stays with
// the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import thunderauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows

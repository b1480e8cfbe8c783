// Package credstore persists the client's access token, refresh token and
// access-token expiry.
//
// A [Store] splits its state across two [Backend] values: a secret backend for
// the tokens and a settings backend for the expiry timestamp (unix seconds).
// Backends are opaque key-value stores; this package ships an in-memory one, a
// Redis one, an encrypted vault file, a scy-managed secret directory and a plain
// YAML settings file.
//
// # Architecture boundaries
//
// The store never talks to the network API. Callers decide when tokens are
// written; the store only guarantees that the access token and its expiry are
// written and removed together.
//
// # What this package must NOT do
//
//   - Log token values.
//   - Refresh or validate tokens beyond the local expiry check.
package credstore

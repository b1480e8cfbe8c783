// Package internal contains helpers private to thunderauth.
//
// # Sub-packages
//
//   - flows: the refresh-and-retry state machine and token persistence
//   - mockapi: an in-process fake of the auth API for tests, the load test
//     and the mock-backend example
//   - rate: Redis fixed-window counters the fake uses to throttle sign-ins
//
// # What this package must NOT do
//
//   - Export types that appear in the public thunderauth API.
//   - Be imported by any package outside the thunderauth module.
package internal

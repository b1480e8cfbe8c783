// Package apierror defines the tagged error taxonomy produced by the transport layer.
//
// Every failure surfaced by an API call is an [*Error] carrying a [Kind]. Failures are
// classified exactly once, at the transport boundary; later layers only inspect the
// Kind (the refresh coordinator reacts to [KindUnauthorized]) and never re-wrap.
//
// # What this package must NOT do
//
//   - Import any other package of this module.
//   - Perform I/O.
package apierror

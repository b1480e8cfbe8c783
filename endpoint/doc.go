// Package endpoint turns declarative API call descriptions into wire requests.
//
// A [Descriptor] names the base origin, path, method, headers, query and JSON body of
// one call. [Descriptor.Request] validates and serializes it; failures are reported as
// apierror InvalidURL or InvalidData values.
//
// # What this package must NOT do
//
//   - Attach authorization on its own. Callers set headers explicitly, or opt in through
//     [Descriptor.Authenticated] which is honored by the root requester.
//   - Execute requests.
package endpoint

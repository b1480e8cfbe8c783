// Package transport executes endpoint descriptors over HTTP and classifies outcomes.
//
// [Client.Execute] maps status codes onto the apierror taxonomy (2xx success, 400
// BadRequest, 401 Unauthorized, 404 NotFound, 5xx ServerError, anything else
// InvalidResponse) and turns transport exceptions into Unspecified. [Decode] layers
// envelope decoding over any [Executor].
//
// # What this package must NOT do
//
//   - Refresh tokens or retry. Recovery from Unauthorized belongs to the caller.
//   - Read or write credentials.
package transport

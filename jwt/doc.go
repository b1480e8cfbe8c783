// Package jwt issues, verifies and inspects access tokens.
//
// [Manager] signs and verifies tokens for the mock API server. [Inspect] and
// [ExpiresAt] read claims without a key so the client can estimate the lifetime
// of a token the server returned without an explicit expiresIn.
package jwt

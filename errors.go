package thunderauth

import (
	"errors"

	"github.com/MrEthical07/thunderauth/apierror"
)

// APIError is the tagged error every transport failure is reported as.
type APIError = apierror.Error

// ErrorKind identifies an APIError variant.
type ErrorKind = apierror.Kind

// Transport error kinds, matched with errors.Is.
var (
	ErrInvalidURL      = apierror.ErrInvalidURL
	ErrInvalidResponse = apierror.ErrInvalidResponse
	ErrInvalidData     = apierror.ErrInvalidData
	ErrNetwork         = apierror.ErrNetwork
	ErrDecoding        = apierror.ErrDecoding
	ErrUnspecified     = apierror.ErrUnspecified
	ErrServerError     = apierror.ErrServerError
	ErrUnauthorized    = apierror.ErrUnauthorized
	ErrNotFound        = apierror.ErrNotFound
	ErrBadRequest      = apierror.ErrBadRequest
)

var (
	// ErrUnexpectedStatus matches every *StatusError.
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrBuilderUsed is returned by a second Build call on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrClientNotReady is returned by methods called on a nil Client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrTokenPersistence wraps credential store failures after a successful
	// login, two-factor login or refresh.
	ErrTokenPersistence = errors.New("token persistence failed")
)

// StatusError reports a decoded envelope whose status the operation does not
// accept. The response that carried it is returned alongside.
type StatusError struct {
	Operation string
	Status    string
	Message   string
}

func (e *StatusError) Error() string {
	msg := e.Operation + ": unexpected status " + quote(e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target is ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	return `"` + s + `"`
}

// IsUnauthorized reports whether err classifies as Unauthorized.
func IsUnauthorized(err error) bool {
	return apierror.IsUnauthorized(err)
}

// KindOf returns the transport error kind carried by err.
func KindOf(err error) ErrorKind {
	return apierror.KindOf(err)
}

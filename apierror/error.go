package apierror

import (
	"errors"
	"fmt"
)

// Kind identifies one variant of the API error taxonomy.
type Kind uint8

const (
	// KindUnknown is the zero Kind; it is never produced by the transport.
	KindUnknown Kind = iota
	KindInvalidURL
	KindInvalidResponse
	KindInvalidData
	KindNetwork
	KindDecoding
	KindUnspecified
	KindServerError
	KindUnauthorized
	KindNotFound
	KindBadRequest
)

var kindNames = [...]string{
	KindUnknown:         "unknown",
	KindInvalidURL:      "invalid_url",
	KindInvalidResponse: "invalid_response",
	KindInvalidData:     "invalid_data",
	KindNetwork:         "network",
	KindDecoding:        "decoding",
	KindUnspecified:     "unspecified",
	KindServerError:     "server_error",
	KindUnauthorized:    "unauthorized",
	KindNotFound:        "not_found",
	KindBadRequest:      "bad_request",
}

// String returns the snake_case name of k.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is a tagged API failure. Message carries the response body text for
// BadRequest, Unauthorized and ServerError; Cause carries the underlying error
// for Network, Decoding and Unspecified.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Sentinels for errors.Is matching. Matching compares Kind only.
var (
	ErrInvalidURL      = &Error{Kind: KindInvalidURL}
	ErrInvalidResponse = &Error{Kind: KindInvalidResponse}
	ErrInvalidData     = &Error{Kind: KindInvalidData}
	ErrNetwork         = &Error{Kind: KindNetwork}
	ErrDecoding        = &Error{Kind: KindDecoding}
	ErrUnspecified     = &Error{Kind: KindUnspecified}
	ErrServerError     = &Error{Kind: KindServerError}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrBadRequest      = &Error{Kind: KindBadRequest}
)

// Error renders the human-readable description shown to end users.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindInvalidURL:
		return "the URL is not valid"
	case KindInvalidResponse:
		return "received an invalid response from the server"
	case KindInvalidData:
		return "received invalid data"
	case KindNetwork:
		return "network error: " + causeText(e.Cause)
	case KindDecoding:
		return "data conversion error: " + causeText(e.Cause)
	case KindUnspecified:
		return "unexpected error: " + causeText(e.Cause)
	case KindServerError:
		return "server error: " + e.Message
	case KindUnauthorized:
		if e.Message == "" {
			return "authorization failed, please sign in again"
		}
		return "authorization failed: " + e.Message
	case KindNotFound:
		return "the requested resource was not found"
	case KindBadRequest:
		return "bad request: " + e.Message
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func causeText(err error) string {
	if err == nil {
		return "unknown cause"
	}
	return err.Error()
}

func InvalidURL() *Error      { return &Error{Kind: KindInvalidURL} }
func InvalidResponse() *Error { return &Error{Kind: KindInvalidResponse} }
func NotFound() *Error        { return &Error{Kind: KindNotFound} }

// InvalidData reports a request body that could not be serialized.
func InvalidData(cause error) *Error { return &Error{Kind: KindInvalidData, Cause: cause} }

func Network(cause error) *Error     { return &Error{Kind: KindNetwork, Cause: cause} }
func Decoding(cause error) *Error    { return &Error{Kind: KindDecoding, Cause: cause} }
func Unspecified(cause error) *Error { return &Error{Kind: KindUnspecified, Cause: cause} }

func ServerError(message string) *Error  { return &Error{Kind: KindServerError, Message: message} }
func Unauthorized(message string) *Error { return &Error{Kind: KindUnauthorized, Message: message} }
func BadRequest(message string) *Error   { return &Error{Kind: KindBadRequest, Message: message} }

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsUnauthorized reports whether err classifies as Unauthorized.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// Wrap returns err unchanged when it already carries an *Error, and
// Unspecified(err) otherwise.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return err
	}
	return Unspecified(err)
}

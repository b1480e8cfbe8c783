package transport

import (
	"context"
	"encoding/json"

	"github.com/MrEthical07/thunderauth/apierror"
	"github.com/MrEthical07/thunderauth/endpoint"
)

const (
	StatusSuccess           = "Success"
	StatusTwoFactorRequired = "TwoFactorRequired"
)

// Envelope is the wrapper every API response uses.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    *T     `json:"data,omitempty"`
}

// Succeeded reports whether the envelope status is "Success".
func (e Envelope[T]) Succeeded() bool {
	return e.Status == StatusSuccess
}

// Decode executes d through exec and decodes the body as an Envelope[T].
// Decoding failures are reported as apierror Decoding; execution failures are
// returned unchanged.
func Decode[T any](ctx context.Context, exec Executor, d endpoint.Descriptor) (Envelope[T], error) {
	var out Envelope[T]
	body, err := exec.Execute(ctx, d)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return Envelope[T]{}, apierror.Decoding(err)
	}
	return out, nil
}

package thunderauth

import (
	"context"

	"github.com/MrEthical07/thunderauth/apierror"
	"github.com/MrEthical07/thunderauth/credstore"
	"github.com/MrEthical07/thunderauth/endpoint"
	"github.com/MrEthical07/thunderauth/internal/flows"
	"github.com/MrEthical07/thunderauth/transport"
)

// requester executes descriptors with refresh-and-retry recovery. The Builder
// creates two: the regular one and one flagged isRefresh, which never
// recovers and is the only path the refresh call takes.
type requester struct {
	transport *transport.Client
	store     *credstore.Store
	isRefresh bool
	deps      flows.RefreshDeps
	metrics   *Metrics
}

var _ transport.Executor = (*requester)(nil)

// Execute runs d once, and once more after a successful refresh when the first
// attempt fails Unauthorized.
func (r *requester) Execute(ctx context.Context, d endpoint.Descriptor) ([]byte, error) {
	in := flows.RetryInput{
		IsRefreshCall: r.isRefresh || d.RefreshCall,
		Attempt: func(ctx context.Context) ([]byte, error) {
			prepared, err := r.prepare(ctx, d)
			if err != nil {
				return nil, err
			}
			return r.transport.Execute(ctx, prepared)
		},
	}

	res := flows.RunWithRefresh(ctx, in, r.deps)
	switch res.Outcome {
	case flows.RetryNoRefreshToken:
		r.metrics.Inc(MetricRefreshNoToken)
	case flows.RetryReplayed:
		if res.Err == nil {
			r.metrics.Inc(MetricRetrySuccess)
		} else {
			r.metrics.Inc(MetricRetryFailure)
		}
	}
	return res.Body, res.Err
}

// prepare applies per-attempt headers. The access token is read at every
// attempt so a retry carries the refreshed one.
func (r *requester) prepare(ctx context.Context, d endpoint.Descriptor) (endpoint.Descriptor, error) {
	if id := requestIDFromContext(ctx); id != "" && d.Header(endpoint.HeaderRequestID) == "" {
		d = d.WithHeader(endpoint.HeaderRequestID, id)
	}
	if !d.Authenticated || d.Header(endpoint.HeaderAuthorization) != "" {
		return d, nil
	}
	token, ok, err := r.store.AccessToken(ctx)
	if err != nil {
		return d, apierror.Unspecified(err)
	}
	if ok {
		d = d.WithHeader(endpoint.HeaderAuthorization, "Bearer "+token)
	}
	return d, nil
}

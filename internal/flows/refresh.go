package flows

import (
	"context"
	"fmt"
)

// RetryOutcome classifies how a call left the refresh-and-retry flow.
type RetryOutcome int

const (
	// RetryNone means the first attempt is final: success or a non-Unauthorized
	// failure.
	RetryNone RetryOutcome = iota
	// RetryRefreshCall means the refresh call itself came back Unauthorized and
	// was propagated without recovery.
	RetryRefreshCall
	// RetryNoRefreshToken means no refresh token was stored.
	RetryNoRefreshToken
	// RetryRefreshFailed means reading the refresh token, calling the refresh
	// endpoint or persisting its tokens failed.
	RetryRefreshFailed
	// RetryReplayed means a refresh succeeded and the original call was retried
	// once; Err reports the retry's result.
	RetryReplayed
)

func (o RetryOutcome) String() string {
	switch o {
	case RetryNone:
		return "none"
	case RetryRefreshCall:
		return "refresh_call"
	case RetryNoRefreshToken:
		return "no_refresh_token"
	case RetryRefreshFailed:
		return "refresh_failed"
	case RetryReplayed:
		return "replayed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RetryInput describes one logical call.
type RetryInput struct {
	// IsRefreshCall disables recovery: an Unauthorized result is final.
	IsRefreshCall bool
	// Attempt performs the call once. It is invoked at most twice.
	Attempt func(context.Context) ([]byte, error)
}

// RefreshDeps captures refresh-and-retry dependencies.
type RefreshDeps struct {
	IsUnauthorized      func(error) bool
	LoadRefreshToken    func(context.Context) (string, bool, error)
	MissingRefreshToken func() error
	// Refresh exchanges the refresh token and persists the new credentials.
	Refresh func(ctx context.Context, refreshToken string) error
	Warn    func(string, ...any)
}

// RetryResult carries the final body or error and how it was reached.
type RetryResult struct {
	Outcome RetryOutcome
	Body    []byte
	Err     error
	// FirstErr is the Unauthorized error that triggered recovery, if any.
	FirstErr error
}

// RunWithRefresh performs in.Attempt and, when it fails Unauthorized on a call
// that is not itself a refresh, refreshes the credentials once and retries once.
// The retry's result is final.
func RunWithRefresh(ctx context.Context, in RetryInput, deps RefreshDeps) RetryResult {
	body, err := in.Attempt(ctx)
	if err == nil || !deps.IsUnauthorized(err) {
		return RetryResult{Outcome: RetryNone, Body: body, Err: err}
	}
	if in.IsRefreshCall {
		return RetryResult{Outcome: RetryRefreshCall, Err: err}
	}

	refreshToken, ok, loadErr := deps.LoadRefreshToken(ctx)
	if loadErr != nil {
		if deps.Warn != nil {
			deps.Warn("thunderauth: refresh token read failed")
		}
		return RetryResult{Outcome: RetryRefreshFailed, Err: loadErr, FirstErr: err}
	}
	if !ok {
		return RetryResult{Outcome: RetryNoRefreshToken, Err: deps.MissingRefreshToken(), FirstErr: err}
	}

	if refreshErr := deps.Refresh(ctx, refreshToken); refreshErr != nil {
		return RetryResult{Outcome: RetryRefreshFailed, Err: refreshErr, FirstErr: err}
	}

	body, retryErr := in.Attempt(ctx)
	return RetryResult{Outcome: RetryReplayed, Body: body, Err: retryErr, FirstErr: err}
}

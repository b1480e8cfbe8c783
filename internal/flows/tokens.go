package flows

import (
	"context"
	"time"
)

// ExpirySource reports where an access-token lifetime came from.
type ExpirySource int

const (
	ExpiryFromResponse ExpirySource = iota
	ExpiryFromClaims
	ExpiryDefault
)

// TokenGrant is the token part of a successful auth response.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the lifetime in seconds; non-positive means unspecified.
	ExpiresIn int64
}

// PersistDeps captures token persistence dependencies.
type PersistDeps struct {
	Now func() time.Time
	// AccessExpiry returns the exp claim of a JWT access token, when it has one.
	AccessExpiry     func(token string) (time.Time, bool)
	DefaultExpiresIn time.Duration
	SaveTokens       func(ctx context.Context, access, refresh string, expiresIn time.Duration) error
}

// PersistResult reports what RunPersistTokens wrote.
type PersistResult struct {
	Persisted bool
	ExpiresIn time.Duration
	Source    ExpirySource
	Err       error
}

// ResolveExpiresIn picks the access-token lifetime: the response value when
// positive, else the token's exp claim, else the default. An exp in the past
// yields one second so the token is stored already expired.
func ResolveExpiresIn(grant TokenGrant, deps PersistDeps) (time.Duration, ExpirySource) {
	if grant.ExpiresIn > 0 {
		return time.Duration(grant.ExpiresIn) * time.Second, ExpiryFromResponse
	}
	if deps.AccessExpiry != nil {
		if exp, ok := deps.AccessExpiry(grant.AccessToken); ok {
			now := time.Now
			if deps.Now != nil {
				now = deps.Now
			}
			remaining := exp.Sub(now())
			if remaining < time.Second {
				remaining = time.Second
			}
			return remaining, ExpiryFromClaims
		}
	}
	return deps.DefaultExpiresIn, ExpiryDefault
}

// RunPersistTokens stores the grant's tokens. A grant without an access token
// writes nothing.
func RunPersistTokens(ctx context.Context, grant TokenGrant, deps PersistDeps) PersistResult {
	if grant.AccessToken == "" {
		return PersistResult{}
	}
	expiresIn, source := ResolveExpiresIn(grant, deps)
	if err := deps.SaveTokens(ctx, grant.AccessToken, grant.RefreshToken, expiresIn); err != nil {
		return PersistResult{ExpiresIn: expiresIn, Source: source, Err: err}
	}
	return PersistResult{Persisted: true, ExpiresIn: expiresIn, Source: source}
}

package credstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultNamespace prefixes every key the store writes.
	DefaultNamespace = "com.projectthunder"
	// DefaultExpiresIn is used when SaveAccess receives a non-positive lifetime.
	DefaultExpiresIn = time.Hour
	// DefaultValidityMargin is how long before expiry an access token stops
	// counting as valid.
	DefaultValidityMargin = 5 * time.Minute
)

// ErrCorruptExpiry is returned when the stored expiry is not a unix timestamp.
var ErrCorruptExpiry = errors.New("credstore: corrupt token expiration record")

// Keys holds the backend keys for one namespace.
type Keys struct {
	AccessToken     string
	RefreshToken    string
	TokenExpiration string
}

// KeysFor derives the three backend keys under namespace.
func KeysFor(namespace string) Keys {
	ns := strings.TrimSuffix(namespace, ".")
	if ns == "" {
		ns = DefaultNamespace
	}
	return Keys{
		AccessToken:     ns + ".accessToken",
		RefreshToken:    ns + ".refreshToken",
		TokenExpiration: ns + ".tokenExpiration",
	}
}

// Store reads and writes client credentials. It is safe for concurrent use.
type Store struct {
	mu               sync.RWMutex
	secrets          Backend
	settings         Backend
	keys             Keys
	now              func() time.Time
	margin           time.Duration
	defaultExpiresIn time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace sets the key namespace.
func WithNamespace(ns string) Option {
	return func(s *Store) { s.keys = KeysFor(ns) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithValidityMargin sets the early-expiry margin used by IsAccessValid.
func WithValidityMargin(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.margin = d
		}
	}
}

// WithDefaultExpiresIn sets the lifetime SaveAccess assumes when none is given.
func WithDefaultExpiresIn(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.defaultExpiresIn = d
		}
	}
}

// New builds a Store. A nil settings backend shares the secret backend; a nil
// secret backend gets a fresh MemoryBackend.
func New(secrets, settings Backend, opts ...Option) *Store {
	if secrets == nil {
		secrets = NewMemoryBackend()
	}
	if settings == nil {
		settings = secrets
	}
	s := &Store{
		secrets:          secrets,
		settings:         settings,
		keys:             KeysFor(DefaultNamespace),
		now:              time.Now,
		margin:           DefaultValidityMargin,
		defaultExpiresIn: DefaultExpiresIn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the backend keys in use.
func (s *Store) Keys() Keys {
	return s.keys
}

// SaveAccess stores token and records its expiry as now+expiresIn. When the
// expiry cannot be written the previous access token is restored.
func (s *Store) SaveAccess(ctx context.Context, token string, expiresIn time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAccessLocked(ctx, token, expiresIn)
}

func (s *Store) saveAccessLocked(ctx context.Context, token string, expiresIn time.Duration) error {
	if expiresIn <= 0 {
		expiresIn = s.defaultExpiresIn
	}
	expiresAt := s.now().Add(expiresIn).Unix()

	prev, hadPrev, err := s.secrets.Get(ctx, s.keys.AccessToken)
	if err != nil {
		return fmt.Errorf("credstore: read access token: %w", err)
	}
	if err := s.secrets.Set(ctx, s.keys.AccessToken, token); err != nil {
		return fmt.Errorf("credstore: write access token: %w", err)
	}
	if err := s.settings.Set(ctx, s.keys.TokenExpiration, strconv.FormatInt(expiresAt, 10)); err != nil {
		return errors.Join(fmt.Errorf("credstore: write token expiration: %w", err),
			restore(ctx, s.secrets, s.keys.AccessToken, prev, hadPrev))
	}
	return nil
}

// SaveRefresh stores the refresh token.
func (s *Store) SaveRefresh(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.secrets.Set(ctx, s.keys.RefreshToken, token); err != nil {
		return fmt.Errorf("credstore: write refresh token: %w", err)
	}
	return nil
}

// SaveTokens stores an access token (with its lifetime) and, when non-empty, a
// refresh token. If the refresh token cannot be written, the previous access
// token and expiry are restored so the stored pair stays consistent.
func (s *Store) SaveTokens(ctx context.Context, access, refresh string, expiresIn time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if refresh == "" {
		return s.saveAccessLocked(ctx, access, expiresIn)
	}
	prevAccess, hadAccess, err := s.secrets.Get(ctx, s.keys.AccessToken)
	if err != nil {
		return fmt.Errorf("credstore: read access token: %w", err)
	}
	prevExpiry, hadExpiry, err := s.settings.Get(ctx, s.keys.TokenExpiration)
	if err != nil {
		return fmt.Errorf("credstore: read token expiration: %w", err)
	}
	if err := s.saveAccessLocked(ctx, access, expiresIn); err != nil {
		return err
	}
	if err := s.secrets.Set(ctx, s.keys.RefreshToken, refresh); err != nil {
		return errors.Join(fmt.Errorf("credstore: write refresh token: %w", err),
			restore(ctx, s.secrets, s.keys.AccessToken, prevAccess, hadAccess),
			restore(ctx, s.settings, s.keys.TokenExpiration, prevExpiry, hadExpiry))
	}
	return nil
}

// restore puts back a previous value, or removes the key when there was none.
func restore(ctx context.Context, b Backend, key, prev string, had bool) error {
	if had {
		return b.Set(ctx, key, prev)
	}
	return b.Delete(ctx, key)
}

// AccessToken returns the stored access token.
func (s *Store) AccessToken(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, s.secrets, s.keys.AccessToken, "access token")
}

// RefreshToken returns the stored refresh token.
func (s *Store) RefreshToken(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, s.secrets, s.keys.RefreshToken, "refresh token")
}

// ExpiresAt returns the recorded access-token expiry.
func (s *Store) ExpiresAt(ctx context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt(ctx)
}

func (s *Store) expiresAt(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := s.get(ctx, s.settings, s.keys.TokenExpiration, "token expiration")
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	unix, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %q", ErrCorruptExpiry, raw)
	}
	return time.Unix(unix, 0), true, nil
}

// IsAccessValid reports whether an access token is stored and will not expire
// within the validity margin. Backend errors count as invalid.
func (s *Store) IsAccessValid(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok, err := s.get(ctx, s.secrets, s.keys.AccessToken, "access token"); err != nil || !ok {
		return false
	}
	exp, ok, err := s.expiresAt(ctx)
	if err != nil || !ok {
		return false
	}
	return s.now().Add(s.margin).Before(exp)
}

// Clear deletes both tokens and the expiry record. Every delete is attempted.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.secrets.Delete(ctx, s.keys.AccessToken); err != nil {
		errs = append(errs, fmt.Errorf("credstore: delete access token: %w", err))
	}
	if err := s.secrets.Delete(ctx, s.keys.RefreshToken); err != nil {
		errs = append(errs, fmt.Errorf("credstore: delete refresh token: %w", err))
	}
	if err := s.settings.Delete(ctx, s.keys.TokenExpiration); err != nil {
		errs = append(errs, fmt.Errorf("credstore: delete token expiration: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Store) get(ctx context.Context, b Backend, key, what string) (string, bool, error) {
	v, ok, err := b.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("credstore: read %s: %w", what, err)
	}
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

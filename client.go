package thunderauth

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/MrEthical07/thunderauth/apierror"
	"github.com/MrEthical07/thunderauth/credstore"
	"github.com/MrEthical07/thunderauth/endpoint"
	"github.com/MrEthical07/thunderauth/internal/flows"
	"github.com/MrEthical07/thunderauth/transport"
	"golang.org/x/sync/singleflight"
)

// MessageRefreshTokenNotFound is the Unauthorized message returned when
// recovery is needed but no refresh token is stored.
const MessageRefreshTokenNotFound = "Refresh token not found"

// Client is the auth API client. Build it with [New]; it is safe for
// concurrent use.
type Client struct {
	config    Config
	store     *credstore.Store
	transport *transport.Client
	api       *requester
	refresher *requester
	flight    *singleflight.Group
	metrics   *Metrics
	audit     *auditDispatcher
	logger    *log.Logger
	now       func() time.Time
	persist   flows.PersistDeps

	userMu sync.RWMutex
	user   *UserInfo
}

// Close flushes and stops the audit dispatcher.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns the current metric values.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) warn(format string, args ...any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.config
}

// Credentials returns the credential store shared by every operation.
func (c *Client) Credentials() *credstore.Store {
	return c.store
}

// Register creates an account. Tokens in the response are not stored.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	resp, err := c.call(ctx, req)
	if err == nil && !resp.Succeeded() {
		err = statusError("register", resp)
	}
	if err != nil {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, auditEventRegister, false, req.Email, err, nil)
		return resp, err
	}
	c.rememberUser(resp)
	c.metricInc(MetricRegisterSuccess)
	c.emitAudit(ctx, auditEventRegister, true, req.Email, nil, nil)
	return resp, nil
}

// Login signs in. On "Success" the returned tokens are stored; on
// "TwoFactorRequired" nothing is stored and the caller continues with
// TwoFactorLogin. Any other status is a *StatusError.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	resp, err := c.call(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, email, err, nil)
		return nil, err
	}

	switch resp.Status {
	case StatusSuccess:
		if err := c.persistTokens(ctx, resp); err != nil {
			c.metricInc(MetricLoginFailure)
			c.emitAudit(ctx, auditEventLoginFailure, false, email, err, nil)
			return resp, err
		}
		c.metricInc(MetricLoginSuccess)
		c.emitAudit(ctx, auditEventLoginSuccess, true, email, nil, nil)
		return resp, nil
	case StatusTwoFactorRequired:
		c.metricInc(MetricLoginTwoFactorRequired)
		c.emitAudit(ctx, auditEventLoginTwoFactor, true, email, nil, nil)
		return resp, nil
	default:
		err := statusError("login", resp)
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, email, err, nil)
		return resp, err
	}
}

// TwoFactorLogin completes a login with a second-factor code. Status handling
// matches Login.
func (c *Client) TwoFactorLogin(ctx context.Context, email, password, code string) (*AuthResponse, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	resp, err := c.call(ctx, TwoFactorLoginRequest{Email: email, Password: password, TwoFactorCode: code})
	if err != nil {
		c.metricInc(MetricTwoFactorFailure)
		c.emitAudit(ctx, auditEventTwoFactorFailure, false, email, err, nil)
		return nil, err
	}

	switch resp.Status {
	case StatusSuccess:
		if err := c.persistTokens(ctx, resp); err != nil {
			c.metricInc(MetricTwoFactorFailure)
			c.emitAudit(ctx, auditEventTwoFactorFailure, false, email, err, nil)
			return resp, err
		}
		c.metricInc(MetricTwoFactorSuccess)
		c.emitAudit(ctx, auditEventTwoFactorSuccess, true, email, nil, nil)
		return resp, nil
	case StatusTwoFactorRequired:
		c.metricInc(MetricLoginTwoFactorRequired)
		c.emitAudit(ctx, auditEventLoginTwoFactor, true, email, nil, nil)
		return resp, nil
	default:
		err := statusError("two-factor login", resp)
		c.metricInc(MetricTwoFactorFailure)
		c.emitAudit(ctx, auditEventTwoFactorFailure, false, email, err, nil)
		return resp, err
	}
}

// ForgotPassword requests a password reset mail.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*AuthResponse, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	resp, err := c.simple(ctx, "forgot password", ForgotPasswordRequest{Email: email})
	c.metricInc(MetricPasswordResetRequest)
	c.emitAudit(ctx, auditEventPasswordResetRequest, err == nil, email, err, nil)
	return resp, err
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*AuthResponse, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	resp, err := c.simple(ctx, "reset password", req)
	c.metricInc(MetricPasswordResetConfirm)
	c.emitAudit(ctx, auditEventPasswordResetConfirm, err == nil, "", err, func() map[string]string {
		return map[string]string{"user_id": req.UserID}
	})
	return resp, err
}

// ConfirmEmail confirms an email address with the token from the confirmation
// mail.
func (c *Client) ConfirmEmail(ctx context.Context, userID, token string) (*AuthResponse, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	resp, err := c.simple(ctx, "confirm email", ConfirmEmailRequest{UserID: userID, Token: token})
	c.metricInc(MetricEmailConfirm)
	c.emitAudit(ctx, auditEventEmailConfirm, err == nil, "", err, func() map[string]string {
		return map[string]string{"user_id": userID}
	})
	return resp, err
}

// RefreshToken exchanges the stored refresh token for new credentials and
// stores them. Without a stored refresh token it fails Unauthorized and sends
// nothing.
func (c *Client) RefreshToken(ctx context.Context) (*AuthResponse, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	token, ok, err := c.store.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		c.metricInc(MetricRefreshNoToken)
		c.emitAudit(ctx, auditEventRefreshMissingToken, false, "", nil, nil)
		return nil, apierror.Unauthorized(MessageRefreshTokenNotFound)
	}
	return c.refreshSession(ctx, token)
}

// Logout clears the stored credentials. It performs no network call.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil {
		return ErrClientNotReady
	}
	err := c.store.Clear(ctx)
	c.userMu.Lock()
	c.user = nil
	c.userMu.Unlock()
	c.metricInc(MetricLogout)
	c.emitAudit(ctx, auditEventLogout, err == nil, "", err, nil)
	return err
}

// IsAuthenticated reports whether a stored access token is valid beyond the
// validity margin.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if c == nil {
		return false
	}
	return c.store.IsAccessValid(ctx)
}

// Status summarizes the stored credentials.
func (c *Client) Status(ctx context.Context) (SessionStatus, error) {
	var st SessionStatus
	if c == nil {
		return st, ErrClientNotReady
	}
	_, hasAccess, err := c.store.AccessToken(ctx)
	if err != nil {
		return st, err
	}
	_, hasRefresh, err := c.store.RefreshToken(ctx)
	if err != nil {
		return st, err
	}
	exp, _, err := c.store.ExpiresAt(ctx)
	if err != nil {
		return st, err
	}
	st.HasAccessToken = hasAccess
	st.HasRefreshToken = hasRefresh
	st.ExpiresAt = exp
	st.AccessValid = c.store.IsAccessValid(ctx)
	return st, nil
}

// AuthorizationHeader returns the default headers plus a bearer Authorization
// header when an access token is stored.
func (c *Client) AuthorizationHeader(ctx context.Context) (map[string]string, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	token, ok, err := c.store.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return endpoint.DefaultHeaders(), nil
	}
	return endpoint.BearerHeaders(token), nil
}

// CurrentUser returns the user from the last response that carried one.
func (c *Client) CurrentUser() (UserInfo, bool) {
	if c == nil {
		return UserInfo{}, false
	}
	c.userMu.RLock()
	defer c.userMu.RUnlock()
	if c.user == nil {
		return UserInfo{}, false
	}
	return *c.user, true
}

// Execute runs an arbitrary descriptor through refresh-and-retry recovery. An
// empty BaseURL targets the configured API.
func (c *Client) Execute(ctx context.Context, d endpoint.Descriptor) ([]byte, error) {
	if c == nil {
		return nil, ErrClientNotReady
	}
	return c.executorFor(d).Execute(ctx, c.resolve(d))
}

// ExecuteVoid is Execute with the success body discarded.
func (c *Client) ExecuteVoid(ctx context.Context, d endpoint.Descriptor) error {
	_, err := c.Execute(ctx, d)
	return err
}

// Call decodes the envelope of an arbitrary descriptor executed through c.
func Call[T any](ctx context.Context, c *Client, d endpoint.Descriptor) (transport.Envelope[T], error) {
	if c == nil {
		return transport.Envelope[T]{}, ErrClientNotReady
	}
	return transport.Decode[T](ctx, c.executorFor(d), c.resolve(d))
}

func (c *Client) resolve(d endpoint.Descriptor) endpoint.Descriptor {
	if d.BaseURL == "" {
		d = d.WithBaseURL(c.config.API.BaseURL)
	}
	return d
}

func (c *Client) executorFor(d endpoint.Descriptor) transport.Executor {
	if d.RefreshCall {
		return c.refresher
	}
	return c.api
}

func (c *Client) call(ctx context.Context, e AuthEndpoint) (*AuthResponse, error) {
	d := Descriptor(c.config.API.BaseURL, e)
	env, err := transport.Decode[AuthData](ctx, c.executorFor(d), d)
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// simple runs an endpoint whose only expected status is "Success".
func (c *Client) simple(ctx context.Context, op string, e AuthEndpoint) (*AuthResponse, error) {
	resp, err := c.call(ctx, e)
	if err != nil {
		return nil, err
	}
	if !resp.Succeeded() {
		return resp, statusError(op, resp)
	}
	c.rememberUser(resp)
	return resp, nil
}

// refresh runs one refresh exchange, coalesced with concurrent ones when
// single-flight is enabled. A shared exchange is detached from the caller that
// started it and uses the refresh token stored when it begins, so one caller
// giving up or reading a token that was just rotated does not fail the others.
func (c *Client) refresh(ctx context.Context, refreshToken string) error {
	if c.flight == nil {
		_, err := c.refreshSession(ctx, refreshToken)
		return err
	}
	ch := c.flight.DoChan("refresh", func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)
		current, ok, err := c.store.RefreshToken(flightCtx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apierror.Unauthorized(MessageRefreshTokenNotFound)
		}
		return c.refreshSession(flightCtx, current)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return apierror.Unspecified(ctx.Err())
	}
}

func (c *Client) refreshSession(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	c.metricInc(MetricRefreshAttempt)
	resp, err := c.call(ctx, RefreshTokenRequest{RefreshToken: refreshToken})
	if err == nil && !resp.Succeeded() {
		err = statusError("refresh token", resp)
	}
	if err == nil {
		err = c.persistTokens(ctx, resp)
	}
	if err != nil {
		c.metricInc(MetricRefreshFailure)
		c.emitAudit(ctx, auditEventRefreshFailure, false, "", err, nil)
		return resp, err
	}
	c.metricInc(MetricRefreshSuccess)
	c.emitAudit(ctx, auditEventRefreshSuccess, true, "", nil, nil)
	return resp, nil
}

func (c *Client) persistTokens(ctx context.Context, resp *AuthResponse) error {
	if resp == nil || resp.Data == nil {
		return nil
	}
	c.rememberUser(resp)
	res := flows.RunPersistTokens(ctx, flows.TokenGrant{
		AccessToken:  resp.Data.AccessToken,
		RefreshToken: resp.Data.RefreshToken,
		ExpiresIn:    resp.Data.ExpiresIn,
	}, c.persist)
	if res.Err != nil {
		c.metricInc(MetricTokenPersistFailure)
		c.warn("thunderauth: storing credentials failed")
		c.emitAudit(ctx, auditEventTokenPersistFailure, false, "", res.Err, nil)
		return fmt.Errorf("%w: %w", ErrTokenPersistence, res.Err)
	}
	return nil
}

func (c *Client) rememberUser(resp *AuthResponse) {
	if resp == nil || resp.Data == nil || resp.Data.User == nil {
		return
	}
	u := *resp.Data.User
	c.userMu.Lock()
	c.user = &u
	c.userMu.Unlock()
}

func statusError(op string, resp *AuthResponse) error {
	return &StatusError{Operation: op, Status: resp.Status, Message: resp.Message}
}

package thunderauth

import (
	"github.com/MrEthical07/thunderauth/endpoint"
)

// API paths.
const (
	PathRegister       = "/api/auth/register"
	PathLogin          = "/api/auth/login"
	PathTwoFactorLogin = "/api/auth/two-factor-login"
	PathForgotPassword = "/api/auth/forgot-password"
	PathResetPassword  = "/api/auth/reset-password"
	PathConfirmEmail   = "/api/auth/confirm-email"
	PathRefreshToken   = "/api/auth/refresh-token"
)

// AuthEndpoint is one auth API call with its payload. The set of
// implementations is closed; each maps to a fixed path and body.
type AuthEndpoint interface {
	Path() string
	Body() map[string]any
	authEndpoint()
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	DisplayName string
	Email       string
	Password    string
	PhoneNumber string
}

// LoginRequest signs in with email and password.
type LoginRequest struct {
	Email    string
	Password string
}

// TwoFactorLoginRequest completes a login that answered TwoFactorRequired.
type TwoFactorLoginRequest struct {
	Email         string
	Password      string
	TwoFactorCode string
}

// ForgotPasswordRequest asks for a password reset mail.
type ForgotPasswordRequest struct {
	Email string
}

// ResetPasswordRequest sets a new password with a reset token.
type ResetPasswordRequest struct {
	UserID          string
	Token           string
	NewPassword     string
	ConfirmPassword string
}

// ConfirmEmailRequest confirms an email address.
type ConfirmEmailRequest struct {
	UserID string
	Token  string
}

// RefreshTokenRequest exchanges a refresh token for new credentials.
type RefreshTokenRequest struct {
	RefreshToken string
}

func (RegisterRequest) Path() string       { return PathRegister }
func (LoginRequest) Path() string          { return PathLogin }
func (TwoFactorLoginRequest) Path() string { return PathTwoFactorLogin }
func (ForgotPasswordRequest) Path() string { return PathForgotPassword }
func (ResetPasswordRequest) Path() string  { return PathResetPassword }
func (ConfirmEmailRequest) Path() string   { return PathConfirmEmail }
func (RefreshTokenRequest) Path() string   { return PathRefreshToken }

func (r RegisterRequest) Body() map[string]any {
	return map[string]any{
		"displayName": r.DisplayName,
		"email":       r.Email,
		"password":    r.Password,
		"phoneNumber": r.PhoneNumber,
	}
}

func (r LoginRequest) Body() map[string]any {
	return map[string]any{"email": r.Email, "password": r.Password}
}

func (r TwoFactorLoginRequest) Body() map[string]any {
	return map[string]any{"email": r.Email, "password": r.Password, "twoFactorCode": r.TwoFactorCode}
}

func (r ForgotPasswordRequest) Body() map[string]any {
	return map[string]any{"email": r.Email}
}

func (r ResetPasswordRequest) Body() map[string]any {
	return map[string]any{
		"userId":          r.UserID,
		"token":           r.Token,
		"newPassword":     r.NewPassword,
		"confirmPassword": r.ConfirmPassword,
	}
}

func (r ConfirmEmailRequest) Body() map[string]any {
	return map[string]any{"userId": r.UserID, "token": r.Token}
}

func (r RefreshTokenRequest) Body() map[string]any {
	return map[string]any{"refreshToken": r.RefreshToken}
}

func (RegisterRequest) authEndpoint()       {}
func (LoginRequest) authEndpoint()          {}
func (TwoFactorLoginRequest) authEndpoint() {}
func (ForgotPasswordRequest) authEndpoint() {}
func (ResetPasswordRequest) authEndpoint()  {}
func (ConfirmEmailRequest) authEndpoint()   {}
func (RefreshTokenRequest) authEndpoint()   {}

// Descriptor maps e onto a POST descriptor against baseURL. Only the refresh
// endpoint is flagged as a refresh call.
func Descriptor(baseURL string, e AuthEndpoint) endpoint.Descriptor {
	_, isRefresh := e.(RefreshTokenRequest)
	return endpoint.Descriptor{
		BaseURL:     baseURL,
		Path:        e.Path(),
		Method:      endpoint.MethodPost,
		Headers:     endpoint.DefaultHeaders(),
		Body:        e.Body(),
		RefreshCall: isRefresh,
	}
}

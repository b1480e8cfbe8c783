package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/thunderauth/internal"
	"github.com/MrEthical07/thunderauth/internal/rate"
	"github.com/google/uuid"
)

const (
	statusSuccess           = "Success"
	statusTwoFactorRequired = "TwoFactorRequired"
	statusFailure           = "Failure"
)

type envelope struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Data    *authData `json:"data,omitempty"`
}

type authData struct {
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresIn    int64     `json:"expiresIn,omitempty"`
	User         *userData `json:"user,omitempty"`
}

type userData struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Company     string `json:"company,omitempty"`
}

type request struct {
	DisplayName     string `json:"displayName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PhoneNumber     string `json:"phoneNumber"`
	TwoFactorCode   string `json:"twoFactorCode"`
	UserID          string `json:"userId"`
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
	RefreshToken    string `json:"refreshToken"`
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (request, bool) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "malformed request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// writeError answers with a plain-text body and no trailing newline.
func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeEnvelope(w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(env)
}

func userPayload(u *User) *userData {
	return &userData{
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhoneNumber: u.PhoneNumber,
		Company:     u.Company,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	key := strings.ToLower(req.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		writeEnvelope(w, envelope{Status: statusFailure, Message: "Email is already registered"})
		return
	}
	token, err := internal.NewOpaqueToken()
	if err != nil {
		writeError(w, "", http.StatusInternalServerError)
		return
	}
	u := &User{
		ID:          uuid.NewString(),
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
	}
	s.users[key] = u
	s.confirm[u.ID] = token
	writeEnvelope(w, envelope{
		Status:  statusSuccess,
		Message: "Registration successful. Please confirm your email.",
		Data:    &authData{User: userPayload(u)},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok || !s.checkLogin(w, r, req.Email) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(req.Email)]
	if !ok || u.Password != req.Password {
		s.failLogin(r, req.Email)
		writeEnvelope(w, envelope{Status: statusFailure, Message: "Invalid email or password"})
		return
	}
	if u.TwoFactor {
		writeEnvelope(w, envelope{Status: statusTwoFactorRequired, Message: "Two-factor code required"})
		return
	}
	_ = s.opts.Limiter.ResetLogin(r.Context(), req.Email)
	s.writeTokensLocked(w, u)
}

// checkLogin answers 429 when the address is throttled.
func (s *Server) checkLogin(w http.ResponseWriter, r *http.Request, email string) bool {
	err := s.opts.Limiter.CheckLogin(r.Context(), email)
	switch {
	case err == nil:
		return true
	case errors.Is(err, rate.ErrRateLimited):
		writeError(w, "too many failed sign-in attempts", http.StatusTooManyRequests)
	default:
		writeError(w, "", http.StatusServiceUnavailable)
	}
	return false
}

func (s *Server) failLogin(r *http.Request, email string) {
	_ = s.opts.Limiter.FailLogin(r.Context(), email)
}

func (s *Server) handleTwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok || !s.checkLogin(w, r, req.Email) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(req.Email)]
	if !ok || u.Password != req.Password {
		s.failLogin(r, req.Email)
		writeEnvelope(w, envelope{Status: statusFailure, Message: "Invalid email or password"})
		return
	}
	if req.TwoFactorCode != s.opts.TwoFactorCode {
		s.failLogin(r, req.Email)
		writeEnvelope(w, envelope{Status: statusFailure, Message: "Invalid two-factor code"})
		return
	}
	_ = s.opts.Limiter.ResetLogin(r.Context(), req.Email)
	s.writeTokensLocked(w, u)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Unknown addresses get the same answer.
	if u, ok := s.users[strings.ToLower(req.Email)]; ok {
		token, err := internal.NewOpaqueToken()
		if err != nil {
			writeError(w, "", http.StatusInternalServerError)
			return
		}
		s.resets[u.ID] = token
	}
	writeEnvelope(w, envelope{Status: statusSuccess, Message: "If the address is registered, a reset link was sent."})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if req.NewPassword == "" || req.NewPassword != req.ConfirmPassword {
		writeError(w, "passwords do not match", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expected, ok := s.resets[req.UserID]
	if !ok || expected != req.Token {
		writeError(w, "invalid or expired reset token", http.StatusBadRequest)
		return
	}
	for _, u := range s.users {
		if u.ID == req.UserID {
			u.Password = req.NewPassword
		}
	}
	delete(s.resets, req.UserID)
	writeEnvelope(w, envelope{Status: statusSuccess, Message: "Password has been reset."})
}

func (s *Server) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expected, ok := s.confirm[req.UserID]
	if !ok || expected != req.Token {
		writeError(w, "invalid confirmation token", http.StatusBadRequest)
		return
	}
	for _, u := range s.users {
		if u.ID == req.UserID {
			u.EmailConfirmed = true
		}
	}
	delete(s.confirm, req.UserID)
	writeEnvelope(w, envelope{Status: statusSuccess, Message: "Email confirmed."})
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshFailure {
		writeError(w, "refresh token expired", http.StatusUnauthorized)
		return
	}
	key, ok := s.refresh[req.RefreshToken]
	if !ok {
		writeError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}
	u, ok := s.users[key]
	if !ok {
		writeError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}
	if err := s.opts.Limiter.AllowRefresh(r.Context(), u.ID); err != nil {
		writeError(w, "too many refresh attempts", http.StatusTooManyRequests)
		return
	}
	delete(s.refresh, req.RefreshToken)
	s.writeTokensLocked(w, u)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		writeError(w, "missing access token", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, active := s.access[token]
	if !active {
		writeError(w, "access token revoked", http.StatusUnauthorized)
		return
	}
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		writeError(w, "access token expired", http.StatusUnauthorized)
		return
	}
	u, ok := s.users[key]
	if !ok || u.ID != claims.Subject {
		writeError(w, "unknown user", http.StatusUnauthorized)
		return
	}
	writeEnvelope(w, envelope{Status: statusSuccess, Data: &authData{User: userPayload(u)}})
}

func (s *Server) writeTokensLocked(w http.ResponseWriter, u *User) {
	access, refresh, err := s.issueLocked(u)
	if err != nil {
		writeError(w, "", http.StatusInternalServerError)
		return
	}
	data := &authData{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         userPayload(u),
	}
	if !s.opts.OmitExpiresIn {
		data.ExpiresIn = int64(s.tokens.AccessTTL().Seconds())
	}
	writeEnvelope(w, envelope{Status: statusSuccess, Message: "Login successful", Data: data})
}

// Package mockapi is an in-process fake of the Project Thunder auth API. It
// issues signed access tokens and opaque rotating refresh tokens and counts
// requests per path, which the client tests and the load test assert on.
package mockapi

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/thunderauth/internal"
	"github.com/MrEthical07/thunderauth/internal/rate"
	"github.com/MrEthical07/thunderauth/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Route paths served by the fake.
const (
	PathRegister       = "/api/auth/register"
	PathLogin          = "/api/auth/login"
	PathTwoFactorLogin = "/api/auth/two-factor-login"
	PathForgotPassword = "/api/auth/forgot-password"
	PathResetPassword  = "/api/auth/reset-password"
	PathConfirmEmail   = "/api/auth/confirm-email"
	PathRefreshToken   = "/api/auth/refresh-token"
	PathProfile        = "/api/profile"
)

// Options configures a Server.
type Options struct {
	// AccessTTL is the lifetime of issued access tokens. Default 1h.
	AccessTTL time.Duration
	// OmitExpiresIn leaves expiresIn out of token responses so clients fall
	// back to the token's exp claim.
	OmitExpiresIn bool
	// TwoFactorCode is the only code two-factor login accepts. Empty means a
	// random six-digit code, see Server.TwoFactorCode.
	TwoFactorCode string
	// SigningKey is the HS256 secret. Empty means a random one. Ignored when
	// Ed25519 is set.
	SigningKey []byte
	// Ed25519 signs access tokens with a fresh Ed25519 key pair instead of
	// HS256.
	Ed25519 bool
	// Limiter throttles failed sign-ins and refresh exchanges. Nil disables
	// throttling.
	Limiter *rate.Limiter
}

// User is an account known to the fake.
type User struct {
	ID             string
	Email          string
	Password       string
	DisplayName    string
	PhoneNumber    string
	Company        string
	TwoFactor      bool
	EmailConfirmed bool
}

// Server is the fake API. It implements http.Handler.
type Server struct {
	mu sync.Mutex

	router  *mux.Router
	tokens  *jwt.Manager
	opts    Options
	users   map[string]*User  // by lowercased email
	access  map[string]string // access token -> email
	refresh map[string]string // refresh token -> email
	resets  map[string]string // user id -> reset token
	confirm map[string]string // user id -> confirmation token
	hits    map[string]int

	refreshFailure bool
}

// New builds a Server.
func New(opts Options) (*Server, error) {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if len(opts.SigningKey) == 0 {
		key, err := internal.NewOpaqueToken()
		if err != nil {
			return nil, err
		}
		opts.SigningKey = []byte(key)
	}
	if opts.TwoFactorCode == "" {
		code, err := internal.NewOTP(6)
		if err != nil {
			return nil, err
		}
		opts.TwoFactorCode = code
	}

	tokens, err := newTokenManager(opts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		tokens:  tokens,
		opts:    opts,
		users:   make(map[string]*User),
		access:  make(map[string]string),
		refresh: make(map[string]string),
		resets:  make(map[string]string),
		confirm: make(map[string]string),
		hits:    make(map[string]int),
	}
	s.router = s.routes()
	return s, nil
}

func newTokenManager(opts Options) (*jwt.Manager, error) {
	cfg := jwt.Config{
		AccessTTL:     opts.AccessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    opts.SigningKey,
		Issuer:        "thunder-mockapi",
	}
	if opts.Ed25519 {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		cfg.SigningMethod = jwt.MethodEd25519
		cfg.PrivateKey = priv
		cfg.PublicKey = pub
	}
	return jwt.NewManager(cfg)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.countHits)
	r.HandleFunc(PathRegister, s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc(PathLogin, s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc(PathTwoFactorLogin, s.handleTwoFactorLogin).Methods(http.MethodPost)
	r.HandleFunc(PathForgotPassword, s.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc(PathResetPassword, s.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc(PathConfirmEmail, s.handleConfirmEmail).Methods(http.MethodPost)
	r.HandleFunc(PathRefreshToken, s.handleRefreshToken).Methods(http.MethodPost)
	r.HandleFunc(PathProfile, s.handleProfile).Methods(http.MethodGet)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// AddUser registers u directly, assigning an id when it has none.
func (s *Server) AddUser(u User) User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := u
	s.users[strings.ToLower(u.Email)] = &stored
	return stored
}

// User returns the account registered under email.
func (s *Server) User(email string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TwoFactorCode returns the code two-factor login accepts.
func (s *Server) TwoFactorCode() string {
	return s.opts.TwoFactorCode
}

// ResetToken returns the pending password reset token for userID.
func (s *Server) ResetToken(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.resets[userID]
	return tok, ok
}

// ConfirmationToken returns the pending email confirmation token for userID.
func (s *Server) ConfirmationToken(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.confirm[userID]
	return tok, ok
}

// RevokeAccessTokens invalidates every issued access token, so the next
// authenticated request is answered 401.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

// SetRefreshFailure makes the refresh endpoint answer 401 while on.
func (s *Server) SetRefreshFailure(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFailure = on
}

// IssueTokens creates a session for email as a login would.
func (s *Server) IssueTokens(email string) (access, refresh string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return "", "", errors.New("mockapi: unknown user")
	}
	return s.issueLocked(u)
}

func (s *Server) issueLocked(u *User) (string, string, error) {
	access, err := s.tokens.CreateAccess(u.ID, u.Email)
	if err != nil {
		return "", "", err
	}
	refresh, err := internal.NewOpaqueToken()
	if err != nil {
		return "", "", err
	}
	key := strings.ToLower(u.Email)
	s.access[access] = key
	s.refresh[refresh] = key
	return access, refresh, nil
}

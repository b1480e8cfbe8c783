package thunderauth

import (
	"time"

	"github.com/MrEthical07/thunderauth/transport"
)

// Envelope statuses.
const (
	StatusSuccess           = transport.StatusSuccess
	StatusTwoFactorRequired = transport.StatusTwoFactorRequired
)

// UserInfo is the user payload returned by auth endpoints.
type UserInfo struct {
	Email             string `json:"email"`
	DisplayName       string `json:"displayName,omitempty"`
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	Company           string `json:"company,omitempty"`
}

// AuthData is the data payload of auth responses. ExpiresIn is in seconds.
type AuthData struct {
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresIn    int64     `json:"expiresIn,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
}

// AuthResponse is the envelope every auth endpoint answers with.
type AuthResponse = transport.Envelope[AuthData]

// SessionStatus summarizes the locally stored credentials.
type SessionStatus struct {
	HasAccessToken  bool
	AccessValid     bool
	HasRefreshToken bool
	ExpiresAt       time.Time
}

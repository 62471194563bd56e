package auth

import "time"

// RoleAdmin is the only role the API issues.
const RoleAdmin = "admin"

// LoginRequest for the admin password check.
type LoginRequest struct {
	Password string `json:"password"`
}

// TokenResponse is returned by a successful admin login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

package transfer

import "github.com/golang-jwt/jwt/v5"

// CustomClaims is the session cookie payload.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// StateClaims is the anti-CSRF state passed to the provider's authorize URL.
// For OAuth 1.0a the request token doubles as the correlation key, so the
// state only carries identity context.
type StateClaims struct {
	UserID   string `json:"uid,omitempty"`
	Platform string `json:"platform"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// CompletionClaims is the signed, time-boxed token minted by the callback
// handler and exchanged by the client at POST /api/{platform}/complete-auth.
// It carries the authorization code (OAuth2) or the request token + verifier
// (OAuth 1.0a); the matching request secret stays server-side.
type CompletionClaims struct {
	UserID        string `json:"uid,omitempty"`
	Platform      string `json:"platform"`
	Code          string `json:"code,omitempty"`
	OAuthToken    string `json:"oauth_token,omitempty"`
	OAuthVerifier string `json:"oauth_verifier,omitempty"`
	jwt.RegisteredClaims
}

package models

import (
	"database/sql"
	"time"
)

const (
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
	PlatformSnapchat  = "snapchat"
	PlatformTiktok    = "tiktok"
	PlatformYoutube   = "youtube"
	PlatformGoogle    = "google"
)

var Platforms = []string{
	PlatformTwitter,
	PlatformFacebook,
	PlatformInstagram,
	PlatformLinkedIn,
	PlatformSnapchat,
	PlatformTiktok,
	PlatformYoutube,
	PlatformGoogle,
}

func IsValidPlatform(p string) bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// SocialAccount is one connected platform account. There is at most one row
// per (user_id, platform); reconnecting overwrites the existing row.
// AccessToken, AccessTokenSecret and RefreshToken are stored AES-GCM encrypted.
type SocialAccount struct {
	ID                int64        `db:"id" json:"id"`
	UserID            int64        `db:"user_id" json:"user_id"`
	Platform          string       `db:"platform" json:"platform"`
	AccountID         string       `db:"account_id" json:"account_id"`
	AccountName       string       `db:"account_name" json:"account_name"`
	AccountUsername   string       `db:"account_username" json:"account_username"`
	ProfileURL        string       `db:"profile_url" json:"profile_url"`
	AccessToken       string       `db:"access_token" json:"-"`
	AccessTokenSecret string       `db:"access_token_secret" json:"-"`
	RefreshToken      string       `db:"refresh_token" json:"-"`
	TokenExpiresAt    sql.NullTime `db:"token_expires_at" json:"token_expires_at"`
	IsConnected       bool         `db:"is_connected" json:"is_connected"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// PendingAuthState holds the OAuth 1.0a request token/secret between the
// auth-link and complete-auth steps. Rows expire after a short TTL and are
// purged by the cleanup job.
type PendingAuthState struct {
	ID            int64     `db:"id"`
	RequestToken  string    `db:"request_token"`
	RequestSecret string    `db:"request_secret"` // encrypted
	UserID        int64     `db:"user_id"`
	Platform      string    `db:"platform"`
	ExpiresAt     time.Time `db:"expires_at"`
	CreatedAt     time.Time `db:"created_at"`
}

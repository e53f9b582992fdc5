package transfer

import "time"

// AuthLinkResponse is the body of GET /api/{platform}/auth. OAuthToken is set
// for Twitter only; the matching request secret stays server-side.
type AuthLinkResponse struct {
	AuthURL    string `json:"auth_url"`
	State      string `json:"state,omitempty"`
	OAuthToken string `json:"oauth_token,omitempty"`
}

// CallbackParams are the query parameters a provider redirect may carry.
type CallbackParams struct {
	Code             string
	State            string
	OAuthToken       string
	OAuthVerifier    string
	Error            string
	ErrorDescription string
	Denied           string
}

type CompleteAuthRequest struct {
	Token string `json:"token"`
}

// ConnectedAccount is the client-facing view of a stored social account.
type ConnectedAccount struct {
	ID             int64      `json:"id"`
	Platform       string     `json:"platform"`
	AccountID      string     `json:"account_id"`
	AccountName    string     `json:"account_name"`
	Username       string     `json:"username"`
	ProfileURL     string     `json:"profile_url"`
	IsConnected    bool       `json:"is_connected"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	// EligibleEntities reports how many connectable entities (e.g. Facebook
	// Pages) the provider exposed; the first one was selected.
	EligibleEntities int `json:"eligible_entities,omitempty"`
}

type PostRequest struct {
	Content       string `json:"content"`
	Title         string `json:"title,omitempty"`
	MediaURL      string `json:"media_url,omitempty"`
	ScheduledTime string `json:"scheduled_time,omitempty"` // RFC 3339
}

type PostResult struct {
	PostID    int64  `json:"post_id"`
	Status    string `json:"status"`
	RemoteID  string `json:"remote_id,omitempty"`
	Scheduled bool   `json:"scheduled"`
}

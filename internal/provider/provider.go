// Package provider implements one OAuth connection adapter per social
// platform behind a common capability interface. The connect/refresh/publish
// services are driven generically over these interfaces; nothing outside this
// package knows a platform's endpoints or wire shapes.
package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	config "github.com/omnipost/omnipost-api/configs"
)

// Token is a provider credential set. TokenSecret is used by OAuth 1.0a only.
// A zero Expiry means the token does not expire (or the provider does not say).
type Token struct {
	AccessToken  string
	TokenSecret  string
	RefreshToken string
	Expiry       time.Time
}

// Account is the normalized profile shape shared by all platforms. ID is the
// provider-stable identifier (id, sub, open_id or channel id), never a
// display name.
type Account struct {
	ID         string
	Name       string
	Username   string
	ProfileURL string

	// EligibleEntities is the number of connectable sub-entities found during
	// traversal (Facebook Pages); zero for platforms without sub-entities.
	EligibleEntities int

	// Token is set when the selected entity carries its own credential (a
	// Facebook Page token); nil means the exchanged token is stored as-is.
	Token *Token
}

// AuthLink is the result of the auth-link step. RequestToken/RequestSecret
// are filled by the OAuth 1.0a three-legged handshake only.
type AuthLink struct {
	URL           string
	RequestToken  string
	RequestSecret string
}

// Callback carries the provider redirect parameters needed for the exchange.
type Callback struct {
	Code          string
	OAuthToken    string
	OAuthVerifier string
	RequestSecret string
}

// Provider is the minimal capability every platform adapter implements.
type Provider interface {
	Name() string

	// AuthLink builds the provider authorization URL. It fails with
	// CREDENTIALS_MISSING before any outbound call when the app credentials
	// are not configured.
	AuthLink(state string) (*AuthLink, error)

	// Exchange swaps the callback parameters for tokens. The redirect URI
	// sent here is byte-identical to the one used in AuthLink.
	Exchange(ctx context.Context, cb Callback) (*Token, error)

	// Profile fetches and normalizes the connected account.
	Profile(ctx context.Context, token *Token) (*Account, error)
}

// Refresher is implemented by platforms that issue refresh tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
}

// PostContent is a normalized publish request.
type PostContent struct {
	AccountID string
	Text      string
	Title     string
	MediaURL  string
}

// Publisher is implemented by platforms that support publishing. It returns
// the provider-assigned id of the created post.
type Publisher interface {
	Publish(ctx context.Context, token *Token, post PostContent) (string, error)
}

// AccountStats is a normalized follower/engagement snapshot.
type AccountStats struct {
	Platform   string `json:"platform"`
	Followers  int64  `json:"followers"`
	Posts      int64  `json:"posts"`
	Engagement int64  `json:"engagement"`
}

// StatsFetcher is implemented by platforms that expose account metrics.
type StatsFetcher interface {
	Stats(ctx context.Context, token *Token, accountID string) (*AccountStats, error)
}

// Revoker is implemented by platforms with a token revocation endpoint;
// disconnect calls it best-effort.
type Revoker interface {
	Revoke(ctx context.Context, token *Token, accountID string) error
}

const defaultTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// callbackURL derives the provider-facing redirect URI. The same value is
// used verbatim for the authorize URL and the token exchange.
func callbackURL(cfg config.Config, creds config.Credentials, platform string) string {
	if creds.RedirectURI != "" {
		return creds.RedirectURI
	}
	return strings.TrimRight(cfg.BaseCallbackURL, "/") + "/api/" + platform + "/callback"
}

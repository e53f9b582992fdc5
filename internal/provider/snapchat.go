package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/transfer"
)

const snapchatScopes = "https://auth.snapchat.com/oauth2/api/user.external_id https://auth.snapchat.com/oauth2/api/user.display_name https://auth.snapchat.com/oauth2/api/user.bitmoji.avatar"

// Snapchat connects through Login Kit. It issues refresh tokens but has no
// server-side publish API, so the adapter is connect/refresh/profile only.
type Snapchat struct {
	cfg    config.Config
	creds  config.Credentials
	client *http.Client

	authURL  string
	tokenURL string
	meURL    string
}

func NewSnapchat(cfg config.Config) *Snapchat {
	return &Snapchat{
		cfg:      cfg,
		creds:    cfg.Snapchat,
		client:   newHTTPClient(),
		authURL:  "https://accounts.snapchat.com/accounts/oauth2/auth",
		tokenURL: "https://accounts.snapchat.com/accounts/oauth2/token",
		meURL:    "https://kit.snapchat.com/v1/me",
	}
}

func (s *Snapchat) Name() string { return models.PlatformSnapchat }

func (s *Snapchat) AuthLink(state string) (*AuthLink, error) {
	if s.creds.ClientID == "" || s.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(s.Name())
	}

	params := url.Values{}
	params.Add("client_id", s.creds.ClientID)
	params.Add("redirect_uri", callbackURL(s.cfg, s.creds, s.Name()))
	params.Add("response_type", "code")
	params.Add("scope", snapchatScopes)
	params.Add("state", state)

	return &AuthLink{URL: fmt.Sprintf("%s?%s", s.authURL, params.Encode())}, nil
}

func (s *Snapchat) Exchange(ctx context.Context, cb Callback) (*Token, error) {
	if s.creds.ClientID == "" || s.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(s.Name())
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", cb.Code)
	data.Set("redirect_uri", callbackURL(s.cfg, s.creds, s.Name()))

	return s.postTokenForm(ctx, data)
}

func (s *Snapchat) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return s.postTokenForm(ctx, data)
}

// Snapchat authenticates the token endpoint with HTTP basic auth rather than
// body credentials.
func (s *Snapchat) postTokenForm(ctx context.Context, data url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.creds.ClientID, s.creds.ClientSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.SnapchatTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("Snapchat token error: %s", result.ErrorDescription)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("Snapchat token response has no access token")
	}

	return &Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Expiry:       expiresAt(result.ExpiresIn),
	}, nil
}

func (s *Snapchat) Profile(ctx context.Context, token *Token) (*Account, error) {
	query := map[string]string{"query": "{me{externalId displayName bitmoji{avatar}}}"}
	jsonData, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.meURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.SnapchatMeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("Snapchat profile error: %s", result.Errors[0].Message)
	}
	if result.Data.Me.ExternalID == "" {
		return nil, apperrors.NoEligibleAccount("Snapchat did not return an account id")
	}

	return &Account{
		ID:         result.Data.Me.ExternalID,
		Name:       result.Data.Me.DisplayName,
		ProfileURL: result.Data.Me.Bitmoji.Avatar,
	}, nil
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/transfer"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// Google is a sign-in/profile provider; it has no feed to publish to and no
// audience metrics, so it implements connect and refresh only.
type Google struct {
	cfg      config.Config
	creds    config.Credentials
	client   *http.Client
	endpoint oauth2.Endpoint

	userInfoURL string
	revokeURL   string
}

func NewGoogle(cfg config.Config) *Google {
	return &Google{
		cfg:         cfg,
		creds:       cfg.Google,
		client:      newHTTPClient(),
		endpoint:    googleoauth.Endpoint,
		userInfoURL: "https://www.googleapis.com/oauth2/v1/userinfo",
		revokeURL:   "https://oauth2.googleapis.com/revoke",
	}
}

func (g *Google) Name() string { return models.PlatformGoogle }

func (g *Google) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.creds.ClientID,
		ClientSecret: g.creds.ClientSecret,
		RedirectURL:  callbackURL(g.cfg, g.creds, g.Name()),
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: g.endpoint,
	}
}

func (g *Google) AuthLink(state string) (*AuthLink, error) {
	if g.creds.ClientID == "" || g.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(g.Name())
	}
	return &AuthLink{
		URL: g.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline),
	}, nil
}

func (g *Google) Exchange(ctx context.Context, cb Callback) (*Token, error) {
	if g.creds.ClientID == "" || g.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(g.Name())
	}

	token, err := g.oauthConfig().Exchange(ctx, cb.Code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

func (g *Google) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	tokenSource := g.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := tokenSource.Token()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	refreshed := &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = refreshToken
	}
	return refreshed, nil
}

func (g *Google) Profile(ctx context.Context, token *Token) (*Account, error) {
	userInfo, err := fetchGoogleUserInfo(ctx, g.client, g.userInfoURL, token.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Account{
		ID:         userInfo.ID,
		Name:       userInfo.Name,
		Username:   userInfo.Email,
		ProfileURL: userInfo.Picture,
	}, nil
}

func (g *Google) Revoke(ctx context.Context, token *Token, accountID string) error {
	return revokeGoogleToken(ctx, g.client, g.revokeURL, token.AccessToken)
}

func fetchGoogleUserInfo(ctx context.Context, client *http.Client, endpoint, accessToken string) (*transfer.GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	response, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		slog.Info("Unexpected response status")
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}

	return &userInfo, nil
}

func revokeGoogleToken(ctx context.Context, client *http.Client, endpoint, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader("token="+accessToken))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}

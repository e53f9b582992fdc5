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

const linkedinScopes = "openid profile email w_member_social"

type Linkedin struct {
	cfg    config.Config
	creds  config.Credentials
	client *http.Client

	authURL  string
	tokenURL string
	apiURL   string
}

func NewLinkedin(cfg config.Config) *Linkedin {
	return &Linkedin{
		cfg:      cfg,
		creds:    cfg.LinkedIn,
		client:   newHTTPClient(),
		authURL:  "https://www.linkedin.com/oauth/v2/authorization",
		tokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
		apiURL:   "https://api.linkedin.com/v2",
	}
}

func (l *Linkedin) Name() string { return models.PlatformLinkedIn }

func (l *Linkedin) AuthLink(state string) (*AuthLink, error) {
	if l.creds.ClientID == "" || l.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(l.Name())
	}

	params := url.Values{}
	params.Add("client_id", l.creds.ClientID)
	params.Add("redirect_uri", callbackURL(l.cfg, l.creds, l.Name()))
	params.Add("response_type", "code")
	params.Add("scope", linkedinScopes)
	params.Add("state", state)

	return &AuthLink{URL: fmt.Sprintf("%s?%s", l.authURL, params.Encode())}, nil
}

func (l *Linkedin) Exchange(ctx context.Context, cb Callback) (*Token, error) {
	if l.creds.ClientID == "" || l.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(l.Name())
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", cb.Code)
	data.Set("client_id", l.creds.ClientID)
	data.Set("client_secret", l.creds.ClientSecret)
	data.Set("redirect_uri", callbackURL(l.cfg, l.creds, l.Name()))

	return l.postTokenForm(ctx, data)
}

// Refresh works for apps enrolled in LinkedIn's refresh token program; other
// apps never receive a refresh token in the first place.
func (l *Linkedin) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", l.creds.ClientID)
	data.Set("client_secret", l.creds.ClientSecret)

	return l.postTokenForm(ctx, data)
}

func (l *Linkedin) postTokenForm(ctx context.Context, data url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.LinkedinTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("LinkedIn token error: %s", result.ErrorDescription)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("LinkedIn token response has no access token")
	}

	return &Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		Expiry:       expiresAt(result.ExpiresIn),
	}, nil
}

func (l *Linkedin) Profile(ctx context.Context, token *Token) (*Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.apiURL+"/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := l.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LinkedIn userinfo returned status %d", resp.StatusCode)
	}

	var user transfer.LinkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if user.Sub == "" {
		return nil, apperrors.NoEligibleAccount("LinkedIn did not return a member id")
	}

	return &Account{
		ID:         user.Sub,
		Name:       user.Name,
		Username:   user.Email,
		ProfileURL: user.Picture,
	}, nil
}

func (l *Linkedin) Publish(ctx context.Context, token *Token, post PostContent) (string, error) {
	body := map[string]any{
		"author":         "urn:li:person:" + post.AccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary": map[string]any{"text": post.Text},
				"shareMediaCategory": func() string {
					if post.MediaURL != "" {
						return "ARTICLE"
					}
					return "NONE"
				}(),
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	if post.MediaURL != "" {
		content := body["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
		content["media"] = []map[string]any{{
			"status":      "READY",
			"originalUrl": post.MediaURL,
		}}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.apiURL+"/ugcPosts", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LinkedIn publish returned status %d", resp.StatusCode)
	}

	var result transfer.LinkedinShareResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return result.ID, nil
}

func (l *Linkedin) Stats(ctx context.Context, token *Token, accountID string) (*AccountStats, error) {
	endpoint := l.apiURL + "/networkSizes/urn:li:person:" + url.PathEscape(accountID) + "?edgeType=CONNECTIONS"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := l.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LinkedIn network size returned status %d", resp.StatusCode)
	}

	var result transfer.LinkedinNetworkSize
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &AccountStats{
		Platform:  l.Name(),
		Followers: result.FirstDegreeSize,
	}, nil
}

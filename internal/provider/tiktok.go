package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

const tiktokScopes = "user.info.basic,user.info.profile,user.info.stats,video.publish,video.upload"

type Tiktok struct {
	cfg    config.Config
	creds  config.Credentials
	client *http.Client

	authURL    string
	tokenURL   string
	userURL    string
	publishURL string
	revokeURL  string
}

func NewTiktok(cfg config.Config) *Tiktok {
	return &Tiktok{
		cfg:        cfg,
		creds:      cfg.Tiktok,
		client:     newHTTPClient(),
		authURL:    "https://www.tiktok.com/v2/auth/authorize",
		tokenURL:   "https://open.tiktokapis.com/v2/oauth/token/",
		userURL:    "https://open.tiktokapis.com/v2/user/info/",
		publishURL: "https://open.tiktokapis.com/v2/post/publish/video/init/",
		revokeURL:  "https://open.tiktokapis.com/v2/oauth/revoke/",
	}
}

func (t *Tiktok) Name() string { return models.PlatformTiktok }

func (t *Tiktok) AuthLink(state string) (*AuthLink, error) {
	if t.creds.ClientID == "" || t.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(t.Name())
	}

	params := url.Values{}
	params.Add("client_key", t.creds.ClientID)
	params.Add("scope", tiktokScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", callbackURL(t.cfg, t.creds, t.Name()))
	params.Add("state", state)

	return &AuthLink{URL: fmt.Sprintf("%s?%s", t.authURL, params.Encode())}, nil
}

func (t *Tiktok) Exchange(ctx context.Context, cb Callback) (*Token, error) {
	if t.creds.ClientID == "" || t.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(t.Name())
	}

	data := url.Values{}
	data.Add("client_key", t.creds.ClientID)
	data.Add("client_secret", t.creds.ClientSecret)
	data.Add("code", cb.Code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", callbackURL(t.cfg, t.creds, t.Name()))

	tokenResponse, err := t.postTokenForm(ctx, data)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		Expiry:       expiresAt(tokenResponse.ExpiresIn),
	}, nil
}

func (t *Tiktok) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("client_key", t.creds.ClientID)
	data.Set("client_secret", t.creds.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	tokenResponse, err := t.postTokenForm(ctx, data)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		Expiry:       expiresAt(tokenResponse.ExpiresIn),
	}, nil
}

func (t *Tiktok) postTokenForm(ctx context.Context, data url.Values) (*transfer.TiktokTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("TikTok token endpoint returned non-200 status")
		return nil, fmt.Errorf("TikTok token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.Error != "" {
		return nil, fmt.Errorf("TikTok token error: %s", tokenResponse.ErrorDescription)
	}
	if tokenResponse.AccessToken == "" {
		return nil, errors.New("TikTok token response has no access token")
	}

	return &tokenResponse, nil
}

func (t *Tiktok) Profile(ctx context.Context, token *Token) (*Account, error) {
	user, err := t.userInfo(ctx, token.AccessToken, "open_id,avatar_url,display_name,username,profile_deep_link")
	if err != nil {
		return nil, err
	}
	if user.OpenID == "" {
		return nil, apperrors.NoEligibleAccount("TikTok did not return an account id")
	}

	return &Account{
		ID:         user.OpenID,
		Name:       user.DisplayName,
		Username:   user.Username,
		ProfileURL: user.ProfileLink,
	}, nil
}

func (t *Tiktok) Stats(ctx context.Context, token *Token, accountID string) (*AccountStats, error) {
	user, err := t.userInfo(ctx, token.AccessToken, "open_id,follower_count,likes_count,video_count")
	if err != nil {
		return nil, err
	}

	return &AccountStats{
		Platform:   t.Name(),
		Followers:  user.FollowerCount,
		Posts:      user.VideoCount,
		Engagement: user.LikesCount,
	}, nil
}

func (t *Tiktok) userInfo(ctx context.Context, accessToken, fields string) (*transfer.TiktokUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.userURL+"?fields="+url.QueryEscape(fields), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.TiktokUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if result.Error.Code != "" && result.Error.Code != "ok" {
		return nil, fmt.Errorf("TikTok user info error: %s", result.Error.Message)
	}

	return &result.Data.User, nil
}

func (t *Tiktok) Publish(ctx context.Context, token *Token, post PostContent) (string, error) {
	if post.MediaURL == "" {
		return "", apperrors.UnsupportedOperation(t.Name(), "text-only posts")
	}

	uploadRequest := transfer.TiktokPublishRequest{
		PostInfo: transfer.TiktokPostInfo{
			Title:                 post.Text,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: post.MediaURL,
		},
	}

	jsonData, err := json.Marshal(uploadRequest)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.publishURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	var result transfer.TiktokPublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("TikTok publish failed: %s", result.Error.Message)
	}

	return result.Data.PublishID, nil
}

func (t *Tiktok) Revoke(ctx context.Context, token *Token, accountID string) error {
	params := url.Values{}
	params.Add("client_key", t.creds.ClientID)
	params.Add("client_secret", t.creds.ClientSecret)
	params.Add("token", token.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.revokeURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}

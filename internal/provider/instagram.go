package provider

import (
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

const instagramScopes = "instagram_business_basic,instagram_business_content_publish"

// Instagram uses the Instagram Login flow: the authorization code buys a
// short-lived token which is immediately traded for a long-lived one. Only
// professional (business/creator) accounts are eligible.
type Instagram struct {
	cfg    config.Config
	creds  config.Credentials
	client *http.Client

	authURL  string
	tokenURL string
	graphURL string
}

func NewInstagram(cfg config.Config) *Instagram {
	return &Instagram{
		cfg:      cfg,
		creds:    cfg.Instagram,
		client:   newHTTPClient(),
		authURL:  "https://www.instagram.com/oauth/authorize",
		tokenURL: "https://api.instagram.com/oauth/access_token",
		graphURL: "https://graph.instagram.com",
	}
}

func (ig *Instagram) Name() string { return models.PlatformInstagram }

func (ig *Instagram) AuthLink(state string) (*AuthLink, error) {
	if ig.creds.ClientID == "" || ig.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(ig.Name())
	}

	params := url.Values{}
	params.Add("client_id", ig.creds.ClientID)
	params.Add("scope", instagramScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", callbackURL(ig.cfg, ig.creds, ig.Name()))
	params.Add("state", state)

	return &AuthLink{URL: fmt.Sprintf("%s?%s", ig.authURL, params.Encode())}, nil
}

func (ig *Instagram) Exchange(ctx context.Context, cb Callback) (*Token, error) {
	if ig.creds.ClientID == "" || ig.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(ig.Name())
	}

	shortLived, err := ig.shortLivedToken(ctx, cb.Code)
	if err != nil {
		return nil, err
	}

	return ig.longLivedToken(ctx, shortLived.AccessToken)
}

func (ig *Instagram) shortLivedToken(ctx context.Context, code string) (*transfer.InstagramTokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", ig.creds.ClientID)
	data.Set("client_secret", ig.creds.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", callbackURL(ig.cfg, ig.creds, ig.Name()))
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ig.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ig.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to get short-lived token: %w", err)
	}
	defer resp.Body.Close()

	var result transfer.InstagramTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.ErrorType != "" {
		return nil, fmt.Errorf("Instagram token error: %s", result.ErrorMsg)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("Instagram token response has no access token")
	}

	return &result, nil
}

func (ig *Instagram) longLivedToken(ctx context.Context, shortLived string) (*Token, error) {
	params := url.Values{}
	params.Add("grant_type", "ig_exchange_token")
	params.Add("client_secret", ig.creds.ClientSecret)
	params.Add("access_token", shortLived)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ig.graphURL+"/access_token?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := ig.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("long-lived token exchange returned status %d", resp.StatusCode)
	}

	var result transfer.InstagramLongLivedToken
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode long-lived token response: %w", err)
	}

	return &Token{
		AccessToken: result.AccessToken,
		// Instagram refreshes the long-lived token itself, so it doubles as
		// the refresh credential.
		RefreshToken: result.AccessToken,
		Expiry:       expiresAt(int(result.ExpiresIn)),
	}, nil
}

// Refresh extends a long-lived token before it expires.
func (ig *Instagram) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	params := url.Values{}
	params.Add("grant_type", "ig_refresh_token")
	params.Add("access_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ig.graphURL+"/refresh_access_token?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := ig.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh returned status %d", resp.StatusCode)
	}

	var result transfer.InstagramLongLivedToken
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		Expiry:       expiresAt(int(result.ExpiresIn)),
	}, nil
}

func (ig *Instagram) Profile(ctx context.Context, token *Token) (*Account, error) {
	user, err := ig.userInfo(ctx, token.AccessToken, "user_id,username,name,profile_picture_url")
	if err != nil {
		return nil, err
	}

	id := user.UserID
	if id == "" {
		id = user.ID
	}
	if id == "" {
		return nil, apperrors.NoEligibleAccount("no Instagram professional account is linked; switch the account to business or creator")
	}

	return &Account{
		ID:         id,
		Name:       user.Name,
		Username:   user.Username,
		ProfileURL: "https://www.instagram.com/" + user.Username,
	}, nil
}

func (ig *Instagram) Stats(ctx context.Context, token *Token, accountID string) (*AccountStats, error) {
	user, err := ig.userInfo(ctx, token.AccessToken, "followers_count,media_count")
	if err != nil {
		return nil, err
	}

	return &AccountStats{
		Platform:  ig.Name(),
		Followers: user.FollowersCount,
		Posts:     user.MediaCount,
	}, nil
}

func (ig *Instagram) userInfo(ctx context.Context, accessToken, fields string) (*transfer.InstagramUserInfo, error) {
	params := url.Values{}
	params.Add("fields", fields)
	params.Add("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ig.graphURL+"/me?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := ig.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.InstagramUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("Instagram profile error: %s", result.Error.Message)
	}

	return &result, nil
}

// Publish creates a media container from the image URL and then publishes it.
func (ig *Instagram) Publish(ctx context.Context, token *Token, post PostContent) (string, error) {
	if post.MediaURL == "" {
		return "", apperrors.UnsupportedOperation(ig.Name(), "text-only posts")
	}

	container, err := ig.createContainer(ctx, token.AccessToken, post)
	if err != nil {
		return "", err
	}

	data := url.Values{}
	data.Set("creation_id", container)
	data.Set("access_token", token.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		ig.graphURL+"/"+post.AccountID+"/media_publish", strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ig.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	var result transfer.InstagramMediaContainer
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("Instagram publish failed: %s", result.Error.Message)
	}

	return result.ID, nil
}

func (ig *Instagram) createContainer(ctx context.Context, accessToken string, post PostContent) (string, error) {
	data := url.Values{}
	data.Set("image_url", post.MediaURL)
	data.Set("caption", post.Text)
	data.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		ig.graphURL+"/"+post.AccountID+"/media", strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ig.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	var result transfer.InstagramMediaContainer
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("Instagram container creation failed: %s", result.Error.Message)
	}

	return result.ID, nil
}

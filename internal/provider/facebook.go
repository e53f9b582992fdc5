package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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

const facebookScopes = "pages_show_list,pages_manage_posts,pages_read_engagement"

// Facebook connects a user's first eligible Page. The Page access token, not
// the user token, is what gets stored: publishing and stats run against the
// Page.
type Facebook struct {
	cfg    config.Config
	creds  config.Credentials
	client *http.Client

	authURL  string
	graphURL string
}

func NewFacebook(cfg config.Config) *Facebook {
	return &Facebook{
		cfg:      cfg,
		creds:    cfg.Facebook,
		client:   newHTTPClient(),
		authURL:  "https://www.facebook.com/v19.0/dialog/oauth",
		graphURL: "https://graph.facebook.com/v19.0",
	}
}

func (f *Facebook) Name() string { return models.PlatformFacebook }

func (f *Facebook) AuthLink(state string) (*AuthLink, error) {
	if f.creds.ClientID == "" || f.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(f.Name())
	}

	params := url.Values{}
	params.Add("client_id", f.creds.ClientID)
	params.Add("redirect_uri", callbackURL(f.cfg, f.creds, f.Name()))
	params.Add("response_type", "code")
	params.Add("scope", facebookScopes)
	params.Add("state", state)

	return &AuthLink{URL: fmt.Sprintf("%s?%s", f.authURL, params.Encode())}, nil
}

func (f *Facebook) Exchange(ctx context.Context, cb Callback) (*Token, error) {
	if f.creds.ClientID == "" || f.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(f.Name())
	}

	params := url.Values{}
	params.Add("client_id", f.creds.ClientID)
	params.Add("client_secret", f.creds.ClientSecret)
	params.Add("redirect_uri", callbackURL(f.cfg, f.creds, f.Name()))
	params.Add("code", cb.Code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"/oauth/access_token?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string               `json:"access_token"`
		ExpiresIn   int                  `json:"expires_in"`
		Error       *transfer.GraphError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("Facebook token error: %s", result.Error.Message)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("Facebook token response has no access token")
	}

	return &Token{
		AccessToken: result.AccessToken,
		Expiry:      expiresAt(result.ExpiresIn),
	}, nil
}

// Profile lists the user's Pages and selects the first one carrying a Page
// token. The Page token replaces the user token in storage.
func (f *Facebook) Profile(ctx context.Context, token *Token) (*Account, error) {
	pages, err := f.listPages(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	eligible := 0
	var selected *transfer.FacebookPage
	for i := range pages {
		if pages[i].AccessToken == "" {
			continue
		}
		eligible++
		if selected == nil {
			selected = &pages[i]
		}
	}
	if selected == nil {
		return nil, apperrors.NoEligibleAccount("no Facebook Page with publish access was found; create a Page and try again")
	}

	return &Account{
		ID:               selected.ID,
		Name:             selected.Name,
		ProfileURL:       "https://www.facebook.com/" + selected.ID,
		EligibleEntities: eligible,
		Token: &Token{
			AccessToken: selected.AccessToken,
			// page tokens inherit the user token's lifetime
			Expiry: token.Expiry,
		},
	}, nil
}

func (f *Facebook) listPages(ctx context.Context, userToken string) ([]transfer.FacebookPage, error) {
	params := url.Values{}
	params.Add("access_token", userToken)
	params.Add("appsecret_proof", f.appSecretProof(userToken))
	params.Add("fields", "id,name,access_token,category,instagram_business_account")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"/me/accounts?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.FacebookPagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("Facebook pages error: %s", result.Error.Message)
	}

	return result.Data, nil
}

func (f *Facebook) Publish(ctx context.Context, token *Token, post PostContent) (string, error) {
	endpoint := f.graphURL + "/" + post.AccountID + "/feed"
	data := url.Values{}
	data.Set("message", post.Text)

	if post.MediaURL != "" {
		endpoint = f.graphURL + "/" + post.AccountID + "/photos"
		data.Set("url", post.MediaURL)
		data.Set("caption", post.Text)
		data.Del("message")
	}

	data.Set("access_token", token.AccessToken)
	data.Set("appsecret_proof", f.appSecretProof(token.AccessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	var result transfer.FacebookPublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("Facebook publish failed: %s", result.Error.Message)
	}

	if result.PostID != "" {
		return result.PostID, nil
	}
	return result.ID, nil
}

func (f *Facebook) Stats(ctx context.Context, token *Token, accountID string) (*AccountStats, error) {
	params := url.Values{}
	params.Add("access_token", token.AccessToken)
	params.Add("appsecret_proof", f.appSecretProof(token.AccessToken))
	params.Add("fields", "fan_count,followers_count")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"/"+accountID+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.FacebookPageStats
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("Facebook stats error: %s", result.Error.Message)
	}

	return &AccountStats{
		Platform:   f.Name(),
		Followers:  result.FollowersCount,
		Engagement: result.FanCount,
	}, nil
}

// appSecretProof is the HMAC-SHA256 of the access token keyed with the app
// secret; the Graph API requires it on server-side calls.
func (f *Facebook) appSecretProof(accessToken string) string {
	mac := hmac.New(sha256.New, []byte(f.creds.ClientSecret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}

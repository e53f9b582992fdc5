package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dghubble/oauth1"
	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/transfer"
)

// Twitter is the one OAuth 1.0a platform. AuthLink runs the first leg of the
// three-legged handshake and hands the request token/secret back to the
// caller; Exchange completes it with the verifier. Twitter access tokens do
// not expire.
type Twitter struct {
	cfg    config.Config
	creds  config.Credentials
	client *http.Client

	endpoint oauth1.Endpoint
	apiURL   string
}

func NewTwitter(cfg config.Config) *Twitter {
	return &Twitter{
		cfg:    cfg,
		creds:  cfg.Twitter,
		client: newHTTPClient(),
		endpoint: oauth1.Endpoint{
			RequestTokenURL: "https://api.twitter.com/oauth/request_token",
			AuthorizeURL:    "https://api.twitter.com/oauth/authorize",
			AccessTokenURL:  "https://api.twitter.com/oauth/access_token",
		},
		apiURL: "https://api.twitter.com/1.1",
	}
}

func (t *Twitter) Name() string { return models.PlatformTwitter }

func (t *Twitter) oauthConfig() *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    t.creds.ClientID,
		ConsumerSecret: t.creds.ClientSecret,
		CallbackURL:    callbackURL(t.cfg, t.creds, t.Name()),
		Endpoint:       t.endpoint,
	}
}

func (t *Twitter) AuthLink(state string) (*AuthLink, error) {
	if t.creds.ClientID == "" || t.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(t.Name())
	}

	cfg := t.oauthConfig()
	requestToken, requestSecret, err := cfg.RequestToken()
	if err != nil {
		slog.Info(err.Error())
		return nil, apperrors.ExchangeFailed(t.Name(), err)
	}

	authorizationURL, err := cfg.AuthorizationURL(requestToken)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &AuthLink{
		URL:           authorizationURL.String(),
		RequestToken:  requestToken,
		RequestSecret: requestSecret,
	}, nil
}

func (t *Twitter) Exchange(ctx context.Context, cb Callback) (*Token, error) {
	if t.creds.ClientID == "" || t.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(t.Name())
	}

	accessToken, accessSecret, err := t.oauthConfig().AccessToken(cb.OAuthToken, cb.RequestSecret, cb.OAuthVerifier)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &Token{
		AccessToken: accessToken,
		TokenSecret: accessSecret,
	}, nil
}

func (t *Twitter) signedClient(ctx context.Context, token *Token) *http.Client {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, t.client)
	return t.oauthConfig().Client(ctx, oauth1.NewToken(token.AccessToken, token.TokenSecret))
}

func (t *Twitter) Profile(ctx context.Context, token *Token) (*Account, error) {
	client := t.signedClient(ctx, token)

	resp, err := client.Get(t.apiURL + "/account/verify_credentials.json")
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verify_credentials returned status %d", resp.StatusCode)
	}

	var user transfer.TwitterUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if user.IDStr == "" {
		return nil, apperrors.NoEligibleAccount("Twitter did not return an account id")
	}

	return &Account{
		ID:         user.IDStr,
		Name:       user.Name,
		Username:   user.ScreenName,
		ProfileURL: "https://twitter.com/" + user.ScreenName,
	}, nil
}

func (t *Twitter) Publish(ctx context.Context, token *Token, post PostContent) (string, error) {
	client := t.signedClient(ctx, token)

	params := url.Values{}
	params.Set("status", post.Text)

	resp, err := client.PostForm(t.apiURL+"/statuses/update.json", params)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp transfer.TwitterErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && len(errResp.Errors) > 0 {
			return "", fmt.Errorf("Twitter publish failed: %s", errResp.Errors[0].Message)
		}
		return "", fmt.Errorf("Twitter publish returned status %d", resp.StatusCode)
	}

	var tweet transfer.TwitterTweet
	if err := json.NewDecoder(resp.Body).Decode(&tweet); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return tweet.IDStr, nil
}

func (t *Twitter) Stats(ctx context.Context, token *Token, accountID string) (*AccountStats, error) {
	client := t.signedClient(ctx, token)

	resp, err := client.Get(t.apiURL + "/users/show.json?user_id=" + url.QueryEscape(accountID))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("users/show returned status %d", resp.StatusCode)
	}

	var user transfer.TwitterUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &AccountStats{
		Platform:  t.Name(),
		Followers: user.FollowersCount,
		Posts:     user.StatusesCount,
	}, nil
}

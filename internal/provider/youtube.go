package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Youtube shares the Google app registration but asks for upload scope and
// connects the user's channel rather than the Google profile.
type Youtube struct {
	cfg      config.Config
	creds    config.Credentials
	client   *http.Client
	endpoint oauth2.Endpoint

	revokeURL string
}

func NewYoutube(cfg config.Config) *Youtube {
	return &Youtube{
		cfg:       cfg,
		creds:     cfg.Google,
		client:    newHTTPClient(),
		endpoint:  googleoauth.Endpoint,
		revokeURL: "https://oauth2.googleapis.com/revoke",
	}
}

func (y *Youtube) Name() string { return models.PlatformYoutube }

func (y *Youtube) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     y.creds.ClientID,
		ClientSecret: y.creds.ClientSecret,
		RedirectURL:  callbackURL(y.cfg, y.creds, y.Name()),
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.readonly",
			"https://www.googleapis.com/auth/youtube.upload",
		},
		Endpoint: y.endpoint,
	}
}

func (y *Youtube) AuthLink(state string) (*AuthLink, error) {
	if y.creds.ClientID == "" || y.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(y.Name())
	}
	return &AuthLink{
		URL: y.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce),
	}, nil
}

func (y *Youtube) Exchange(ctx context.Context, cb Callback) (*Token, error) {
	if y.creds.ClientID == "" || y.creds.ClientSecret == "" {
		return nil, apperrors.CredentialsMissing(y.Name())
	}

	token, err := y.oauthConfig().Exchange(ctx, cb.Code)
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

func (y *Youtube) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	tokenSource := y.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
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

func (y *Youtube) service(ctx context.Context, token *Token) (*youtube.Service, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.AccessToken,
	}))
	return youtube.NewService(ctx, option.WithHTTPClient(httpClient))
}

// Profile resolves the authorized user's channel; the channel id is the
// stable account identifier.
func (y *Youtube) Profile(ctx context.Context, token *Token) (*Account, error) {
	service, err := y.service(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err := service.Channels.List([]string{"id", "snippet"}).Mine(true).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, apperrors.NoEligibleAccount("the Google account has no YouTube channel")
	}

	channel := resp.Items[0]
	account := &Account{
		ID:         channel.Id,
		ProfileURL: "https://www.youtube.com/channel/" + channel.Id,
	}
	if channel.Snippet != nil {
		account.Name = channel.Snippet.Title
		account.Username = channel.Snippet.CustomUrl
	}
	return account, nil
}

func (y *Youtube) Stats(ctx context.Context, token *Token, accountID string) (*AccountStats, error) {
	service, err := y.service(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err := service.Channels.List([]string{"statistics"}).Id(accountID).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return nil, fmt.Errorf("no statistics for channel %s", accountID)
	}

	stats := resp.Items[0].Statistics
	return &AccountStats{
		Platform:   y.Name(),
		Followers:  int64(stats.SubscriberCount),
		Posts:      int64(stats.VideoCount),
		Engagement: int64(stats.ViewCount),
	}, nil
}

// Publish uploads a video pulled from the media URL.
func (y *Youtube) Publish(ctx context.Context, token *Token, post PostContent) (string, error) {
	if post.MediaURL == "" {
		return "", apperrors.UnsupportedOperation(y.Name(), "text-only posts")
	}

	service, err := y.service(ctx, token)
	if err != nil {
		return "", err
	}

	tempFile, err := downloadMedia(ctx, y.client, post.MediaURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       post.Title,
			Description: post.Text,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}
	if video.Snippet.Title == "" {
		video.Snippet.Title = post.Text
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Do()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return response.Id, nil
}

func (y *Youtube) Revoke(ctx context.Context, token *Token, accountID string) error {
	return revokeGoogleToken(ctx, y.client, y.revokeURL, token.AccessToken)
}

// downloadMedia stages a remote object into a temp file so the upload client
// can seek.
func downloadMedia(ctx context.Context, client *http.Client, mediaURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "upload-*.media")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", err
	}

	response, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading media: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	if _, err := io.Copy(tempFile, response.Body); err != nil {
		return "", fmt.Errorf("error saving media to temporary file: %w", err)
	}

	return tempFile.Name(), nil
}

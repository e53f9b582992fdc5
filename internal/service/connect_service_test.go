package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/provider"
	"github.com/omnipost/omnipost-api/internal/transfer"
	"github.com/omnipost/omnipost-api/pkg/utils"
)

func testConfig() config.Config {
	return config.Config{
		SecretKey:       testSecretKey,
		BaseCallbackURL: "https://api.example.com",
		FrontendURL:     "https://app.example.com",
	}
}

func newConnectFixture(p provider.Provider) (ConnectService, *fakeSocialAccounts, *fakeAuthStates) {
	accounts := newFakeSocialAccounts()
	pending := newFakeAuthStates()
	source := fakeSource{p.Name(): p}
	return NewConnectService(testConfig(), source, accounts, pending), accounts, pending
}

func TestAuthLinkOAuth2(t *testing.T) {
	p := &fakeProvider{name: "tiktok"}
	svc, _, pending := newConnectFixture(p)

	resp, err := svc.AuthLink(context.Background(), 7, "tiktok")
	require.NoError(t, err)
	require.NotEmpty(t, resp.AuthURL)
	require.NotEmpty(t, resp.State)
	assert.Empty(t, resp.OAuthToken)

	claims, err := utils.ValidateStateToken(testSecretKey, resp.State)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.UserID)
	assert.Equal(t, "tiktok", claims.Platform)
	assert.NotEmpty(t, claims.Nonce)

	assert.Empty(t, pending.rows)
}

func TestAuthLinkOAuth1StoresRequestSecret(t *testing.T) {
	p := &fakeProvider{
		name: "twitter",
		authLinkFn: func(state string) (*provider.AuthLink, error) {
			return &provider.AuthLink{
				URL:           "https://api.twitter.com/oauth/authorize?oauth_token=req-token",
				RequestToken:  "req-token",
				RequestSecret: "req-secret",
			}, nil
		},
	}
	svc, _, pending := newConnectFixture(p)

	resp, err := svc.AuthLink(context.Background(), 7, "twitter")
	require.NoError(t, err)
	assert.Equal(t, "req-token", resp.OAuthToken)
	assert.Empty(t, resp.State)

	row, err := pending.GetByRequestToken(context.Background(), "req-token")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(7), row.UserID)
	assert.Equal(t, "twitter", row.Platform)

	// The request secret is never stored in the clear.
	assert.NotEqual(t, "req-secret", row.RequestSecret)
	secret, err := utils.Decrypt(row.RequestSecret, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "req-secret", secret)
}

func TestAuthLinkUnknownPlatform(t *testing.T) {
	svc, _, _ := newConnectFixture(&fakeProvider{name: "tiktok"})

	_, err := svc.AuthLink(context.Background(), 7, "myspace")
	assert.Equal(t, apperrors.KindUnknownPlatform, apperrors.KindOf(err))
}

func TestHandleCallbackDenied(t *testing.T) {
	p := &fakeProvider{name: "tiktok"}
	svc, _, _ := newConnectFixture(p)

	_, err := svc.HandleCallback(context.Background(), "tiktok", transfer.CallbackParams{
		Error: "access_denied",
	})
	assert.Equal(t, apperrors.KindAuthorizationDenied, apperrors.KindOf(err))

	_, err = svc.HandleCallback(context.Background(), "tiktok", transfer.CallbackParams{
		Denied: "req-token",
	})
	assert.Equal(t, apperrors.KindAuthorizationDenied, apperrors.KindOf(err))
}

func TestHandleCallbackMissingParams(t *testing.T) {
	svc, _, _ := newConnectFixture(&fakeProvider{name: "tiktok"})

	_, err := svc.HandleCallback(context.Background(), "tiktok", transfer.CallbackParams{State: "s"})
	assert.Equal(t, apperrors.KindInvalidCallback, apperrors.KindOf(err))

	_, err = svc.HandleCallback(context.Background(), "tiktok", transfer.CallbackParams{Code: "c"})
	assert.Equal(t, apperrors.KindInvalidCallback, apperrors.KindOf(err))

	// OAuth 1.0a needs both legs of the pair.
	_, err = svc.HandleCallback(context.Background(), "tiktok", transfer.CallbackParams{OAuthToken: "tok"})
	assert.Equal(t, apperrors.KindInvalidCallback, apperrors.KindOf(err))
}

func TestHandleCallbackPlatformMismatch(t *testing.T) {
	accounts := newFakeSocialAccounts()
	pending := newFakeAuthStates()
	source := fakeSource{
		"tiktok":   &fakeProvider{name: "tiktok"},
		"linkedin": &fakeProvider{name: "linkedin"},
	}
	svc := NewConnectService(testConfig(), source, accounts, pending)

	state, err := utils.GenerateStateToken(testSecretKey, transfer.StateClaims{
		UserID: "7", Platform: "tiktok", Nonce: "n",
	})
	require.NoError(t, err)

	_, err = svc.HandleCallback(context.Background(), "linkedin", transfer.CallbackParams{
		Code: "c", State: state,
	})
	assert.Equal(t, apperrors.KindInvalidCallback, apperrors.KindOf(err))
}

func TestHandleCallbackMintsCompletionToken(t *testing.T) {
	svc, _, _ := newConnectFixture(&fakeProvider{name: "tiktok"})

	state, err := utils.GenerateStateToken(testSecretKey, transfer.StateClaims{
		UserID: "7", Platform: "tiktok", Nonce: "n",
	})
	require.NoError(t, err)

	token, err := svc.HandleCallback(context.Background(), "tiktok", transfer.CallbackParams{
		Code: "auth-code", State: state,
	})
	require.NoError(t, err)

	claims, err := utils.ValidateCompletionToken(testSecretKey, token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.UserID)
	assert.Equal(t, "tiktok", claims.Platform)
	assert.Equal(t, "auth-code", claims.Code)
	assert.Empty(t, claims.OAuthToken)
}

func TestCompleteAuthStoresEncryptedTokens(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	p := &fakeProvider{
		name: "tiktok",
		exchangeFn: func(cb provider.Callback) (*provider.Token, error) {
			return &provider.Token{
				AccessToken:  "access-value",
				RefreshToken: "refresh-value",
				Expiry:       expiry,
			}, nil
		},
		profileFn: func(token *provider.Token) (*provider.Account, error) {
			return &provider.Account{ID: "open-id-1", Name: "Creator", Username: "creator"}, nil
		},
	}
	svc, accounts, _ := newConnectFixture(p)

	state, err := utils.GenerateStateToken(testSecretKey, transfer.StateClaims{
		UserID: "7", Platform: "tiktok", Nonce: "n",
	})
	require.NoError(t, err)
	completion, err := svc.HandleCallback(context.Background(), "tiktok", transfer.CallbackParams{
		Code: "auth-code", State: state,
	})
	require.NoError(t, err)

	view, err := svc.CompleteAuth(context.Background(), 7, "tiktok", completion)
	require.NoError(t, err)
	assert.Equal(t, "tiktok", view.Platform)
	assert.Equal(t, "open-id-1", view.AccountID)
	assert.Equal(t, "creator", view.Username)
	assert.True(t, view.IsConnected)
	require.NotNil(t, view.TokenExpiresAt)
	assert.True(t, view.TokenExpiresAt.Equal(expiry))

	assert.Equal(t, "auth-code", p.lastCallback.Code)

	row, err := accounts.GetByUserAndPlatform(context.Background(), 7, "tiktok")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.NotEqual(t, "access-value", row.AccessToken)
	assert.NotEqual(t, "refresh-value", row.RefreshToken)

	access, err := utils.Decrypt(row.AccessToken, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "access-value", access)
	refresh, err := utils.Decrypt(row.RefreshToken, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "refresh-value", refresh)
}

func TestCompleteAuthExpiredTokenNeverCallsProvider(t *testing.T) {
	p := &fakeProvider{name: "tiktok"}
	svc, _, _ := newConnectFixture(p)

	claims := transfer.CompletionClaims{
		UserID: "7", Platform: "tiktok", Code: "auth-code",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecretKey))
	require.NoError(t, err)

	_, err = svc.CompleteAuth(context.Background(), 7, "tiktok", expired)
	assert.Equal(t, apperrors.KindTokenExpiredLocal, apperrors.KindOf(err))
	assert.Equal(t, 0, p.exchangeCalls)
	assert.Equal(t, 0, p.profileCalls)
}

func TestCompleteAuthRejectsForeignToken(t *testing.T) {
	accounts := newFakeSocialAccounts()
	pending := newFakeAuthStates()
	source := fakeSource{
		"tiktok":   &fakeProvider{name: "tiktok"},
		"linkedin": &fakeProvider{name: "linkedin"},
	}
	svc := NewConnectService(testConfig(), source, accounts, pending)

	completion, err := utils.GenerateCompletionToken(testSecretKey, transfer.CompletionClaims{
		UserID: "7", Platform: "tiktok", Code: "auth-code",
	})
	require.NoError(t, err)

	// Issued for tiktok, presented for linkedin.
	_, err = svc.CompleteAuth(context.Background(), 7, "linkedin", completion)
	assert.Equal(t, apperrors.KindInvalidCallback, apperrors.KindOf(err))

	// Issued for user 7, presented by user 8.
	_, err = svc.CompleteAuth(context.Background(), 8, "tiktok", completion)
	assert.Equal(t, apperrors.KindInvalidCallback, apperrors.KindOf(err))
}

func TestCompleteAuthOAuth1UsesStoredRequestSecret(t *testing.T) {
	p := &fakeProvider{
		name: "twitter",
		authLinkFn: func(state string) (*provider.AuthLink, error) {
			return &provider.AuthLink{
				URL:           "https://api.twitter.com/oauth/authorize?oauth_token=req-token",
				RequestToken:  "req-token",
				RequestSecret: "req-secret",
			}, nil
		},
		exchangeFn: func(cb provider.Callback) (*provider.Token, error) {
			return &provider.Token{AccessToken: "tw-access", TokenSecret: "tw-secret"}, nil
		},
	}
	svc, accounts, pending := newConnectFixture(p)
	ctx := context.Background()

	_, err := svc.AuthLink(ctx, 7, "twitter")
	require.NoError(t, err)

	completion, err := svc.HandleCallback(ctx, "twitter", transfer.CallbackParams{
		OAuthToken: "req-token", OAuthVerifier: "verifier",
	})
	require.NoError(t, err)

	view, err := svc.CompleteAuth(ctx, 7, "twitter", completion)
	require.NoError(t, err)
	assert.True(t, view.IsConnected)
	assert.Nil(t, view.TokenExpiresAt)

	// The adapter got the parked request secret back, decrypted.
	assert.Equal(t, "req-token", p.lastCallback.OAuthToken)
	assert.Equal(t, "verifier", p.lastCallback.OAuthVerifier)
	assert.Equal(t, "req-secret", p.lastCallback.RequestSecret)

	// The one-shot state is consumed.
	row, err := pending.GetByRequestToken(ctx, "req-token")
	require.NoError(t, err)
	assert.Nil(t, row)

	stored, err := accounts.GetByUserAndPlatform(ctx, 7, "twitter")
	require.NoError(t, err)
	require.NotNil(t, stored)
	secret, err := utils.Decrypt(stored.AccessTokenSecret, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "tw-secret", secret)
}

func TestCompleteAuthOAuth1ExpiredState(t *testing.T) {
	p := &fakeProvider{name: "twitter"}
	svc, _, pending := newConnectFixture(p)
	ctx := context.Background()

	// The parked request state aged out while the completion token is still
	// inside its own window.
	encSecret, err := utils.Encrypt([]byte("req-secret"), []byte(testSecretKey))
	require.NoError(t, err)
	_, err = pending.Create(ctx, &models.PendingAuthState{
		RequestToken:  "req-token",
		RequestSecret: encSecret,
		UserID:        7,
		Platform:      "twitter",
		ExpiresAt:     time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	completion, err := utils.GenerateCompletionToken(testSecretKey, transfer.CompletionClaims{
		UserID: "7", Platform: "twitter", OAuthToken: "req-token", OAuthVerifier: "verifier",
	})
	require.NoError(t, err)

	_, err = svc.CompleteAuth(ctx, 7, "twitter", completion)
	assert.Equal(t, apperrors.KindTokenExpiredLocal, apperrors.KindOf(err))
	assert.Equal(t, 0, p.exchangeCalls)
}

func TestCompleteAuthEntityTokenReplacesUserToken(t *testing.T) {
	p := &fakeProvider{
		name: "facebook",
		profileFn: func(token *provider.Token) (*provider.Account, error) {
			return &provider.Account{
				ID: "page-1", Name: "Page One", Username: "pageone",
				EligibleEntities: 2,
				Token:            &provider.Token{AccessToken: "page-token"},
			}, nil
		},
	}
	svc, accounts, _ := newConnectFixture(p)

	completion, err := utils.GenerateCompletionToken(testSecretKey, transfer.CompletionClaims{
		UserID: "7", Platform: "facebook", Code: "auth-code",
	})
	require.NoError(t, err)

	view, err := svc.CompleteAuth(context.Background(), 7, "facebook", completion)
	require.NoError(t, err)
	assert.Equal(t, 2, view.EligibleEntities)

	row, err := accounts.GetByUserAndPlatform(context.Background(), 7, "facebook")
	require.NoError(t, err)
	access, err := utils.Decrypt(row.AccessToken, []byte(testSecretKey))
	require.NoError(t, err)
	assert.Equal(t, "page-token", access)
}

func TestReconnectDoesNotDuplicate(t *testing.T) {
	p := &fakeProvider{name: "tiktok"}
	svc, accounts, _ := newConnectFixture(p)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		completion, err := utils.GenerateCompletionToken(testSecretKey, transfer.CompletionClaims{
			UserID: "7", Platform: "tiktok", Code: "auth-code-" + strconv.Itoa(i),
		})
		require.NoError(t, err)
		_, err = svc.CompleteAuth(ctx, 7, "tiktok", completion)
		require.NoError(t, err)
	}

	rows, err := accounts.ListByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDisconnect(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "google"}}
	svc, accounts, _ := newConnectFixture(p)
	ctx := context.Background()

	err := svc.Disconnect(ctx, 7, "google")
	assert.Equal(t, apperrors.KindAccountNotConnected, apperrors.KindOf(err))

	enc, err := utils.Encrypt([]byte("access-value"), []byte(testSecretKey))
	require.NoError(t, err)
	_, err = accounts.Upsert(ctx, &models.SocialAccount{
		UserID: 7, Platform: "google", AccountID: "sub-1",
		AccessToken: enc, IsConnected: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Disconnect(ctx, 7, "google"))
	assert.Equal(t, 1, p.revokeCalls)

	row, err := accounts.GetByUserAndPlatform(ctx, 7, "google")
	require.NoError(t, err)
	assert.Nil(t, row)
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/provider"
	"github.com/omnipost/omnipost-api/internal/repository"
	"github.com/omnipost/omnipost-api/internal/transfer"
	"github.com/omnipost/omnipost-api/pkg/utils"
)

// ProviderSource resolves a platform name to its adapter. *provider.Registry
// is the production implementation.
type ProviderSource interface {
	Get(platform string) (provider.Provider, error)
}

// ConnectService drives the platform connection flow: auth link, provider
// callback, completion, listing and disconnect. It is platform-agnostic; all
// provider specifics live behind the provider.Provider interface.
type ConnectService interface {
	AuthLink(ctx context.Context, userID int64, platform string) (*transfer.AuthLinkResponse, error)
	HandleCallback(ctx context.Context, platform string, params transfer.CallbackParams) (string, error)
	CompleteAuth(ctx context.Context, userID int64, platform, completionToken string) (*transfer.ConnectedAccount, error)
	List(ctx context.Context, userID int64) ([]*transfer.ConnectedAccount, error)
	Disconnect(ctx context.Context, userID int64, platform string) error
}

type connectService struct {
	cfg       config.Config
	providers ProviderSource
	sa        repository.SocialAccountRepository
	pending   repository.AuthStateRepository
}

func NewConnectService(cfg config.Config, providers ProviderSource, sa repository.SocialAccountRepository, pending repository.AuthStateRepository) ConnectService {
	return &connectService{
		cfg:       cfg,
		providers: providers,
		sa:        sa,
		pending:   pending,
	}
}

// AuthLink builds the provider authorization URL. For OAuth 2 platforms the
// anti-CSRF state is a signed JWT carried through the provider redirect. For
// OAuth 1.0a (Twitter) the provider hands back a request token; its secret is
// encrypted and parked server-side until complete-auth.
func (s *connectService) AuthLink(ctx context.Context, userID int64, platform string) (*transfer.AuthLinkResponse, error) {
	p, err := s.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	nonce, err := utils.GenerateRandomKey(16)
	if err != nil {
		slog.Info(err.Error())
		return nil, apperrors.Internal("could not build authorization state")
	}

	state, err := utils.GenerateStateToken(s.cfg.SecretKey, transfer.StateClaims{
		UserID:   strconv.FormatInt(userID, 10),
		Platform: platform,
		Nonce:    nonce,
	})
	if err != nil {
		return nil, apperrors.Internal("could not sign authorization state")
	}

	link, err := p.AuthLink(state)
	if err != nil {
		return nil, err
	}

	resp := &transfer.AuthLinkResponse{AuthURL: link.URL}

	if link.RequestToken != "" {
		encSecret, err := utils.Encrypt([]byte(link.RequestSecret), []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, apperrors.Internal("could not protect request secret")
		}
		_, err = s.pending.Create(ctx, &models.PendingAuthState{
			RequestToken:  link.RequestToken,
			RequestSecret: encSecret,
			UserID:        userID,
			Platform:      platform,
			ExpiresAt:     time.Now().Add(utils.StateTokenTTL),
		})
		if err != nil {
			return nil, apperrors.Internal("could not store authorization state")
		}
		resp.OAuthToken = link.RequestToken
	} else {
		resp.State = state
	}

	return resp, nil
}

// HandleCallback validates the provider redirect and mints a short-lived
// completion token for the client to exchange at complete-auth. No provider
// call and no database write happens here.
func (s *connectService) HandleCallback(ctx context.Context, platform string, params transfer.CallbackParams) (string, error) {
	if _, err := s.providers.Get(platform); err != nil {
		return "", err
	}

	if params.Error != "" || params.Denied != "" {
		return "", apperrors.AuthorizationDenied(platform)
	}

	claims := transfer.CompletionClaims{Platform: platform}

	switch {
	case params.OAuthToken != "" || params.OAuthVerifier != "":
		// OAuth 1.0a leg: the request token is the correlation key.
		if params.OAuthToken == "" || params.OAuthVerifier == "" {
			return "", apperrors.InvalidCallback("oauth_token and oauth_verifier are both required")
		}
		pending, err := s.pending.GetByRequestToken(ctx, params.OAuthToken)
		if err != nil {
			return "", apperrors.Internal("could not load authorization state")
		}
		if pending == nil || pending.Platform != platform {
			return "", apperrors.InvalidCallback("unknown or reused oauth_token")
		}
		if time.Now().After(pending.ExpiresAt) {
			return "", apperrors.TokenExpiredLocal()
		}
		claims.UserID = strconv.FormatInt(pending.UserID, 10)
		claims.OAuthToken = params.OAuthToken
		claims.OAuthVerifier = params.OAuthVerifier

	default:
		if params.Code == "" {
			return "", apperrors.InvalidCallback("code is missing")
		}
		if params.State == "" {
			return "", apperrors.InvalidCallback("state is missing")
		}
		stateClaims, err := utils.ValidateStateToken(s.cfg.SecretKey, params.State)
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				return "", apperrors.TokenExpiredLocal()
			}
			return "", apperrors.InvalidCallback("state signature is invalid")
		}
		if stateClaims.Platform != platform {
			return "", apperrors.InvalidCallback("state was issued for a different platform")
		}
		claims.UserID = stateClaims.UserID
		claims.Code = params.Code
	}

	token, err := utils.GenerateCompletionToken(s.cfg.SecretKey, claims)
	if err != nil {
		return "", apperrors.Internal("could not sign completion token")
	}
	return token, nil
}

// CompleteAuth exchanges the completion token for provider tokens, fetches
// the normalized profile and upserts the connection. The stored row is only
// written once every provider step has succeeded.
func (s *connectService) CompleteAuth(ctx context.Context, userID int64, platform, completionToken string) (*transfer.ConnectedAccount, error) {
	p, err := s.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	claims, err := utils.ValidateCompletionToken(s.cfg.SecretKey, completionToken)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, apperrors.TokenExpiredLocal()
		}
		return nil, apperrors.InvalidCallback("completion token is invalid")
	}
	if claims.Platform != platform {
		return nil, apperrors.InvalidCallback("completion token was issued for a different platform")
	}
	if claims.UserID != "" && claims.UserID != strconv.FormatInt(userID, 10) {
		return nil, apperrors.InvalidCallback("completion token belongs to a different user")
	}

	cb := provider.Callback{
		Code:          claims.Code,
		OAuthToken:    claims.OAuthToken,
		OAuthVerifier: claims.OAuthVerifier,
	}

	var pendingID int64
	if claims.OAuthToken != "" {
		pending, err := s.pending.GetByRequestToken(ctx, claims.OAuthToken)
		if err != nil {
			return nil, apperrors.Internal("could not load authorization state")
		}
		if pending == nil {
			return nil, apperrors.InvalidCallback("unknown or reused oauth_token")
		}
		if time.Now().After(pending.ExpiresAt) {
			return nil, apperrors.TokenExpiredLocal()
		}
		secret, err := utils.Decrypt(pending.RequestSecret, []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, apperrors.Internal("could not recover request secret")
		}
		cb.RequestSecret = secret
		pendingID = pending.ID
	}

	token, err := p.Exchange(ctx, cb)
	if err != nil {
		if _, ok := apperrors.AsError(err); ok {
			return nil, err
		}
		return nil, apperrors.ExchangeFailed(platform, err)
	}

	account, err := p.Profile(ctx, token)
	if err != nil {
		if _, ok := apperrors.AsError(err); ok {
			return nil, err
		}
		return nil, apperrors.ExchangeFailed(platform, err)
	}

	// An entity-scoped credential (a Facebook Page token) replaces the
	// user-scoped token for storage.
	stored := token
	if account.Token != nil {
		stored = account.Token
	}

	sa := &models.SocialAccount{
		UserID:          userID,
		Platform:        platform,
		AccountID:       account.ID,
		AccountName:     account.Name,
		AccountUsername: account.Username,
		ProfileURL:      account.ProfileURL,
		IsConnected:     true,
	}
	if !stored.Expiry.IsZero() {
		sa.TokenExpiresAt.Valid = true
		sa.TokenExpiresAt.Time = stored.Expiry
	}

	key := []byte(s.cfg.SecretKey)
	if sa.AccessToken, err = utils.Encrypt([]byte(stored.AccessToken), key); err != nil {
		return nil, apperrors.Internal("could not protect access token")
	}
	if stored.TokenSecret != "" {
		if sa.AccessTokenSecret, err = utils.Encrypt([]byte(stored.TokenSecret), key); err != nil {
			return nil, apperrors.Internal("could not protect access token")
		}
	}
	if stored.RefreshToken != "" {
		if sa.RefreshToken, err = utils.Encrypt([]byte(stored.RefreshToken), key); err != nil {
			return nil, apperrors.Internal("could not protect refresh token")
		}
	}

	id, err := s.sa.Upsert(ctx, sa)
	if err != nil {
		return nil, apperrors.Internal("could not store the connected account")
	}
	sa.ID = id

	if pendingID != 0 {
		if err := s.pending.Remove(ctx, pendingID); err != nil {
			slog.Info(err.Error())
		}
	}

	view := toConnectedAccount(sa)
	view.EligibleEntities = account.EligibleEntities
	return view, nil
}

func (s *connectService) List(ctx context.Context, userID int64) ([]*transfer.ConnectedAccount, error) {
	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("could not list connected accounts")
	}

	views := make([]*transfer.ConnectedAccount, 0, len(accounts))
	for _, sa := range accounts {
		views = append(views, toConnectedAccount(sa))
	}
	return views, nil
}

// Disconnect revokes the provider grant best-effort and removes the stored
// row. A failed revocation never blocks the local delete.
func (s *connectService) Disconnect(ctx context.Context, userID int64, platform string) error {
	p, err := s.providers.Get(platform)
	if err != nil {
		return err
	}

	sa, err := s.sa.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return apperrors.Internal("could not load the connected account")
	}
	if sa == nil {
		return apperrors.AccountNotConnected(platform)
	}

	if revoker, ok := p.(provider.Revoker); ok {
		if token, err := decryptToken(sa, s.cfg.SecretKey); err == nil {
			if err := revoker.Revoke(ctx, token, sa.AccountID); err != nil {
				slog.Info(err.Error())
			}
		}
	}

	if err := s.sa.Remove(ctx, sa.ID); err != nil {
		return apperrors.Internal("could not remove the connected account")
	}
	return nil
}

func toConnectedAccount(sa *models.SocialAccount) *transfer.ConnectedAccount {
	view := &transfer.ConnectedAccount{
		ID:          sa.ID,
		Platform:    sa.Platform,
		AccountID:   sa.AccountID,
		AccountName: sa.AccountName,
		Username:    sa.AccountUsername,
		ProfileURL:  sa.ProfileURL,
		IsConnected: sa.IsConnected,
	}
	if sa.TokenExpiresAt.Valid {
		t := sa.TokenExpiresAt.Time
		view.TokenExpiresAt = &t
	}
	return view
}

// decryptToken rebuilds the provider credential set from a stored row.
func decryptToken(sa *models.SocialAccount, secretKey string) (*provider.Token, error) {
	key := []byte(secretKey)

	access, err := utils.Decrypt(sa.AccessToken, key)
	if err != nil {
		return nil, err
	}
	token := &provider.Token{AccessToken: access}

	if sa.AccessTokenSecret != "" {
		if token.TokenSecret, err = utils.Decrypt(sa.AccessTokenSecret, key); err != nil {
			return nil, err
		}
	}
	if sa.RefreshToken != "" {
		if token.RefreshToken, err = utils.Decrypt(sa.RefreshToken, key); err != nil {
			return nil, err
		}
	}
	if sa.TokenExpiresAt.Valid {
		token.Expiry = sa.TokenExpiresAt.Time
	}
	return token, nil
}

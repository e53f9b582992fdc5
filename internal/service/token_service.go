package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/provider"
	"github.com/omnipost/omnipost-api/internal/repository"
	"github.com/omnipost/omnipost-api/pkg/utils"
)

// refreshSkew treats a token expiring within the next minute as already
// expired, so a token cannot age out mid-request.
const refreshSkew = 60 * time.Second

// TokenService returns usable access tokens for stored accounts, refreshing
// transparently when a token is expired or about to expire. Concurrent
// requests for the same account share a single refresh.
type TokenService interface {
	FreshToken(ctx context.Context, sa *models.SocialAccount) (*provider.Token, error)
	RefreshIfExpiring(ctx context.Context, sa *models.SocialAccount, within time.Duration) error
}

type tokenService struct {
	cfg       config.Config
	providers ProviderSource
	sa        repository.SocialAccountRepository
	group     singleflight.Group
}

func NewTokenService(cfg config.Config, providers ProviderSource, sa repository.SocialAccountRepository) TokenService {
	return &tokenService{
		cfg:       cfg,
		providers: providers,
		sa:        sa,
	}
}

func (s *tokenService) FreshToken(ctx context.Context, sa *models.SocialAccount) (*provider.Token, error) {
	token, err := decryptToken(sa, s.cfg.SecretKey)
	if err != nil {
		return nil, apperrors.Internal("could not recover the stored token")
	}
	if tokenFresh(token, refreshSkew) {
		return token, nil
	}
	return s.refresh(ctx, sa.ID, sa.Platform)
}

// RefreshIfExpiring proactively refreshes a token whose expiry falls inside
// the given window. Tokens without an expiry are left alone.
func (s *tokenService) RefreshIfExpiring(ctx context.Context, sa *models.SocialAccount, within time.Duration) error {
	if !sa.TokenExpiresAt.Valid {
		return nil
	}
	if time.Now().Add(within).Before(sa.TokenExpiresAt.Time) {
		return nil
	}
	_, err := s.refresh(ctx, sa.ID, sa.Platform)
	return err
}

// refresh is keyed per account so concurrent callers coalesce into one
// provider round trip. After winning the flight the row is re-read: another
// caller may have refreshed while we waited.
func (s *tokenService) refresh(ctx context.Context, id int64, platform string) (*provider.Token, error) {
	result, err, _ := s.group.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		return s.refreshAccount(ctx, id, platform)
	})
	if err != nil {
		return nil, err
	}
	return result.(*provider.Token), nil
}

func (s *tokenService) refreshAccount(ctx context.Context, id int64, platform string) (*provider.Token, error) {
	current, err := s.sa.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("could not load the connected account")
	}
	if current == nil {
		return nil, apperrors.AccountNotConnected(platform)
	}

	token, err := decryptToken(current, s.cfg.SecretKey)
	if err != nil {
		return nil, apperrors.Internal("could not recover the stored token")
	}
	if tokenFresh(token, refreshSkew) {
		return token, nil
	}

	p, err := s.providers.Get(platform)
	if err != nil {
		return nil, err
	}
	refresher, ok := p.(provider.Refresher)
	if !ok || token.RefreshToken == "" {
		return nil, apperrors.ReconnectRequired(platform)
	}

	renewed, err := refresher.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindReconnectRequired,
			platform+" token refresh was rejected, reconnect the account", err)
	}
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = token.RefreshToken
	}

	if err := s.persist(ctx, id, renewed); err != nil {
		return nil, err
	}
	return renewed, nil
}

func (s *tokenService) persist(ctx context.Context, id int64, token *provider.Token) error {
	key := []byte(s.cfg.SecretKey)

	encAccess, err := utils.Encrypt([]byte(token.AccessToken), key)
	if err != nil {
		return apperrors.Internal("could not protect access token")
	}
	var encRefresh string
	if token.RefreshToken != "" {
		if encRefresh, err = utils.Encrypt([]byte(token.RefreshToken), key); err != nil {
			return apperrors.Internal("could not protect refresh token")
		}
	}

	var expiresAt sql.NullTime
	if !token.Expiry.IsZero() {
		expiresAt = sql.NullTime{Time: token.Expiry, Valid: true}
	}

	if err := s.sa.UpdateToken(ctx, id, encAccess, encRefresh, expiresAt); err != nil {
		return apperrors.Internal("could not store the refreshed token")
	}
	return nil
}

// tokenFresh reports whether the token is still usable past the skew. A zero
// expiry means the provider's tokens do not age out.
func tokenFresh(token *provider.Token, skew time.Duration) bool {
	if token.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(skew).Before(token.Expiry)
}

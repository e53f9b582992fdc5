package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/repository"
	"github.com/omnipost/omnipost-api/internal/service"
)

// refreshWindow is how far ahead the cron job looks for expiring tokens.
const refreshWindow = 30 * time.Minute

// TokenRefreshJob proactively renews tokens that expire soon, so publishes
// rarely pay the refresh round trip inline. Accounts whose refresh is
// rejected are left for the next interactive request to surface
// RECONNECT_REQUIRED.
type TokenRefreshJob struct {
	sr      repository.SocialAccountRepository
	pending repository.AuthStateRepository
	tokens  service.TokenService
}

func NewTokenRefreshJob(
	sr repository.SocialAccountRepository,
	pending repository.AuthStateRepository,
	tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:      sr,
		pending: pending,
		tokens:  tokens,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	accounts, err := c.sr.ListExpiring(ctx, currentTime, currentTime.Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			err := c.tokens.RefreshIfExpiring(ctx, acc, refreshWindow)
			if err != nil {
				slog.Info("token refresh failed",
					"platform", acc.Platform,
					"account_id", acc.ID,
					"error_type", string(apperrors.KindOf(err)))
			}
		}(acc)
	}

	wg.Wait()
}

// PurgeAuthStates drops expired single-use request-token rows.
func (c *TokenRefreshJob) PurgeAuthStates() {
	ctx := context.Background()

	removed, err := c.pending.RemoveExpired(ctx, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if removed > 0 {
		slog.Info("purged expired auth states", "count", removed)
	}
}

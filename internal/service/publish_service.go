package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/provider"
	"github.com/omnipost/omnipost-api/internal/repository"
	"github.com/omnipost/omnipost-api/internal/transfer"
)

// PublishService creates posts and pushes them to the connected platform,
// either immediately or at the requested scheduled time. CreatePost returns
// the delay until publication; a positive delay means the caller must enqueue
// the post for the worker.
type PublishService interface {
	CreatePost(ctx context.Context, userID int64, platform string, req *transfer.PostRequest) (*transfer.PostResult, time.Duration, error)
	PublishNow(ctx context.Context, postID int64) error
	Stats(ctx context.Context, userID int64, platform string) (*provider.AccountStats, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, userID, postID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type publishService struct {
	cfg       config.Config
	providers ProviderSource
	pr        repository.PostRepository
	sa        repository.SocialAccountRepository
	ph        repository.PostingHistoryRepository
	tokens    TokenService
}

func NewPublishService(
	cfg config.Config,
	providers ProviderSource,
	pr repository.PostRepository,
	sa repository.SocialAccountRepository,
	ph repository.PostingHistoryRepository,
	tokens TokenService) PublishService {
	return &publishService{
		cfg:       cfg,
		providers: providers,
		pr:        pr,
		sa:        sa,
		ph:        ph,
		tokens:    tokens,
	}
}

func (s *publishService) CreatePost(ctx context.Context, userID int64, platform string, req *transfer.PostRequest) (*transfer.PostResult, time.Duration, error) {
	if _, err := s.providers.Get(platform); err != nil {
		return nil, 0, err
	}
	if req.Content == "" && req.MediaURL == "" {
		return nil, 0, errors.New("post needs content or media")
	}

	// The connection check happens before any provider traffic.
	account, err := s.sa.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return nil, 0, apperrors.Internal("could not load the connected account")
	}
	if account == nil {
		return nil, 0, apperrors.AccountNotConnected(platform)
	}

	post := &models.Post{
		UserID:   userID,
		Platform: platform,
		Content:  req.Content,
		Title:    req.Title,
		MediaURL: req.MediaURL,
		Status:   models.PostStatusScheduled,
	}

	var delay time.Duration
	if req.ScheduledTime != "" {
		scheduledTime, err := time.Parse(time.RFC3339, req.ScheduledTime)
		if err != nil {
			return nil, 0, errors.New("scheduled_time must be RFC 3339")
		}
		if d := time.Until(scheduledTime); d > 0 {
			delay = d
			post.ScheduledTime.Valid = true
			post.ScheduledTime.Time = scheduledTime
		}
	}

	id, err := s.pr.Create(ctx, post)
	if err != nil {
		return nil, 0, apperrors.Internal("could not store the post")
	}
	post.ID = id

	if delay > 0 {
		return &transfer.PostResult{PostID: id, Status: post.Status, Scheduled: true}, delay, nil
	}

	remoteID, err := s.publish(ctx, post, account)
	if err != nil {
		return nil, 0, err
	}
	return &transfer.PostResult{PostID: id, Status: models.PostStatusPosted, RemoteID: remoteID}, 0, nil
}

// PublishNow is the worker entry point for scheduled posts. It is a no-op for
// posts that were already published or removed, so a redelivered task cannot
// double-post.
func (s *publishService) PublishNow(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		return nil
	}

	account, err := s.sa.GetByUserAndPlatform(ctx, post.UserID, post.Platform)
	if err != nil {
		return err
	}
	if account == nil {
		s.record(ctx, post, nil, apperrors.AccountNotConnected(post.Platform))
		return s.pr.UpdateStatus(ctx, post.ID, models.PostStatusFailed, "")
	}

	_, err = s.publish(ctx, post, account)
	return err
}

// publish pushes one post through the platform adapter and records the
// outcome on the post row and in posting history.
func (s *publishService) publish(ctx context.Context, post *models.Post, account *models.SocialAccount) (string, error) {
	p, err := s.providers.Get(post.Platform)
	if err != nil {
		return "", err
	}
	publisher, ok := p.(provider.Publisher)
	if !ok {
		return "", apperrors.UnsupportedOperation(post.Platform, "publishing")
	}

	token, err := s.tokens.FreshToken(ctx, account)
	if err != nil {
		s.record(ctx, post, account, err)
		if updateErr := s.pr.UpdateStatus(ctx, post.ID, models.PostStatusFailed, ""); updateErr != nil {
			slog.Info(updateErr.Error())
		}
		return "", err
	}

	remoteID, err := publisher.Publish(ctx, token, provider.PostContent{
		AccountID: account.AccountID,
		Text:      post.Content,
		Title:     post.Title,
		MediaURL:  post.MediaURL,
	})

	s.record(ctx, post, account, err)

	if err != nil {
		if updateErr := s.pr.UpdateStatus(ctx, post.ID, models.PostStatusFailed, ""); updateErr != nil {
			slog.Info(updateErr.Error())
		}
		if _, ok := apperrors.AsError(err); ok {
			return "", err
		}
		return "", apperrors.Wrap(apperrors.KindInternal, "publishing to "+post.Platform+" failed", err)
	}

	if err := s.pr.UpdateStatus(ctx, post.ID, models.PostStatusPosted, remoteID); err != nil {
		slog.Info(err.Error())
	}
	return remoteID, nil
}

func (s *publishService) record(ctx context.Context, post *models.Post, account *models.SocialAccount, publishErr error) {
	history := models.PostingHistory{
		UserID:   post.UserID,
		PostID:   post.ID,
		Platform: post.Platform,
		Status:   models.PostStatusPosted,
	}
	if account != nil {
		history.AccountID = account.ID
	}
	if publishErr != nil {
		history.Status = models.PostStatusFailed
		history.ErrorMessage = publishErr.Error()
	}
	if _, err := s.ph.Create(ctx, &history); err != nil {
		slog.Info(err.Error())
	}
}

func (s *publishService) Stats(ctx context.Context, userID int64, platform string) (*provider.AccountStats, error) {
	p, err := s.providers.Get(platform)
	if err != nil {
		return nil, err
	}
	fetcher, ok := p.(provider.StatsFetcher)
	if !ok {
		return nil, apperrors.UnsupportedOperation(platform, "account stats")
	}

	account, err := s.sa.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return nil, apperrors.Internal("could not load the connected account")
	}
	if account == nil {
		return nil, apperrors.AccountNotConnected(platform)
	}

	token, err := s.tokens.FreshToken(ctx, account)
	if err != nil {
		return nil, err
	}
	return fetcher.Stats(ctx, token, account.AccountID)
}

func (s *publishService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.ListByUserID(ctx, userID)
}

func (s *publishService) PostInfo(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, errors.New("post not found")
	}
	return post, nil
}

func (s *publishService) Remove(ctx context.Context, userID, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.UserID != userID {
		return errors.New("post not found")
	}
	return s.pr.Remove(ctx, postID)
}

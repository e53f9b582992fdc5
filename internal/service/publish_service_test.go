package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/provider"
	"github.com/omnipost/omnipost-api/internal/transfer"
)

type publishFixture struct {
	svc      PublishService
	accounts *fakeSocialAccounts
	posts    *fakePosts
	history  *fakeHistory
}

func newPublishFixture(p provider.Provider) *publishFixture {
	accounts := newFakeSocialAccounts()
	posts := newFakePosts()
	history := newFakeHistory()
	source := fakeSource{p.Name(): p}
	tokens := NewTokenService(testConfig(), source, accounts)
	return &publishFixture{
		svc:      NewPublishService(testConfig(), source, posts, accounts, history, tokens),
		accounts: accounts,
		posts:    posts,
		history:  history,
	}
}

func TestCreatePostUnknownPlatform(t *testing.T) {
	f := newPublishFixture(&fakeProvider{name: "tiktok"})

	_, _, err := f.svc.CreatePost(context.Background(), 7, "myspace", &transfer.PostRequest{Content: "hi"})
	assert.Equal(t, apperrors.KindUnknownPlatform, apperrors.KindOf(err))
}

func TestCreatePostRequiresContent(t *testing.T) {
	f := newPublishFixture(&fakeProvider{name: "tiktok"})

	_, _, err := f.svc.CreatePost(context.Background(), 7, "tiktok", &transfer.PostRequest{})
	require.Error(t, err)
}

func TestCreatePostNotConnected(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)

	_, _, err := f.svc.CreatePost(context.Background(), 7, "tiktok", &transfer.PostRequest{Content: "hi"})
	assert.Equal(t, apperrors.KindAccountNotConnected, apperrors.KindOf(err))
	assert.Equal(t, 0, p.publishCalls)
}

func TestCreatePostPublishesImmediately(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)
	ctx := context.Background()

	seedAccount(t, f.accounts, "tiktok", "access-value", "", time.Time{})

	result, delay, err := f.svc.CreatePost(ctx, 7, "tiktok", &transfer.PostRequest{Content: "hello"})
	require.NoError(t, err)
	assert.Zero(t, delay)
	assert.False(t, result.Scheduled)
	assert.Equal(t, models.PostStatusPosted, result.Status)
	assert.Equal(t, "remote-1", result.RemoteID)
	assert.Equal(t, 1, p.publishCalls)

	post, err := f.posts.GetByID(ctx, result.PostID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPosted, post.Status)
	assert.Equal(t, "remote-1", post.RemoteID)

	entries, err := f.history.GetByUserID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.PostStatusPosted, entries[0].Status)
	assert.Equal(t, "tiktok", entries[0].Platform)
}

func TestCreatePostScheduled(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)
	ctx := context.Background()

	seedAccount(t, f.accounts, "tiktok", "access-value", "", time.Time{})

	scheduledTime := time.Now().Add(time.Hour).Format(time.RFC3339)
	result, delay, err := f.svc.CreatePost(ctx, 7, "tiktok", &transfer.PostRequest{
		Content: "later", ScheduledTime: scheduledTime,
	})
	require.NoError(t, err)
	assert.True(t, result.Scheduled)
	assert.Greater(t, delay, 50*time.Minute)
	assert.Equal(t, 0, p.publishCalls)

	post, err := f.posts.GetByID(ctx, result.PostID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)
}

func TestCreatePostPastScheduleRunsNow(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)

	seedAccount(t, f.accounts, "tiktok", "access-value", "", time.Time{})

	scheduledTime := time.Now().Add(-time.Hour).Format(time.RFC3339)
	result, delay, err := f.svc.CreatePost(context.Background(), 7, "tiktok", &transfer.PostRequest{
		Content: "now", ScheduledTime: scheduledTime,
	})
	require.NoError(t, err)
	assert.Zero(t, delay)
	assert.False(t, result.Scheduled)
	assert.Equal(t, 1, p.publishCalls)
}

func TestCreatePostRejectsBadTimestamp(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)

	seedAccount(t, f.accounts, "tiktok", "access-value", "", time.Time{})

	_, _, err := f.svc.CreatePost(context.Background(), 7, "tiktok", &transfer.PostRequest{
		Content: "hi", ScheduledTime: "tomorrow at noon",
	})
	require.Error(t, err)
}

func TestCreatePostUnsupportedPlatform(t *testing.T) {
	// A core-only adapter cannot publish.
	f := newPublishFixture(&fakeProvider{name: "snapchat"})

	seedAccount(t, f.accounts, "snapchat", "access-value", "", time.Time{})

	_, _, err := f.svc.CreatePost(context.Background(), 7, "snapchat", &transfer.PostRequest{Content: "hi"})
	assert.Equal(t, apperrors.KindUnsupportedOperation, apperrors.KindOf(err))
}

func TestCreatePostPublishFailureRecorded(t *testing.T) {
	p := &fullProvider{
		fakeProvider: &fakeProvider{name: "tiktok"},
		publishFn: func(token *provider.Token, post provider.PostContent) (string, error) {
			return "", errors.New("spam rejected")
		},
	}
	f := newPublishFixture(p)
	ctx := context.Background()

	seedAccount(t, f.accounts, "tiktok", "access-value", "", time.Time{})

	result, _, err := f.svc.CreatePost(ctx, 7, "tiktok", &transfer.PostRequest{Content: "hi"})
	require.Error(t, err)
	assert.Nil(t, result)

	posts, err := f.posts.ListByUserID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, models.PostStatusFailed, posts[0].Status)

	entries, err := f.history.GetByUserID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.PostStatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].ErrorMessage, "spam rejected")
}

func TestPublishNow(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)
	ctx := context.Background()

	seedAccount(t, f.accounts, "tiktok", "access-value", "", time.Time{})
	id, err := f.posts.Create(ctx, &models.Post{
		UserID: 7, Platform: "tiktok", Content: "scheduled", Status: models.PostStatusScheduled,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.PublishNow(ctx, id))
	assert.Equal(t, 1, p.publishCalls)

	post, err := f.posts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPosted, post.Status)
	assert.Equal(t, "remote-1", post.RemoteID)
}

func TestPublishNowIdempotent(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)
	ctx := context.Background()

	seedAccount(t, f.accounts, "tiktok", "access-value", "", time.Time{})
	id, err := f.posts.Create(ctx, &models.Post{
		UserID: 7, Platform: "tiktok", Content: "done", Status: models.PostStatusPosted, RemoteID: "remote-1",
	})
	require.NoError(t, err)

	// A redelivered task for an already-published post is a no-op.
	require.NoError(t, f.svc.PublishNow(ctx, id))
	assert.Equal(t, 0, p.publishCalls)

	// So is one for a post that no longer exists.
	require.NoError(t, f.svc.PublishNow(ctx, 999))
	assert.Equal(t, 0, p.publishCalls)
}

func TestPublishNowDisconnectedAccountFailsPost(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)
	ctx := context.Background()

	id, err := f.posts.Create(ctx, &models.Post{
		UserID: 7, Platform: "tiktok", Content: "orphan", Status: models.PostStatusScheduled,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.PublishNow(ctx, id))
	assert.Equal(t, 0, p.publishCalls)

	post, err := f.posts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusFailed, post.Status)

	entries, err := f.history.GetByUserID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.PostStatusFailed, entries[0].Status)
}

func TestStats(t *testing.T) {
	p := &fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}}
	f := newPublishFixture(p)
	ctx := context.Background()

	_, err := f.svc.Stats(ctx, 7, "tiktok")
	assert.Equal(t, apperrors.KindAccountNotConnected, apperrors.KindOf(err))

	seedAccount(t, f.accounts, "tiktok", "access-value", "", time.Time{})

	stats, err := f.svc.Stats(ctx, 7, "tiktok")
	require.NoError(t, err)
	assert.Equal(t, "tiktok", stats.Platform)
	assert.EqualValues(t, 10, stats.Followers)
}

func TestStatsUnsupported(t *testing.T) {
	f := newPublishFixture(&fakeProvider{name: "snapchat"})

	seedAccount(t, f.accounts, "snapchat", "access-value", "", time.Time{})

	_, err := f.svc.Stats(context.Background(), 7, "snapchat")
	assert.Equal(t, apperrors.KindUnsupportedOperation, apperrors.KindOf(err))
}

func TestPostOwnership(t *testing.T) {
	f := newPublishFixture(&fullProvider{fakeProvider: &fakeProvider{name: "tiktok"}})
	ctx := context.Background()

	id, err := f.posts.Create(ctx, &models.Post{
		UserID: 7, Platform: "tiktok", Content: "mine", Status: models.PostStatusScheduled,
	})
	require.NoError(t, err)

	_, err = f.svc.PostInfo(ctx, 8, id)
	require.Error(t, err)
	require.Error(t, f.svc.Remove(ctx, 8, id))

	post, err := f.svc.PostInfo(ctx, 7, id)
	require.NoError(t, err)
	assert.Equal(t, "mine", post.Content)

	require.NoError(t, f.svc.Remove(ctx, 7, id))
	gone, err := f.posts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

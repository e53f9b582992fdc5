package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
	"github.com/omnipost/omnipost-api/internal/provider"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

// fakeProvider implements only the core capability set; fullProvider adds the
// optional interfaces on top.
type fakeProvider struct {
	name string

	authLinkFn func(state string) (*provider.AuthLink, error)
	exchangeFn func(cb provider.Callback) (*provider.Token, error)
	profileFn  func(token *provider.Token) (*provider.Account, error)

	mu            sync.Mutex
	authLinkCalls int
	exchangeCalls int
	profileCalls  int
	lastCallback  provider.Callback
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthLink(state string) (*provider.AuthLink, error) {
	f.mu.Lock()
	f.authLinkCalls++
	f.mu.Unlock()
	if f.authLinkFn != nil {
		return f.authLinkFn(state)
	}
	return &provider.AuthLink{URL: "https://provider.example.com/authorize?state=" + state}, nil
}

func (f *fakeProvider) Exchange(ctx context.Context, cb provider.Callback) (*provider.Token, error) {
	f.mu.Lock()
	f.exchangeCalls++
	f.lastCallback = cb
	f.mu.Unlock()
	if f.exchangeFn != nil {
		return f.exchangeFn(cb)
	}
	return &provider.Token{AccessToken: "access-token"}, nil
}

func (f *fakeProvider) Profile(ctx context.Context, token *provider.Token) (*provider.Account, error) {
	f.mu.Lock()
	f.profileCalls++
	f.mu.Unlock()
	if f.profileFn != nil {
		return f.profileFn(token)
	}
	return &provider.Account{ID: "acct-1", Name: "Account", Username: "account"}, nil
}

type fullProvider struct {
	*fakeProvider

	refreshFn func(refreshToken string) (*provider.Token, error)
	publishFn func(token *provider.Token, post provider.PostContent) (string, error)

	refreshCalls int
	publishCalls int
	revokeCalls  int
}

func (f *fullProvider) Refresh(ctx context.Context, refreshToken string) (*provider.Token, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	if f.refreshFn != nil {
		return f.refreshFn(refreshToken)
	}
	return &provider.Token{AccessToken: "refreshed-access", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fullProvider) Publish(ctx context.Context, token *provider.Token, post provider.PostContent) (string, error) {
	f.mu.Lock()
	f.publishCalls++
	f.mu.Unlock()
	if f.publishFn != nil {
		return f.publishFn(token, post)
	}
	return "remote-1", nil
}

func (f *fullProvider) Stats(ctx context.Context, token *provider.Token, accountID string) (*provider.AccountStats, error) {
	return &provider.AccountStats{Platform: f.name, Followers: 10}, nil
}

func (f *fullProvider) Revoke(ctx context.Context, token *provider.Token, accountID string) error {
	f.mu.Lock()
	f.revokeCalls++
	f.mu.Unlock()
	return nil
}

type fakeSource map[string]provider.Provider

func (s fakeSource) Get(platform string) (provider.Provider, error) {
	p, ok := s[platform]
	if !ok {
		return nil, apperrors.UnknownPlatform(platform)
	}
	return p, nil
}

type fakeSocialAccounts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.SocialAccount

	updateTokenCalls int
}

func newFakeSocialAccounts() *fakeSocialAccounts {
	return &fakeSocialAccounts{nextID: 1, rows: make(map[int64]*models.SocialAccount)}
}

func (r *fakeSocialAccounts) Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.UserID == sa.UserID && row.Platform == sa.Platform {
			clone := *sa
			clone.ID = id
			r.rows[id] = &clone
			return id, nil
		}
	}
	clone := *sa
	clone.ID = r.nextID
	r.rows[clone.ID] = &clone
	r.nextID++
	return clone.ID, nil
}

func (r *fakeSocialAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *fakeSocialAccounts) GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.Platform == platform {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeSocialAccounts) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SocialAccount
	for _, row := range r.rows {
		if row.UserID == userID {
			clone := *row
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeSocialAccounts) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SocialAccount
	for _, row := range r.rows {
		if row.TokenExpiresAt.Valid && row.TokenExpiresAt.Time.After(initialTime) && row.TokenExpiresAt.Time.Before(finalTime) {
			clone := *row
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeSocialAccounts) UpdateToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt sql.NullTime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return errors.New("no row")
	}
	row.AccessToken = accessToken
	if refreshToken != "" {
		row.RefreshToken = refreshToken
	}
	row.TokenExpiresAt = expiresAt
	r.updateTokenCalls++
	return nil
}

func (r *fakeSocialAccounts) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

type fakeAuthStates struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.PendingAuthState
}

func newFakeAuthStates() *fakeAuthStates {
	return &fakeAuthStates{nextID: 1, rows: make(map[int64]*models.PendingAuthState)}
}

func (r *fakeAuthStates) Create(ctx context.Context, state *models.PendingAuthState) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *state
	clone.ID = r.nextID
	r.rows[clone.ID] = &clone
	r.nextID++
	return clone.ID, nil
}

func (r *fakeAuthStates) GetByRequestToken(ctx context.Context, requestToken string) (*models.PendingAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.RequestToken == requestToken {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeAuthStates) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeAuthStates) RemoveExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, row := range r.rows {
		if row.ExpiresAt.Before(now) {
			delete(r.rows, id)
			removed++
		}
	}
	return removed, nil
}

type fakePosts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Post
}

func newFakePosts() *fakePosts {
	return &fakePosts{nextID: 1, rows: make(map[int64]*models.Post)}
}

func (r *fakePosts) Create(ctx context.Context, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *post
	clone.ID = r.nextID
	r.rows[clone.ID] = &clone
	r.nextID++
	return clone.ID, nil
}

func (r *fakePosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *fakePosts) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, row := range r.rows {
		if row.UserID == userID {
			clone := *row
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakePosts) UpdateStatus(ctx context.Context, id int64, status, remoteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return errors.New("no row")
	}
	row.Status = status
	row.RemoteID = remoteID
	return nil
}

func (r *fakePosts) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

type fakeHistory struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.PostingHistory
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{nextID: 1}
}

func (r *fakeHistory) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *ph
	clone.ID = r.nextID
	r.rows = append(r.rows, &clone)
	r.nextID++
	return clone.ID, nil
}

func (r *fakeHistory) GetByID(ctx context.Context, id int64) (*models.PostingHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeHistory) GetByUserID(ctx context.Context, userID int64) ([]*models.PostingHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PostingHistory
	for _, row := range r.rows {
		if row.UserID == userID {
			clone := *row
			out = append(out, &clone)
		}
	}
	return out, nil
}

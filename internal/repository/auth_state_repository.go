package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/omnipost/omnipost-api/internal/models"
)

// AuthStateRepository stores OAuth 1.0a request-token state between the
// auth-link and complete-auth steps. Rows are single use and short lived.
type AuthStateRepository interface {
	Create(ctx context.Context, state *models.PendingAuthState) (int64, error)
	GetByRequestToken(ctx context.Context, requestToken string) (*models.PendingAuthState, error)
	Remove(ctx context.Context, id int64) error
	RemoveExpired(ctx context.Context, now time.Time) (int64, error)
}

type authStateRepository struct {
	db *sql.DB
}

func NewAuthStateRepository(db *sql.DB) AuthStateRepository {
	return &authStateRepository{db: db}
}

func (r *authStateRepository) Create(ctx context.Context, state *models.PendingAuthState) (int64, error) {
	query := `
		INSERT INTO pending_auth_states (request_token, request_secret, user_id, platform, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		state.RequestToken,
		state.RequestSecret,
		state.UserID,
		state.Platform,
		state.ExpiresAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *authStateRepository) GetByRequestToken(ctx context.Context, requestToken string) (*models.PendingAuthState, error) {
	query := `
		SELECT id, request_token, request_secret, user_id, platform, expires_at, created_at
		FROM pending_auth_states
		WHERE request_token = $1
	`
	row := r.db.QueryRowContext(ctx, query, requestToken)

	var state models.PendingAuthState
	err := row.Scan(&state.ID, &state.RequestToken, &state.RequestSecret,
		&state.UserID, &state.Platform, &state.ExpiresAt, &state.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &state, nil
}

func (r *authStateRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM pending_auth_states WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *authStateRepository) RemoveExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM pending_auth_states WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

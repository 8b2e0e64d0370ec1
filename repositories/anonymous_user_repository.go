package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/floppyflax/beer-pong-league-sub000/models"
)

var (
	ErrAnonymousUserNotFound = errors.New("anonymous user not found")

	// ErrAnonymousUserAlreadyMerged is returned by MarkMerged when the
	// conditional update matched no live row.
	ErrAnonymousUserAlreadyMerged = errors.New("anonymous user already merged")
)

type AnonymousUserRepository interface {
	Create(ctx context.Context, anon *models.AnonymousUser) error
	GetByID(ctx context.Context, id string) (*models.AnonymousUser, error)
	// MarkMerged sets the terminal merged-into reference. The update only
	// succeeds for a currently un-merged row; otherwise it returns
	// ErrAnonymousUserAlreadyMerged (or ErrAnonymousUserNotFound when the
	// row does not exist at all).
	MarkMerged(ctx context.Context, id, userID string, mergedAt time.Time) error
	Count(ctx context.Context) (int, error)
}

type postgresAnonymousUserRepository struct {
	db *sql.DB
}

func NewPostgresAnonymousUserRepository(db *sql.DB) AnonymousUserRepository {
	return &postgresAnonymousUserRepository{db: db}
}

func (r *postgresAnonymousUserRepository) Create(ctx context.Context, anon *models.AnonymousUser) error {
	query := `
		INSERT INTO anonymous_users (id, display_name, device_fingerprint)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		anon.ID,
		anon.DisplayName,
		anon.DeviceFingerprint,
	).Scan(&anon.CreatedAt)
}

func (r *postgresAnonymousUserRepository) GetByID(ctx context.Context, id string) (*models.AnonymousUser, error) {
	query := `
		SELECT id, display_name, device_fingerprint, merged_into_user_id, merged_at, created_at
		FROM anonymous_users
		WHERE id = $1`

	anon := &models.AnonymousUser{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&anon.ID,
		&anon.DisplayName,
		&anon.DeviceFingerprint,
		&anon.MergedIntoUserID,
		&anon.MergedAt,
		&anon.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnonymousUserNotFound
		}
		return nil, err
	}
	return anon, nil
}

func (r *postgresAnonymousUserRepository) MarkMerged(ctx context.Context, id, userID string, mergedAt time.Time) error {
	query := `
		UPDATE anonymous_users
		SET merged_into_user_id = $2, merged_at = $3
		WHERE id = $1 AND merged_into_user_id IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, userID, mergedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Distinguish a missing row from one already consumed by a merge.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAnonymousUserAlreadyMerged
	}
	return nil
}

func (r *postgresAnonymousUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM anonymous_users`).Scan(&count)
	return count, err
}

package repositories

import (
	"context"
	"database/sql"

	"github.com/floppyflax/beer-pong-league-sub000/models"
)

type RatingHistoryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.RatingHistoryEntry) error
	ListByLeagueAndUser(ctx context.Context, leagueID int, userID string) ([]*models.RatingHistoryEntry, error)
	// ReassignOwner rewrites every history row owned by the anonymous
	// identity. History is append-only and never deduplicated.
	ReassignOwner(ctx context.Context, anonymousUserID, userID string) error
}

type postgresRatingHistoryRepository struct {
	db *sql.DB
}

func NewPostgresRatingHistoryRepository(db *sql.DB) RatingHistoryRepository {
	return &postgresRatingHistoryRepository{db: db}
}

func (r *postgresRatingHistoryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRatingHistoryRepository) Create(ctx context.Context, exec SQLExecutor, entry *models.RatingHistoryEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rating_history (league_id, match_id, user_id, anonymous_user_id, rating, delta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		entry.LeagueID,
		entry.MatchID,
		entry.UserID,
		entry.AnonymousUserID,
		entry.Rating,
		entry.Delta,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *postgresRatingHistoryRepository) ListByLeagueAndUser(ctx context.Context, leagueID int, userID string) ([]*models.RatingHistoryEntry, error) {
	query := `
		SELECT id, league_id, match_id, user_id, anonymous_user_id, rating, delta, created_at
		FROM rating_history
		WHERE league_id = $1 AND user_id = $2
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, leagueID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.RatingHistoryEntry, 0)
	for rows.Next() {
		entry := &models.RatingHistoryEntry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.LeagueID,
			&entry.MatchID,
			&entry.UserID,
			&entry.AnonymousUserID,
			&entry.Rating,
			&entry.Delta,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *postgresRatingHistoryRepository) ReassignOwner(ctx context.Context, anonymousUserID, userID string) error {
	query := `
		UPDATE rating_history
		SET user_id = $2, anonymous_user_id = NULL
		WHERE anonymous_user_id = $1`

	_, err := r.db.ExecContext(ctx, query, anonymousUserID, userID)
	return err
}

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrLeagueNotFound       = errors.New("league not found")
	ErrLeagueNameConflict   = errors.New("league name conflict")
	ErrLeagueCreatorInvalid = errors.New("league creator conflict or invalid")
)

type LeagueRepository interface {
	Create(ctx context.Context, league *models.League) error
	GetByID(ctx context.Context, id int) (*models.League, error)
	List(ctx context.Context) ([]*models.League, error)
	UpdateName(ctx context.Context, id int, name string) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
	Delete(ctx context.Context, id int) error
	// ReassignCreator rewrites creator attribution from an anonymous
	// identity to an authenticated one for every league the anonymous
	// identity created.
	ReassignCreator(ctx context.Context, anonymousUserID, userID string) error
	Count(ctx context.Context) (int, error)
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) Create(ctx context.Context, league *models.League) error {
	query := `
		INSERT INTO leagues (name, type, creator_user_id, creator_anonymous_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		league.Name,
		league.Type,
		league.CreatorUserID,
		league.CreatorAnonymousUserID,
	).Scan(&league.ID, &league.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrLeagueNameConflict
			case "23503", "23514":
				return ErrLeagueCreatorInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id int) (*models.League, error) {
	query := `
		SELECT id, name, type, creator_user_id, creator_anonymous_user_id, logo_key, created_at
		FROM leagues
		WHERE id = $1`

	league := &models.League{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&league.ID,
		&league.Name,
		&league.Type,
		&league.CreatorUserID,
		&league.CreatorAnonymousUserID,
		&league.LogoKey,
		&league.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	return league, nil
}

func (r *postgresLeagueRepository) List(ctx context.Context) ([]*models.League, error) {
	query := `
		SELECT id, name, type, creator_user_id, creator_anonymous_user_id, logo_key, created_at
		FROM leagues
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := make([]*models.League, 0)
	for rows.Next() {
		league := &models.League{}
		if err := rows.Scan(
			&league.ID,
			&league.Name,
			&league.Type,
			&league.CreatorUserID,
			&league.CreatorAnonymousUserID,
			&league.LogoKey,
			&league.CreatedAt,
		); err != nil {
			return nil, err
		}
		leagues = append(leagues, league)
	}
	return leagues, rows.Err()
}

func (r *postgresLeagueRepository) UpdateName(ctx context.Context, id int, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE leagues SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE leagues SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM leagues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) ReassignCreator(ctx context.Context, anonymousUserID, userID string) error {
	query := `
		UPDATE leagues
		SET creator_user_id = $2, creator_anonymous_user_id = NULL
		WHERE creator_anonymous_user_id = $1`

	_, err := r.db.ExecContext(ctx, query, anonymousUserID, userID)
	return err
}

func (r *postgresLeagueRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leagues`).Scan(&count)
	return count, err
}

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentLeagueInvalid = errors.New("tournament league conflict or invalid")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	ListIDsByLeague(ctx context.Context, leagueID int) ([]int, error)
	SetFinished(ctx context.Context, id int, finished bool) error
	Delete(ctx context.Context, id int) error
	ReassignCreator(ctx context.Context, anonymousUserID, userID string) error
	Count(ctx context.Context) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, date, league_id, finished, creator_user_id, creator_anonymous_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		tournament.Name,
		tournament.Date,
		tournament.LeagueID,
		tournament.Finished,
		tournament.CreatorUserID,
		tournament.CreatorAnonymousUserID,
	).Scan(&tournament.ID, &tournament.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrTournamentLeagueInvalid
		}
		return err
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, date, league_id, finished, creator_user_id, creator_anonymous_user_id, created_at
		FROM tournaments
		WHERE id = $1`

	tournament := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tournament.ID,
		&tournament.Name,
		&tournament.Date,
		&tournament.LeagueID,
		&tournament.Finished,
		&tournament.CreatorUserID,
		&tournament.CreatorAnonymousUserID,
		&tournament.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context) ([]*models.Tournament, error) {
	query := `
		SELECT id, name, date, league_id, finished, creator_user_id, creator_anonymous_user_id, created_at
		FROM tournaments
		ORDER BY date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		tournament := &models.Tournament{}
		if err := rows.Scan(
			&tournament.ID,
			&tournament.Name,
			&tournament.Date,
			&tournament.LeagueID,
			&tournament.Finished,
			&tournament.CreatorUserID,
			&tournament.CreatorAnonymousUserID,
			&tournament.CreatedAt,
		); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, tournament)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) ListIDsByLeague(ctx context.Context, leagueID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM tournaments WHERE league_id = $1 ORDER BY date DESC`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresTournamentRepository) SetFinished(ctx context.Context, id int, finished bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournaments SET finished = $1 WHERE id = $2`, finished, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ReassignCreator(ctx context.Context, anonymousUserID, userID string) error {
	query := `
		UPDATE tournaments
		SET creator_user_id = $2, creator_anonymous_user_id = NULL
		WHERE creator_anonymous_user_id = $1`

	_, err := r.db.ExecContext(ctx, query, anonymousUserID, userID)
	return err
}

func (r *postgresTournamentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&count)
	return count, err
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound = errors.New("match not found")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// ListByLeague and ListByTournament return matches most-recent-first.
	ListByLeague(ctx context.Context, leagueID int) ([]*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// ListAll exists for the identity reconciler, which filters team
	// membership in application logic rather than relying on array
	// containment being indexable.
	ListAll(ctx context.Context) ([]*models.Match, error)
	UpdateTeams(ctx context.Context, id int, teamA, teamB []string, deltas map[string]int) error
	ReassignCreator(ctx context.Context, anonymousUserID, userID string) error
	Count(ctx context.Context) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)

	deltas, err := json.Marshal(match.Deltas)
	if err != nil {
		return fmt.Errorf("failed to encode match deltas: %w", err)
	}

	query := `
		INSERT INTO matches
			(league_id, tournament_id, team_a, team_b, score_a, score_b, deltas,
			 creator_user_id, creator_anonymous_user_id, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		match.LeagueID,
		match.TournamentID,
		pq.Array(match.TeamA),
		pq.Array(match.TeamB),
		match.ScoreA,
		match.ScoreB,
		deltas,
		match.CreatorUserID,
		match.CreatorAnonymousUserID,
		match.PlayedAt,
	).Scan(&match.ID)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := matchSelect + ` WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	match, err := scanMatchRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByLeague(ctx context.Context, leagueID int) ([]*models.Match, error) {
	query := matchSelect + ` WHERE league_id = $1 ORDER BY played_at DESC, id DESC`
	return r.listMatches(ctx, query, leagueID)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := matchSelect + ` WHERE tournament_id = $1 ORDER BY played_at DESC, id DESC`
	return r.listMatches(ctx, query, tournamentID)
}

func (r *postgresMatchRepository) ListAll(ctx context.Context) ([]*models.Match, error) {
	query := matchSelect + ` ORDER BY id ASC`
	return r.listMatches(ctx, query)
}

func (r *postgresMatchRepository) UpdateTeams(ctx context.Context, id int, teamA, teamB []string, deltas map[string]int) error {
	encoded, err := json.Marshal(deltas)
	if err != nil {
		return fmt.Errorf("failed to encode match deltas: %w", err)
	}

	query := `
		UPDATE matches
		SET team_a = $1, team_b = $2, deltas = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, pq.Array(teamA), pq.Array(teamB), encoded, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ReassignCreator(ctx context.Context, anonymousUserID, userID string) error {
	query := `
		UPDATE matches
		SET creator_user_id = $2, creator_anonymous_user_id = NULL
		WHERE creator_anonymous_user_id = $1`

	_, err := r.db.ExecContext(ctx, query, anonymousUserID, userID)
	return err
}

func (r *postgresMatchRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

const matchSelect = `
	SELECT id, league_id, tournament_id, team_a, team_b, score_a, score_b, deltas,
	       creator_user_id, creator_anonymous_user_id, played_at
	FROM matches`

func (r *postgresMatchRepository) listMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, err := scanMatchRow(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func scanMatchRow(scanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	match := &models.Match{}
	var teamA, teamB pq.StringArray
	var deltas []byte

	err := scanner.Scan(
		&match.ID,
		&match.LeagueID,
		&match.TournamentID,
		&teamA,
		&teamB,
		&match.ScoreA,
		&match.ScoreB,
		&deltas,
		&match.CreatorUserID,
		&match.CreatorAnonymousUserID,
		&match.PlayedAt,
	)
	if err != nil {
		return nil, err
	}

	match.TeamA = teamA
	match.TeamB = teamB
	if len(deltas) > 0 {
		if err := json.Unmarshal(deltas, &match.Deltas); err != nil {
			return nil, fmt.Errorf("failed to decode match deltas: %w", err)
		}
	}
	return match, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound        = errors.New("player not found")
	ErrPlayerAlreadyInLeague = errors.New("identity already has a player in this league")
)

// PlayerRepository manages league membership rows, which double as the
// carrier of each member's persisted rating and cumulative record.
type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	ListByLeague(ctx context.Context, exec SQLExecutor, leagueID int) ([]*models.Player, error)
	GetByLeagueAndUser(ctx context.Context, leagueID int, userID string) (*models.Player, error)
	ListByAnonymousUser(ctx context.Context, anonymousUserID string) ([]*models.Player, error)
	// UpdateStats persists the rating/record fields after a recorded match.
	UpdateStats(ctx context.Context, exec SQLExecutor, player *models.Player) error
	// ReassignOwner rewrites the row's ownership from an anonymous identity
	// to an authenticated one, in place.
	ReassignOwner(ctx context.Context, id int, userID string) error
	Delete(ctx context.Context, id int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO league_players
			(league_id, user_id, anonymous_user_id, display_name, rating, wins, losses, matches_played, streak)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		player.LeagueID,
		player.UserID,
		player.AnonymousUserID,
		player.DisplayName,
		player.Rating,
		player.Wins,
		player.Losses,
		player.MatchesPlayed,
		player.Streak,
	).Scan(&player.ID, &player.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPlayerAlreadyInLeague
		}
		return err
	}
	return nil
}

func (r *postgresPlayerRepository) ListByLeague(ctx context.Context, exec SQLExecutor, leagueID int) ([]*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, league_id, user_id, anonymous_user_id, display_name,
		       rating, wins, losses, matches_played, streak, created_at
		FROM league_players
		WHERE league_id = $1
		ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func (r *postgresPlayerRepository) GetByLeagueAndUser(ctx context.Context, leagueID int, userID string) (*models.Player, error) {
	query := `
		SELECT id, league_id, user_id, anonymous_user_id, display_name,
		       rating, wins, losses, matches_played, streak, created_at
		FROM league_players
		WHERE league_id = $1 AND user_id = $2`

	player := &models.Player{}
	err := scanPlayerRow(r.db.QueryRowContext(ctx, query, leagueID, userID), player)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

func (r *postgresPlayerRepository) ListByAnonymousUser(ctx context.Context, anonymousUserID string) ([]*models.Player, error) {
	query := `
		SELECT id, league_id, user_id, anonymous_user_id, display_name,
		       rating, wins, losses, matches_played, streak, created_at
		FROM league_players
		WHERE anonymous_user_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, anonymousUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func (r *postgresPlayerRepository) UpdateStats(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE league_players
		SET rating = $1, wins = $2, losses = $3, matches_played = $4, streak = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		player.Rating,
		player.Wins,
		player.Losses,
		player.MatchesPlayed,
		player.Streak,
		player.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ReassignOwner(ctx context.Context, id int, userID string) error {
	query := `
		UPDATE league_players
		SET user_id = $1, anonymous_user_id = NULL
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM league_players WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func scanPlayerRow(row *sql.Row, player *models.Player) error {
	return row.Scan(
		&player.ID,
		&player.LeagueID,
		&player.UserID,
		&player.AnonymousUserID,
		&player.DisplayName,
		&player.Rating,
		&player.Wins,
		&player.Losses,
		&player.MatchesPlayed,
		&player.Streak,
		&player.CreatedAt,
	)
}

func scanPlayers(rows *sql.Rows) ([]*models.Player, error) {
	players := make([]*models.Player, 0)
	for rows.Next() {
		player := &models.Player{}
		if err := rows.Scan(
			&player.ID,
			&player.LeagueID,
			&player.UserID,
			&player.AnonymousUserID,
			&player.DisplayName,
			&player.Rating,
			&player.Wins,
			&player.Losses,
			&player.MatchesPlayed,
			&player.Streak,
			&player.CreatedAt,
		); err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

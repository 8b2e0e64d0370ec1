package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentMemberNotFound = errors.New("tournament member not found")
	ErrTournamentMemberConflict = errors.New("identity already registered for this tournament")
)

type TournamentMemberRepository interface {
	Create(ctx context.Context, member *models.TournamentMember) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentMember, error)
	GetByTournamentAndUser(ctx context.Context, tournamentID int, userID string) (*models.TournamentMember, error)
	ListByAnonymousUser(ctx context.Context, anonymousUserID string) ([]*models.TournamentMember, error)
	ReassignOwner(ctx context.Context, id int, userID string) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentMemberRepository struct {
	db *sql.DB
}

func NewPostgresTournamentMemberRepository(db *sql.DB) TournamentMemberRepository {
	return &postgresTournamentMemberRepository{db: db}
}

func (r *postgresTournamentMemberRepository) Create(ctx context.Context, member *models.TournamentMember) error {
	query := `
		INSERT INTO tournament_members (tournament_id, user_id, anonymous_user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		member.TournamentID,
		member.UserID,
		member.AnonymousUserID,
	).Scan(&member.ID, &member.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTournamentMemberConflict
		}
		return err
	}
	return nil
}

func (r *postgresTournamentMemberRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentMember, error) {
	query := `
		SELECT id, tournament_id, user_id, anonymous_user_id, created_at
		FROM tournament_members
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTournamentMembers(rows)
}

func (r *postgresTournamentMemberRepository) GetByTournamentAndUser(ctx context.Context, tournamentID int, userID string) (*models.TournamentMember, error) {
	query := `
		SELECT id, tournament_id, user_id, anonymous_user_id, created_at
		FROM tournament_members
		WHERE tournament_id = $1 AND user_id = $2`

	member := &models.TournamentMember{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, userID).Scan(
		&member.ID,
		&member.TournamentID,
		&member.UserID,
		&member.AnonymousUserID,
		&member.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

func (r *postgresTournamentMemberRepository) ListByAnonymousUser(ctx context.Context, anonymousUserID string) ([]*models.TournamentMember, error) {
	query := `
		SELECT id, tournament_id, user_id, anonymous_user_id, created_at
		FROM tournament_members
		WHERE anonymous_user_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, anonymousUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTournamentMembers(rows)
}

func (r *postgresTournamentMemberRepository) ReassignOwner(ctx context.Context, id int, userID string) error {
	query := `
		UPDATE tournament_members
		SET user_id = $1, anonymous_user_id = NULL
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentMemberNotFound)
}

func (r *postgresTournamentMemberRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournament_members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentMemberNotFound)
}

func scanTournamentMembers(rows *sql.Rows) ([]*models.TournamentMember, error) {
	members := make([]*models.TournamentMember, 0)
	for rows.Next() {
		member := &models.TournamentMember{}
		if err := rows.Scan(
			&member.ID,
			&member.TournamentID,
			&member.UserID,
			&member.AnonymousUserID,
			&member.CreatedAt,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

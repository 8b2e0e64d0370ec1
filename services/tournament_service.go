package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
)

type CreateTournamentInput struct {
	Name                   string    `json:"name"`
	Date                   time.Time `json:"date"`
	LeagueID               *int      `json:"league_id,omitempty"`
	CreatorUserID          *string   `json:"-"`
	CreatorAnonymousUserID *string   `json:"-"`
}

type AddMemberInput struct {
	UserID          *string `json:"user_id,omitempty"`
	AnonymousUserID *string `json:"anonymous_user_id,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	AddMember(ctx context.Context, tournamentID int, input AddMemberInput) (*models.TournamentMember, error)
	Finish(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
}

type tournamentService struct {
	tournRepo  repositories.TournamentRepository
	memberRepo repositories.TournamentMemberRepository
	leagueRepo repositories.LeagueRepository
	matchRepo  repositories.MatchRepository
}

func NewTournamentService(
	tournRepo repositories.TournamentRepository,
	memberRepo repositories.TournamentMemberRepository,
	leagueRepo repositories.LeagueRepository,
	matchRepo repositories.MatchRepository,
) TournamentService {
	return &tournamentService{
		tournRepo:  tournRepo,
		memberRepo: memberRepo,
		leagueRepo: leagueRepo,
		matchRepo:  matchRepo,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if err := validateCreator(input.CreatorUserID, input.CreatorAnonymousUserID); err != nil {
		return nil, err
	}
	if input.LeagueID != nil {
		if _, err := s.leagueRepo.GetByID(ctx, *input.LeagueID); err != nil {
			if errors.Is(err, repositories.ErrLeagueNotFound) {
				return nil, ErrLeagueNotFound
			}
			return nil, err
		}
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	tournament := &models.Tournament{
		Name:                   input.Name,
		Date:                   date,
		LeagueID:               input.LeagueID,
		CreatorUserID:          input.CreatorUserID,
		CreatorAnonymousUserID: input.CreatorAnonymousUserID,
	}
	if err := s.tournRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	members, err := s.memberRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament members: %w", err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament matches: %w", err)
	}

	tournament.Members = dereferenceMembers(members)
	tournament.Matches = dereferenceMatches(matches)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	return s.tournRepo.List(ctx)
}

func (s *tournamentService) AddMember(ctx context.Context, tournamentID int, input AddMemberInput) (*models.TournamentMember, error) {
	if err := validateCreator(input.UserID, input.AnonymousUserID); err != nil {
		return nil, err
	}
	tournament, err := s.tournRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Finished {
		return nil, ErrTournamentFinished
	}

	member := &models.TournamentMember{
		TournamentID:    tournamentID,
		UserID:          input.UserID,
		AnonymousUserID: input.AnonymousUserID,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		if errors.Is(err, repositories.ErrTournamentMemberConflict) {
			return nil, ErrTournamentMemberConflict
		}
		return nil, fmt.Errorf("failed to add tournament member: %w", err)
	}
	return member, nil
}

func (s *tournamentService) Finish(ctx context.Context, id int) error {
	if err := s.tournRepo.SetFinished(ctx, id, true); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	if err := s.tournRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

func dereferenceMembers(slice []*models.TournamentMember) []models.TournamentMember {
	result := make([]models.TournamentMember, 0, len(slice))
	for _, ptr := range slice {
		if ptr != nil {
			result = append(result, *ptr)
		}
	}
	return result
}

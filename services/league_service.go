package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/floppyflax/beer-pong-league-sub000/elo"
	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
	"github.com/floppyflax/beer-pong-league-sub000/storage"
	"github.com/google/uuid"
)

type CreateLeagueInput struct {
	Name                   string            `json:"name"`
	Type                   models.LeagueType `json:"type"`
	CreatorUserID          *string           `json:"-"`
	CreatorAnonymousUserID *string           `json:"-"`
}

type AddPlayerInput struct {
	DisplayName     string  `json:"display_name"`
	UserID          *string `json:"user_id,omitempty"`
	AnonymousUserID *string `json:"anonymous_user_id,omitempty"`
}

type LeagueService interface {
	Create(ctx context.Context, input CreateLeagueInput) (*models.League, error)
	GetByID(ctx context.Context, id int) (*models.League, error)
	List(ctx context.Context) ([]*models.League, error)
	Rename(ctx context.Context, id int, name string) error
	Delete(ctx context.Context, id int) error
	// AddPlayer registers an identity as a league member at the default
	// rating. When no identity is supplied a fresh anonymous one backs the
	// player.
	AddPlayer(ctx context.Context, leagueID int, input AddPlayerInput) (*models.Player, error)
	UploadLogo(ctx context.Context, id int, contentType string, reader io.Reader) (*models.League, error)
}

type leagueService struct {
	leagueRepo repositories.LeagueRepository
	playerRepo repositories.PlayerRepository
	tournRepo  repositories.TournamentRepository
	matchRepo  repositories.MatchRepository
	anonRepo   repositories.AnonymousUserRepository
	uploader   storage.FileUploader
}

func NewLeagueService(
	leagueRepo repositories.LeagueRepository,
	playerRepo repositories.PlayerRepository,
	tournRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	anonRepo repositories.AnonymousUserRepository,
	uploader storage.FileUploader,
) LeagueService {
	return &leagueService{
		leagueRepo: leagueRepo,
		playerRepo: playerRepo,
		tournRepo:  tournRepo,
		matchRepo:  matchRepo,
		anonRepo:   anonRepo,
		uploader:   uploader,
	}
}

func (s *leagueService) Create(ctx context.Context, input CreateLeagueInput) (*models.League, error) {
	if input.Name == "" {
		return nil, ErrLeagueNameRequired
	}
	if input.Type != models.LeagueTypeEvent && input.Type != models.LeagueTypeSeason {
		return nil, ErrLeagueTypeInvalid
	}
	if err := validateCreator(input.CreatorUserID, input.CreatorAnonymousUserID); err != nil {
		return nil, err
	}

	league := &models.League{
		Name:                   input.Name,
		Type:                   input.Type,
		CreatorUserID:          input.CreatorUserID,
		CreatorAnonymousUserID: input.CreatorAnonymousUserID,
	}
	if err := s.leagueRepo.Create(ctx, league); err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}
	return league, nil
}

func (s *leagueService) GetByID(ctx context.Context, id int) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}

	players, err := s.playerRepo.ListByLeague(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list league players: %w", err)
	}
	matches, err := s.matchRepo.ListByLeague(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list league matches: %w", err)
	}
	tournamentIDs, err := s.tournRepo.ListIDsByLeague(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list league tournaments: %w", err)
	}

	league.Players = dereferencePlayers(players)
	league.Matches = dereferenceMatches(matches)
	league.TournamentIDs = tournamentIDs
	s.populateLogoURL(league)
	return league, nil
}

func (s *leagueService) List(ctx context.Context) ([]*models.League, error) {
	leagues, err := s.leagueRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, league := range leagues {
		s.populateLogoURL(league)
	}
	return leagues, nil
}

func (s *leagueService) Rename(ctx context.Context, id int, name string) error {
	if name == "" {
		return ErrLeagueNameRequired
	}
	if err := s.leagueRepo.UpdateName(ctx, id, name); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return ErrLeagueNotFound
		}
		return err
	}
	return nil
}

func (s *leagueService) Delete(ctx context.Context, id int) error {
	if err := s.leagueRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return ErrLeagueNotFound
		}
		return err
	}
	return nil
}

func (s *leagueService) AddPlayer(ctx context.Context, leagueID int, input AddPlayerInput) (*models.Player, error) {
	if input.DisplayName == "" {
		return nil, ErrDisplayNameRequired
	}
	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}

	userID := input.UserID
	anonymousUserID := input.AnonymousUserID
	if userID == nil && anonymousUserID == nil {
		anon := &models.AnonymousUser{ID: uuid.NewString(), DisplayName: input.DisplayName}
		if err := s.anonRepo.Create(ctx, anon); err != nil {
			return nil, fmt.Errorf("failed to create backing anonymous user: %w", err)
		}
		anonymousUserID = &anon.ID
	}
	if userID != nil && anonymousUserID != nil {
		return nil, ErrCreatorRequired
	}

	player := &models.Player{
		LeagueID:        leagueID,
		UserID:          userID,
		AnonymousUserID: anonymousUserID,
		DisplayName:     input.DisplayName,
		Rating:          elo.DefaultRating,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerAlreadyInLeague) {
			return nil, ErrPlayerAlreadyInLeague
		}
		return nil, fmt.Errorf("failed to add player: %w", err)
	}
	return player, nil
}

func (s *leagueService) UploadLogo(ctx context.Context, id int, contentType string, reader io.Reader) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}

	ext, err := storage.ExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("leagues/%d/logo%s", id, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload league logo: %w", err)
	}

	if err := s.leagueRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist league logo key: %w", err)
	}
	league.LogoKey = &result.Key
	s.populateLogoURL(league)
	return league, nil
}

func (s *leagueService) populateLogoURL(league *models.League) {
	if league == nil || league.LogoKey == nil || *league.LogoKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*league.LogoKey); url != "" {
		league.LogoURL = &url
	}
}

func validateCreator(userID, anonymousUserID *string) error {
	if (userID == nil) == (anonymousUserID == nil) {
		return ErrCreatorRequired
	}
	return nil
}

func dereferencePlayers(slice []*models.Player) []models.Player {
	result := make([]models.Player, 0, len(slice))
	for _, ptr := range slice {
		if ptr != nil {
			result = append(result, *ptr)
		}
	}
	return result
}

func dereferenceMatches(slice []*models.Match) []models.Match {
	result := make([]models.Match, 0, len(slice))
	for _, ptr := range slice {
		if ptr != nil {
			result = append(result, *ptr)
		}
	}
	return result
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/floppyflax/beer-pong-league-sub000/elo"
	"github.com/floppyflax/beer-pong-league-sub000/live"
	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
)

// TxRunner is the per-aggregate transaction boundary match recording runs
// inside: a reader must never observe a match row without the matching
// player updates.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

// Broadcaster pushes live updates to clients watching a league.
type Broadcaster interface {
	BroadcastToRoom(room string, message live.Message)
}

// RecordMatchInput carries one match submission. Winner decides which side
// gets the 10/0 score; the creator reference follows the usual exclusivity
// rule and may be fully absent for system-recorded matches.
type RecordMatchInput struct {
	TeamA                  []string `json:"team_a"`
	TeamB                  []string `json:"team_b"`
	Winner                 elo.Side `json:"winner"`
	CreatorUserID          *string  `json:"-"`
	CreatorAnonymousUserID *string  `json:"-"`
}

type MatchService interface {
	// RecordLeagueMatch records a match against a league's players, updates
	// their persisted ratings and records, and returns the per-player
	// rating deltas keyed by identity id.
	RecordLeagueMatch(ctx context.Context, leagueID int, input RecordMatchInput) (map[string]int, error)
	// RecordTournamentMatch records a match into a tournament. When the
	// tournament is linked to a league, the participants' current league
	// ratings are the calculation basis and the same update feeds both
	// aggregates.
	RecordTournamentMatch(ctx context.Context, tournamentID int, input RecordMatchInput) (map[string]int, error)
	ListLeagueMatches(ctx context.Context, leagueID int) ([]*models.Match, error)
	ListTournamentMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type matchService struct {
	tx          TxRunner
	leagueRepo  repositories.LeagueRepository
	tournRepo   repositories.TournamentRepository
	memberRepo  repositories.TournamentMemberRepository
	playerRepo  repositories.PlayerRepository
	matchRepo   repositories.MatchRepository
	historyRepo repositories.RatingHistoryRepository
	hub         Broadcaster
	logger      *slog.Logger
}

func NewMatchService(
	tx TxRunner,
	leagueRepo repositories.LeagueRepository,
	tournRepo repositories.TournamentRepository,
	memberRepo repositories.TournamentMemberRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	historyRepo repositories.RatingHistoryRepository,
	hub Broadcaster,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:          tx,
		leagueRepo:  leagueRepo,
		tournRepo:   tournRepo,
		memberRepo:  memberRepo,
		playerRepo:  playerRepo,
		matchRepo:   matchRepo,
		historyRepo: historyRepo,
		hub:         hub,
		logger:      logger,
	}
}

func (s *matchService) RecordLeagueMatch(ctx context.Context, leagueID int, input RecordMatchInput) (map[string]int, error) {
	if err := validateMatchInput(input); err != nil {
		return nil, err
	}

	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to load league %d: %w", leagueID, err)
	}

	return s.recordAgainstLeague(ctx, leagueID, nil, input)
}

func (s *matchService) RecordTournamentMatch(ctx context.Context, tournamentID int, input RecordMatchInput) (map[string]int, error) {
	if err := validateMatchInput(input); err != nil {
		return nil, err
	}

	tournament, err := s.tournRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.Finished {
		return nil, ErrTournamentFinished
	}

	if tournament.LeagueID != nil {
		// Linked tournament: the league's current ratings are the basis and
		// one match row feeds both aggregates' match lists.
		return s.recordAgainstLeague(ctx, *tournament.LeagueID, &tournamentID, input)
	}
	return s.recordAutonomous(ctx, tournament, input)
}

// recordAgainstLeague applies the full read-modify-write against the
// league's players inside one transaction.
func (s *matchService) recordAgainstLeague(ctx context.Context, leagueID int, tournamentID *int, input RecordMatchInput) (map[string]int, error) {
	deltas := make(map[string]int)
	var updated []*models.Player
	var recorded *models.Match

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		players, err := s.playerRepo.ListByLeague(ctx, exec, leagueID)
		if err != nil {
			return fmt.Errorf("failed to list league players: %w", err)
		}

		byIdentity := make(map[string]*models.Player, len(players))
		for _, p := range players {
			byIdentity[p.IdentityID()] = p
		}

		teamA := s.resolveSide(ctx, leagueID, input.TeamA, byIdentity)
		teamB := s.resolveSide(ctx, leagueID, input.TeamB, byIdentity)

		// A side with no resolvable players gives the calculator nothing to
		// rate against; the match is stored for the record but no rating or
		// stats move.
		if len(teamA) == 0 || len(teamB) == 0 {
			s.logger.WarnContext(ctx, "match has no resolvable opposition, skipping rating update",
				slog.Int("league_id", leagueID))
		} else {
			newRatings := elo.ComputeRatings(teamA, teamB, input.Winner)

			applySide := func(side []elo.Rated, won bool) error {
				for _, rated := range side {
					player := byIdentity[rated.ID]
					newRating := newRatings[rated.ID]
					deltas[rated.ID] = newRating - player.Rating

					player.Rating = newRating
					player.MatchesPlayed++
					if won {
						player.Wins++
						if player.Streak > 0 {
							player.Streak++
						} else {
							player.Streak = 1
						}
					} else {
						player.Losses++
						if player.Streak < 0 {
							player.Streak--
						} else {
							player.Streak = -1
						}
					}
					if err := s.playerRepo.UpdateStats(ctx, exec, player); err != nil {
						return fmt.Errorf("failed to update player %d: %w", player.ID, err)
					}
					updated = append(updated, player)
				}
				return nil
			}

			if err := applySide(teamA, input.Winner == elo.SideA); err != nil {
				return err
			}
			if err := applySide(teamB, input.Winner == elo.SideB); err != nil {
				return err
			}
		}

		match := buildMatch(&leagueID, tournamentID, input, deltas)
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}
		recorded = match

		for _, player := range updated {
			entry := &models.RatingHistoryEntry{
				LeagueID:        leagueID,
				MatchID:         match.ID,
				UserID:          player.UserID,
				AnonymousUserID: player.AnonymousUserID,
				Rating:          player.Rating,
				Delta:           deltas[player.IdentityID()],
			}
			if err := s.historyRepo.Create(ctx, exec, entry); err != nil {
				return fmt.Errorf("failed to append rating history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastLeagueUpdate(ctx, leagueID, recorded)
	return deltas, nil
}

// recordAutonomous handles a tournament with no league link. There is no
// player aggregate to update; base ratings are resolved by replaying the
// tournament's own matches from the default rating.
func (s *matchService) recordAutonomous(ctx context.Context, tournament *models.Tournament, input RecordMatchInput) (map[string]int, error) {
	members, err := s.memberRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament members: %w", err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament matches: %w", err)
	}

	working := make(map[string]int, len(members))
	for _, m := range members {
		working[m.IdentityID()] = elo.DefaultRating
	}
	replayRatings(working, matches)

	resolve := func(ids []string) []elo.Rated {
		side := make([]elo.Rated, 0, len(ids))
		for _, id := range ids {
			rating, ok := working[id]
			if !ok {
				s.logger.WarnContext(ctx, "skipping unknown tournament participant",
					slog.Int("tournament_id", tournament.ID), slog.String("identity_id", id))
				continue
			}
			side = append(side, elo.Rated{ID: id, Rating: rating})
		}
		return side
	}

	teamA := resolve(input.TeamA)
	teamB := resolve(input.TeamB)

	deltas := make(map[string]int, len(teamA)+len(teamB))
	if len(teamA) == 0 || len(teamB) == 0 {
		s.logger.WarnContext(ctx, "match has no resolvable opposition, skipping rating update",
			slog.Int("tournament_id", tournament.ID))
	} else {
		newRatings := elo.ComputeRatings(teamA, teamB, input.Winner)
		for _, rated := range append(append([]elo.Rated{}, teamA...), teamB...) {
			deltas[rated.ID] = newRatings[rated.ID] - rated.Rating
		}
	}

	match := buildMatch(nil, &tournament.ID, input, deltas)
	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}
	return deltas, nil
}

func (s *matchService) ListLeagueMatches(ctx context.Context, leagueID int) ([]*models.Match, error) {
	return s.matchRepo.ListByLeague(ctx, leagueID)
}

func (s *matchService) ListTournamentMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}

// resolveSide maps submitted identity ids to the league's current players.
// Unknown ids are excluded from the calculation and the delta map; that is
// a data-integrity condition worth a warning, not a user-facing error.
func (s *matchService) resolveSide(ctx context.Context, leagueID int, ids []string, byIdentity map[string]*models.Player) []elo.Rated {
	side := make([]elo.Rated, 0, len(ids))
	for _, id := range ids {
		player, ok := byIdentity[id]
		if !ok {
			s.logger.WarnContext(ctx, "skipping participant with no player in league",
				slog.Int("league_id", leagueID), slog.String("identity_id", id))
			continue
		}
		side = append(side, elo.Rated{ID: id, Rating: player.Rating})
	}
	return side
}

func (s *matchService) broadcastLeagueUpdate(ctx context.Context, leagueID int, match *models.Match) {
	if s.hub == nil || match == nil {
		return
	}
	room := leagueRoom(leagueID)
	s.hub.BroadcastToRoom(room, live.Message{Type: live.EventMatchRecorded, Payload: match, Room: room})

	players, err := s.playerRepo.ListByLeague(ctx, nil, leagueID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load ranking for broadcast",
			slog.Int("league_id", leagueID), slog.Any("error", err))
		return
	}
	sortPlayersByRating(players)
	s.hub.BroadcastToRoom(room, live.Message{Type: live.EventRankingUpdated, Payload: players, Room: room})
}

func validateMatchInput(input RecordMatchInput) error {
	if len(input.TeamA) == 0 || len(input.TeamB) == 0 {
		return ErrMatchTeamsRequired
	}
	if input.Winner != elo.SideA && input.Winner != elo.SideB {
		return ErrMatchWinnerInvalid
	}
	inA := make(map[string]bool, len(input.TeamA))
	for _, id := range input.TeamA {
		if inA[id] {
			return ErrMatchTeamDuplicate
		}
		inA[id] = true
	}
	inB := make(map[string]bool, len(input.TeamB))
	for _, id := range input.TeamB {
		if inA[id] {
			return ErrMatchTeamsOverlap
		}
		if inB[id] {
			return ErrMatchTeamDuplicate
		}
		inB[id] = true
	}
	return nil
}

func buildMatch(leagueID, tournamentID *int, input RecordMatchInput, deltas map[string]int) *models.Match {
	scoreA, scoreB := models.WinningScore, models.LosingScore
	if input.Winner == elo.SideB {
		scoreA, scoreB = models.LosingScore, models.WinningScore
	}
	return &models.Match{
		LeagueID:               leagueID,
		TournamentID:           tournamentID,
		TeamA:                  input.TeamA,
		TeamB:                  input.TeamB,
		ScoreA:                 scoreA,
		ScoreB:                 scoreB,
		Deltas:                 deltas,
		CreatorUserID:          input.CreatorUserID,
		CreatorAnonymousUserID: input.CreatorAnonymousUserID,
		PlayedAt:               time.Now().UTC(),
	}
}

func leagueRoom(leagueID int) string {
	return fmt.Sprintf("league:%d", leagueID)
}

func sortPlayersByRating(players []*models.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Rating > players[j].Rating
	})
}

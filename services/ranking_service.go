package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/floppyflax/beer-pong-league-sub000/elo"
	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
	"golang.org/x/sync/errgroup"
)

// RankingService derives the two ranking read views. It never mutates
// persisted state; a missing league or tournament yields an empty ranking
// rather than an error.
type RankingService interface {
	// LeagueGlobalRanking returns the league's persisted players sorted by
	// rating, descending. It reflects every match ever recorded against the
	// league, including matches from linked tournaments.
	LeagueGlobalRanking(ctx context.Context, leagueID int) ([]*models.Player, error)
	// TournamentLocalRanking ranks a tournament purely on its own matches:
	// every participant starts over at the default rating and the
	// tournament's match list is replayed chronologically. Persisted league
	// ratings never enter the computation.
	TournamentLocalRanking(ctx context.Context, tournamentID int) ([]*models.Player, error)
}

type rankingService struct {
	leagueRepo repositories.LeagueRepository
	tournRepo  repositories.TournamentRepository
	memberRepo repositories.TournamentMemberRepository
	playerRepo repositories.PlayerRepository
	matchRepo  repositories.MatchRepository
}

func NewRankingService(
	leagueRepo repositories.LeagueRepository,
	tournRepo repositories.TournamentRepository,
	memberRepo repositories.TournamentMemberRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
) RankingService {
	return &rankingService{
		leagueRepo: leagueRepo,
		tournRepo:  tournRepo,
		memberRepo: memberRepo,
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
	}
}

func (s *rankingService) LeagueGlobalRanking(ctx context.Context, leagueID int) ([]*models.Player, error) {
	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return []*models.Player{}, nil
		}
		return nil, fmt.Errorf("failed to load league %d: %w", leagueID, err)
	}

	players, err := s.playerRepo.ListByLeague(ctx, nil, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list league players: %w", err)
	}
	sortPlayersByRating(players)
	return players, nil
}

func (s *rankingService) TournamentLocalRanking(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	tournament, err := s.tournRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return []*models.Player{}, nil
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	var (
		members       []*models.TournamentMember
		matches       []*models.Match
		leaguePlayers []*models.Player
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.memberRepo.ListByTournament(gCtx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, tournamentID)
		return err
	})
	if tournament.LeagueID != nil {
		leagueID := *tournament.LeagueID
		g.Go(func() error {
			var err error
			leaguePlayers, err = s.playerRepo.ListByLeague(gCtx, nil, leagueID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d state: %w", tournamentID, err)
	}

	namesByIdentity := make(map[string]string, len(leaguePlayers))
	for _, p := range leaguePlayers {
		namesByIdentity[p.IdentityID()] = p.DisplayName
	}

	// Fresh working players: default rating, zero record. Participants with
	// no tournament matches stay at exactly this baseline.
	working := make(map[string]*models.Player, len(members))
	order := make([]string, 0, len(members))
	for _, m := range members {
		id := m.IdentityID()
		if _, ok := working[id]; ok {
			continue
		}
		working[id] = &models.Player{
			UserID:          m.UserID,
			AnonymousUserID: m.AnonymousUserID,
			DisplayName:     namesByIdentity[id],
			Rating:          elo.DefaultRating,
		}
		order = append(order, id)
	}

	replayMatches(working, matches)

	ranking := make([]*models.Player, 0, len(order))
	for _, id := range order {
		ranking = append(ranking, working[id])
	}
	sortPlayersByRating(ranking)
	return ranking, nil
}

// replayMatches applies matches to the working players, oldest first,
// updating ratings and records exactly as the recorder would. The stored
// order is most-recent-first, so iteration runs backwards.
func replayMatches(working map[string]*models.Player, matches []*models.Match) {
	for i := len(matches) - 1; i >= 0; i-- {
		match := matches[i]

		resolve := func(ids []string) []elo.Rated {
			side := make([]elo.Rated, 0, len(ids))
			for _, id := range ids {
				if player, ok := working[id]; ok {
					side = append(side, elo.Rated{ID: id, Rating: player.Rating})
				}
			}
			return side
		}
		teamA := resolve(match.TeamA)
		teamB := resolve(match.TeamB)
		// A match where a whole side is unknown to this tournament carries
		// no rating information; skip it rather than rate against nobody.
		if len(teamA) == 0 || len(teamB) == 0 {
			continue
		}

		winner := elo.SideA
		if match.ScoreB > match.ScoreA {
			winner = elo.SideB
		}
		newRatings := elo.ComputeRatings(teamA, teamB, winner)

		apply := func(side []elo.Rated, won bool) {
			for _, rated := range side {
				player := working[rated.ID]
				player.Rating = newRatings[rated.ID]
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
			}
		}
		apply(teamA, winner == elo.SideA)
		apply(teamB, winner == elo.SideB)
	}
}

// replayRatings is the ratings-only replay used when an autonomous
// tournament needs base ratings for a new match.
func replayRatings(working map[string]int, matches []*models.Match) {
	players := make(map[string]*models.Player, len(working))
	for id, rating := range working {
		players[id] = &models.Player{Rating: rating}
	}
	replayMatches(players, matches)
	for id, player := range players {
		working[id] = player.Rating
	}
}

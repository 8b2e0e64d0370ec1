package services

import (
	"context"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	userRepo    repositories.UserRepository
	anonRepo    repositories.AnonymousUserRepository
	leagueRepo  repositories.LeagueRepository
	tournRepo   repositories.TournamentRepository
	matchRepo   repositories.MatchRepository
	receiptRepo repositories.MergeReceiptRepository
}

func NewDashboardService(
	userRepo repositories.UserRepository,
	anonRepo repositories.AnonymousUserRepository,
	leagueRepo repositories.LeagueRepository,
	tournRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	receiptRepo repositories.MergeReceiptRepository,
) DashboardService {
	return &dashboardService{
		userRepo:    userRepo,
		anonRepo:    anonRepo,
		leagueRepo:  leagueRepo,
		tournRepo:   tournRepo,
		matchRepo:   matchRepo,
		receiptRepo: receiptRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats

	g, gCtx := errgroup.WithContext(ctx)
	count := func(dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(gCtx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&stats.UsersTotal, s.userRepo.Count)
	count(&stats.AnonymousUsersTotal, s.anonRepo.Count)
	count(&stats.LeaguesTotal, s.leagueRepo.Count)
	count(&stats.TournamentsTotal, s.tournRepo.Count)
	count(&stats.MatchesTotal, s.matchRepo.Count)
	count(&stats.MergesTotal, s.receiptRepo.Count)

	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
)

// MergeService migrates every record owned by an anonymous identity onto an
// authenticated one. The migration is a saga: an ordered sequence of
// individually idempotent steps with one point of no return (marking the
// anonymous identity merged). There is no multi-table transaction and no
// rollback; a failed step aborts the invocation and leaves prior steps'
// effects in place. Re-invoking after the mark step succeeded is safe: the
// profile exists, the anonymous-owned rows are gone, and the remaining
// steps degrade to no-ops.
type MergeService interface {
	Merge(ctx context.Context, anonymousUserID, userID, displayName string) error
	Receipt(ctx context.Context, anonymousUserID string) (*models.MergeReceipt, error)
}

type mergeStep struct {
	name string
	run  func(ctx context.Context) error
}

type mergeService struct {
	userRepo    repositories.UserRepository
	anonRepo    repositories.AnonymousUserRepository
	playerRepo  repositories.PlayerRepository
	memberRepo  repositories.TournamentMemberRepository
	matchRepo   repositories.MatchRepository
	historyRepo repositories.RatingHistoryRepository
	leagueRepo  repositories.LeagueRepository
	tournRepo   repositories.TournamentRepository
	receiptRepo repositories.MergeReceiptRepository
	logger      *slog.Logger
}

func NewMergeService(
	userRepo repositories.UserRepository,
	anonRepo repositories.AnonymousUserRepository,
	playerRepo repositories.PlayerRepository,
	memberRepo repositories.TournamentMemberRepository,
	matchRepo repositories.MatchRepository,
	historyRepo repositories.RatingHistoryRepository,
	leagueRepo repositories.LeagueRepository,
	tournRepo repositories.TournamentRepository,
	receiptRepo repositories.MergeReceiptRepository,
	logger *slog.Logger,
) MergeService {
	return &mergeService{
		userRepo:    userRepo,
		anonRepo:    anonRepo,
		playerRepo:  playerRepo,
		memberRepo:  memberRepo,
		matchRepo:   matchRepo,
		historyRepo: historyRepo,
		leagueRepo:  leagueRepo,
		tournRepo:   tournRepo,
		receiptRepo: receiptRepo,
		logger:      logger,
	}
}

func (s *mergeService) Merge(ctx context.Context, anonymousUserID, userID, displayName string) error {
	steps := []mergeStep{
		{"ensure-profile", func(ctx context.Context) error {
			return s.ensureProfile(ctx, userID, displayName)
		}},
		{"mark-anonymous-merged", func(ctx context.Context) error {
			return s.markMerged(ctx, anonymousUserID, userID)
		}},
		{"migrate-league-memberships", func(ctx context.Context) error {
			return s.migrateLeagueMemberships(ctx, anonymousUserID, userID)
		}},
		{"migrate-tournament-memberships", func(ctx context.Context) error {
			return s.migrateTournamentMemberships(ctx, anonymousUserID, userID)
		}},
		{"migrate-matches", func(ctx context.Context) error {
			return s.migrateMatches(ctx, anonymousUserID, userID)
		}},
		{"migrate-rating-history", func(ctx context.Context) error {
			return s.historyRepo.ReassignOwner(ctx, anonymousUserID, userID)
		}},
		{"migrate-creator-references", func(ctx context.Context) error {
			return s.migrateCreatorReferences(ctx, anonymousUserID, userID)
		}},
		{"record-receipt", func(ctx context.Context) error {
			return s.recordReceipt(ctx, anonymousUserID, userID)
		}},
	}

	for i, step := range steps {
		if err := step.run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "identity merge aborted",
				slog.String("step", step.name),
				slog.Int("steps_completed", i),
				slog.String("anonymous_user_id", anonymousUserID),
				slog.String("user_id", userID),
				slog.Any("error", err))
			return fmt.Errorf("merge step %s: %w", step.name, err)
		}
	}

	s.logger.InfoContext(ctx, "identity merge completed",
		slog.String("anonymous_user_id", anonymousUserID),
		slog.String("user_id", userID))
	return nil
}

func (s *mergeService) Receipt(ctx context.Context, anonymousUserID string) (*models.MergeReceipt, error) {
	receipt, err := s.receiptRepo.GetByAnonymousUser(ctx, anonymousUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrMergeReceiptNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return receipt, nil
}

// ensureProfile creates the authenticated profile when it does not exist
// yet. Nothing may be migrated without an owning profile.
func (s *mergeService) ensureProfile(ctx context.Context, userID, displayName string) error {
	_, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return fmt.Errorf("failed to look up profile: %w", err)
	}

	user := &models.User{ID: userID, DisplayName: displayName}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent creation of the same profile is fine.
		if errors.Is(err, repositories.ErrUserIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// markMerged is the point of no return. The update is conditional on the
// identity being un-merged; a no-op caused by an earlier merge into the
// same account means this invocation is a safe re-entry, while a merge
// into a different account is an error.
func (s *mergeService) markMerged(ctx context.Context, anonymousUserID, userID string) error {
	err := s.anonRepo.MarkMerged(ctx, anonymousUserID, userID, time.Now().UTC())
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrAnonymousUserAlreadyMerged) {
		anon, getErr := s.anonRepo.GetByID(ctx, anonymousUserID)
		if getErr != nil {
			return getErr
		}
		if anon.MergedIntoUserID != nil && *anon.MergedIntoUserID == userID {
			s.logger.InfoContext(ctx, "anonymous identity already merged into this account, continuing",
				slog.String("anonymous_user_id", anonymousUserID))
			return nil
		}
		return ErrAlreadyMergedElsewhere
	}
	if errors.Is(err, repositories.ErrAnonymousUserNotFound) {
		return ErrAnonymousUserNotFound
	}
	return err
}

// migrateLeagueMemberships rewrites each anonymous-owned membership row to
// the authenticated identity. When the authenticated identity already
// belongs to the same league its existing membership wins and the
// anonymous duplicate is discarded.
func (s *mergeService) migrateLeagueMemberships(ctx context.Context, anonymousUserID, userID string) error {
	players, err := s.playerRepo.ListByAnonymousUser(ctx, anonymousUserID)
	if err != nil {
		return fmt.Errorf("failed to list league memberships: %w", err)
	}

	for _, player := range players {
		_, err := s.playerRepo.GetByLeagueAndUser(ctx, player.LeagueID, userID)
		switch {
		case err == nil:
			if err := s.playerRepo.Delete(ctx, player.ID); err != nil {
				return fmt.Errorf("failed to discard duplicate membership in league %d: %w", player.LeagueID, err)
			}
		case errors.Is(err, repositories.ErrPlayerNotFound):
			if err := s.playerRepo.ReassignOwner(ctx, player.ID, userID); err != nil {
				return fmt.Errorf("failed to reassign membership in league %d: %w", player.LeagueID, err)
			}
		default:
			return fmt.Errorf("failed to check membership in league %d: %w", player.LeagueID, err)
		}
	}
	return nil
}

func (s *mergeService) migrateTournamentMemberships(ctx context.Context, anonymousUserID, userID string) error {
	members, err := s.memberRepo.ListByAnonymousUser(ctx, anonymousUserID)
	if err != nil {
		return fmt.Errorf("failed to list tournament memberships: %w", err)
	}

	for _, member := range members {
		_, err := s.memberRepo.GetByTournamentAndUser(ctx, member.TournamentID, userID)
		switch {
		case err == nil:
			if err := s.memberRepo.Delete(ctx, member.ID); err != nil {
				return fmt.Errorf("failed to discard duplicate membership in tournament %d: %w", member.TournamentID, err)
			}
		case errors.Is(err, repositories.ErrTournamentMemberNotFound):
			if err := s.memberRepo.ReassignOwner(ctx, member.ID, userID); err != nil {
				return fmt.Errorf("failed to reassign membership in tournament %d: %w", member.TournamentID, err)
			}
		default:
			return fmt.Errorf("failed to check membership in tournament %d: %w", member.TournamentID, err)
		}
	}
	return nil
}

// migrateMatches replaces the anonymous id inside every match's team
// arrays and delta map. Team membership is filtered here in application
// logic; array containment is not assumed to be indexable, and at this
// data scale correctness beats the scan cost.
func (s *mergeService) migrateMatches(ctx context.Context, anonymousUserID, userID string) error {
	matches, err := s.matchRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan matches: %w", err)
	}

	for _, match := range matches {
		if !match.HasParticipant(anonymousUserID) {
			continue
		}

		teamA := replaceID(match.TeamA, anonymousUserID, userID)
		teamB := replaceID(match.TeamB, anonymousUserID, userID)

		deltas := match.Deltas
		if delta, ok := deltas[anonymousUserID]; ok {
			deltas = make(map[string]int, len(match.Deltas))
			for id, d := range match.Deltas {
				deltas[id] = d
			}
			delete(deltas, anonymousUserID)
			deltas[userID] = delta
		}

		if err := s.matchRepo.UpdateTeams(ctx, match.ID, teamA, teamB, deltas); err != nil {
			return fmt.Errorf("failed to rewrite match %d: %w", match.ID, err)
		}
	}
	return nil
}

func (s *mergeService) migrateCreatorReferences(ctx context.Context, anonymousUserID, userID string) error {
	if err := s.leagueRepo.ReassignCreator(ctx, anonymousUserID, userID); err != nil {
		return fmt.Errorf("failed to reassign league creators: %w", err)
	}
	if err := s.tournRepo.ReassignCreator(ctx, anonymousUserID, userID); err != nil {
		return fmt.Errorf("failed to reassign tournament creators: %w", err)
	}
	if err := s.matchRepo.ReassignCreator(ctx, anonymousUserID, userID); err != nil {
		return fmt.Errorf("failed to reassign match creators: %w", err)
	}
	return nil
}

// recordReceipt writes the audit row. A conflict means a previous
// invocation already completed for this identity, which is exactly the
// state the receipt exists to signal.
func (s *mergeService) recordReceipt(ctx context.Context, anonymousUserID, userID string) error {
	receipt := &models.MergeReceipt{
		AnonymousUserID: anonymousUserID,
		UserID:          userID,
		Migrated:        true,
	}
	err := s.receiptRepo.Create(ctx, receipt)
	if errors.Is(err, repositories.ErrMergeReceiptConflict) {
		return nil
	}
	return err
}

func replaceID(ids []string, from, to string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if id == from {
			out[i] = to
		} else {
			out[i] = id
		}
	}
	return out
}

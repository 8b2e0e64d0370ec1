package services

import (
	"context"
	"errors"
	"testing"

	"github.com/floppyflax/beer-pong-league-sub000/elo"
	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mergeFixture struct {
	userRepo    *fakeUserRepo
	anonRepo    *fakeAnonymousUserRepo
	playerRepo  *fakePlayerRepo
	memberRepo  *fakeTournamentMemberRepo
	matchRepo   *fakeMatchRepo
	historyRepo *fakeRatingHistoryRepo
	leagueRepo  *fakeLeagueRepo
	tournRepo   *fakeTournamentRepo
	receiptRepo *fakeMergeReceiptRepo
	service     MergeService
}

func newMergeFixture() *mergeFixture {
	f := &mergeFixture{
		userRepo:    newFakeUserRepo(),
		anonRepo:    newFakeAnonymousUserRepo(),
		playerRepo:  newFakePlayerRepo(),
		memberRepo:  newFakeTournamentMemberRepo(),
		matchRepo:   newFakeMatchRepo(),
		historyRepo: newFakeRatingHistoryRepo(),
		leagueRepo:  newFakeLeagueRepo(),
		tournRepo:   newFakeTournamentRepo(),
		receiptRepo: newFakeMergeReceiptRepo(),
	}
	f.rebuild()
	return f
}

func (f *mergeFixture) rebuild() {
	f.service = NewMergeService(
		f.userRepo,
		f.anonRepo,
		f.playerRepo,
		f.memberRepo,
		f.matchRepo,
		f.historyRepo,
		f.leagueRepo,
		f.tournRepo,
		f.receiptRepo,
		newTestLogger(),
	)
}

func (f *mergeFixture) addAnon(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.anonRepo.Create(context.Background(), &models.AnonymousUser{
		ID:          id,
		DisplayName: id,
	}))
}

func TestMerge_MigratesEverythingOwnedByAnonymousIdentity(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	f.addAnon(t, "anon-1")

	league := &models.League{Name: "Garage", Type: models.LeagueTypeSeason, CreatorAnonymousUserID: strPtr("anon-1")}
	require.NoError(t, f.leagueRepo.Create(ctx, league))
	require.NoError(t, f.playerRepo.Create(ctx, &models.Player{
		LeagueID:        league.ID,
		AnonymousUserID: strPtr("anon-1"),
		DisplayName:     "anon-1",
		Rating:          1032,
		Wins:            2,
	}))

	tournament := &models.Tournament{Name: "Open", CreatorAnonymousUserID: strPtr("anon-1")}
	require.NoError(t, f.tournRepo.Create(ctx, tournament))
	require.NoError(t, f.memberRepo.Create(ctx, &models.TournamentMember{
		TournamentID:    tournament.ID,
		AnonymousUserID: strPtr("anon-1"),
	}))

	require.NoError(t, f.matchRepo.Create(ctx, nil, &models.Match{
		LeagueID: intPtr(league.ID),
		TeamA:    []string{"anon-1"},
		TeamB:    []string{"other"},
		ScoreA:   models.WinningScore,
		ScoreB:   models.LosingScore,
		Deltas:   map[string]int{"anon-1": 16, "other": -16},
	}))
	require.NoError(t, f.historyRepo.Create(ctx, nil, &models.RatingHistoryEntry{
		LeagueID:        league.ID,
		MatchID:         1,
		AnonymousUserID: strPtr("anon-1"),
		Rating:          1016,
		Delta:           16,
	}))

	require.NoError(t, f.service.Merge(ctx, "anon-1", "user-1", "Anna"))

	// Profile and terminal mark.
	user, err := f.userRepo.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Anna", user.DisplayName)
	anon, err := f.anonRepo.GetByID(ctx, "anon-1")
	require.NoError(t, err)
	require.NotNil(t, anon.MergedIntoUserID)
	assert.Equal(t, "user-1", *anon.MergedIntoUserID)
	assert.NotNil(t, anon.MergedAt)

	// League membership carries the earned rating and record.
	player, err := f.playerRepo.GetByLeagueAndUser(ctx, league.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1032, player.Rating)
	assert.Equal(t, 2, player.Wins)
	assert.Nil(t, player.AnonymousUserID)

	// Tournament membership is rewritten in place.
	member, err := f.memberRepo.GetByTournamentAndUser(ctx, tournament.ID, "user-1")
	require.NoError(t, err)
	assert.Nil(t, member.AnonymousUserID)

	// Match team arrays and delta keys point at the user now.
	match, err := f.matchRepo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, match.TeamA)
	assert.Contains(t, match.Deltas, "user-1")
	assert.NotContains(t, match.Deltas, "anon-1")
	assert.Equal(t, 16, match.Deltas["user-1"])
	assert.Equal(t, -16, match.Deltas["other"])

	// Rating history rows follow.
	history, err := f.historyRepo.ListByLeagueAndUser(ctx, league.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	// Creator references follow.
	gotLeague, _ := f.leagueRepo.GetByID(ctx, league.ID)
	require.NotNil(t, gotLeague.CreatorUserID)
	assert.Equal(t, "user-1", *gotLeague.CreatorUserID)
	assert.Nil(t, gotLeague.CreatorAnonymousUserID)
	gotTournament, _ := f.tournRepo.GetByID(ctx, tournament.ID)
	require.NotNil(t, gotTournament.CreatorUserID)
	assert.Equal(t, "user-1", *gotTournament.CreatorUserID)

	// Receipt present.
	receipt, err := f.service.Receipt(ctx, "anon-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", receipt.UserID)
	assert.True(t, receipt.Migrated)
}

func TestMerge_SecondInvocationSamePairIsNoop(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	f.addAnon(t, "anon-1")

	league := &models.League{Name: "Garage", Type: models.LeagueTypeEvent}
	require.NoError(t, f.leagueRepo.Create(ctx, league))
	require.NoError(t, f.playerRepo.Create(ctx, &models.Player{
		LeagueID:        league.ID,
		AnonymousUserID: strPtr("anon-1"),
		DisplayName:     "anon-1",
		Rating:          elo.DefaultRating,
	}))

	require.NoError(t, f.service.Merge(ctx, "anon-1", "user-1", "Anna"))
	require.NoError(t, f.service.Merge(ctx, "anon-1", "user-1", "Anna"))

	players, err := f.playerRepo.ListByLeague(ctx, nil, league.ID)
	require.NoError(t, err)
	assert.Len(t, players, 1, "re-running the merge must not duplicate memberships")

	count, err := f.receiptRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMerge_IntoDifferentAccountRejected(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	f.addAnon(t, "anon-1")

	require.NoError(t, f.service.Merge(ctx, "anon-1", "user-1", "Anna"))

	err := f.service.Merge(ctx, "anon-1", "user-2", "Boris")
	assert.ErrorIs(t, err, ErrAlreadyMergedElsewhere)
}

func TestMerge_UnknownAnonymousIdentity(t *testing.T) {
	f := newMergeFixture()

	err := f.service.Merge(context.Background(), "nope", "user-1", "Anna")
	assert.ErrorIs(t, err, ErrAnonymousUserNotFound)
}

func TestMerge_DuplicateLeagueMembershipKeepsUserRow(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	f.addAnon(t, "anon-1")

	league := &models.League{Name: "Garage", Type: models.LeagueTypeSeason}
	require.NoError(t, f.leagueRepo.Create(ctx, league))
	require.NoError(t, f.playerRepo.Create(ctx, &models.Player{
		LeagueID:    league.ID,
		UserID:      strPtr("user-1"),
		DisplayName: "Anna",
		Rating:      1100,
	}))
	require.NoError(t, f.playerRepo.Create(ctx, &models.Player{
		LeagueID:        league.ID,
		AnonymousUserID: strPtr("anon-1"),
		DisplayName:     "anon-1",
		Rating:          950,
	}))

	require.NoError(t, f.service.Merge(ctx, "anon-1", "user-1", "Anna"))

	players, err := f.playerRepo.ListByLeague(ctx, nil, league.ID)
	require.NoError(t, err)
	require.Len(t, players, 1, "the anonymous duplicate must be discarded")
	assert.Equal(t, 1100, players[0].Rating, "the existing user membership wins")
}

func TestMerge_AbortsBeforeMarkWhenProfileStepFails(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	f.addAnon(t, "anon-1")

	boom := errors.New("store unavailable")
	broken := &failingUserRepo{fakeUserRepo: f.userRepo, err: boom}
	f.service = NewMergeService(
		broken,
		f.anonRepo,
		f.playerRepo,
		f.memberRepo,
		f.matchRepo,
		f.historyRepo,
		f.leagueRepo,
		f.tournRepo,
		f.receiptRepo,
		newTestLogger(),
	)

	err := f.service.Merge(ctx, "anon-1", "user-1", "Anna")
	require.ErrorIs(t, err, boom)

	// Nothing past step one ran: the identity is still un-merged and may be
	// claimed later.
	anon, getErr := f.anonRepo.GetByID(ctx, "anon-1")
	require.NoError(t, getErr)
	assert.Nil(t, anon.MergedIntoUserID)
	count, _ := f.receiptRepo.Count(ctx)
	assert.Equal(t, 0, count)
}

func TestMerge_FailureAfterMarkLeavesIdentityMarked(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	f.addAnon(t, "anon-1")

	boom := errors.New("store unavailable")
	broken := &failingMatchRepo{fakeMatchRepo: f.matchRepo, err: boom}
	f.service = NewMergeService(
		f.userRepo,
		f.anonRepo,
		f.playerRepo,
		f.memberRepo,
		broken,
		f.historyRepo,
		f.leagueRepo,
		f.tournRepo,
		f.receiptRepo,
		newTestLogger(),
	)

	err := f.service.Merge(ctx, "anon-1", "user-1", "Anna")
	require.ErrorIs(t, err, boom)

	// Past the point of no return: the mark stays, and a retry with the same
	// account succeeds once the store recovers.
	anon, getErr := f.anonRepo.GetByID(ctx, "anon-1")
	require.NoError(t, getErr)
	require.NotNil(t, anon.MergedIntoUserID)
	assert.Equal(t, "user-1", *anon.MergedIntoUserID)

	f.rebuild()
	require.NoError(t, f.service.Merge(ctx, "anon-1", "user-1", "Anna"))
	receipt, receiptErr := f.service.Receipt(ctx, "anon-1")
	require.NoError(t, receiptErr)
	assert.True(t, receipt.Migrated)
}

func TestReceipt_NotFound(t *testing.T) {
	f := newMergeFixture()

	_, err := f.service.Receipt(context.Background(), "never-merged")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingUserRepo struct {
	*fakeUserRepo
	err error
}

func (r *failingUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, r.err
}

type failingMatchRepo struct {
	*fakeMatchRepo
	err error
}

func (r *failingMatchRepo) ListAll(ctx context.Context) ([]*models.Match, error) {
	return nil, r.err
}

var _ repositories.UserRepository = (*failingUserRepo)(nil)
var _ repositories.MatchRepository = (*failingMatchRepo)(nil)

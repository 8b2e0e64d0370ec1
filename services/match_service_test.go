package services

import (
	"context"
	"testing"

	"github.com/floppyflax/beer-pong-league-sub000/elo"
	"github.com/floppyflax/beer-pong-league-sub000/live"
	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matchServiceFixture struct {
	leagueRepo  *fakeLeagueRepo
	tournRepo   *fakeTournamentRepo
	memberRepo  *fakeTournamentMemberRepo
	playerRepo  *fakePlayerRepo
	matchRepo   *fakeMatchRepo
	historyRepo *fakeRatingHistoryRepo
	hub         *fakeBroadcaster
	service     MatchService
}

func newMatchServiceFixture() *matchServiceFixture {
	f := &matchServiceFixture{
		leagueRepo:  newFakeLeagueRepo(),
		tournRepo:   newFakeTournamentRepo(),
		memberRepo:  newFakeTournamentMemberRepo(),
		playerRepo:  newFakePlayerRepo(),
		matchRepo:   newFakeMatchRepo(),
		historyRepo: newFakeRatingHistoryRepo(),
		hub:         &fakeBroadcaster{},
	}
	f.service = NewMatchService(
		fakeTxRunner{},
		f.leagueRepo,
		f.tournRepo,
		f.memberRepo,
		f.playerRepo,
		f.matchRepo,
		f.historyRepo,
		f.hub,
		newTestLogger(),
	)
	return f
}

func (f *matchServiceFixture) addLeague(t *testing.T) *models.League {
	t.Helper()
	league := &models.League{Name: "Garage League", Type: models.LeagueTypeSeason}
	require.NoError(t, f.leagueRepo.Create(context.Background(), league))
	return league
}

func (f *matchServiceFixture) addPlayer(t *testing.T, leagueID int, identityID string, rating int) *models.Player {
	t.Helper()
	player := &models.Player{
		LeagueID:        leagueID,
		AnonymousUserID: strPtr(identityID),
		DisplayName:     identityID,
		Rating:          rating,
	}
	require.NoError(t, f.playerRepo.Create(context.Background(), player))
	return player
}

func TestRecordLeagueMatch_OneVsOneEqualRatings(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", elo.DefaultRating)
	f.addPlayer(t, league.ID, "bob", elo.DefaultRating)

	deltas, err := f.service.RecordLeagueMatch(context.Background(), league.ID, RecordMatchInput{
		TeamA:  []string{"alice"},
		TeamB:  []string{"bob"},
		Winner: elo.SideA,
	})
	require.NoError(t, err)

	assert.Equal(t, 16, deltas["alice"])
	assert.Equal(t, -16, deltas["bob"])

	players, err := f.playerRepo.ListByLeague(context.Background(), nil, league.ID)
	require.NoError(t, err)
	byID := make(map[string]*models.Player)
	for _, p := range players {
		byID[p.IdentityID()] = p
	}

	assert.Equal(t, 1016, byID["alice"].Rating)
	assert.Equal(t, 1, byID["alice"].Wins)
	assert.Equal(t, 0, byID["alice"].Losses)
	assert.Equal(t, 1, byID["alice"].MatchesPlayed)
	assert.Equal(t, 1, byID["alice"].Streak)

	assert.Equal(t, 984, byID["bob"].Rating)
	assert.Equal(t, 0, byID["bob"].Wins)
	assert.Equal(t, 1, byID["bob"].Losses)
	assert.Equal(t, -1, byID["bob"].Streak)
}

func TestRecordLeagueMatch_PersistsMatchAndHistory(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", elo.DefaultRating)
	f.addPlayer(t, league.ID, "bob", elo.DefaultRating)

	_, err := f.service.RecordLeagueMatch(context.Background(), league.ID, RecordMatchInput{
		TeamA:  []string{"alice"},
		TeamB:  []string{"bob"},
		Winner: elo.SideB,
	})
	require.NoError(t, err)

	matches, err := f.matchRepo.ListByLeague(context.Background(), league.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.LosingScore, matches[0].ScoreA)
	assert.Equal(t, models.WinningScore, matches[0].ScoreB)
	assert.Nil(t, matches[0].TournamentID)

	require.Len(t, f.historyRepo.entries, 2)
	for _, entry := range f.historyRepo.entries {
		assert.Equal(t, league.ID, entry.LeagueID)
		assert.Equal(t, matches[0].ID, entry.MatchID)
	}
}

func TestRecordLeagueMatch_StreakFlipsOnLoss(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", elo.DefaultRating)
	f.addPlayer(t, league.ID, "bob", elo.DefaultRating)

	input := RecordMatchInput{TeamA: []string{"alice"}, TeamB: []string{"bob"}, Winner: elo.SideA}
	_, err := f.service.RecordLeagueMatch(context.Background(), league.ID, input)
	require.NoError(t, err)
	_, err = f.service.RecordLeagueMatch(context.Background(), league.ID, input)
	require.NoError(t, err)

	input.Winner = elo.SideB
	_, err = f.service.RecordLeagueMatch(context.Background(), league.ID, input)
	require.NoError(t, err)

	players, _ := f.playerRepo.ListByLeague(context.Background(), nil, league.ID)
	byID := make(map[string]*models.Player)
	for _, p := range players {
		byID[p.IdentityID()] = p
	}

	assert.Equal(t, -1, byID["alice"].Streak)
	assert.Equal(t, 1, byID["bob"].Streak)
	assert.Equal(t, 2, byID["alice"].Wins)
	assert.Equal(t, 1, byID["alice"].Losses)
	assert.Equal(t, 3, byID["alice"].MatchesPlayed)
}

func TestRecordLeagueMatch_TeamDeltaIsUniform(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", 1100)
	f.addPlayer(t, league.ID, "bob", 900)
	f.addPlayer(t, league.ID, "carol", 1000)
	f.addPlayer(t, league.ID, "dave", 1000)

	deltas, err := f.service.RecordLeagueMatch(context.Background(), league.ID, RecordMatchInput{
		TeamA:  []string{"alice", "bob"},
		TeamB:  []string{"carol", "dave"},
		Winner: elo.SideA,
	})
	require.NoError(t, err)

	// Team averages are equal, so the winning side gains exactly K/2 and
	// every teammate moves by the same amount.
	assert.Equal(t, 16, deltas["alice"])
	assert.Equal(t, 16, deltas["bob"])
	assert.Equal(t, -16, deltas["carol"])
	assert.Equal(t, -16, deltas["dave"])
}

func TestRecordLeagueMatch_UnknownParticipantSkipped(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", elo.DefaultRating)
	f.addPlayer(t, league.ID, "bob", elo.DefaultRating)

	deltas, err := f.service.RecordLeagueMatch(context.Background(), league.ID, RecordMatchInput{
		TeamA:  []string{"alice", "ghost"},
		TeamB:  []string{"bob"},
		Winner: elo.SideA,
	})
	require.NoError(t, err)

	_, ok := deltas["ghost"]
	assert.False(t, ok, "unknown participant must not receive a delta")
	assert.Contains(t, deltas, "alice")
	assert.Contains(t, deltas, "bob")
}

func TestRecordLeagueMatch_WholeSideUnknownLeavesRatings(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", elo.DefaultRating)

	deltas, err := f.service.RecordLeagueMatch(context.Background(), league.ID, RecordMatchInput{
		TeamA:  []string{"alice"},
		TeamB:  []string{"ghost"},
		Winner: elo.SideA,
	})
	require.NoError(t, err)
	assert.Empty(t, deltas, "a match against nobody must not move ratings")

	players, err := f.playerRepo.ListByLeague(context.Background(), nil, league.ID)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, elo.DefaultRating, players[0].Rating)
	assert.Equal(t, 0, players[0].MatchesPlayed)
	assert.Equal(t, 0, players[0].Wins)

	matches, err := f.matchRepo.ListByLeague(context.Background(), league.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].Deltas)
	assert.Empty(t, f.historyRepo.entries)
}

func TestRecordLeagueMatch_Validation(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)

	cases := []struct {
		name    string
		input   RecordMatchInput
		wantErr error
	}{
		{"empty team", RecordMatchInput{TeamA: []string{}, TeamB: []string{"b"}, Winner: elo.SideA}, ErrMatchTeamsRequired},
		{"overlapping teams", RecordMatchInput{TeamA: []string{"a"}, TeamB: []string{"a"}, Winner: elo.SideA}, ErrMatchTeamsOverlap},
		{"duplicate in team A", RecordMatchInput{TeamA: []string{"a", "a"}, TeamB: []string{"b"}, Winner: elo.SideA}, ErrMatchTeamDuplicate},
		{"duplicate in team B", RecordMatchInput{TeamA: []string{"a"}, TeamB: []string{"b", "b"}, Winner: elo.SideA}, ErrMatchTeamDuplicate},
		{"bad winner", RecordMatchInput{TeamA: []string{"a"}, TeamB: []string{"b"}, Winner: elo.Side("C")}, ErrMatchWinnerInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.RecordLeagueMatch(context.Background(), league.ID, tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRecordLeagueMatch_DuplicateTeammateDoesNotDoubleCount(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", elo.DefaultRating)
	f.addPlayer(t, league.ID, "bob", elo.DefaultRating)

	_, err := f.service.RecordLeagueMatch(context.Background(), league.ID, RecordMatchInput{
		TeamA:  []string{"alice", "alice"},
		TeamB:  []string{"bob"},
		Winner: elo.SideA,
	})
	assert.ErrorIs(t, err, ErrMatchTeamDuplicate)

	players, _ := f.playerRepo.ListByLeague(context.Background(), nil, league.ID)
	for _, p := range players {
		assert.Equal(t, 0, p.MatchesPlayed)
		assert.Equal(t, 0, p.Wins)
	}
	matches, _ := f.matchRepo.ListByLeague(context.Background(), league.ID)
	assert.Empty(t, matches)
}

func TestRecordLeagueMatch_LeagueNotFound(t *testing.T) {
	f := newMatchServiceFixture()

	_, err := f.service.RecordLeagueMatch(context.Background(), 42, RecordMatchInput{
		TeamA:  []string{"a"},
		TeamB:  []string{"b"},
		Winner: elo.SideA,
	})
	assert.ErrorIs(t, err, ErrLeagueNotFound)
}

func TestRecordLeagueMatch_BroadcastsToLeagueRoom(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", elo.DefaultRating)
	f.addPlayer(t, league.ID, "bob", elo.DefaultRating)

	_, err := f.service.RecordLeagueMatch(context.Background(), league.ID, RecordMatchInput{
		TeamA:  []string{"alice"},
		TeamB:  []string{"bob"},
		Winner: elo.SideA,
	})
	require.NoError(t, err)

	require.Len(t, f.hub.messages, 2)
	assert.Equal(t, live.EventMatchRecorded, f.hub.messages[0].Type)
	assert.Equal(t, live.EventRankingUpdated, f.hub.messages[1].Type)
	assert.Equal(t, "league:1", f.hub.messages[0].Room)
}

func TestRecordTournamentMatch_LinkedUpdatesLeague(t *testing.T) {
	f := newMatchServiceFixture()
	league := f.addLeague(t)
	f.addPlayer(t, league.ID, "alice", elo.DefaultRating)
	f.addPlayer(t, league.ID, "bob", elo.DefaultRating)

	tournament := &models.Tournament{Name: "Friday Night", LeagueID: intPtr(league.ID)}
	require.NoError(t, f.tournRepo.Create(context.Background(), tournament))

	deltas, err := f.service.RecordTournamentMatch(context.Background(), tournament.ID, RecordMatchInput{
		TeamA:  []string{"alice"},
		TeamB:  []string{"bob"},
		Winner: elo.SideA,
	})
	require.NoError(t, err)
	assert.Equal(t, 16, deltas["alice"])

	// One row, visible from both the league's and the tournament's lists.
	leagueMatches, _ := f.matchRepo.ListByLeague(context.Background(), league.ID)
	tournamentMatches, _ := f.matchRepo.ListByTournament(context.Background(), tournament.ID)
	require.Len(t, leagueMatches, 1)
	require.Len(t, tournamentMatches, 1)
	assert.Equal(t, leagueMatches[0].ID, tournamentMatches[0].ID)

	// The league players' persisted ratings moved.
	players, _ := f.playerRepo.ListByLeague(context.Background(), nil, league.ID)
	byID := make(map[string]*models.Player)
	for _, p := range players {
		byID[p.IdentityID()] = p
	}
	assert.Equal(t, 1016, byID["alice"].Rating)
	assert.Equal(t, 984, byID["bob"].Rating)
}

func TestRecordTournamentMatch_AutonomousUsesReplayedBase(t *testing.T) {
	f := newMatchServiceFixture()

	tournament := &models.Tournament{Name: "One Off"}
	require.NoError(t, f.tournRepo.Create(context.Background(), tournament))
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, f.memberRepo.Create(context.Background(), &models.TournamentMember{
			TournamentID:    tournament.ID,
			AnonymousUserID: strPtr(id),
		}))
	}

	input := RecordMatchInput{TeamA: []string{"alice"}, TeamB: []string{"bob"}, Winner: elo.SideA}

	first, err := f.service.RecordTournamentMatch(context.Background(), tournament.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 16, first["alice"])

	// Second match starts from the replayed ratings (1016 vs 984), so the
	// favorite gains less than 16.
	second, err := f.service.RecordTournamentMatch(context.Background(), tournament.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 15, second["alice"])
	assert.Equal(t, -15, second["bob"])
}

func TestRecordTournamentMatch_WholeSideUnknownLeavesRatings(t *testing.T) {
	f := newMatchServiceFixture()

	tournament := &models.Tournament{Name: "One Off"}
	require.NoError(t, f.tournRepo.Create(context.Background(), tournament))
	require.NoError(t, f.memberRepo.Create(context.Background(), &models.TournamentMember{
		TournamentID:    tournament.ID,
		AnonymousUserID: strPtr("alice"),
	}))

	deltas, err := f.service.RecordTournamentMatch(context.Background(), tournament.ID, RecordMatchInput{
		TeamA:  []string{"alice"},
		TeamB:  []string{"ghost"},
		Winner: elo.SideA,
	})
	require.NoError(t, err)
	assert.Empty(t, deltas, "a match against nobody must not move ratings")

	matches, err := f.matchRepo.ListByTournament(context.Background(), tournament.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].Deltas)
}

func TestRecordTournamentMatch_FinishedRejected(t *testing.T) {
	f := newMatchServiceFixture()
	tournament := &models.Tournament{Name: "Done", Finished: true}
	require.NoError(t, f.tournRepo.Create(context.Background(), tournament))

	_, err := f.service.RecordTournamentMatch(context.Background(), tournament.ID, RecordMatchInput{
		TeamA:  []string{"a"},
		TeamB:  []string{"b"},
		Winner: elo.SideA,
	})
	assert.ErrorIs(t, err, ErrTournamentFinished)
}

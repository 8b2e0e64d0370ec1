package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/floppyflax/beer-pong-league-sub000/live"
	"github.com/floppyflax/beer-pong-league-sub000/models"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
)

// In-memory repository fakes. They mirror the behavior the Postgres
// implementations promise, including sentinel errors and the
// most-recent-first ordering of match lists.

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeBroadcaster struct {
	messages []live.Message
}

func (b *fakeBroadcaster) BroadcastToRoom(room string, message live.Message) {
	b.messages = append(b.messages, message)
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; ok {
		return repositories.ErrUserIDConflict
	}
	for _, existing := range r.users {
		if existing.Email != nil && user.Email != nil && *existing.Email == *user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email != nil && *user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Count(ctx context.Context) (int, error) {
	return len(r.users), nil
}

type fakeAnonymousUserRepo struct {
	anons map[string]*models.AnonymousUser
}

func newFakeAnonymousUserRepo() *fakeAnonymousUserRepo {
	return &fakeAnonymousUserRepo{anons: make(map[string]*models.AnonymousUser)}
}

func (r *fakeAnonymousUserRepo) Create(ctx context.Context, anon *models.AnonymousUser) error {
	anon.CreatedAt = time.Now().UTC()
	r.anons[anon.ID] = anon
	return nil
}

func (r *fakeAnonymousUserRepo) GetByID(ctx context.Context, id string) (*models.AnonymousUser, error) {
	anon, ok := r.anons[id]
	if !ok {
		return nil, repositories.ErrAnonymousUserNotFound
	}
	copied := *anon
	return &copied, nil
}

func (r *fakeAnonymousUserRepo) MarkMerged(ctx context.Context, id, userID string, mergedAt time.Time) error {
	anon, ok := r.anons[id]
	if !ok {
		return repositories.ErrAnonymousUserNotFound
	}
	if anon.MergedIntoUserID != nil {
		return repositories.ErrAnonymousUserAlreadyMerged
	}
	anon.MergedIntoUserID = &userID
	anon.MergedAt = &mergedAt
	return nil
}

func (r *fakeAnonymousUserRepo) Count(ctx context.Context) (int, error) {
	return len(r.anons), nil
}

type fakeLeagueRepo struct {
	leagues map[int]*models.League
	nextID  int
}

func newFakeLeagueRepo() *fakeLeagueRepo {
	return &fakeLeagueRepo{leagues: make(map[int]*models.League), nextID: 1}
}

func (r *fakeLeagueRepo) Create(ctx context.Context, league *models.League) error {
	league.ID = r.nextID
	r.nextID++
	league.CreatedAt = time.Now().UTC()
	r.leagues[league.ID] = league
	return nil
}

func (r *fakeLeagueRepo) GetByID(ctx context.Context, id int) (*models.League, error) {
	league, ok := r.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	copied := *league
	return &copied, nil
}

func (r *fakeLeagueRepo) List(ctx context.Context) ([]*models.League, error) {
	out := make([]*models.League, 0, len(r.leagues))
	for _, league := range r.leagues {
		copied := *league
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeLeagueRepo) UpdateName(ctx context.Context, id int, name string) error {
	league, ok := r.leagues[id]
	if !ok {
		return repositories.ErrLeagueNotFound
	}
	league.Name = name
	return nil
}

func (r *fakeLeagueRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	league, ok := r.leagues[id]
	if !ok {
		return repositories.ErrLeagueNotFound
	}
	league.LogoKey = logoKey
	return nil
}

func (r *fakeLeagueRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.leagues[id]; !ok {
		return repositories.ErrLeagueNotFound
	}
	delete(r.leagues, id)
	return nil
}

func (r *fakeLeagueRepo) ReassignCreator(ctx context.Context, anonymousUserID, userID string) error {
	for _, league := range r.leagues {
		if league.CreatorAnonymousUserID != nil && *league.CreatorAnonymousUserID == anonymousUserID {
			league.CreatorUserID = &userID
			league.CreatorAnonymousUserID = nil
		}
	}
	return nil
}

func (r *fakeLeagueRepo) Count(ctx context.Context) (int, error) {
	return len(r.leagues), nil
}

type fakePlayerRepo struct {
	players []*models.Player
	nextID  int
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{nextID: 1}
}

func (r *fakePlayerRepo) Create(ctx context.Context, player *models.Player) error {
	for _, existing := range r.players {
		if existing.LeagueID == player.LeagueID && existing.IdentityID() == player.IdentityID() {
			return repositories.ErrPlayerAlreadyInLeague
		}
	}
	player.ID = r.nextID
	r.nextID++
	player.CreatedAt = time.Now().UTC()
	r.players = append(r.players, player)
	return nil
}

func (r *fakePlayerRepo) ListByLeague(ctx context.Context, exec repositories.SQLExecutor, leagueID int) ([]*models.Player, error) {
	out := make([]*models.Player, 0)
	for _, player := range r.players {
		if player.LeagueID == leagueID {
			out = append(out, player)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) GetByLeagueAndUser(ctx context.Context, leagueID int, userID string) (*models.Player, error) {
	for _, player := range r.players {
		if player.LeagueID == leagueID && player.UserID != nil && *player.UserID == userID {
			return player, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ListByAnonymousUser(ctx context.Context, anonymousUserID string) ([]*models.Player, error) {
	out := make([]*models.Player, 0)
	for _, player := range r.players {
		if player.AnonymousUserID != nil && *player.AnonymousUserID == anonymousUserID {
			out = append(out, player)
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) UpdateStats(ctx context.Context, exec repositories.SQLExecutor, player *models.Player) error {
	for i, existing := range r.players {
		if existing.ID == player.ID {
			r.players[i] = player
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ReassignOwner(ctx context.Context, id int, userID string) error {
	for _, player := range r.players {
		if player.ID == id {
			player.UserID = &userID
			player.AnonymousUserID = nil
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) Delete(ctx context.Context, id int) error {
	for i, player := range r.players {
		if player.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return nil
		}
	}
	return repositories.ErrPlayerNotFound
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	nextID      int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament), nextID: 1}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	tournament.ID = r.nextID
	r.nextID++
	r.tournaments[tournament.ID] = tournament
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *tournament
	return &copied, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context) ([]*models.Tournament, error) {
	out := make([]*models.Tournament, 0, len(r.tournaments))
	for _, tournament := range r.tournaments {
		copied := *tournament
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListIDsByLeague(ctx context.Context, leagueID int) ([]int, error) {
	out := make([]int, 0)
	for id, tournament := range r.tournaments {
		if tournament.LeagueID != nil && *tournament.LeagueID == leagueID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) SetFinished(ctx context.Context, id int, finished bool) error {
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.Finished = finished
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

func (r *fakeTournamentRepo) ReassignCreator(ctx context.Context, anonymousUserID, userID string) error {
	for _, tournament := range r.tournaments {
		if tournament.CreatorAnonymousUserID != nil && *tournament.CreatorAnonymousUserID == anonymousUserID {
			tournament.CreatorUserID = &userID
			tournament.CreatorAnonymousUserID = nil
		}
	}
	return nil
}

func (r *fakeTournamentRepo) Count(ctx context.Context) (int, error) {
	return len(r.tournaments), nil
}

type fakeTournamentMemberRepo struct {
	members []*models.TournamentMember
	nextID  int
}

func newFakeTournamentMemberRepo() *fakeTournamentMemberRepo {
	return &fakeTournamentMemberRepo{nextID: 1}
}

func (r *fakeTournamentMemberRepo) Create(ctx context.Context, member *models.TournamentMember) error {
	for _, existing := range r.members {
		if existing.TournamentID == member.TournamentID && existing.IdentityID() == member.IdentityID() {
			return repositories.ErrTournamentMemberConflict
		}
	}
	member.ID = r.nextID
	r.nextID++
	member.CreatedAt = time.Now().UTC()
	r.members = append(r.members, member)
	return nil
}

func (r *fakeTournamentMemberRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentMember, error) {
	out := make([]*models.TournamentMember, 0)
	for _, member := range r.members {
		if member.TournamentID == tournamentID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (r *fakeTournamentMemberRepo) GetByTournamentAndUser(ctx context.Context, tournamentID int, userID string) (*models.TournamentMember, error) {
	for _, member := range r.members {
		if member.TournamentID == tournamentID && member.UserID != nil && *member.UserID == userID {
			return member, nil
		}
	}
	return nil, repositories.ErrTournamentMemberNotFound
}

func (r *fakeTournamentMemberRepo) ListByAnonymousUser(ctx context.Context, anonymousUserID string) ([]*models.TournamentMember, error) {
	out := make([]*models.TournamentMember, 0)
	for _, member := range r.members {
		if member.AnonymousUserID != nil && *member.AnonymousUserID == anonymousUserID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (r *fakeTournamentMemberRepo) ReassignOwner(ctx context.Context, id int, userID string) error {
	for _, member := range r.members {
		if member.ID == id {
			member.UserID = &userID
			member.AnonymousUserID = nil
			return nil
		}
	}
	return repositories.ErrTournamentMemberNotFound
}

func (r *fakeTournamentMemberRepo) Delete(ctx context.Context, id int) error {
	for i, member := range r.members {
		if member.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return nil
		}
	}
	return repositories.ErrTournamentMemberNotFound
}

type fakeMatchRepo struct {
	// Stored most-recent-first to match the Postgres list ordering.
	matches []*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	match.ID = r.nextID
	r.nextID++
	r.matches = append([]*models.Match{match}, r.matches...)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	for _, match := range r.matches {
		if match.ID == id {
			copied := *match
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByLeague(ctx context.Context, leagueID int) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, match := range r.matches {
		if match.LeagueID != nil && *match.LeagueID == leagueID {
			out = append(out, match)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, match := range r.matches {
		if match.TournamentID != nil && *match.TournamentID == tournamentID {
			out = append(out, match)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) ListAll(ctx context.Context) ([]*models.Match, error) {
	return append([]*models.Match{}, r.matches...), nil
}

func (r *fakeMatchRepo) UpdateTeams(ctx context.Context, id int, teamA, teamB []string, deltas map[string]int) error {
	for _, match := range r.matches {
		if match.ID == id {
			match.TeamA = teamA
			match.TeamB = teamB
			match.Deltas = deltas
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ReassignCreator(ctx context.Context, anonymousUserID, userID string) error {
	for _, match := range r.matches {
		if match.CreatorAnonymousUserID != nil && *match.CreatorAnonymousUserID == anonymousUserID {
			match.CreatorUserID = &userID
			match.CreatorAnonymousUserID = nil
		}
	}
	return nil
}

func (r *fakeMatchRepo) Count(ctx context.Context) (int, error) {
	return len(r.matches), nil
}

type fakeRatingHistoryRepo struct {
	entries []*models.RatingHistoryEntry
	nextID  int
}

func newFakeRatingHistoryRepo() *fakeRatingHistoryRepo {
	return &fakeRatingHistoryRepo{nextID: 1}
}

func (r *fakeRatingHistoryRepo) Create(ctx context.Context, exec repositories.SQLExecutor, entry *models.RatingHistoryEntry) error {
	entry.ID = r.nextID
	r.nextID++
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeRatingHistoryRepo) ListByLeagueAndUser(ctx context.Context, leagueID int, userID string) ([]*models.RatingHistoryEntry, error) {
	out := make([]*models.RatingHistoryEntry, 0)
	for _, entry := range r.entries {
		if entry.LeagueID == leagueID && entry.UserID != nil && *entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeRatingHistoryRepo) ReassignOwner(ctx context.Context, anonymousUserID, userID string) error {
	for _, entry := range r.entries {
		if entry.AnonymousUserID != nil && *entry.AnonymousUserID == anonymousUserID {
			entry.UserID = &userID
			entry.AnonymousUserID = nil
		}
	}
	return nil
}

type fakeMergeReceiptRepo struct {
	receipts map[string]*models.MergeReceipt
	nextID   int
}

func newFakeMergeReceiptRepo() *fakeMergeReceiptRepo {
	return &fakeMergeReceiptRepo{receipts: make(map[string]*models.MergeReceipt), nextID: 1}
}

func (r *fakeMergeReceiptRepo) Create(ctx context.Context, receipt *models.MergeReceipt) error {
	if _, ok := r.receipts[receipt.AnonymousUserID]; ok {
		return repositories.ErrMergeReceiptConflict
	}
	receipt.ID = r.nextID
	r.nextID++
	receipt.CreatedAt = time.Now().UTC()
	r.receipts[receipt.AnonymousUserID] = receipt
	return nil
}

func (r *fakeMergeReceiptRepo) GetByAnonymousUser(ctx context.Context, anonymousUserID string) (*models.MergeReceipt, error) {
	receipt, ok := r.receipts[anonymousUserID]
	if !ok {
		return nil, repositories.ErrMergeReceiptNotFound
	}
	copied := *receipt
	return &copied, nil
}

func (r *fakeMergeReceiptRepo) Count(ctx context.Context) (int, error) {
	return len(r.receipts), nil
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

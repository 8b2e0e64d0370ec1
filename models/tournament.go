package models

import "time"

// Tournament groups matches played at one event. When LeagueID is set the
// tournament is linked: its matches also feed the league's global ratings.
type Tournament struct {
	ID                     int       `json:"id" db:"id"`
	Name                   string    `json:"name" db:"name"`
	Date                   time.Time `json:"date" db:"date"`
	LeagueID               *int      `json:"league_id,omitempty" db:"league_id"`
	Finished               bool      `json:"finished" db:"finished"`
	CreatorUserID          *string   `json:"creator_user_id,omitempty" db:"creator_user_id"`
	CreatorAnonymousUserID *string   `json:"creator_anonymous_user_id,omitempty" db:"creator_anonymous_user_id"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`

	// Optional linked data, populated by the service layer.
	Members []TournamentMember `json:"members,omitempty" db:"-"`
	Matches []Match            `json:"matches,omitempty" db:"-"`
}

// TournamentMember registers one identity as a tournament participant.
// Exactly one of UserID / AnonymousUserID is set.
type TournamentMember struct {
	ID              int       `json:"id" db:"id"`
	TournamentID    int       `json:"tournament_id" db:"tournament_id"`
	UserID          *string   `json:"user_id,omitempty" db:"user_id"`
	AnonymousUserID *string   `json:"anonymous_user_id,omitempty" db:"anonymous_user_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// IdentityID returns the participating identity's id.
func (m *TournamentMember) IdentityID() string {
	if m.UserID != nil {
		return *m.UserID
	}
	if m.AnonymousUserID != nil {
		return *m.AnonymousUserID
	}
	return ""
}

package models

import "time"

type LeagueType string

const (
	LeagueTypeEvent  LeagueType = "event"
	LeagueTypeSeason LeagueType = "season"
)

// League is the aggregate a player's persisted (global) rating lives in.
// Exactly one of CreatorUserID / CreatorAnonymousUserID is set.
type League struct {
	ID                     int        `json:"id" db:"id"`
	Name                   string     `json:"name" db:"name"`
	Type                   LeagueType `json:"type" db:"type"`
	CreatorUserID          *string    `json:"creator_user_id,omitempty" db:"creator_user_id"`
	CreatorAnonymousUserID *string    `json:"creator_anonymous_user_id,omitempty" db:"creator_anonymous_user_id"`
	LogoKey                *string    `json:"-" db:"logo_key"`
	LogoURL                *string    `json:"logo_url,omitempty" db:"-"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`

	// Optional linked data, populated by the service layer.
	Players       []Player `json:"players,omitempty" db:"-"`
	Matches       []Match  `json:"matches,omitempty" db:"-"`
	TournamentIDs []int    `json:"tournament_ids,omitempty" db:"-"`
}

// Player is a league membership row carrying the member's persisted rating
// and cumulative record. Ownership follows the creator-reference rule:
// exactly one of UserID / AnonymousUserID is set.
type Player struct {
	ID              int       `json:"id" db:"id"`
	LeagueID        int       `json:"league_id" db:"league_id"`
	UserID          *string   `json:"user_id,omitempty" db:"user_id"`
	AnonymousUserID *string   `json:"anonymous_user_id,omitempty" db:"anonymous_user_id"`
	DisplayName     string    `json:"display_name" db:"display_name"`
	Rating          int       `json:"rating" db:"rating"`
	Wins            int       `json:"wins" db:"wins"`
	Losses          int       `json:"losses" db:"losses"`
	MatchesPlayed   int       `json:"matches_played" db:"matches_played"`
	Streak          int       `json:"streak" db:"streak"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// IdentityID returns the identity (user or anonymous user) that owns this
// membership. Match team arrays and rating deltas are keyed by this id.
func (p *Player) IdentityID() string {
	if p.UserID != nil {
		return *p.UserID
	}
	if p.AnonymousUserID != nil {
		return *p.AnonymousUserID
	}
	return ""
}

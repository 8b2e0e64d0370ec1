package models

import "time"

// Scores in this ELO variant are binary win markers.
const (
	WinningScore = 10
	LosingScore  = 0
)

// Match records one game. Team arrays hold identity ids (user or anonymous
// user UUIDs); Deltas maps each participant's identity id to the signed
// rating change this match produced for them. A match linked to both a
// tournament and a league appears in both aggregates' match lists.
type Match struct {
	ID                     int            `json:"id" db:"id"`
	LeagueID               *int           `json:"league_id,omitempty" db:"league_id"`
	TournamentID           *int           `json:"tournament_id,omitempty" db:"tournament_id"`
	TeamA                  []string       `json:"team_a" db:"team_a"`
	TeamB                  []string       `json:"team_b" db:"team_b"`
	ScoreA                 int            `json:"score_a" db:"score_a"`
	ScoreB                 int            `json:"score_b" db:"score_b"`
	Deltas                 map[string]int `json:"deltas" db:"deltas"`
	CreatorUserID          *string        `json:"creator_user_id,omitempty" db:"creator_user_id"`
	CreatorAnonymousUserID *string        `json:"creator_anonymous_user_id,omitempty" db:"creator_anonymous_user_id"`
	PlayedAt               time.Time      `json:"played_at" db:"played_at"`
}

// HasParticipant reports whether id appears on either team.
func (m *Match) HasParticipant(id string) bool {
	for _, p := range m.TeamA {
		if p == id {
			return true
		}
	}
	for _, p := range m.TeamB {
		if p == id {
			return true
		}
	}
	return false
}

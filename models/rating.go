package models

import "time"

// RatingHistoryEntry is one append-only snapshot of a player's rating after
// a match. Ownership follows the usual exclusivity rule; a merge rewrites
// the owner reference without deduplicating entries.
type RatingHistoryEntry struct {
	ID              int       `json:"id" db:"id"`
	LeagueID        int       `json:"league_id" db:"league_id"`
	MatchID         int       `json:"match_id" db:"match_id"`
	UserID          *string   `json:"user_id,omitempty" db:"user_id"`
	AnonymousUserID *string   `json:"anonymous_user_id,omitempty" db:"anonymous_user_id"`
	Rating          int       `json:"rating" db:"rating"`
	Delta           int       `json:"delta" db:"delta"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

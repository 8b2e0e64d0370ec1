// Package elo implements the pairwise rating update used for beer-pong
// matches. Each side's effective rating is the average of its players'
// current ratings; every player on a side receives the same signed delta.
package elo

import "math"

const (
	// DefaultRating is the rating every player starts at, both when joining
	// a league and when a tournament ranking is replayed from scratch.
	DefaultRating = 1000

	// KFactor is the fixed swing factor applied to every update.
	KFactor = 32

	// spread is the rating gap that gives one side 10-to-1 odds.
	spread = 400.0
)

// Side identifies the winning side of a match.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Rated is the minimal view of a player the calculator needs.
type Rated struct {
	ID     string
	Rating int
}

// ComputeRatings returns the new rating for every player on both teams
// after a match won by winner. It is a pure function: inputs are never
// mutated and identical inputs always yield identical outputs.
//
// The update is team-uniform: both sides are collapsed to their average
// rating, a single delta is computed from the expected score of side A,
// and every player on a side moves by that side's delta.
func ComputeRatings(teamA, teamB []Rated, winner Side) map[string]int {
	ratings := make(map[string]int, len(teamA)+len(teamB))
	if len(teamA) == 0 || len(teamB) == 0 {
		return ratings
	}

	avgA := averageRating(teamA)
	avgB := averageRating(teamB)

	expectedA := 1.0 / (1.0 + math.Pow(10, (avgB-avgA)/spread))

	scoreA := 0.0
	if winner == SideA {
		scoreA = 1.0
	}

	deltaA := int(math.Round(KFactor * (scoreA - expectedA)))
	deltaB := -deltaA

	for _, p := range teamA {
		ratings[p.ID] = p.Rating + deltaA
	}
	for _, p := range teamB {
		ratings[p.ID] = p.Rating + deltaB
	}
	return ratings
}

func averageRating(team []Rated) float64 {
	sum := 0
	for _, p := range team {
		sum += p.Rating
	}
	return float64(sum) / float64(len(team))
}

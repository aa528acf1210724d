// Package agent implements the per-team front-office decision policy:
// need analysis, proposal evaluation, bounded counter synthesis, and
// trade origination. Policies hold no private mutable state beyond their
// view of the shared store.
package agent

import (
	"github.com/courtwire/frontoffice/internal/league"
)

// idealPerPosition is the baseline rotation depth a team wants at each
// position when weighing needs.
const idealPerPosition = 2

// NeedVector holds a need factor per position. 1.0 is neutral; above it
// the team is thin at the position, below it the team has surplus.
type NeedVector [league.NumPositions]float64

// Needs computes a team's positional need factors from its current
// roster: factor = 2 - count/ideal, clamped to [0.5, 2.0].
func Needs(store *league.Store, abbr string) NeedVector {
	counts := store.PositionCounts(abbr)
	var n NeedVector
	for i, c := range counts {
		f := 2.0 - float64(c)/float64(idealPerPosition)
		if f < 0.5 {
			f = 0.5
		}
		if f > 2.0 {
			f = 2.0
		}
		n[i] = f
	}
	return n
}

// MostNeeded returns the position with the highest need factor. Ties
// break toward the earlier position in canonical order, keeping the
// result deterministic.
func (n NeedVector) MostNeeded() league.Position {
	best := league.Positions[0]
	for _, pos := range league.Positions[1:] {
		if n[pos] > n[best] {
			best = pos
		}
	}
	return best
}

// Map renders the vector keyed by position abbreviation, for adapters
// and API payloads.
func (n NeedVector) Map() map[string]float64 {
	out := make(map[string]float64, league.NumPositions)
	for _, pos := range league.Positions {
		out[pos.String()] = n[pos]
	}
	return out
}

// Complementarity scores how well team b's surplus covers team a's needs.
// The simulator uses it to pick each round's origination target.
func Complementarity(store *league.Store, a, b string) float64 {
	needs := Needs(store, a)
	counts := store.PositionCounts(b)
	score := 0.0
	for _, pos := range league.Positions {
		surplus := float64(counts[pos] - idealPerPosition)
		if surplus > 0 && needs[pos] > 1.0 {
			score += (needs[pos] - 1.0) * surplus
		}
	}
	return score
}

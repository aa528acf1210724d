// Package oracle provides the pluggable reasoning adapter a team policy
// may consult for a qualitative opinion on a trade. The numeric policy
// never depends on it: the adapter supplements rationale text and may
// nudge a borderline call, nothing more.
package oracle

import (
	"context"

	"github.com/courtwire/frontoffice/internal/league"
)

// Signal is an advisory lean. SignalNone means the adapter offers only
// rationale text.
type Signal uint8

const (
	SignalNone Signal = iota
	SignalAccept
	SignalReject
	SignalCounter
)

func (s Signal) String() string {
	switch s {
	case SignalAccept:
		return "accept"
	case SignalReject:
		return "reject"
	case SignalCounter:
		return "counter"
	default:
		return "none"
	}
}

// Request describes a trade from the evaluating team's perspective.
type Request struct {
	Team     string // Evaluating team abbreviation
	TeamName string
	Incoming []league.Player
	Outgoing []league.Player
	Delta    float64 // Net weighted value delta from the numeric policy
	Summary  league.SalarySummary
	Needs    map[string]float64 // Position → need factor
}

// Advice is the adapter's opinion.
type Advice struct {
	Rationale string
	Signal    Signal
}

// Advisor is the reasoning adapter capability. Implementations must be
// safe for concurrent use; errors are non-fatal to callers.
type Advisor interface {
	Advise(ctx context.Context, req Request) (Advice, error)
}

// RuleBased is the deterministic default advisor. It buckets the numeric
// delta into GM-flavored rationale and mirrors the policy's own lean, so
// tests and offline runs behave identically with or without it.
type RuleBased struct{}

// Advise never fails and never consults anything beyond the request.
func (RuleBased) Advise(_ context.Context, req Request) (Advice, error) {
	switch {
	case req.Delta > 10:
		return Advice{
			Rationale: "This trade is highly favorable for our team, providing significant value.",
			Signal:    SignalAccept,
		}, nil
	case req.Delta > 0:
		return Advice{
			Rationale: "This trade provides good value for our team.",
			Signal:    SignalAccept,
		}, nil
	case req.Delta > -5:
		return Advice{
			Rationale: "This trade is close to fair value, with only minor disadvantages.",
			Signal:    SignalAccept,
		}, nil
	case req.Delta > -10:
		return Advice{
			Rationale: "This trade is slightly unfavorable but could be acceptable with modifications.",
			Signal:    SignalCounter,
		}, nil
	default:
		return Advice{
			Rationale: "This trade provides insufficient value for our team.",
			Signal:    SignalReject,
		}, nil
	}
}

// Package cap validates proposed post-trade configurations against the
// simplified salary-matching and roster-size rules.
package cap

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/courtwire/frontoffice/internal/league"
)

// Code identifies the specific rule a trade breaks. Never generic: callers
// use the code to synthesize a corrective counter.
type Code string

const (
	CodeSalaryMismatch Code = "salary_mismatch"
	CodeRosterSize     Code = "roster_size"
)

// Violation is a typed cap failure.
type Violation struct {
	Code   Code
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("cap violation (%s): %s", v.Code, v.Detail)
}

// Rules holds the tunable validation parameters.
type Rules struct {
	// Tolerance is the fraction by which an over-cap team's incoming
	// salary may exceed its outgoing salary (simplified matching rule).
	Tolerance float64

	MinRoster int
	MaxRoster int
}

// DefaultRules returns the league defaults: 25% matching tolerance and an
// 8-15 player roster band.
func DefaultRules() Rules {
	return Rules{Tolerance: 0.25, MinRoster: 8, MaxRoster: 15}
}

// Check is the input for one side of a trade.
type Check struct {
	Summary        league.SalarySummary
	RosterSize     int
	OutgoingSalary int64
	IncomingSalary int64
	OutgoingCount  int // Players leaving (picks don't count)
	IncomingCount  int // Players arriving
}

// Validate checks one team's side of a proposed trade. Returns nil when
// the trade is legal, or a *Violation naming the broken rule.
func Validate(c Check, r Rules) *Violation {
	size := c.RosterSize - c.OutgoingCount + c.IncomingCount
	if size < r.MinRoster {
		return &Violation{
			Code:   CodeRosterSize,
			Detail: fmt.Sprintf("post-trade roster of %d below minimum %d", size, r.MinRoster),
		}
	}
	if size > r.MaxRoster {
		return &Violation{
			Code:   CodeRosterSize,
			Detail: fmt.Sprintf("post-trade roster of %d above maximum %d", size, r.MaxRoster),
		}
	}

	added := c.IncomingSalary - c.OutgoingSalary
	if added <= 0 {
		return nil // Shedding salary is always legal.
	}

	if !c.Summary.OverCap {
		// Under the cap: absorb anything that fits in available space.
		if added <= c.Summary.AvailableSpace {
			return nil
		}
		// Beyond available space the matching rule takes over.
	}

	limit := int64(float64(c.OutgoingSalary) * (1 + r.Tolerance))
	if c.IncomingSalary > limit {
		return &Violation{
			Code: CodeSalaryMismatch,
			Detail: fmt.Sprintf("incoming $%s exceeds matching limit $%s (outgoing $%s, tolerance %.0f%%)",
				humanize.Comma(c.IncomingSalary), humanize.Comma(limit),
				humanize.Comma(c.OutgoingSalary), r.Tolerance*100),
		}
	}
	return nil
}

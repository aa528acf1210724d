// Package valuation scores trade assets. Value is a pure function of the
// asset — no store access, no hidden state — so identical inputs always
// produce identical scores.
package valuation

import (
	"github.com/courtwire/frontoffice/internal/league"
)

// Stat weights for the base production score.
const (
	weightPoints   = 1.0
	weightRebounds = 0.7
	weightAssists  = 0.7

	// Shooting efficiency contributes a bonus scaled against league-average
	// percentages, so an efficient scorer outranks a volume scorer.
	weightShooting = 10.0
	leagueAvgFG    = 0.47
)

// Position scarcity: quality size and lead ball-handlers are harder to
// replace than wings.
var scarcity = map[league.Position]float64{
	league.PointGuard:    1.05,
	league.ShootingGuard: 1.0,
	league.SmallForward:  1.0,
	league.PowerForward:  1.02,
	league.Center:        1.08,
}

// Value scores a player's trade value. Monotonic in each stat holding the
// others fixed, and always >= 0.
func Value(p league.Player) float64 {
	base := p.Stat("ppg")*weightPoints +
		p.Stat("rpg")*weightRebounds +
		p.Stat("apg")*weightAssists

	// Efficiency bonus, floored at zero so a bad shooting percentage can
	// never push the stat term below pure production.
	if eff := p.Stat("fg_pct") - leagueAvgFG; eff > 0 {
		base += eff * weightShooting
	}

	v := base * ageFactor(p.Age) * contractFactor(p.ContractYears) * salaryEfficiency(base, p.Salary) * scarcity[p.Position]
	if v < 0 {
		return 0
	}
	return v
}

// PickValue scores a draft pick placeholder: a first-rounder is roughly a
// rotation player, a second-rounder a fringe one, discounted per year out.
func PickValue(pk league.DraftPick, currentYear int) float64 {
	base := 5.0
	if pk.Round == 1 {
		base = 15.0
	}
	yearsOut := pk.Year - currentYear
	for i := 0; i < yearsOut; i++ {
		base *= 0.9
	}
	if base < 0 {
		return 0
	}
	return base
}

// ageFactor peaks through ages 24-29, ramps up from the teens, and
// declines past 30 with a floor.
func ageFactor(age int) float64 {
	switch {
	case age < 24:
		f := 0.8 + float64(age-19)*0.05
		if f < 0.7 {
			return 0.7
		}
		return f
	case age <= 29:
		return 1.0
	default:
		f := 1.0 - float64(age-30)*0.05
		if f < 0.4 {
			return 0.4
		}
		return f
	}
}

// contractFactor discounts expiring deals: a player with under two years
// left is a rental, not a building block.
func contractFactor(years int) float64 {
	switch {
	case years <= 1:
		return 0.85
	case years == 2:
		return 0.95
	default:
		return 1.0
	}
}

// salaryEfficiency rewards production per salary dollar, clamped to
// [0.5, 1.5] so contract noise can't dominate the score.
func salaryEfficiency(base float64, salary int64) float64 {
	if salary <= 0 {
		return 1.5
	}
	perMillion := base / (float64(salary) / 1_000_000)
	eff := perMillion / 10.0
	if eff < 0.5 {
		return 0.5
	}
	if eff > 1.5 {
		return 1.5
	}
	return eff
}

package valuation_test

import (
	"testing"

	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/valuation"
)

func makePlayer(age int, ppg, rpg, apg float64, salary int64, years int) league.Player {
	return league.Player{
		ID:            "TST_1",
		Name:          "Test Player",
		Position:      league.ShootingGuard,
		Age:           age,
		Salary:        salary,
		ContractYears: years,
		Stats: map[string]float64{
			"ppg":    ppg,
			"rpg":    rpg,
			"apg":    apg,
			"fg_pct": 0.45,
		},
	}
}

func TestValue_StatsMonotonic(t *testing.T) {
	lo := makePlayer(26, 10, 4, 3, 10_000_000, 3)
	hi := makePlayer(26, 20, 4, 3, 10_000_000, 3)

	vLo, vHi := valuation.Value(lo), valuation.Value(hi)
	if vHi <= vLo {
		t.Fatalf("more production must raise value: %.2f ppg=10 vs %.2f ppg=20", vLo, vHi)
	}
}

func TestValue_AgeCurve(t *testing.T) {
	young := valuation.Value(makePlayer(20, 15, 5, 4, 10_000_000, 3))
	peak := valuation.Value(makePlayer(26, 15, 5, 4, 10_000_000, 3))
	old := valuation.Value(makePlayer(35, 15, 5, 4, 10_000_000, 3))

	if peak <= young {
		t.Fatalf("peak age must outrank age 20: peak=%.2f young=%.2f", peak, young)
	}
	if peak <= old {
		t.Fatalf("peak age must outrank age 35: peak=%.2f old=%.2f", peak, old)
	}

	// The decline floor: even a 45-year-old keeps a positive value.
	ancient := valuation.Value(makePlayer(45, 15, 5, 4, 10_000_000, 3))
	if ancient <= 0 {
		t.Fatalf("age floor violated: %.2f", ancient)
	}
}

func TestValue_ExpiringDiscount(t *testing.T) {
	rental := valuation.Value(makePlayer(26, 18, 5, 4, 10_000_000, 1))
	locked := valuation.Value(makePlayer(26, 18, 5, 4, 10_000_000, 4))

	if rental >= locked {
		t.Fatalf("expiring contract must trade at a discount: 1yr=%.2f 4yr=%.2f", rental, locked)
	}
}

func TestValue_ShootingBonusFloor(t *testing.T) {
	brick := makePlayer(26, 15, 5, 4, 10_000_000, 3)
	brick.Stats["fg_pct"] = 0.35
	neutral := makePlayer(26, 15, 5, 4, 10_000_000, 3)
	neutral.Stats["fg_pct"] = 0.47

	// Below league average the bonus is zero, never negative.
	if valuation.Value(brick) != valuation.Value(neutral) {
		t.Fatalf("sub-average shooting must not subtract value: %.2f vs %.2f",
			valuation.Value(brick), valuation.Value(neutral))
	}
}

func TestValue_Deterministic(t *testing.T) {
	p := makePlayer(28, 22, 7, 6, 25_000_000, 3)
	if valuation.Value(p) != valuation.Value(p) {
		t.Fatal("value must be a pure function of the player")
	}
}

func TestPickValue(t *testing.T) {
	first := league.DraftPick{ID: "ATL_2025_R1", Year: 2025, Round: 1}
	second := league.DraftPick{ID: "ATL_2025_R2", Year: 2025, Round: 2}

	v1 := valuation.PickValue(first, 2024)
	v2 := valuation.PickValue(second, 2024)
	if v1 <= v2 {
		t.Fatalf("first-rounder must outrank second-rounder: R1=%.2f R2=%.2f", v1, v2)
	}

	far := league.DraftPick{ID: "ATL_2028_R1", Year: 2028, Round: 1}
	if valuation.PickValue(far, 2024) >= v1 {
		t.Fatalf("distant pick must be discounted: 2028=%.2f 2025=%.2f",
			valuation.PickValue(far, 2024), v1)
	}
}

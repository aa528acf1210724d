package league_test

import (
	"errors"
	"testing"

	"github.com/courtwire/frontoffice/internal/league"
)

func testPlayer(id, abbr string, pos league.Position, salary int64) league.Player {
	return league.Player{
		ID:            league.PlayerID(id),
		Name:          "Player " + id,
		Position:      pos,
		Age:           26,
		Salary:        salary,
		ContractYears: 3,
		Stats:         map[string]float64{"ppg": 12, "rpg": 4, "apg": 3, "fg_pct": 0.46},
		TeamAbbr:      abbr,
	}
}

func testStore(t *testing.T) *league.Store {
	t.Helper()
	teams := []league.Team{
		{ID: "1", Name: "Hawks", Abbr: "ATL", City: "Atlanta", Conference: "Eastern", Division: "Southeast",
			CapNumber: 123_000_000, TaxLine: 150_000_000},
		{ID: "2", Name: "Celtics", Abbr: "BOS", City: "Boston", Conference: "Eastern", Division: "Atlantic",
			CapNumber: 123_000_000, TaxLine: 150_000_000},
	}
	players := []league.Player{
		testPlayer("ATL_1", "ATL", league.PointGuard, 30_000_000),
		testPlayer("ATL_2", "ATL", league.ShootingGuard, 20_000_000),
		testPlayer("ATL_3", "ATL", league.Center, 10_000_000),
		testPlayer("BOS_1", "BOS", league.PointGuard, 28_000_000),
		testPlayer("BOS_2", "BOS", league.PowerForward, 18_000_000),
		testPlayer("BOS_3", "BOS", league.Center, 12_000_000),
	}
	picks := []league.DraftPick{
		{ID: "ATL_2025_R1", OriginTeam: "ATL", Year: 2025, Round: 1, TeamAbbr: "ATL"},
		{ID: "BOS_2025_R2", OriginTeam: "BOS", Year: 2025, Round: 2, TeamAbbr: "BOS"},
	}
	store, err := league.NewStore(teams, players, picks)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func totalSalary(t *testing.T, s *league.Store) int64 {
	t.Helper()
	var total int64
	for _, abbr := range s.Abbrs() {
		for _, p := range s.Roster(abbr) {
			total += p.Salary
		}
	}
	return total
}

func TestNewStore_RejectsDanglingTeamRef(t *testing.T) {
	teams := []league.Team{
		{ID: "1", Name: "Hawks", Abbr: "ATL", CapNumber: 123_000_000, TaxLine: 150_000_000},
	}
	players := []league.Player{testPlayer("X_1", "NOPE", league.Center, 1_000_000)}

	if _, err := league.NewStore(teams, players, nil); err == nil {
		t.Fatal("expected error for player on unknown team")
	}
}

func TestStore_OwnershipErrors(t *testing.T) {
	s := testStore(t)

	err := s.OwnsAll("ATL", league.AssetList{Players: []league.PlayerID{"BOS_1"}})
	if !errors.Is(err, league.ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}

	err = s.OwnsAll("ATL", league.AssetList{Players: []league.PlayerID{"GHOST"}})
	if !errors.Is(err, league.ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}

	err = s.OwnsAll("NOPE", league.AssetList{})
	if !errors.Is(err, league.ErrUnknownTeam) {
		t.Fatalf("expected ErrUnknownTeam, got %v", err)
	}
}

func TestStore_ApplyTrade(t *testing.T) {
	s := testStore(t)
	before := totalSalary(t, s)

	err := s.ApplyTrade("ATL", "BOS",
		league.AssetList{Players: []league.PlayerID{"ATL_1"}, Picks: []league.PickID{"ATL_2025_R1"}},
		league.AssetList{Players: []league.PlayerID{"BOS_2"}},
	)
	if err != nil {
		t.Fatalf("ApplyTrade: %v", err)
	}

	p, _ := s.Player("ATL_1")
	if p.TeamAbbr != "BOS" {
		t.Fatalf("ATL_1 should now be on BOS, got %s", p.TeamAbbr)
	}
	p, _ = s.Player("BOS_2")
	if p.TeamAbbr != "ATL" {
		t.Fatalf("BOS_2 should now be on ATL, got %s", p.TeamAbbr)
	}
	pk, _ := s.Pick("ATL_2025_R1")
	if pk.TeamAbbr != "BOS" {
		t.Fatalf("pick should now be BOS's, got %s", pk.TeamAbbr)
	}
	if pk.OriginTeam != "ATL" {
		t.Fatalf("pick origin must never change, got %s", pk.OriginTeam)
	}

	// No salary is created or destroyed by a trade.
	if after := totalSalary(t, s); after != before {
		t.Fatalf("league salary changed: before=%d after=%d", before, after)
	}
	if s.RosterSize("ATL") != 3 || s.RosterSize("BOS") != 3 {
		t.Fatalf("roster sizes off: ATL=%d BOS=%d", s.RosterSize("ATL"), s.RosterSize("BOS"))
	}
}

func TestStore_ApplyTrade_AtomicOnFailure(t *testing.T) {
	s := testStore(t)
	before := totalSalary(t, s)

	// BOS does not own ATL_2: the whole trade must be refused, including
	// the valid ATL side.
	err := s.ApplyTrade("ATL", "BOS",
		league.AssetList{Players: []league.PlayerID{"ATL_1"}},
		league.AssetList{Players: []league.PlayerID{"ATL_2"}},
	)
	if err == nil {
		t.Fatal("expected ownership failure")
	}

	p, _ := s.Player("ATL_1")
	if p.TeamAbbr != "ATL" {
		t.Fatalf("failed trade must move nothing: ATL_1 on %s", p.TeamAbbr)
	}
	if after := totalSalary(t, s); after != before {
		t.Fatalf("failed trade changed salaries: before=%d after=%d", before, after)
	}
}

func TestStore_Summary(t *testing.T) {
	s := testStore(t)

	sum, err := s.Summary("ATL")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Total != 60_000_000 {
		t.Fatalf("ATL payroll: got %d want 60000000", sum.Total)
	}
	if sum.OverCap {
		t.Fatal("ATL is under the cap")
	}
	if sum.AvailableSpace != 63_000_000 {
		t.Fatalf("available space: got %d want 63000000", sum.AvailableSpace)
	}
}

func TestStore_CopiesAreIsolated(t *testing.T) {
	s := testStore(t)

	p, _ := s.Player("ATL_1")
	p.Stats["ppg"] = 99

	again, _ := s.Player("ATL_1")
	if again.Stats["ppg"] == 99 {
		t.Fatal("mutating a returned player must not touch the store")
	}
}

package sim_test

import (
	"context"
	"testing"

	"github.com/courtwire/frontoffice/internal/agent"
	"github.com/courtwire/frontoffice/internal/cap"
	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/sim"
	"github.com/courtwire/frontoffice/internal/trade"
)

func buildLeague(t *testing.T, seed int64) (*league.Store, *trade.Book, *sim.Simulator) {
	t.Helper()
	teams, players, picks := league.Generate(seed)
	store, err := league.NewStore(teams, players, picks)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	rules := cap.DefaultRules()
	book := trade.NewBook(store, rules)

	policies := make(map[string]*agent.Policy)
	for _, abbr := range store.Abbrs() {
		policies[abbr] = agent.NewPolicy(abbr, store, rules, nil, agent.DefaultTuning())
	}
	return store, book, sim.New(store, book, policies, seed)
}

func activityKeys(records []trade.ActivityRecord) []string {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key()
	}
	return keys
}

func TestSimulator_SeedDeterminism(t *testing.T) {
	_, _, simA := buildLeague(t, 1234)
	_, _, simB := buildLeague(t, 1234)

	recsA, err := simA.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("run A: %v", err)
	}
	recsB, err := simB.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("run B: %v", err)
	}

	keysA, keysB := activityKeys(recsA), activityKeys(recsB)
	if len(keysA) != len(keysB) {
		t.Fatalf("activity length differs: %d vs %d", len(keysA), len(keysB))
	}
	for i := range keysA {
		if keysA[i] != keysB[i] {
			t.Fatalf("activity diverges at %d:\n  a: %s\n  b: %s", i, keysA[i], keysB[i])
		}
	}
}

func TestSimulator_RoundsAdvanceState(t *testing.T) {
	store, book, simulator := buildLeague(t, 77)

	records, err := simulator.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("two rounds over a full league should produce activity")
	}
	if simulator.Round() == 0 {
		t.Fatal("round counter did not advance")
	}
	if book.ActivityLen() != len(records) {
		t.Fatalf("returned records should match the log: %d vs %d",
			len(records), book.ActivityLen())
	}

	// Every roster stays inside the legal band whatever happened.
	rules := cap.DefaultRules()
	for _, abbr := range store.Abbrs() {
		n := store.RosterSize(abbr)
		if n < rules.MinRoster || n > rules.MaxRoster {
			t.Fatalf("%s roster size %d outside [%d, %d]", abbr, n, rules.MinRoster, rules.MaxRoster)
		}
	}
}

func TestSimulator_QuiescenceWithNoAssets(t *testing.T) {
	teams := []league.Team{
		{ID: "1", Name: "Hawks", Abbr: "ATL", CapNumber: 123_000_000, TaxLine: 150_000_000},
		{ID: "2", Name: "Celtics", Abbr: "BOS", CapNumber: 123_000_000, TaxLine: 150_000_000},
	}
	store, err := league.NewStore(teams, nil, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	rules := cap.DefaultRules()
	book := trade.NewBook(store, rules)
	policies := map[string]*agent.Policy{
		"ATL": agent.NewPolicy("ATL", store, rules, nil, agent.DefaultTuning()),
		"BOS": agent.NewPolicy("BOS", store, rules, nil, agent.DefaultTuning()),
	}
	simulator := sim.New(store, book, policies, 5)

	records, err := simulator.Run(context.Background(), 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("no offers are possible, got %d records", len(records))
	}
	if simulator.Round() != 1 {
		t.Fatalf("should stop after the first quiescent round, got %d", simulator.Round())
	}
}

func TestSimulator_ContextCancellation(t *testing.T) {
	_, _, simulator := buildLeague(t, 9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := simulator.Run(ctx, 5); err == nil {
		t.Fatal("cancelled context must surface an error")
	}
	if simulator.Round() != 0 {
		t.Fatalf("no rounds should run after cancellation, got %d", simulator.Round())
	}
}

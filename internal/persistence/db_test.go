package persistence_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/courtwire/frontoffice/internal/cap"
	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/persistence"
	"github.com/courtwire/frontoffice/internal/trade"
)

func openTestDB(t *testing.T) *persistence.DB {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "league.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seededLeague(t *testing.T, seed int64) (*league.Store, *trade.Book) {
	t.Helper()
	teams, players, picks := league.Generate(seed)
	store, err := league.NewStore(teams, players, picks)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, trade.NewBook(store, cap.DefaultRules())
}

func TestDB_HasState(t *testing.T) {
	db := openTestDB(t)

	has, err := db.HasState()
	if err != nil {
		t.Fatalf("HasState: %v", err)
	}
	if has {
		t.Fatal("fresh database should have no state")
	}

	store, book := seededLeague(t, 3)
	if err := db.Save(persistence.BuildSnapshot(store, book, 3, 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	has, err = db.HasState()
	if err != nil {
		t.Fatalf("HasState: %v", err)
	}
	if !has {
		t.Fatal("state should exist after save")
	}
}

func TestDB_SaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store, book := seededLeague(t, 11)

	// Put the book through a little history: one rejected, one open.
	abbrs := store.Abbrs()
	a, b := abbrs[0], abbrs[1]
	rosterA, rosterB := store.Roster(a), store.Roster(b)

	p1, err := book.Submit(trade.Draft{
		TeamA: a, TeamB: b,
		FromA: league.AssetList{Players: []league.PlayerID{rosterA[0].ID}},
		FromB: league.AssetList{Players: []league.PlayerID{rosterB[0].ID}},
	})
	if err != nil {
		t.Fatalf("Submit p1: %v", err)
	}
	if _, _, err := book.Resolve(p1.ID, trade.Decision{Kind: trade.DecideReject, Rationale: "pass"}); err != nil {
		t.Fatalf("Resolve p1: %v", err)
	}

	p2, err := book.Submit(trade.Draft{
		TeamA: a, TeamB: b,
		FromA: league.AssetList{Players: []league.PlayerID{rosterA[1].ID}},
		FromB: league.AssetList{Players: []league.PlayerID{rosterB[1].ID}},
	})
	if err != nil {
		t.Fatalf("Submit p2: %v", err)
	}

	snap := persistence.BuildSnapshot(store, book, 11, 4)
	if err := db.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := db.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Seed != 11 || loaded.Round != 4 {
		t.Fatalf("meta: seed=%d round=%d", loaded.Seed, loaded.Round)
	}
	if len(loaded.Teams) != len(snap.Teams) {
		t.Fatalf("teams: got %d want %d", len(loaded.Teams), len(snap.Teams))
	}
	if len(loaded.Players) != len(snap.Players) {
		t.Fatalf("players: got %d want %d", len(loaded.Players), len(snap.Players))
	}
	if len(loaded.Picks) != len(snap.Picks) {
		t.Fatalf("picks: got %d want %d", len(loaded.Picks), len(snap.Picks))
	}
	if len(loaded.Proposals) != 2 {
		t.Fatalf("proposals: got %d want 2", len(loaded.Proposals))
	}
	if len(loaded.Activity) != len(snap.Activity) {
		t.Fatalf("activity: got %d want %d", len(loaded.Activity), len(snap.Activity))
	}

	// The loaded league must reconstruct into a consistent store.
	restored, err := league.NewStore(loaded.Teams, loaded.Players, loaded.Picks)
	if err != nil {
		t.Fatalf("restored league inconsistent: %v", err)
	}

	// Player payloads survive intact, stats included.
	want, _ := store.Player(rosterA[0].ID)
	got, ok := restored.Player(rosterA[0].ID)
	if !ok {
		t.Fatalf("player %s lost in round trip", rosterA[0].ID)
	}
	if got.Salary != want.Salary || got.Position != want.Position || got.Stats["ppg"] != want.Stats["ppg"] {
		t.Fatalf("player mismatch: got %+v want %+v", got, want)
	}

	// Proposal statuses and the open-asset index survive: the restored
	// book still refuses to double-book p2's assets.
	freshBook := trade.NewBook(restored, cap.DefaultRules())
	freshBook.Restore(loaded.Proposals, loaded.Activity)

	gotP1, ok := freshBook.Get(p1.ID)
	if !ok || gotP1.Status != trade.StatusRejected {
		t.Fatalf("p1 should load as rejected, got %+v", gotP1)
	}
	gotP2, ok := freshBook.Get(p2.ID)
	if !ok || gotP2.Status != trade.StatusProposed {
		t.Fatalf("p2 should load as open, got %+v", gotP2)
	}

	_, err = freshBook.Submit(trade.Draft{
		TeamA: a, TeamB: b,
		FromA: league.AssetList{Players: []league.PlayerID{rosterA[1].ID}},
		FromB: league.AssetList{Players: []league.PlayerID{rosterB[2].ID}},
	})
	if err == nil {
		t.Fatal("restored book must keep open assets reserved")
	}

	// Activity keys line up record for record.
	for i := range snap.Activity {
		if loaded.Activity[i].Key() != snap.Activity[i].Key() {
			t.Fatalf("activity %d diverges:\n  got  %s\n  want %s",
				i, loaded.Activity[i].Key(), snap.Activity[i].Key())
		}
	}
}

func TestDB_LoadRejectsCorruptMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.db")
	db, err := persistence.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, book := seededLeague(t, 7)
	if err := db.Save(persistence.BuildSnapshot(store, book, 7, 2)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mangle the seed row out from under the store.
	raw, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("raw open: %v", err)
	}
	defer raw.Close()
	if _, err := raw.Exec("UPDATE league_meta SET value = 'garbage' WHERE key = 'seed'"); err != nil {
		t.Fatalf("corrupt meta: %v", err)
	}

	_, err = db.Load()
	if err == nil {
		t.Fatal("load must fail on a corrupt seed, not restore seed 0")
	}
	if !strings.Contains(err.Error(), "seed") {
		t.Fatalf("error should name the bad key, got %v", err)
	}
}

package trade_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/courtwire/frontoffice/internal/cap"
	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/trade"
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

// openRules keeps the validator out of the way for lifecycle tests.
var openRules = cap.Rules{Tolerance: 100, MinRoster: 1, MaxRoster: 100}

func testBook(t *testing.T) (*league.Store, *trade.Book) {
	t.Helper()
	teams := []league.Team{
		{ID: "1", Name: "Hawks", Abbr: "ATL", CapNumber: 123_000_000, TaxLine: 150_000_000},
		{ID: "2", Name: "Celtics", Abbr: "BOS", CapNumber: 123_000_000, TaxLine: 150_000_000},
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
	}
	store, err := league.NewStore(teams, players, picks)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, trade.NewBook(store, openRules)
}

func oneForOne(pA, pB string) trade.Draft {
	return trade.Draft{
		TeamA:      "ATL",
		TeamB:      "BOS",
		FromA:      league.AssetList{Players: []league.PlayerID{league.PlayerID(pA)}},
		FromB:      league.AssetList{Players: []league.PlayerID{league.PlayerID(pB)}},
		ProposedBy: trade.SideA,
	}
}

func TestBook_SubmitValidation(t *testing.T) {
	_, book := testBook(t)

	// Same team on both sides fails before asset checks run.
	_, err := book.Submit(trade.Draft{
		TeamA: "ATL", TeamB: "ATL",
		FromA: league.AssetList{Players: []league.PlayerID{"GHOST"}},
	})
	if !errors.Is(err, trade.ErrInvalidProposal) {
		t.Fatalf("same-team: expected ErrInvalidProposal, got %v", err)
	}

	_, err = book.Submit(trade.Draft{TeamA: "ATL", TeamB: "BOS"})
	if !errors.Is(err, trade.ErrInvalidProposal) {
		t.Fatalf("empty: expected ErrInvalidProposal, got %v", err)
	}

	_, err = book.Submit(trade.Draft{
		TeamA: "ATL", TeamB: "NOPE",
		FromA: league.AssetList{Players: []league.PlayerID{"ATL_1"}},
	})
	if !errors.Is(err, trade.ErrInvalidProposal) {
		t.Fatalf("unknown team: expected ErrInvalidProposal, got %v", err)
	}

	// BOS does not own ATL_2.
	_, err = book.Submit(trade.Draft{
		TeamA: "ATL", TeamB: "BOS",
		FromA: league.AssetList{Players: []league.PlayerID{"ATL_1"}},
		FromB: league.AssetList{Players: []league.PlayerID{"ATL_2"}},
	})
	if !errors.Is(err, trade.ErrAssetNotOwned) {
		t.Fatalf("wrong owner: expected ErrAssetNotOwned, got %v", err)
	}

	// Failed submissions record nothing.
	if n := book.ActivityLen(); n != 0 {
		t.Fatalf("failed submits must not log activity, got %d records", n)
	}
}

func TestBook_OpenAssetExclusivity(t *testing.T) {
	_, book := testBook(t)

	if _, err := book.Submit(oneForOne("ATL_1", "BOS_1")); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := book.Submit(oneForOne("ATL_1", "BOS_2"))
	if !errors.Is(err, trade.ErrInvalidProposal) {
		t.Fatalf("busy asset: expected ErrInvalidProposal, got %v", err)
	}

	// A different asset pairing is fine.
	if _, err := book.Submit(oneForOne("ATL_2", "BOS_2")); err != nil {
		t.Fatalf("independent submit: %v", err)
	}
}

func TestBook_AcceptExecutes(t *testing.T) {
	store, book := testBook(t)

	p, err := book.Submit(oneForOne("ATL_1", "BOS_1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.Status != trade.StatusProposed {
		t.Fatalf("fresh proposal status: %s", p.Status)
	}

	rec, counter, err := book.Resolve(p.ID, trade.Decision{Kind: trade.DecideAccept})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if counter != nil {
		t.Fatal("accept must not spawn a counter")
	}
	if rec.Status != trade.StatusExecuted {
		t.Fatalf("record status: got %s want executed", rec.Status)
	}

	got, _ := book.Get(p.ID)
	if got.Status != trade.StatusExecuted {
		t.Fatalf("proposal status: got %s want executed", got.Status)
	}

	pl, _ := store.Player("ATL_1")
	if pl.TeamAbbr != "BOS" {
		t.Fatalf("trade not applied: ATL_1 on %s", pl.TeamAbbr)
	}

	_, _, err = book.Resolve(p.ID, trade.Decision{Kind: trade.DecideReject})
	if !errors.Is(err, trade.ErrAlreadyResolved) {
		t.Fatalf("re-resolve: expected ErrAlreadyResolved, got %v", err)
	}
}

func TestBook_RejectFreesAssets(t *testing.T) {
	_, book := testBook(t)

	p, err := book.Submit(oneForOne("ATL_1", "BOS_1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := book.Resolve(p.ID, trade.Decision{Kind: trade.DecideReject, Rationale: "not enough"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// The same assets are immediately available again.
	if _, err := book.Submit(oneForOne("ATL_1", "BOS_1")); err != nil {
		t.Fatalf("resubmit after reject: %v", err)
	}
}

func TestBook_StaleAcceptDowngrades(t *testing.T) {
	store, book := testBook(t)

	p, err := book.Submit(oneForOne("ATL_1", "BOS_1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// ATL_1 leaves town while the proposal is open.
	err = store.ApplyTrade("ATL", "BOS",
		league.AssetList{Players: []league.PlayerID{"ATL_1"}},
		league.AssetList{})
	if err != nil {
		t.Fatalf("ApplyTrade: %v", err)
	}

	rec, _, err := book.Resolve(p.ID, trade.Decision{Kind: trade.DecideAccept})
	if err != nil {
		t.Fatalf("stale accept must not error: %v", err)
	}
	if rec.Status != trade.StatusRejected {
		t.Fatalf("stale accept must downgrade to rejection, got %s", rec.Status)
	}
	if !strings.Contains(rec.Detail, "stale") {
		t.Fatalf("detail should name staleness, got %q", rec.Detail)
	}

	// BOS_1 never moved.
	pl, _ := store.Player("BOS_1")
	if pl.TeamAbbr != "BOS" {
		t.Fatalf("partial execution: BOS_1 on %s", pl.TeamAbbr)
	}
}

func TestBook_CounterSpawns(t *testing.T) {
	_, book := testBook(t)

	p, err := book.Submit(oneForOne("ATL_1", "BOS_1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	counterDraft := oneForOne("ATL_2", "BOS_1")
	counterDraft.ProposedBy = trade.SideB
	rec, counter, err := book.Resolve(p.ID, trade.Decision{
		Kind:    trade.DecideCounter,
		Counter: &counterDraft,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Status != trade.StatusCountered {
		t.Fatalf("record status: got %s want countered", rec.Status)
	}
	if counter == nil {
		t.Fatal("expected spawned counter proposal")
	}
	if counter.CounterOf == nil || *counter.CounterOf != p.ID {
		t.Fatalf("counter must reference the original, got %v", counter.CounterOf)
	}
	if counter.Depth != 1 {
		t.Fatalf("counter depth: got %d want 1", counter.Depth)
	}
	if counter.Status != trade.StatusProposed {
		t.Fatalf("counter status: got %s want proposed", counter.Status)
	}

	open := book.Open()
	if len(open) != 1 || open[0].ID != counter.ID {
		t.Fatalf("only the counter should be open, got %d proposals", len(open))
	}
}

func TestBook_CounterCollisionRejects(t *testing.T) {
	_, book := testBook(t)

	// BOS_2 is reserved by an unrelated open proposal.
	if _, err := book.Submit(oneForOne("ATL_2", "BOS_2")); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	p, err := book.Submit(oneForOne("ATL_1", "BOS_1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The counter asks for the reserved player; it cannot be booked, so the
	// original must close as rejected, never as countered-with-no-counter.
	counterDraft := oneForOne("ATL_1", "BOS_2")
	counterDraft.ProposedBy = trade.SideB
	rec, counter, err := book.Resolve(p.ID, trade.Decision{
		Kind:    trade.DecideCounter,
		Counter: &counterDraft,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if counter != nil {
		t.Fatal("failed counter must not spawn a proposal")
	}
	if rec.Status != trade.StatusRejected {
		t.Fatalf("record status: got %s want rejected", rec.Status)
	}
	if !strings.Contains(rec.Detail, "counter not viable") {
		t.Fatalf("detail should name the failed counter, got %q", rec.Detail)
	}
	got, _ := book.Get(p.ID)
	if got.Status != trade.StatusRejected {
		t.Fatalf("proposal status: got %s want rejected", got.Status)
	}

	// The original's assets are free again.
	if _, err := book.Submit(oneForOne("ATL_1", "BOS_1")); err != nil {
		t.Fatalf("resubmit after failed counter: %v", err)
	}
}

func TestBook_UnknownDecisionKind(t *testing.T) {
	_, book := testBook(t)

	p, err := book.Submit(oneForOne("ATL_1", "BOS_1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, _, err = book.Resolve(p.ID, trade.Decision{Kind: trade.DecisionKind(99)})
	if !errors.Is(err, trade.ErrUnknownDecision) {
		t.Fatalf("expected ErrUnknownDecision, got %v", err)
	}

	// The proposal stays open and resolvable.
	got, _ := book.Get(p.ID)
	if got.Status != trade.StatusProposed {
		t.Fatalf("proposal must stay open, got %s", got.Status)
	}
	if _, _, err := book.Resolve(p.ID, trade.Decision{Kind: trade.DecideReject}); err != nil {
		t.Fatalf("reject after bad decision: %v", err)
	}
}

func TestBook_Restore(t *testing.T) {
	store, book := testBook(t)

	p1, _ := book.Submit(oneForOne("ATL_1", "BOS_1"))
	book.Resolve(p1.ID, trade.Decision{Kind: trade.DecideReject})
	p2, _ := book.Submit(oneForOne("ATL_2", "BOS_2"))

	fresh := trade.NewBook(store, openRules)
	fresh.Restore(book.Proposals(), book.ActivitySince(0))

	// Open proposal survives with its assets still reserved.
	if _, err := fresh.Submit(oneForOne("ATL_2", "BOS_3")); !errors.Is(err, trade.ErrInvalidProposal) {
		t.Fatalf("restored open assets must stay reserved, got %v", err)
	}

	// The id sequence continues past the restored proposals.
	p3, err := fresh.Submit(oneForOne("ATL_3", "BOS_3"))
	if err != nil {
		t.Fatalf("Submit after restore: %v", err)
	}
	if p3.ID <= p2.ID {
		t.Fatalf("id sequence must continue: got %d after %d", p3.ID, p2.ID)
	}

	if fresh.ActivityLen() != book.ActivityLen()+1 {
		t.Fatalf("restored activity length off: %d vs %d", fresh.ActivityLen(), book.ActivityLen())
	}
}

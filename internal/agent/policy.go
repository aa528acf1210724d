package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/courtwire/frontoffice/internal/cap"
	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/oracle"
	"github.com/courtwire/frontoffice/internal/trade"
	"github.com/courtwire/frontoffice/internal/valuation"
)

// Tuning holds the policy's decision constants. All bounds exist to force
// termination; all thresholds are in weighted value points.
type Tuning struct {
	// AcceptThreshold is the minimum net weighted value delta to accept.
	// Slightly negative: a GM takes a marginally unfavorable deal.
	AcceptThreshold float64

	// CounterFloor is the worst delta still worth countering; below it
	// the policy rejects outright.
	CounterFloor float64

	// CounterRelax loosens AcceptThreshold for a synthesized counter, so
	// the chain converges instead of ping-ponging.
	CounterRelax float64

	// MaxAdjustIters bounds the greedy adjustment loop inside one
	// counter synthesis.
	MaxAdjustIters int

	// MaxCounterDepth bounds the counter-of chain; at the limit the
	// policy rejects rather than extend it.
	MaxCounterDepth int

	// BiasBand is how close to AcceptThreshold the delta must be before
	// an advisory signal may flip accept/reject.
	BiasBand float64

	// UntouchableValue marks players never offered in originations.
	UntouchableValue float64

	// CurrentYear anchors draft-pick discounting.
	CurrentYear int
}

// DefaultTuning returns the league defaults.
func DefaultTuning() Tuning {
	return Tuning{
		AcceptThreshold:  -5,
		CounterFloor:     -15,
		CounterRelax:     2,
		MaxAdjustIters:   8,
		MaxCounterDepth:  3,
		BiasBand:         2,
		UntouchableValue: 50,
		CurrentYear:      2024,
	}
}

// Policy is one team's GM. Stateless between calls except for its view of
// the shared store; decisions are enacted only through the proposal book.
type Policy struct {
	Team    string
	Store   *league.Store
	Rules   cap.Rules
	Advisor oracle.Advisor
	Tuning  Tuning
}

// NewPolicy builds a policy with the rule-based advisor as fallback when
// none is supplied.
func NewPolicy(team string, store *league.Store, rules cap.Rules, advisor oracle.Advisor, tuning Tuning) *Policy {
	if advisor == nil {
		advisor = oracle.RuleBased{}
	}
	return &Policy{Team: team, Store: store, Rules: rules, Advisor: advisor, Tuning: tuning}
}

// Evaluate scores an incoming proposal and decides accept, reject, or
// counter. The numeric heuristic always produces the decision; the
// reasoning adapter only supplements rationale and may nudge a borderline
// accept/reject call.
func (p *Policy) Evaluate(ctx context.Context, prop *trade.Proposal) trade.Decision {
	us := prop.Responder()
	them := prop.Proposer()
	outgoing := prop.AssetsOf(us)
	incoming := prop.AssetsOf(them)

	// Ownership is evaluated fresh: assets may have moved since creation.
	if err := p.Store.OwnsAll(us, outgoing); err != nil {
		return trade.Decision{Kind: trade.DecideReject, Rationale: fmt.Sprintf("%v: %v", trade.ErrAssetNotOwned, err)}
	}
	if err := p.Store.OwnsAll(them, incoming); err != nil {
		return trade.Decision{Kind: trade.DecideReject, Rationale: fmt.Sprintf("%v: %v", trade.ErrAssetNotOwned, err)}
	}

	needs := Needs(p.Store, us)
	delta := p.weighted(incoming, needs) - p.weighted(outgoing, needs)
	violation := p.capFor(us, outgoing, incoming)

	var d trade.Decision
	switch {
	case violation != nil:
		// A specific violation feeds counter synthesis before it becomes
		// a terminal rejection.
		if draft, ok := p.synthesize(prop, us, them, outgoing, incoming, needs); ok {
			d = trade.Decision{Kind: trade.DecideCounter, Counter: draft}
		} else {
			d = trade.Decision{Kind: trade.DecideReject, Rationale: violation.Error()}
		}
	case delta >= p.Tuning.AcceptThreshold:
		d = trade.Decision{Kind: trade.DecideAccept}
	case delta >= p.Tuning.CounterFloor:
		if draft, ok := p.synthesize(prop, us, them, outgoing, incoming, needs); ok {
			d = trade.Decision{Kind: trade.DecideCounter, Counter: draft}
		} else {
			d = trade.Decision{Kind: trade.DecideReject}
		}
	default:
		d = trade.Decision{Kind: trade.DecideReject}
	}

	req := p.adviceRequest(us, incoming, outgoing, delta, needs)

	// Deterministic fallback rationale.
	if d.Rationale == "" {
		base, _ := oracle.RuleBased{}.Advise(ctx, req)
		d.Rationale = base.Rationale
	}

	advice, err := p.Advisor.Advise(ctx, req)
	if err != nil {
		// Non-fatal: the numeric decision stands.
		slog.Warn("reasoning adapter unavailable",
			"team", us, "proposal", prop.ID, "error", err)
		return d
	}
	if advice.Rationale != "" {
		d.Rationale = advice.Rationale
	}

	// Advisory nudge: only inside the bias band, only between accept and
	// reject, and never past the validator.
	if violation == nil && math.Abs(delta-p.Tuning.AcceptThreshold) <= p.Tuning.BiasBand {
		switch {
		case advice.Signal == oracle.SignalAccept && d.Kind == trade.DecideReject:
			d.Kind = trade.DecideAccept
			d.Counter = nil
		case advice.Signal == oracle.SignalReject && d.Kind == trade.DecideAccept:
			d.Kind = trade.DecideReject
		}
	}
	return d
}

// ProposeTo originates a trade toward the target, or reports that no
// plausible offer exists. Deterministic for a given store state.
func (p *Policy) ProposeTo(target string, round uint64) (trade.Draft, bool) {
	us := p.Team
	needs := Needs(p.Store, us)
	wantPos := needs.MostNeeded()

	targetPlayer, ok := p.pickTarget(target, wantPos)
	if !ok {
		return trade.Draft{}, false
	}
	incoming := league.AssetList{Players: []league.PlayerID{targetPlayer.ID}}

	outgoing, ok := p.buildBundle(us, wantPos, targetPlayer.Salary)
	if !ok {
		return trade.Draft{}, false
	}

	// Sweeten a lopsided ask with a future second-rounder.
	if p.weighted(incoming, needs)-p.weighted(outgoing, needs) > 8 {
		if pk, ok := p.spareSecondRounder(us); ok {
			outgoing.Picks = append(outgoing.Picks, pk.ID)
		}
	}

	// The offer must be cap-plausible for both front offices.
	if v := p.capFor(us, outgoing, incoming); v != nil {
		return trade.Draft{}, false
	}
	if v := p.capFor(target, incoming, outgoing); v != nil {
		return trade.Draft{}, false
	}

	t, _ := p.Store.Team(target)
	msg := fmt.Sprintf("We're proposing a trade sending %s to the %s in exchange for %s. It addresses our need at %s.",
		p.namesOf(outgoing), t.FullName(), p.namesOf(incoming), wantPos)

	return trade.Draft{
		TeamA:      us,
		TeamB:      target,
		FromA:      outgoing,
		FromB:      incoming,
		ProposedBy: trade.SideA,
		Message:    msg,
		Round:      round,
	}, true
}

// pickTarget selects the player to ask for: the target's best player at
// our position of need when they have surplus there, otherwise a
// mid-value player they can plausibly part with.
func (p *Policy) pickTarget(target string, wantPos league.Position) (league.Player, bool) {
	roster := p.Store.Roster(target)
	if len(roster) == 0 {
		return league.Player{}, false
	}
	counts := p.Store.PositionCounts(target)

	if counts[wantPos] > idealPerPosition {
		var best league.Player
		bestVal := -1.0
		for _, pl := range roster {
			if pl.Position != wantPos {
				continue
			}
			if v := valuation.Value(pl); v > bestVal {
				best, bestVal = pl, v
			}
		}
		if bestVal >= 0 {
			return best, true
		}
	}

	// No surplus at the position: ask for someone from the middle of
	// their rotation instead of their best player.
	sort.Slice(roster, func(i, j int) bool {
		vi, vj := valuation.Value(roster[i]), valuation.Value(roster[j])
		if vi != vj {
			return vi > vj
		}
		return roster[i].ID < roster[j].ID
	})
	idx := len(roster) / 3
	if idx >= len(roster) {
		idx = len(roster) - 1
	}
	return roster[idx], true
}

// buildBundle assembles outgoing surplus worth at least ~70% of the
// incoming salary, lowest value first, never touching untouchables or the
// position being filled.
func (p *Policy) buildBundle(us string, wantPos league.Position, incomingSalary int64) (league.AssetList, bool) {
	roster := p.Store.Roster(us)
	sort.Slice(roster, func(i, j int) bool {
		vi, vj := valuation.Value(roster[i]), valuation.Value(roster[j])
		if vi != vj {
			return vi < vj
		}
		return roster[i].ID < roster[j].ID
	})

	wantOut := int64(float64(incomingSalary) * 0.7)
	if wantOut < 1_000_000 {
		wantOut = 1_000_000
	}

	var out league.AssetList
	var outSalary int64
	for _, pl := range roster {
		if valuation.Value(pl) > p.Tuning.UntouchableValue {
			continue
		}
		if pl.Position == wantPos {
			continue
		}
		out.Players = append(out.Players, pl.ID)
		outSalary += pl.Salary
		if outSalary >= wantOut {
			break
		}
	}
	if len(out.Players) == 0 {
		if len(roster) == 0 {
			return out, false
		}
		out.Players = append(out.Players, roster[0].ID)
	}
	return out, true
}

func (p *Policy) spareSecondRounder(abbr string) (league.DraftPick, bool) {
	picks := p.Store.Picks(abbr)
	var latest league.DraftPick
	found := false
	for _, pk := range picks {
		if pk.Round != 2 {
			continue
		}
		if !found || pk.Year > latest.Year {
			latest, found = pk, true
		}
	}
	return latest, found
}

// synthesize greedily adjusts the asset lists until the trade clears the
// validator and a relaxed threshold, or gives up within the iteration
// bound. Returns the replacement draft with the proposing side swapped.
func (p *Policy) synthesize(prop *trade.Proposal, us, them string, outgoing, incoming league.AssetList, needs NeedVector) (*trade.Draft, bool) {
	if prop.Depth >= p.Tuning.MaxCounterDepth {
		return nil, false
	}

	ours := outgoing.Clone()
	theirs := incoming.Clone()

	for i := 0; i < p.Tuning.MaxAdjustIters; i++ {
		if ours.Empty() && theirs.Empty() {
			return nil, false
		}
		delta := p.weighted(theirs, needs) - p.weighted(ours, needs)
		v := p.capFor(us, ours, theirs)

		if v == nil && delta >= p.Tuning.AcceptThreshold-p.Tuning.CounterRelax {
			if sameAssets(ours, outgoing) && sameAssets(theirs, incoming) {
				return nil, false // No adjustment was actually needed or made.
			}
			draft := p.counterDraft(prop, us, them, ours, theirs)
			return &draft, true
		}

		var changed bool
		switch {
		case v != nil && v.Code == cap.CodeSalaryMismatch:
			changed = p.fixSalary(us, &ours, &theirs)
		case v != nil && v.Code == cap.CodeRosterSize:
			changed = p.fixRoster(us, &ours, &theirs)
		default:
			changed = p.closeValueGap(us, them, &ours, &theirs)
		}
		if !changed {
			return nil, false
		}
	}
	return nil, false
}

// fixSalary repairs a salary mismatch: first attach our own ballast
// contract (raising the matching limit), then shed the largest incoming
// contract.
func (p *Policy) fixSalary(us string, ours, theirs *league.AssetList) bool {
	if id, ok := p.ballastContract(us, ours.Players); ok {
		ours.Players = append(ours.Players, id)
		return true
	}
	if id, ok := extremeSalary(p.Store, theirs.Players, true); ok {
		theirs.Players = removeID(theirs.Players, id)
		return true
	}
	return false
}

// fixRoster repairs a roster-size violation by rebalancing player counts.
func (p *Policy) fixRoster(us string, ours, theirs *league.AssetList) bool {
	size := p.Store.RosterSize(us) - len(ours.Players) + len(theirs.Players)
	if size > p.Rules.MaxRoster && len(theirs.Players) > 0 {
		id, _ := p.lowestValue(theirs.Players)
		theirs.Players = removeID(theirs.Players, id)
		return true
	}
	if size < p.Rules.MinRoster && len(ours.Players) > 0 {
		id, _ := p.lowestValue(ours.Players)
		ours.Players = removeID(ours.Players, id)
		return true
	}
	return false
}

// closeValueGap improves our side of the ledger: pull back our most
// valuable outgoing asset, or ask for another piece at our position of
// need, or ask for a first-round pick.
func (p *Policy) closeValueGap(us, them string, ours, theirs *league.AssetList) bool {
	if len(ours.Players) > 0 && !theirs.Empty() {
		if id, ok := p.highestValue(ours.Players); ok {
			ours.Players = removeID(ours.Players, id)
			return true
		}
	}

	wantPos := Needs(p.Store, us).MostNeeded()
	var best league.PlayerID
	bestVal := -1.0
	for _, pl := range p.Store.Roster(them) {
		if pl.Position != wantPos || containsID(theirs.Players, pl.ID) {
			continue
		}
		if v := valuation.Value(pl); v > bestVal {
			best, bestVal = pl.ID, v
		}
	}
	if bestVal >= 0 {
		theirs.Players = append(theirs.Players, best)
		return true
	}

	for _, pk := range p.Store.Picks(them) {
		if pk.Round == 1 && !containsPick(theirs.Picks, pk.ID) {
			theirs.Picks = append(theirs.Picks, pk.ID)
			return true
		}
	}
	return false
}

func (p *Policy) counterDraft(prop *trade.Proposal, us, them string, ours, theirs league.AssetList) trade.Draft {
	d := trade.Draft{
		TeamA:   prop.TeamA,
		TeamB:   prop.TeamB,
		Round:   prop.Round,
		Message: fmt.Sprintf("Counter from %s: %s for %s.", us, p.namesOf(ours), p.namesOf(theirs)),
	}
	if us == prop.TeamA {
		d.FromA, d.FromB = ours, theirs
		d.ProposedBy = trade.SideA
	} else {
		d.FromA, d.FromB = theirs, ours
		d.ProposedBy = trade.SideB
	}
	return d
}

// weighted values an asset list for this team, weighting each player by
// the team's need at his position.
func (p *Policy) weighted(assets league.AssetList, needs NeedVector) float64 {
	total := 0.0
	for _, id := range assets.Players {
		pl, ok := p.Store.Player(id)
		if !ok {
			continue
		}
		total += valuation.Value(pl) * needs[pl.Position]
	}
	for _, id := range assets.Picks {
		pk, ok := p.Store.Pick(id)
		if !ok {
			continue
		}
		total += valuation.PickValue(pk, p.Tuning.CurrentYear)
	}
	return total
}

func (p *Policy) capFor(team string, outgoing, incoming league.AssetList) *cap.Violation {
	sum, err := p.Store.Summary(team)
	if err != nil {
		return &cap.Violation{Code: cap.CodeRosterSize, Detail: err.Error()}
	}
	return cap.Validate(cap.Check{
		Summary:        sum,
		RosterSize:     p.Store.RosterSize(team),
		OutgoingSalary: p.Store.SalaryOf(outgoing),
		IncomingSalary: p.Store.SalaryOf(incoming),
		OutgoingCount:  len(outgoing.Players),
		IncomingCount:  len(incoming.Players),
	}, p.Rules)
}

func (p *Policy) adviceRequest(us string, incoming, outgoing league.AssetList, delta float64, needs NeedVector) oracle.Request {
	t, _ := p.Store.Team(us)
	sum, _ := p.Store.Summary(us)
	req := oracle.Request{
		Team:     us,
		TeamName: t.FullName(),
		Delta:    delta,
		Summary:  sum,
		Needs:    needs.Map(),
	}
	for _, id := range incoming.Players {
		if pl, ok := p.Store.Player(id); ok {
			req.Incoming = append(req.Incoming, pl)
		}
	}
	for _, id := range outgoing.Players {
		if pl, ok := p.Store.Player(id); ok {
			req.Outgoing = append(req.Outgoing, pl)
		}
	}
	return req
}

func (p *Policy) namesOf(assets league.AssetList) string {
	var parts []string
	for _, id := range assets.Players {
		if pl, ok := p.Store.Player(id); ok {
			parts = append(parts, fmt.Sprintf("%s ($%s)", pl.Name, humanize.Comma(pl.Salary)))
		}
	}
	for _, id := range assets.Picks {
		if pk, ok := p.Store.Pick(id); ok {
			parts = append(parts, fmt.Sprintf("%d R%d pick", pk.Year, pk.Round))
		}
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}

// ballastContract finds our largest tradeable contract not already in the
// deal — salary filler that raises the matching limit.
func (p *Policy) ballastContract(us string, already []league.PlayerID) (league.PlayerID, bool) {
	var best league.PlayerID
	var bestSalary int64 = -1
	for _, pl := range p.Store.Roster(us) {
		if containsID(already, pl.ID) || valuation.Value(pl) > p.Tuning.UntouchableValue {
			continue
		}
		if pl.Salary > bestSalary {
			best, bestSalary = pl.ID, pl.Salary
		}
	}
	return best, bestSalary >= 0
}

func (p *Policy) lowestValue(ids []league.PlayerID) (league.PlayerID, bool) {
	var best league.PlayerID
	bestVal := math.Inf(1)
	found := false
	for _, id := range ids {
		pl, ok := p.Store.Player(id)
		if !ok {
			continue
		}
		if v := valuation.Value(pl); v < bestVal {
			best, bestVal, found = id, v, true
		}
	}
	return best, found
}

func (p *Policy) highestValue(ids []league.PlayerID) (league.PlayerID, bool) {
	var best league.PlayerID
	bestVal := math.Inf(-1)
	found := false
	for _, id := range ids {
		pl, ok := p.Store.Player(id)
		if !ok {
			continue
		}
		if v := valuation.Value(pl); v > bestVal {
			best, bestVal, found = id, v, true
		}
	}
	return best, found
}

// extremeSalary returns the id with the highest (or lowest) salary.
func extremeSalary(store *league.Store, ids []league.PlayerID, highest bool) (league.PlayerID, bool) {
	var best league.PlayerID
	var bestSalary int64
	found := false
	for _, id := range ids {
		pl, ok := store.Player(id)
		if !ok {
			continue
		}
		if !found || (highest && pl.Salary > bestSalary) || (!highest && pl.Salary < bestSalary) {
			best, bestSalary, found = id, pl.Salary, true
		}
	}
	return best, found
}

func removeID(ids []league.PlayerID, id league.PlayerID) []league.PlayerID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []league.PlayerID, id league.PlayerID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsPick(ids []league.PickID, id league.PickID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sameAssets(a, b league.AssetList) bool {
	if len(a.Players) != len(b.Players) || len(a.Picks) != len(b.Picks) {
		return false
	}
	for i := range a.Players {
		if a.Players[i] != b.Players[i] {
			return false
		}
	}
	for i := range a.Picks {
		if a.Picks[i] != b.Picks[i] {
			return false
		}
	}
	return true
}

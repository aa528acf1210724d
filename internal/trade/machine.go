package trade

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/courtwire/frontoffice/internal/cap"
	"github.com/courtwire/frontoffice/internal/league"
)

// Book owns every proposal, enforces the lifecycle state machine, and
// appends to the activity log. Resolution is serialized behind the book's
// lock; the store's own lock makes trade application atomic.
type Book struct {
	mu    sync.Mutex
	store *league.Store
	rules cap.Rules

	nextID     ProposalID
	proposals  map[ProposalID]*Proposal
	openAssets map[string]ProposalID // asset key → open proposal holding it
	activity   []ActivityRecord

	now func() time.Time // Injectable clock for tests
}

// NewBook creates an empty proposal book over the store.
func NewBook(store *league.Store, rules cap.Rules) *Book {
	return &Book{
		store:      store,
		rules:      rules,
		nextID:     1,
		proposals:  make(map[ProposalID]*Proposal),
		openAssets: make(map[string]ProposalID),
		now:        time.Now,
	}
}

func playerKey(id league.PlayerID) string { return "p:" + string(id) }
func pickKey(id league.PickID) string     { return "k:" + string(id) }

// Submit validates a draft and registers it as an open proposal.
// Structural failures return ErrInvalidProposal; ownership failures return
// ErrAssetNotOwned. Nothing is recorded on failure.
func (b *Book) Submit(d Draft) (*Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitLocked(d)
}

func (b *Book) submitLocked(d Draft) (*Proposal, error) {
	if d.TeamA == d.TeamB {
		return nil, fmt.Errorf("%w: team %s on both sides", ErrInvalidProposal, d.TeamA)
	}
	if d.FromA.Empty() && d.FromB.Empty() {
		return nil, fmt.Errorf("%w: both asset lists empty", ErrInvalidProposal)
	}
	if _, ok := b.store.Team(d.TeamA); !ok {
		return nil, fmt.Errorf("%w: unknown team %q", ErrInvalidProposal, d.TeamA)
	}
	if _, ok := b.store.Team(d.TeamB); !ok {
		return nil, fmt.Errorf("%w: unknown team %q", ErrInvalidProposal, d.TeamB)
	}

	if err := b.checkOwnership(d.TeamA, d.FromA); err != nil {
		return nil, err
	}
	if err := b.checkOwnership(d.TeamB, d.FromB); err != nil {
		return nil, err
	}

	// An asset may sit in at most one open proposal at a time.
	keys := assetKeys(d.FromA, d.FromB)
	for _, k := range keys {
		if holder, busy := b.openAssets[k]; busy {
			return nil, fmt.Errorf("%w: asset %s already in open proposal %d", ErrInvalidProposal, k[2:], holder)
		}
	}

	p := &Proposal{
		ID:         b.nextID,
		TeamA:      d.TeamA,
		TeamB:      d.TeamB,
		FromA:      d.FromA.Clone(),
		FromB:      d.FromB.Clone(),
		ProposedBy: d.ProposedBy,
		Message:    d.Message,
		Status:     StatusProposed,
		CounterOf:  d.CounterOf,
		Depth:      d.Depth,
		Round:      d.Round,
		CreatedAt:  b.now(),
	}
	b.nextID++
	b.proposals[p.ID] = p
	for _, k := range keys {
		b.openAssets[k] = p.ID
	}

	b.activity = append(b.activity, newRecord(p, headlineFor(b.store, p), p.Message, p.CreatedAt))
	return p.Clone(), nil
}

// checkOwnership maps store errors onto proposal error kinds.
func (b *Book) checkOwnership(abbr string, assets league.AssetList) error {
	err := b.store.OwnsAll(abbr, assets)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, league.ErrUnknownAsset), errors.Is(err, league.ErrUnknownTeam):
		return fmt.Errorf("%w: %v", ErrInvalidProposal, err)
	case errors.Is(err, league.ErrNotOwned):
		return fmt.Errorf("%w: %v", ErrAssetNotOwned, err)
	default:
		return err
	}
}

// Get returns a copy of a proposal.
func (b *Book) Get(id ProposalID) (*Proposal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.proposals[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Open returns copies of every non-terminal proposal in id order.
func (b *Book) Open() []*Proposal {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Proposal
	for id := ProposalID(1); id < b.nextID; id++ {
		if p, ok := b.proposals[id]; ok && p.Status == StatusProposed {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Resolve applies a decision to an open proposal. It returns the activity
// record describing the outcome and, for counters, the spawned proposal.
//
// Acceptance re-validates ownership and cap legality at commit time; if
// state has moved since the proposal was created the acceptance downgrades
// to a rejection (stale), never a partial execution.
func (b *Book) Resolve(id ProposalID, d Decision) (ActivityRecord, *Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.proposals[id]
	if !ok {
		return ActivityRecord{}, nil, fmt.Errorf("%w: %d", ErrUnknownProposal, id)
	}
	if p.Status != StatusProposed {
		return ActivityRecord{}, nil, fmt.Errorf("%w: %d is %s", ErrAlreadyResolved, id, p.Status)
	}

	switch d.Kind {
	case DecideAccept:
		return b.executeLocked(p, d)
	case DecideCounter:
		return b.counterLocked(p, d)
	case DecideReject:
		b.closeLocked(p, StatusRejected)
		rec := b.record(p, d.Rationale)
		return rec, nil, nil
	default:
		return ActivityRecord{}, nil, fmt.Errorf("%w: %d", ErrUnknownDecision, d.Kind)
	}
}

func (b *Book) executeLocked(p *Proposal, d Decision) (ActivityRecord, *Proposal, error) {
	if err := b.revalidateLocked(p); err != nil {
		// Stale acceptance downgrades to rejection, attributable by reason.
		slog.Warn("acceptance downgraded to rejection",
			"proposal", p.ID, "reason", err)
		b.closeLocked(p, StatusRejected)
		rec := b.record(p, fmt.Sprintf("%v: %v", ErrStaleProposal, err))
		return rec, nil, nil
	}

	if err := b.store.ApplyTrade(p.TeamA, p.TeamB, p.FromA, p.FromB); err != nil {
		// Ownership moved between revalidation and application cannot
		// happen (both run under this lock), but keep the downgrade path.
		b.closeLocked(p, StatusRejected)
		rec := b.record(p, fmt.Sprintf("%v: %v", ErrStaleProposal, err))
		return rec, nil, nil
	}

	// Acceptance collapses into execution within the same resolution.
	p.Status = StatusExecuted
	b.releaseLocked(p)
	rec := b.record(p, d.Rationale)
	return rec, nil, nil
}

func (b *Book) counterLocked(p *Proposal, d Decision) (ActivityRecord, *Proposal, error) {
	if d.Counter == nil {
		b.closeLocked(p, StatusRejected)
		rec := b.record(p, "counter decision carried no proposal")
		return rec, nil, nil
	}

	// Free the original's assets before submitting: counters usually
	// reshuffle them. A countered status requires a spawned replacement,
	// so when the submit fails the original closes as rejected instead.
	b.releaseLocked(p)

	draft := *d.Counter
	counterOf := p.ID
	draft.CounterOf = &counterOf
	draft.Depth = p.Depth + 1

	counter, err := b.submitLocked(draft)
	if err != nil {
		p.Status = StatusRejected
		rec := b.record(p, fmt.Sprintf("counter not viable: %v", err))
		return rec, nil, nil
	}
	p.Status = StatusCountered
	rec := b.record(p, d.Rationale)
	return rec, counter, nil
}

// revalidateLocked re-checks ownership and cap legality at commit time.
func (b *Book) revalidateLocked(p *Proposal) error {
	if err := b.checkOwnership(p.TeamA, p.FromA); err != nil {
		return err
	}
	if err := b.checkOwnership(p.TeamB, p.FromB); err != nil {
		return err
	}
	if v := b.capCheck(p.TeamA, p.FromA, p.FromB); v != nil {
		return fmt.Errorf("%s: %w", p.TeamA, v)
	}
	if v := b.capCheck(p.TeamB, p.FromB, p.FromA); v != nil {
		return fmt.Errorf("%s: %w", p.TeamB, v)
	}
	return nil
}

func (b *Book) capCheck(abbr string, outgoing, incoming league.AssetList) *cap.Violation {
	sum, err := b.store.Summary(abbr)
	if err != nil {
		return &cap.Violation{Code: cap.CodeRosterSize, Detail: err.Error()}
	}
	return cap.Validate(cap.Check{
		Summary:        sum,
		RosterSize:     b.store.RosterSize(abbr),
		OutgoingSalary: b.store.SalaryOf(outgoing),
		IncomingSalary: b.store.SalaryOf(incoming),
		OutgoingCount:  len(outgoing.Players),
		IncomingCount:  len(incoming.Players),
	}, b.rules)
}

// closeLocked moves a proposal to a terminal state and frees its assets
// for other proposals.
func (b *Book) closeLocked(p *Proposal, status Status) {
	p.Status = status
	b.releaseLocked(p)
}

func (b *Book) releaseLocked(p *Proposal) {
	for _, k := range assetKeys(p.FromA, p.FromB) {
		if b.openAssets[k] == p.ID {
			delete(b.openAssets, k)
		}
	}
}

func (b *Book) record(p *Proposal, detail string) ActivityRecord {
	rec := newRecord(p, headlineFor(b.store, p), detail, b.now())
	b.activity = append(b.activity, rec)
	return rec
}

// Activity returns up to limit records, most recent first.
func (b *Book) Activity(limit int) []ActivityRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > len(b.activity) {
		limit = len(b.activity)
	}
	out := make([]ActivityRecord, 0, limit)
	for i := len(b.activity) - 1; i >= len(b.activity)-limit; i-- {
		out = append(out, b.activity[i])
	}
	return out
}

// ActivityLen returns the total number of records appended so far.
func (b *Book) ActivityLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.activity)
}

// ActivitySince returns records appended after position n, oldest first.
func (b *Book) ActivitySince(n int) []ActivityRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n > len(b.activity) {
		n = len(b.activity)
	}
	out := make([]ActivityRecord, len(b.activity)-n)
	copy(out, b.activity[n:])
	return out
}

// Proposals returns copies of every proposal in id order, for persistence.
func (b *Book) Proposals() []*Proposal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Proposal, 0, len(b.proposals))
	for id := ProposalID(1); id < b.nextID; id++ {
		if p, ok := b.proposals[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Restore loads proposals and activity from a snapshot, rebuilding the
// open-asset index and the id sequence.
func (b *Book) Restore(props []*Proposal, activity []ActivityRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.proposals = make(map[ProposalID]*Proposal, len(props))
	b.openAssets = make(map[string]ProposalID)
	b.nextID = 1
	for _, p := range props {
		cp := p.Clone()
		b.proposals[cp.ID] = cp
		if cp.ID >= b.nextID {
			b.nextID = cp.ID + 1
		}
		if cp.Status == StatusProposed {
			for _, k := range assetKeys(cp.FromA, cp.FromB) {
				b.openAssets[k] = cp.ID
			}
		}
	}
	b.activity = append([]ActivityRecord(nil), activity...)
}

// SetClock replaces the book's time source (tests and replay).
func (b *Book) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func assetKeys(lists ...league.AssetList) []string {
	var keys []string
	for _, l := range lists {
		for _, id := range l.Players {
			keys = append(keys, playerKey(id))
		}
		for _, id := range l.Picks {
			keys = append(keys, pickKey(id))
		}
	}
	return keys
}

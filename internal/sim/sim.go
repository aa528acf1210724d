// Package sim drives the league through discrete trade rounds. Each round
// runs a propose phase and an evaluate phase; policies compute in
// parallel, but every mutation of the book goes through a single
// serialized pass in deterministic order, so a given seed always yields
// the same activity sequence.
package sim

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/courtwire/frontoffice/internal/agent"
	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/trade"
)

// proposeProb is the chance a team originates a trade in a given round.
const proposeProb = 0.7

// roundStride spreads per-round seeds across the generator's state space.
const roundStride uint64 = 0x9E3779B97F4A7C15

// Simulator advances the trade market round by round.
type Simulator struct {
	store    *league.Store
	book     *trade.Book
	policies map[string]*agent.Policy
	seed     int64

	mu        sync.Mutex
	round     uint64
	attempted map[string]struct{} // Draft fingerprints already submitted
}

// New creates a simulator over the store and book. policies must hold one
// entry per team abbreviation.
func New(store *league.Store, book *trade.Book, policies map[string]*agent.Policy, seed int64) *Simulator {
	return &Simulator{
		store:     store,
		book:      book,
		policies:  policies,
		seed:      seed,
		attempted: make(map[string]struct{}),
	}
}

// Round returns the number of completed rounds.
func (s *Simulator) Round() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// SetRound restores the round counter from a snapshot.
func (s *Simulator) SetRound(r uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round = r
}

// Run executes up to maxRounds rounds, stopping early at quiescence: a
// round that submits no proposal and resolves no proposal. It returns the
// activity appended during the run.
func (s *Simulator) Run(ctx context.Context, maxRounds int) ([]trade.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.book.ActivityLen()
	for i := 0; i < maxRounds; i++ {
		if err := ctx.Err(); err != nil {
			return s.book.ActivitySince(start), err
		}
		s.round++
		submitted, resolved := s.runRound(ctx, s.round)
		slog.Info("trade round complete",
			"round", s.round, "submitted", submitted, "resolved", resolved)
		if submitted == 0 && resolved == 0 {
			slog.Info("market quiescent", "round", s.round)
			break
		}
	}
	return s.book.ActivitySince(start), nil
}

func (s *Simulator) runRound(ctx context.Context, round uint64) (submitted, resolved int) {
	order := s.store.Abbrs()
	sort.Strings(order)
	rng := rand.New(rand.NewSource(s.seed + int64(round*roundStride)))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	// Propose phase: each team decides independently whether and what to
	// offer. Parallel over a read-only store view; results land in the
	// team's slot so submission order stays deterministic.
	drafts := make([]*trade.Draft, len(order))
	var wg sync.WaitGroup
	for i, abbr := range order {
		wg.Add(1)
		go func(i int, abbr string) {
			defer wg.Done()
			drafts[i] = s.originate(abbr, round)
		}(i, abbr)
	}
	wg.Wait()

	for _, d := range drafts {
		if d == nil {
			continue
		}
		fp := fingerprint(*d)
		if _, tried := s.attempted[fp]; tried {
			continue
		}
		s.attempted[fp] = struct{}{}
		if _, err := s.book.Submit(*d); err != nil {
			slog.Debug("origination not submitted", "teams", d.TeamA+"/"+d.TeamB, "error", err)
			continue
		}
		submitted++
	}

	// Evaluate phase: every open proposal gets its responder's decision.
	// Decisions compute in parallel; resolution is a single serial pass in
	// proposal-id order.
	open := s.book.Open()
	decisions := make([]trade.Decision, len(open))
	for i, p := range open {
		wg.Add(1)
		go func(i int, p *trade.Proposal) {
			defer wg.Done()
			pol, ok := s.policies[p.Responder()]
			if !ok {
				decisions[i] = trade.Decision{Kind: trade.DecideReject, Rationale: "no front office for team"}
				return
			}
			decisions[i] = pol.Evaluate(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for i, p := range open {
		if _, _, err := s.book.Resolve(p.ID, decisions[i]); err != nil {
			slog.Warn("resolution failed", "proposal", p.ID, "error", err)
			continue
		}
		resolved++
	}
	return submitted, resolved
}

// originate picks a target for the team and builds a draft, or nil when
// the team sits the round out.
func (s *Simulator) originate(abbr string, round uint64) *trade.Draft {
	pol, ok := s.policies[abbr]
	if !ok {
		return nil
	}
	rng := rand.New(rand.NewSource(s.subSeed(abbr, round)))
	if rng.Float64() >= proposeProb {
		return nil
	}

	target, ok := s.bestTarget(abbr, rng)
	if !ok {
		return nil
	}
	d, ok := pol.ProposeTo(target, round)
	if !ok {
		return nil
	}
	return &d
}

// bestTarget selects the team whose surplus best matches our needs, with
// seeded random tie-breaking.
func (s *Simulator) bestTarget(abbr string, rng *rand.Rand) (string, bool) {
	abbrs := s.store.Abbrs()
	sort.Strings(abbrs)

	best := -1.0
	var tied []string
	for _, other := range abbrs {
		if other == abbr {
			continue
		}
		score := agent.Complementarity(s.store, abbr, other)
		switch {
		case score > best:
			best = score
			tied = tied[:0]
			tied = append(tied, other)
		case score == best:
			tied = append(tied, other)
		}
	}
	if len(tied) == 0 {
		return "", false
	}
	return tied[rng.Intn(len(tied))], true
}

// subSeed derives a stable per-team per-round seed from the master seed.
func (s *Simulator) subSeed(abbr string, round uint64) int64 {
	h := fnv.New64a()
	h.Write([]byte(abbr))
	return s.seed ^ int64(h.Sum64()) ^ int64(round*roundStride)
}

// fingerprint canonicalizes a draft's teams and assets so a rejected
// origination is never resubmitted verbatim. Counters bypass this (the
// depth bound terminates those chains).
func fingerprint(d trade.Draft) string {
	var b strings.Builder
	b.WriteString(d.TeamA)
	b.WriteByte('>')
	b.WriteString(d.TeamB)
	writeAssets := func(l league.AssetList) {
		players := make([]string, len(l.Players))
		for i, id := range l.Players {
			players[i] = string(id)
		}
		sort.Strings(players)
		picks := make([]string, len(l.Picks))
		for i, id := range l.Picks {
			picks[i] = string(id)
		}
		sort.Strings(picks)
		for _, id := range players {
			b.WriteByte('|')
			b.WriteString(id)
		}
		for _, id := range picks {
			b.WriteByte('|')
			b.WriteString(id)
		}
	}
	b.WriteByte(';')
	writeAssets(d.FromA)
	b.WriteByte(';')
	writeAssets(d.FromB)
	return b.String()
}

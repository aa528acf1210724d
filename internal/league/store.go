package league

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Store-level errors. Callers higher up map these onto proposal-level
// error kinds.
var (
	ErrUnknownTeam  = errors.New("unknown team")
	ErrUnknownAsset = errors.New("unknown asset")
	ErrNotOwned     = errors.New("asset not owned by team")
)

// Store is the single source of truth for league state. All reads go
// through copying accessors; the only mutation is ApplyTrade, which runs
// under the write lock and is all-or-nothing.
type Store struct {
	mu      sync.RWMutex
	teams   map[string]*Team // abbr → team
	players map[PlayerID]*Player
	picks   map[PickID]*DraftPick

	// Per-team asset indexes, kept in sync with TeamAbbr fields.
	rosters  map[string]map[PlayerID]struct{}
	pickSets map[string]map[PickID]struct{}
}

// NewStore builds a store from generated or loaded entities.
// Asset TeamAbbr fields are authoritative for initial ownership.
func NewStore(teams []Team, players []Player, picks []DraftPick) (*Store, error) {
	s := &Store{
		teams:    make(map[string]*Team, len(teams)),
		players:  make(map[PlayerID]*Player, len(players)),
		picks:    make(map[PickID]*DraftPick, len(picks)),
		rosters:  make(map[string]map[PlayerID]struct{}, len(teams)),
		pickSets: make(map[string]map[PickID]struct{}, len(teams)),
	}
	for i := range teams {
		t := teams[i]
		if _, dup := s.teams[t.Abbr]; dup {
			return nil, fmt.Errorf("duplicate team abbreviation %q", t.Abbr)
		}
		s.teams[t.Abbr] = &t
		s.rosters[t.Abbr] = make(map[PlayerID]struct{})
		s.pickSets[t.Abbr] = make(map[PickID]struct{})
	}
	for i := range players {
		p := players[i]
		if _, ok := s.teams[p.TeamAbbr]; !ok {
			return nil, fmt.Errorf("player %s: %w: %q", p.ID, ErrUnknownTeam, p.TeamAbbr)
		}
		if _, dup := s.players[p.ID]; dup {
			return nil, fmt.Errorf("duplicate player id %q", p.ID)
		}
		s.players[p.ID] = &p
		s.rosters[p.TeamAbbr][p.ID] = struct{}{}
	}
	for i := range picks {
		pk := picks[i]
		if _, ok := s.teams[pk.TeamAbbr]; !ok {
			return nil, fmt.Errorf("pick %s: %w: %q", pk.ID, ErrUnknownTeam, pk.TeamAbbr)
		}
		if _, dup := s.picks[pk.ID]; dup {
			return nil, fmt.Errorf("duplicate pick id %q", pk.ID)
		}
		s.picks[pk.ID] = &pk
		s.pickSets[pk.TeamAbbr][pk.ID] = struct{}{}
	}
	return s, nil
}

// Team returns a copy of the team with the given abbreviation.
func (s *Store) Team(abbr string) (Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[abbr]
	if !ok {
		return Team{}, false
	}
	return *t, true
}

// Teams returns copies of all teams, sorted by abbreviation.
func (s *Store) Teams() []Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Abbr < out[j].Abbr })
	return out
}

// Abbrs returns every team abbreviation, sorted.
func (s *Store) Abbrs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.teams))
	for abbr := range s.teams {
		out = append(out, abbr)
	}
	sort.Strings(out)
	return out
}

// Player returns a copy of the player with the given id.
func (s *Store) Player(id PlayerID) (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	return copyPlayer(p), true
}

// Pick returns a copy of the draft pick with the given id.
func (s *Store) Pick(id PickID) (DraftPick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pk, ok := s.picks[id]
	if !ok {
		return DraftPick{}, false
	}
	return *pk, true
}

// Roster returns copies of the players owned by a team, in id order.
func (s *Store) Roster(abbr string) []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.rosters[abbr]
	out := make([]Player, 0, len(ids))
	for id := range ids {
		out = append(out, copyPlayer(s.players[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Picks returns copies of the draft picks owned by a team, in id order.
func (s *Store) Picks(abbr string) []DraftPick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.pickSets[abbr]
	out := make([]DraftPick, 0, len(ids))
	for id := range ids {
		out = append(out, *s.picks[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RosterSize returns the number of players a team owns.
func (s *Store) RosterSize(abbr string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rosters[abbr])
}

// PositionCounts returns how many players a team carries at each position.
func (s *Store) PositionCounts(abbr string) [NumPositions]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts [NumPositions]int
	for id := range s.rosters[abbr] {
		counts[s.players[id].Position]++
	}
	return counts
}

// Summary computes the team's salary situation fresh from the roster.
func (s *Store) Summary(abbr string) (SalarySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[abbr]
	if !ok {
		return SalarySummary{}, fmt.Errorf("%w: %q", ErrUnknownTeam, abbr)
	}
	var total int64
	for id := range s.rosters[abbr] {
		total += s.players[id].Salary
	}
	avail := t.CapNumber - total
	if avail < 0 {
		avail = 0
	}
	return SalarySummary{
		Total:          total,
		CapNumber:      t.CapNumber,
		TaxLine:        t.TaxLine,
		AvailableSpace: avail,
		OverCap:        total > t.CapNumber,
		OverTax:        total > t.TaxLine,
	}, nil
}

// OwnsAll verifies that every asset in the list currently belongs to the
// team. Returns ErrUnknownAsset or ErrNotOwned wrapped with the asset id.
func (s *Store) OwnsAll(abbr string, assets AssetList) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownsAllLocked(abbr, assets)
}

func (s *Store) ownsAllLocked(abbr string, assets AssetList) error {
	if _, ok := s.teams[abbr]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, abbr)
	}
	for _, id := range assets.Players {
		p, ok := s.players[id]
		if !ok {
			return fmt.Errorf("player %s: %w", id, ErrUnknownAsset)
		}
		if p.TeamAbbr != abbr {
			return fmt.Errorf("player %s (held by %s): %w %s", id, p.TeamAbbr, ErrNotOwned, abbr)
		}
	}
	for _, id := range assets.Picks {
		pk, ok := s.picks[id]
		if !ok {
			return fmt.Errorf("pick %s: %w", id, ErrUnknownAsset)
		}
		if pk.TeamAbbr != abbr {
			return fmt.Errorf("pick %s (held by %s): %w %s", id, pk.TeamAbbr, ErrNotOwned, abbr)
		}
	}
	return nil
}

// SalaryOf totals the salaries of the listed players. Picks carry none.
func (s *Store) SalaryOf(assets AssetList) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, id := range assets.Players {
		if p, ok := s.players[id]; ok {
			total += p.Salary
		}
	}
	return total
}

// ApplyTrade atomically reassigns ownership of every listed asset in both
// directions. Ownership of every asset is verified under the write lock
// before anything moves, so partial application is impossible.
func (s *Store) ApplyTrade(teamA, teamB string, fromA, fromB AssetList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ownsAllLocked(teamA, fromA); err != nil {
		return err
	}
	if err := s.ownsAllLocked(teamB, fromB); err != nil {
		return err
	}

	s.moveLocked(teamA, teamB, fromA)
	s.moveLocked(teamB, teamA, fromB)
	return nil
}

func (s *Store) moveLocked(from, to string, assets AssetList) {
	for _, id := range assets.Players {
		p := s.players[id]
		p.TeamAbbr = to
		delete(s.rosters[from], id)
		s.rosters[to][id] = struct{}{}
	}
	for _, id := range assets.Picks {
		pk := s.picks[id]
		pk.TeamAbbr = to
		delete(s.pickSets[from], id)
		s.pickSets[to][id] = struct{}{}
	}
}

func copyPlayer(p *Player) Player {
	out := *p
	out.Stats = make(map[string]float64, len(p.Stats))
	for k, v := range p.Stats {
		out.Stats[k] = v
	}
	return out
}

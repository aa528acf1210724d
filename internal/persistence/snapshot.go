package persistence

import (
	"sort"

	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/trade"
)

// BuildSnapshot assembles the full persisted state from the live store and
// book. Entities are gathered team by team so the snapshot reflects one
// consistent ownership view.
func BuildSnapshot(store *league.Store, book *trade.Book, seed int64, round uint64) *Snapshot {
	abbrs := store.Abbrs()
	sort.Strings(abbrs)

	s := &Snapshot{
		Seed:  seed,
		Round: round,
	}
	for _, abbr := range abbrs {
		t, ok := store.Team(abbr)
		if !ok {
			continue
		}
		s.Teams = append(s.Teams, t)
		s.Players = append(s.Players, store.Roster(abbr)...)
		s.Picks = append(s.Picks, store.Picks(abbr)...)
	}
	s.Proposals = book.Proposals()
	s.Activity = book.ActivitySince(0)
	return s
}

package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/courtwire/frontoffice/internal/league"
)

// ActivityRecord is an immutable snapshot of a newly proposed or resolved
// proposal, appended to the league log in chronological order.
type ActivityRecord struct {
	ID         string     `json:"id"` // UUID for external consumers
	ProposalID ProposalID `json:"proposal_id"`
	Round      uint64     `json:"round"`
	Status     Status     `json:"status"`
	TeamA      string     `json:"team_a"`
	TeamB      string     `json:"team_b"`
	Headline   string     `json:"headline"`
	Detail     string     `json:"detail,omitempty"` // Reason code or rationale
	CreatedAt  time.Time  `json:"created_at"`
}

// Key returns the deterministic portion of the record: everything except
// the UUID and wall-clock timestamp. Two simulation runs from the same
// snapshot and seed produce identical key sequences.
func (r ActivityRecord) Key() string {
	return fmt.Sprintf("%d|%d|%s|%s|%s|%s|%s",
		r.ProposalID, r.Round, r.Status, r.TeamA, r.TeamB, r.Headline, r.Detail)
}

func newRecord(p *Proposal, headline, detail string, now time.Time) ActivityRecord {
	return ActivityRecord{
		ID:         uuid.NewString(),
		ProposalID: p.ID,
		Round:      p.Round,
		Status:     p.Status,
		TeamA:      p.TeamA,
		TeamB:      p.TeamB,
		Headline:   headline,
		Detail:     detail,
		CreatedAt:  now,
	}
}

// describeAssets renders an asset list as player names with a combined
// salary figure, plus pick labels.
func describeAssets(store *league.Store, assets league.AssetList) string {
	var parts []string
	var salary int64
	for _, id := range assets.Players {
		if p, ok := store.Player(id); ok {
			parts = append(parts, p.Name)
			salary += p.Salary
		}
	}
	for _, id := range assets.Picks {
		if pk, ok := store.Pick(id); ok {
			parts = append(parts, fmt.Sprintf("%d R%d pick (via %s)", pk.Year, pk.Round, pk.OriginTeam))
		}
	}
	if len(parts) == 0 {
		return "nothing"
	}
	joined := strings.Join(parts, ", ")
	if salary > 0 {
		return fmt.Sprintf("%s ($%s)", joined, humanize.Comma(salary))
	}
	return joined
}

func headlineFor(store *league.Store, p *Proposal) string {
	switch p.Status {
	case StatusProposed:
		return fmt.Sprintf("%s offers %s to %s for %s",
			p.Proposer(), describeAssets(store, p.AssetsOf(p.Proposer())),
			p.Responder(), describeAssets(store, p.AssetsOf(p.Responder())))
	case StatusExecuted:
		return fmt.Sprintf("Trade executed: %s sends %s; %s sends %s",
			p.TeamA, describeAssets(store, p.FromA),
			p.TeamB, describeAssets(store, p.FromB))
	case StatusRejected:
		return fmt.Sprintf("%s rejects offer from %s", p.Responder(), p.Proposer())
	case StatusCountered:
		return fmt.Sprintf("%s counters offer from %s", p.Responder(), p.Proposer())
	default:
		return fmt.Sprintf("proposal %d is %s", p.ID, p.Status)
	}
}

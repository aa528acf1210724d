// Package trade provides the proposal model, its lifecycle state machine,
// and the league activity log.
package trade

import (
	"fmt"
	"time"

	"github.com/courtwire/frontoffice/internal/league"
)

// ProposalID is a generation-ordered unique identifier.
type ProposalID uint64

// Side identifies which team in a proposal is speaking.
type Side uint8

const (
	SideA Side = iota
	SideB
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Status is the closed proposal lifecycle enum.
type Status uint8

const (
	StatusProposed Status = iota
	StatusAccepted
	StatusRejected
	StatusCountered
	StatusExecuted
)

// Terminal reports whether the status can never change again.
// Accepted is transitional: it becomes executed within the same resolution.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusExecuted || s == StatusCountered
}

func (s Status) String() string {
	switch s {
	case StatusProposed:
		return "proposed"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusCountered:
		return "countered"
	case StatusExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// ParseStatus converts the string form back to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "proposed":
		return StatusProposed, nil
	case "accepted":
		return StatusAccepted, nil
	case "rejected":
		return StatusRejected, nil
	case "countered":
		return StatusCountered, nil
	case "executed":
		return StatusExecuted, nil
	default:
		return 0, fmt.Errorf("unknown status %q", s)
	}
}

// MarshalJSON encodes the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes the string form.
func (s *Status) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Proposal is one trade offer between two teams.
type Proposal struct {
	ID         ProposalID       `json:"id"`
	TeamA      string           `json:"team_a"`
	TeamB      string           `json:"team_b"`
	FromA      league.AssetList `json:"from_a"`
	FromB      league.AssetList `json:"from_b"`
	ProposedBy Side             `json:"proposed_by"`
	Message    string           `json:"message"`
	Status     Status           `json:"status"`
	CounterOf  *ProposalID      `json:"counter_of,omitempty"`
	Depth      int              `json:"depth"` // Length of the counter chain behind this proposal
	Round      uint64           `json:"round"` // Simulation round it was created in, 0 for user proposals
	CreatedAt  time.Time        `json:"created_at"`
}

// Proposer returns the abbreviation of the proposing team.
func (p *Proposal) Proposer() string {
	if p.ProposedBy == SideA {
		return p.TeamA
	}
	return p.TeamB
}

// Responder returns the abbreviation of the team that must answer.
func (p *Proposal) Responder() string {
	if p.ProposedBy == SideA {
		return p.TeamB
	}
	return p.TeamA
}

// AssetsOf returns the asset list a given team sends.
func (p *Proposal) AssetsOf(abbr string) league.AssetList {
	if abbr == p.TeamA {
		return p.FromA
	}
	return p.FromB
}

// Clone returns a deep copy of the proposal.
func (p *Proposal) Clone() *Proposal {
	out := *p
	out.FromA = p.FromA.Clone()
	out.FromB = p.FromB.Clone()
	if p.CounterOf != nil {
		c := *p.CounterOf
		out.CounterOf = &c
	}
	return &out
}

// DecisionKind tags the Decision variant.
type DecisionKind uint8

const (
	DecideAccept DecisionKind = iota
	DecideReject
	DecideCounter
)

func (k DecisionKind) String() string {
	switch k {
	case DecideAccept:
		return "accept"
	case DecideReject:
		return "reject"
	case DecideCounter:
		return "counter"
	default:
		return "unknown"
	}
}

// Decision is the tagged-variant outcome of evaluating a proposal.
// Counter is set only when Kind == DecideCounter.
type Decision struct {
	Kind      DecisionKind
	Counter   *Draft // Replacement offer, proposing side already swapped
	Rationale string // Human-readable reasoning, engine-inert
}

// Draft is the input for creating a proposal through the Book.
type Draft struct {
	TeamA      string
	TeamB      string
	FromA      league.AssetList
	FromB      league.AssetList
	ProposedBy Side
	Message    string
	CounterOf  *ProposalID
	Depth      int
	Round      uint64
}

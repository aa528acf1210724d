// Claude-backed advisor — builds a GM persona prompt for a trade and
// parses the JSON opinion. Any failure falls through to the caller's
// numeric decision; nothing here is load-bearing.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ClaudeAdvisor asks the model for a qualitative trade opinion.
type ClaudeAdvisor struct {
	client  *Client
	timeout time.Duration
}

// NewClaudeAdvisor wraps a client. Returns nil when the client is
// disabled so callers can fall back to the rule-based advisor.
func NewClaudeAdvisor(client *Client) *ClaudeAdvisor {
	if !client.Enabled() {
		return nil
	}
	return &ClaudeAdvisor{client: client, timeout: 15 * time.Second}
}

type opinion struct {
	Decision  string `json:"decision"`
	Reasoning string `json:"reasoning"`
}

// Advise implements Advisor.
func (a *ClaudeAdvisor) Advise(ctx context.Context, req Request) (Advice, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	system := buildSystemPrompt(req)
	user := buildUserPrompt(req)

	text, err := a.client.Complete(ctx, system, user, 400)
	if err != nil {
		return Advice{}, fmt.Errorf("advise: %w", err)
	}
	return parseOpinion(text)
}

func buildSystemPrompt(req Request) string {
	return fmt.Sprintf(
		`You are the General Manager of the %s. You are evaluating a trade offer.
Respond ONLY with a single JSON object:
- "decision": one of "accept", "reject", "counter"
- "reasoning": 2-3 sentences explaining the call from your team's perspective`,
		req.TeamName,
	)
}

func buildUserPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You receive:\n")
	for _, p := range req.Incoming {
		fmt.Fprintf(&b, "- %s (%s, age %d, $%s, %d yrs left, %.1f ppg / %.1f rpg / %.1f apg)\n",
			p.Name, p.Position, p.Age, humanize.Comma(p.Salary), p.ContractYears,
			p.Stat("ppg"), p.Stat("rpg"), p.Stat("apg"))
	}
	b.WriteString("\nYou send:\n")
	for _, p := range req.Outgoing {
		fmt.Fprintf(&b, "- %s (%s, age %d, $%s, %d yrs left, %.1f ppg / %.1f rpg / %.1f apg)\n",
			p.Name, p.Position, p.Age, humanize.Comma(p.Salary), p.ContractYears,
			p.Stat("ppg"), p.Stat("rpg"), p.Stat("apg"))
	}

	fmt.Fprintf(&b, "\nPayroll: $%s against a $%s cap (tax line $%s).\n",
		humanize.Comma(req.Summary.Total), humanize.Comma(req.Summary.CapNumber),
		humanize.Comma(req.Summary.TaxLine))

	if len(req.Needs) > 0 {
		positions := make([]string, 0, len(req.Needs))
		for pos := range req.Needs {
			positions = append(positions, pos)
		}
		sort.Strings(positions)
		b.WriteString("Positional needs (higher = more needed): ")
		for i, pos := range positions {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %.2f", pos, req.Needs[pos])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nOur front office model scores this at %+.1f net value. What is your call?", req.Delta)
	return b.String()
}

func parseOpinion(text string) (Advice, error) {
	// Find the JSON object in the response (the model might include
	// surrounding prose).
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return Advice{}, fmt.Errorf("no JSON object found in response")
	}

	var op opinion
	if err := json.Unmarshal([]byte(text[start:end+1]), &op); err != nil {
		return Advice{}, fmt.Errorf("parse opinion: %w", err)
	}

	advice := Advice{Rationale: op.Reasoning}
	switch strings.ToLower(op.Decision) {
	case "accept":
		advice.Signal = SignalAccept
	case "reject":
		advice.Signal = SignalReject
	case "counter":
		advice.Signal = SignalCounter
	default:
		advice.Signal = SignalNone
	}
	return advice, nil
}

// Package league provides the entity model and the in-memory entity store:
// teams, players, draft picks, and the single mutation authority that
// applies executed trades.
package league

import "fmt"

// PlayerID is a unique identifier for a player (e.g. "LAL_7").
type PlayerID string

// PickID is a unique identifier for a draft-pick asset (e.g. "BOS_2027_R1").
type PickID string

// Position is a player's position on the floor.
type Position uint8

const (
	PointGuard Position = iota
	ShootingGuard
	SmallForward
	PowerForward
	Center
)

// NumPositions is the total number of positions.
const NumPositions = 5

// Positions lists every position in canonical order.
var Positions = [NumPositions]Position{
	PointGuard, ShootingGuard, SmallForward, PowerForward, Center,
}

// String returns the conventional abbreviation (PG, SG, SF, PF, C).
func (p Position) String() string {
	switch p {
	case PointGuard:
		return "PG"
	case ShootingGuard:
		return "SG"
	case SmallForward:
		return "SF"
	case PowerForward:
		return "PF"
	case Center:
		return "C"
	default:
		return "??"
	}
}

// MarshalJSON encodes the position as its abbreviation.
func (p Position) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON decodes a position abbreviation.
func (p *Position) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParsePosition(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePosition converts an abbreviation back to a Position.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "PG":
		return PointGuard, nil
	case "SG":
		return ShootingGuard, nil
	case "SF":
		return SmallForward, nil
	case "PF":
		return PowerForward, nil
	case "C":
		return Center, nil
	default:
		return 0, fmt.Errorf("unknown position %q", s)
	}
}

// Player is a rostered player. Everything except the owning team and
// contract fields is immutable; ownership changes only through an
// executed trade applied by the Store.
type Player struct {
	ID            PlayerID           `json:"id"`
	Name          string             `json:"name"`
	Position      Position           `json:"position"`
	Age           int                `json:"age"`
	HeightIn      int                `json:"height_in"` // Inches
	WeightLb      int                `json:"weight_lb"`
	Salary        int64              `json:"salary"` // Dollars per year
	ContractYears int                `json:"contract_years"`
	Stats         map[string]float64 `json:"stats"` // ppg, rpg, apg, spg, bpg, fg_pct, fg3_pct
	TeamAbbr      string             `json:"team_abbr"`
}

// Height formats the player's height as feet'inches".
func (p *Player) Height() string {
	return fmt.Sprintf("%d'%d\"", p.HeightIn/12, p.HeightIn%12)
}

// Stat returns a named stat, or zero if unrecorded.
func (p *Player) Stat(name string) float64 {
	return p.Stats[name]
}

// DraftPick is a placeholder future asset. It carries no salary and does
// not count toward roster size, but moves between teams like a player.
type DraftPick struct {
	ID         PickID `json:"id"`
	OriginTeam string `json:"origin_team"` // Abbreviation of the team that originally held it
	Year       int    `json:"year"`
	Round      int    `json:"round"` // 1 or 2
	TeamAbbr   string `json:"team_abbr"`
}

// Team is a franchise. Roster membership lives on the assets (TeamAbbr)
// and in the store's indexes, not on the team itself.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbr         string `json:"abbr"` // Stable external identifier
	City         string `json:"city"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`
	CapNumber    int64  `json:"cap_number"` // League-wide, mirrored per team
	TaxLine      int64  `json:"tax_line"`
}

// FullName returns "City Name".
func (t *Team) FullName() string {
	return t.City + " " + t.Name
}

// SalarySummary is derived from the store on demand and never cached.
type SalarySummary struct {
	Total          int64 `json:"total"`
	CapNumber      int64 `json:"cap_number"`
	TaxLine        int64 `json:"tax_line"`
	AvailableSpace int64 `json:"available_space"`
	OverCap        bool  `json:"over_cap"`
	OverTax        bool  `json:"over_tax"`
}

// AssetList names the assets one side sends in a trade.
type AssetList struct {
	Players []PlayerID `json:"players"`
	Picks   []PickID   `json:"picks"`
}

// Empty reports whether the list names no assets at all.
func (a AssetList) Empty() bool {
	return len(a.Players) == 0 && len(a.Picks) == 0
}

// Clone returns a deep copy.
func (a AssetList) Clone() AssetList {
	out := AssetList{}
	out.Players = append(out.Players, a.Players...)
	out.Picks = append(out.Picks, a.Picks...)
	return out
}

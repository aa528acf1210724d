// Sample league generation — deterministic from a seed, in the spirit of
// the 2023-24 league: 30 franchises, 15 players each, five future picks.
package league

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// League-wide salary figures (2023-24 cap year).
const (
	DefaultCapNumber int64 = 123_000_000
	DefaultTaxLine   int64 = 150_000_000
)

const (
	playersPerTeam = 15
	picksPerTeam   = 5
	baseDraftYear  = 2025
)

type franchise struct {
	id, name, abbr, city, conference, division string
}

var franchises = []franchise{
	{"1", "Hawks", "ATL", "Atlanta", "East", "Southeast"},
	{"2", "Celtics", "BOS", "Boston", "East", "Atlantic"},
	{"3", "Nets", "BKN", "Brooklyn", "East", "Atlantic"},
	{"4", "Hornets", "CHA", "Charlotte", "East", "Southeast"},
	{"5", "Bulls", "CHI", "Chicago", "East", "Central"},
	{"6", "Cavaliers", "CLE", "Cleveland", "East", "Central"},
	{"7", "Mavericks", "DAL", "Dallas", "West", "Southwest"},
	{"8", "Nuggets", "DEN", "Denver", "West", "Northwest"},
	{"9", "Pistons", "DET", "Detroit", "East", "Central"},
	{"10", "Warriors", "GSW", "Golden State", "West", "Pacific"},
	{"11", "Rockets", "HOU", "Houston", "West", "Southwest"},
	{"12", "Pacers", "IND", "Indiana", "East", "Central"},
	{"13", "Clippers", "LAC", "Los Angeles", "West", "Pacific"},
	{"14", "Lakers", "LAL", "Los Angeles", "West", "Pacific"},
	{"15", "Grizzlies", "MEM", "Memphis", "West", "Southwest"},
	{"16", "Heat", "MIA", "Miami", "East", "Southeast"},
	{"17", "Bucks", "MIL", "Milwaukee", "East", "Central"},
	{"18", "Timberwolves", "MIN", "Minnesota", "West", "Northwest"},
	{"19", "Pelicans", "NOP", "New Orleans", "West", "Southwest"},
	{"20", "Knicks", "NYK", "New York", "East", "Atlantic"},
	{"21", "Thunder", "OKC", "Oklahoma City", "West", "Northwest"},
	{"22", "Magic", "ORL", "Orlando", "East", "Southeast"},
	{"23", "76ers", "PHI", "Philadelphia", "East", "Atlantic"},
	{"24", "Suns", "PHX", "Phoenix", "West", "Pacific"},
	{"25", "Trail Blazers", "POR", "Portland", "West", "Northwest"},
	{"26", "Kings", "SAC", "Sacramento", "West", "Pacific"},
	{"27", "Spurs", "SAS", "San Antonio", "West", "Southwest"},
	{"28", "Raptors", "TOR", "Toronto", "East", "Atlantic"},
	{"29", "Jazz", "UTA", "Utah", "West", "Northwest"},
	{"30", "Wizards", "WAS", "Washington", "East", "Southeast"},
}

var firstNames = []string{
	"Marcus", "Jalen", "Devin", "Tyrese", "Keegan", "Darius", "Malik",
	"Jaylen", "Desmond", "Cameron", "Isaiah", "Trey", "Anthony", "Jordan",
	"Zion", "Grant", "Caleb", "Victor", "Amari", "Quentin",
}

var lastNames = []string{
	"Johnson", "Williams", "Carter", "Mitchell", "Brooks", "Hayes",
	"Thompson", "Rivers", "Murray", "Porter", "Vassell", "Okoro",
	"Mathurin", "Sengun", "Wallace", "Daniels", "Reaves", "Giddey",
	"Sharpe", "Duren",
}

// Generate builds the full sample league deterministically from a seed.
// OpenSimplex noise shapes each team's talent curve so rosters vary
// smoothly rather than uniformly at random.
func Generate(seed int64) ([]Team, []Player, []DraftPick) {
	rng := rand.New(rand.NewSource(seed))
	noise := opensimplex.NewNormalized(seed)

	teams := make([]Team, 0, len(franchises))
	players := make([]Player, 0, len(franchises)*playersPerTeam)
	picks := make([]DraftPick, 0, len(franchises)*picksPerTeam)

	for ti, fr := range franchises {
		teams = append(teams, Team{
			ID:         fr.id,
			Name:       fr.name,
			Abbr:       fr.abbr,
			City:       fr.city,
			Conference: fr.conference,
			Division:   fr.division,
			CapNumber:  DefaultCapNumber,
			TaxLine:    DefaultTaxLine,
		})

		for slot := 1; slot <= playersPerTeam; slot++ {
			players = append(players, generatePlayer(fr.abbr, ti, slot, rng, noise))
		}

		// Five future picks: both rounds next two years, first round the year after.
		for i := 0; i < picksPerTeam; i++ {
			year := baseDraftYear + i/2
			round := i%2 + 1
			picks = append(picks, DraftPick{
				ID:         PickID(fmt.Sprintf("%s_%d_R%d", fr.abbr, year, round)),
				OriginTeam: fr.abbr,
				Year:       year,
				Round:      round,
				TeamAbbr:   fr.abbr,
			})
		}
	}

	return teams, players, picks
}

// generatePlayer fills one roster slot. Slots 1-5 are starters, 6-10 the
// rotation, 11-15 the bench; salary and production follow the slot with
// noise-driven variation.
func generatePlayer(abbr string, teamIdx, slot int, rng *rand.Rand, noise opensimplex.Noise) Player {
	pos := Positions[(slot-1)%NumPositions]

	// Talent in [0,1): starters high, bench low, perturbed by smooth noise
	// so some teams run deep and others top-heavy.
	tier := 1.0 - float64(slot-1)/float64(playersPerTeam)
	wobble := noise.Eval2(float64(teamIdx)*0.35, float64(slot)*0.6) // [0,1)
	talent := clamp01(tier*0.7 + wobble*0.3)

	salary := int64(1_500_000 + talent*talent*38_500_000)
	// Round to a plausible contract figure.
	salary -= salary % 100_000

	age := 20 + rng.Intn(15)
	contract := 1 + rng.Intn(4)

	ppg := 4 + talent*26 + rng.Float64()*2
	rpg := 2 + talent*8 + rng.Float64()*1.5
	apg := 1 + talent*7 + rng.Float64()*1.5
	if pos == Center || pos == PowerForward {
		rpg += 2.5
		apg *= 0.6
	}
	if pos == PointGuard {
		apg += 2.5
		rpg *= 0.7
	}

	return Player{
		ID:            PlayerID(fmt.Sprintf("%s_%d", abbr, slot)),
		Name:          firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))],
		Position:      pos,
		Age:           age,
		HeightIn:      73 + int(pos)*2 + rng.Intn(3),
		WeightLb:      175 + int(pos)*15 + rng.Intn(20),
		Salary:        salary,
		ContractYears: contract,
		Stats: map[string]float64{
			"ppg":     round1(ppg),
			"rpg":     round1(rpg),
			"apg":     round1(apg),
			"spg":     round1(0.4 + talent*1.4),
			"bpg":     round1(0.2 + talent*float64(pos)*0.4),
			"fg_pct":  round3(0.41 + talent*0.12 + rng.Float64()*0.02),
			"fg3_pct": round3(0.30 + talent*0.10 + rng.Float64()*0.02),
		},
		TeamAbbr: abbr,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }

func round3(v float64) float64 { return float64(int(v*1000+0.5)) / 1000 }

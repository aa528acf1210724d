// Package persistence provides SQLite-based league snapshot storage. A
// snapshot is the complete market state: entities, the proposal book, the
// activity log, and the simulation counters.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/trade"
)

// Snapshot is the full persisted state of a league.
type Snapshot struct {
	Seed      int64
	Round     uint64
	Teams     []league.Team
	Players   []league.Player
	Picks     []league.DraftPick
	Proposals []*trade.Proposal
	Activity  []trade.ActivityRecord
}

// DB wraps a SQLite connection for league state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teams (
		abbr TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		conference TEXT NOT NULL,
		division TEXT NOT NULL,
		cap_number INTEGER NOT NULL,
		tax_line INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		age INTEGER NOT NULL,
		height_in INTEGER NOT NULL,
		weight_lb INTEGER NOT NULL,
		salary INTEGER NOT NULL,
		contract_years INTEGER NOT NULL,
		stats_json TEXT NOT NULL,
		team_abbr TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS picks (
		id TEXT PRIMARY KEY,
		origin_team TEXT NOT NULL,
		year INTEGER NOT NULL,
		round INTEGER NOT NULL,
		team_abbr TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS proposals (
		id INTEGER PRIMARY KEY,
		team_a TEXT NOT NULL,
		team_b TEXT NOT NULL,
		from_a_json TEXT NOT NULL,
		from_b_json TEXT NOT NULL,
		proposed_by INTEGER NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL,
		counter_of INTEGER,
		depth INTEGER NOT NULL,
		round INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		proposal_id INTEGER NOT NULL,
		round INTEGER NOT NULL,
		status TEXT NOT NULL,
		team_a TEXT NOT NULL,
		team_b TEXT NOT NULL,
		headline TEXT NOT NULL,
		detail TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS league_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_players_team ON players(team_abbr);
	CREATE INDEX IF NOT EXISTS idx_picks_team ON picks(team_abbr);
	CREATE INDEX IF NOT EXISTS idx_activity_round ON activity(round);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// HasState reports whether a previous snapshot exists.
func (db *DB) HasState() (bool, error) {
	var count int
	err := db.conn.Get(&count, "SELECT COUNT(*) FROM league_meta WHERE key = 'seed'")
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save writes the snapshot as a full replace in one transaction.
func (db *DB) Save(s *Snapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"teams", "players", "picks", "proposals", "activity", "league_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := saveTeams(tx, s.Teams); err != nil {
		return err
	}
	if err := savePlayers(tx, s.Players); err != nil {
		return err
	}
	if err := savePicks(tx, s.Picks); err != nil {
		return err
	}
	if err := saveProposals(tx, s.Proposals); err != nil {
		return err
	}
	if err := saveActivity(tx, s.Activity); err != nil {
		return err
	}

	meta := map[string]string{
		"seed":        fmt.Sprintf("%d", s.Seed),
		"round":       fmt.Sprintf("%d", s.Round),
		"snapshot_id": uuid.NewString(),
		"saved_at":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT INTO league_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("snapshot saved",
		"teams", len(s.Teams), "players", len(s.Players),
		"proposals", len(s.Proposals), "activity", len(s.Activity))
	return nil
}

func saveTeams(tx *sqlx.Tx, teams []league.Team) error {
	stmt, err := tx.Preparex(`INSERT INTO teams
		(abbr, id, name, city, conference, division, cap_number, tax_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range teams {
		_, err := stmt.Exec(t.Abbr, t.ID, t.Name, t.City, t.Conference, t.Division, t.CapNumber, t.TaxLine)
		if err != nil {
			return fmt.Errorf("insert team %s: %w", t.Abbr, err)
		}
	}
	return nil
}

func savePlayers(tx *sqlx.Tx, players []league.Player) error {
	stmt, err := tx.Preparex(`INSERT INTO players
		(id, name, position, age, height_in, weight_lb, salary, contract_years, stats_json, team_abbr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		statsJSON, _ := json.Marshal(p.Stats)
		_, err := stmt.Exec(string(p.ID), p.Name, uint8(p.Position), p.Age,
			p.HeightIn, p.WeightLb, p.Salary, p.ContractYears, string(statsJSON), p.TeamAbbr)
		if err != nil {
			return fmt.Errorf("insert player %s: %w", p.ID, err)
		}
	}
	return nil
}

func savePicks(tx *sqlx.Tx, picks []league.DraftPick) error {
	stmt, err := tx.Preparex(`INSERT INTO picks
		(id, origin_team, year, round, team_abbr)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, pk := range picks {
		_, err := stmt.Exec(string(pk.ID), pk.OriginTeam, pk.Year, pk.Round, pk.TeamAbbr)
		if err != nil {
			return fmt.Errorf("insert pick %s: %w", pk.ID, err)
		}
	}
	return nil
}

func saveProposals(tx *sqlx.Tx, props []*trade.Proposal) error {
	stmt, err := tx.Preparex(`INSERT INTO proposals
		(id, team_a, team_b, from_a_json, from_b_json, proposed_by, message,
		 status, counter_of, depth, round, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range props {
		fromA, _ := json.Marshal(p.FromA)
		fromB, _ := json.Marshal(p.FromB)
		var counterOf any
		if p.CounterOf != nil {
			counterOf = uint64(*p.CounterOf)
		}
		_, err := stmt.Exec(uint64(p.ID), p.TeamA, p.TeamB, string(fromA), string(fromB),
			uint8(p.ProposedBy), p.Message, p.Status.String(), counterOf,
			p.Depth, p.Round, p.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert proposal %d: %w", p.ID, err)
		}
	}
	return nil
}

func saveActivity(tx *sqlx.Tx, records []trade.ActivityRecord) error {
	stmt, err := tx.Preparex(`INSERT INTO activity
		(id, proposal_id, round, status, team_a, team_b, headline, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(r.ID, uint64(r.ProposalID), r.Round, r.Status.String(),
			r.TeamA, r.TeamB, r.Headline, r.Detail,
			r.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert activity %s: %w", r.ID, err)
		}
	}
	return nil
}

// Load reads the most recent snapshot back.
func (db *DB) Load() (*Snapshot, error) {
	s := &Snapshot{}

	meta := map[string]string{}
	rows, err := db.conn.Queryx("SELECT key, value FROM league_meta")
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, err
		}
		meta[k] = v
	}
	rows.Close()
	if _, err := fmt.Sscanf(meta["seed"], "%d", &s.Seed); err != nil {
		return nil, fmt.Errorf("parse meta seed %q: %w", meta["seed"], err)
	}
	if _, err := fmt.Sscanf(meta["round"], "%d", &s.Round); err != nil {
		return nil, fmt.Errorf("parse meta round %q: %w", meta["round"], err)
	}

	if s.Teams, err = db.loadTeams(); err != nil {
		return nil, err
	}
	if s.Players, err = db.loadPlayers(); err != nil {
		return nil, err
	}
	if s.Picks, err = db.loadPicks(); err != nil {
		return nil, err
	}
	if s.Proposals, err = db.loadProposals(); err != nil {
		return nil, err
	}
	if s.Activity, err = db.loadActivity(); err != nil {
		return nil, err
	}

	slog.Info("snapshot loaded",
		"teams", len(s.Teams), "players", len(s.Players),
		"proposals", len(s.Proposals), "round", s.Round)
	return s, nil
}

func (db *DB) loadTeams() ([]league.Team, error) {
	rows, err := db.conn.Queryx(`SELECT abbr, id, name, city, conference, division,
		cap_number, tax_line FROM teams ORDER BY abbr`)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	defer rows.Close()

	var teams []league.Team
	for rows.Next() {
		var t league.Team
		if err := rows.Scan(&t.Abbr, &t.ID, &t.Name, &t.City, &t.Conference,
			&t.Division, &t.CapNumber, &t.TaxLine); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (db *DB) loadPlayers() ([]league.Player, error) {
	rows, err := db.conn.Queryx(`SELECT id, name, position, age, height_in, weight_lb,
		salary, contract_years, stats_json, team_abbr FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	defer rows.Close()

	var players []league.Player
	for rows.Next() {
		var p league.Player
		var id, statsJSON string
		var pos uint8
		if err := rows.Scan(&id, &p.Name, &pos, &p.Age, &p.HeightIn, &p.WeightLb,
			&p.Salary, &p.ContractYears, &statsJSON, &p.TeamAbbr); err != nil {
			return nil, err
		}
		p.ID = league.PlayerID(id)
		p.Position = league.Position(pos)
		if err := json.Unmarshal([]byte(statsJSON), &p.Stats); err != nil {
			return nil, fmt.Errorf("player %s stats: %w", id, err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (db *DB) loadPicks() ([]league.DraftPick, error) {
	rows, err := db.conn.Queryx(`SELECT id, origin_team, year, round, team_abbr
		FROM picks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load picks: %w", err)
	}
	defer rows.Close()

	var picks []league.DraftPick
	for rows.Next() {
		var pk league.DraftPick
		var id string
		if err := rows.Scan(&id, &pk.OriginTeam, &pk.Year, &pk.Round, &pk.TeamAbbr); err != nil {
			return nil, err
		}
		pk.ID = league.PickID(id)
		picks = append(picks, pk)
	}
	return picks, rows.Err()
}

func (db *DB) loadProposals() ([]*trade.Proposal, error) {
	rows, err := db.conn.Queryx(`SELECT id, team_a, team_b, from_a_json, from_b_json,
		proposed_by, message, status, counter_of, depth, round, created_at
		FROM proposals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	defer rows.Close()

	var props []*trade.Proposal
	for rows.Next() {
		var p trade.Proposal
		var id, depth, round uint64
		var fromA, fromB, status, createdAt string
		var proposedBy uint8
		var counterOf sql.NullInt64
		if err := rows.Scan(&id, &p.TeamA, &p.TeamB, &fromA, &fromB, &proposedBy,
			&p.Message, &status, &counterOf, &depth, &round, &createdAt); err != nil {
			return nil, err
		}
		p.ID = trade.ProposalID(id)
		p.ProposedBy = trade.Side(proposedBy)
		p.Depth = int(depth)
		p.Round = round
		if err := json.Unmarshal([]byte(fromA), &p.FromA); err != nil {
			return nil, fmt.Errorf("proposal %d assets: %w", id, err)
		}
		if err := json.Unmarshal([]byte(fromB), &p.FromB); err != nil {
			return nil, fmt.Errorf("proposal %d assets: %w", id, err)
		}
		st, err := trade.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("proposal %d: %w", id, err)
		}
		p.Status = st
		if counterOf.Valid {
			c := trade.ProposalID(counterOf.Int64)
			p.CounterOf = &c
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("proposal %d timestamp: %w", id, err)
		}
		props = append(props, &p)
	}
	return props, rows.Err()
}

func (db *DB) loadActivity() ([]trade.ActivityRecord, error) {
	rows, err := db.conn.Queryx(`SELECT id, proposal_id, round, status, team_a, team_b,
		headline, detail, created_at FROM activity ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	defer rows.Close()

	var records []trade.ActivityRecord
	for rows.Next() {
		var r trade.ActivityRecord
		var pid uint64
		var status, createdAt string
		if err := rows.Scan(&r.ID, &pid, &r.Round, &status, &r.TeamA, &r.TeamB,
			&r.Headline, &r.Detail, &createdAt); err != nil {
			return nil, err
		}
		r.ProposalID = trade.ProposalID(pid)
		st, err := trade.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", r.ID, err)
		}
		r.Status = st
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("activity %s timestamp: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

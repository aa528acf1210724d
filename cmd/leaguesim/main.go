// Command leaguesim runs the autonomous trade market: 30 front offices
// proposing, countering, and executing trades under the salary cap.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtwire/frontoffice/internal/agent"
	"github.com/courtwire/frontoffice/internal/api"
	"github.com/courtwire/frontoffice/internal/cap"
	"github.com/courtwire/frontoffice/internal/config"
	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/oracle"
	"github.com/courtwire/frontoffice/internal/persistence"
	"github.com/courtwire/frontoffice/internal/sim"
	"github.com/courtwire/frontoffice/internal/trade"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Generate League ───────────────────────────────────────
	rules := cap.Rules{
		Tolerance: cfg.SalaryTolerance,
		MinRoster: cfg.MinRoster,
		MaxRoster: cfg.MaxRoster,
	}

	var store *league.Store
	var snap *persistence.Snapshot
	seed := cfg.Seed
	var startRound uint64

	hasState, err := db.HasState()
	if err != nil {
		slog.Error("state check failed", "error", err)
		os.Exit(1)
	}

	if hasState {
		slog.Info("found saved league state, loading...")
		snap, err = db.Load()
		if err != nil {
			slog.Error("failed to load league", "error", err)
			os.Exit(1)
		}
		seed = snap.Seed
		startRound = snap.Round
		store, err = league.NewStore(snap.Teams, snap.Players, snap.Picks)
		if err != nil {
			slog.Error("loaded league is inconsistent", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("no saved state found, generating new league...", "seed", seed)
		teams, players, picks := league.Generate(seed)
		for i := range teams {
			teams[i].CapNumber = cfg.CapNumber
			teams[i].TaxLine = cfg.TaxLine
		}
		store, err = league.NewStore(teams, players, picks)
		if err != nil {
			slog.Error("generated league is inconsistent", "error", err)
			os.Exit(1)
		}
	}

	book := trade.NewBook(store, rules)
	if snap != nil {
		book.Restore(snap.Proposals, snap.Activity)
	}

	// ── Front Offices ─────────────────────────────────────────────────
	var advisor oracle.Advisor
	if claude := oracle.NewClaudeAdvisor(oracle.NewClient(cfg.AnthropicAPIKey)); claude != nil {
		advisor = claude
		slog.Info("LLM advisor enabled (Haiku)")
	} else {
		slog.Info("LLM advisor disabled, using rule-based reasoning")
	}

	tuning := agent.DefaultTuning()
	tuning.AcceptThreshold = cfg.AcceptThreshold
	tuning.CounterFloor = cfg.CounterFloor
	tuning.MaxCounterDepth = cfg.MaxCounterDepth

	policies := make(map[string]*agent.Policy)
	for _, abbr := range store.Abbrs() {
		policies[abbr] = agent.NewPolicy(abbr, store, rules, advisor, tuning)
	}

	simulator := sim.New(store, book, policies, seed)
	simulator.SetRound(startRound)

	slog.Info("league ready",
		"teams", len(store.Abbrs()),
		"round", startRound,
		"activity", book.ActivityLen(),
	)

	// Save on fresh generation only (loaded leagues are already saved).
	if snap == nil {
		if err := db.Save(persistence.BuildSnapshot(store, book, seed, 0)); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Startup Rounds ────────────────────────────────────────────────
	if cfg.Rounds > 0 {
		slog.Info("running startup rounds", "rounds", cfg.Rounds)
		records, err := simulator.Run(context.Background(), cfg.Rounds)
		if err != nil {
			slog.Error("startup simulation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("startup rounds complete", "activity", len(records))
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	apiServer := &api.Server{
		Store:    store,
		Book:     book,
		Sim:      simulator,
		Policies: policies,
		DB:       db,
		Seed:     seed,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
		Advisory: advisor != nil,
	}
	apiServer.Start()

	// ── Background Rounds ─────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runner *sim.Runner
	if cfg.AutoRoundSeconds > 0 {
		runner = sim.NewRunner(simulator, time.Duration(cfg.AutoRoundSeconds)*time.Second)
		runner.Start(ctx)
	}

	fmt.Printf("\nThe trade market is open: %d teams, round %d.\n", len(store.Abbrs()), simulator.Round())
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Running... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	cancel()
	if runner != nil {
		runner.Stop()
	}

	if cfg.SaveOnShutdown {
		slog.Info("final save...")
		if err := db.Save(persistence.BuildSnapshot(store, book, seed, simulator.Round())); err != nil {
			slog.Error("final save failed", "error", err)
		}
	}

	fmt.Println("Market closed. League state saved.")
}

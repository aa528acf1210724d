// Package api provides the HTTP API for the trade market.
// GET endpoints are public (read-only observation).
// POST endpoints for league control require a bearer token; user trade
// proposals are public but rate-limited.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/courtwire/frontoffice/internal/agent"
	"github.com/courtwire/frontoffice/internal/league"
	"github.com/courtwire/frontoffice/internal/persistence"
	"github.com/courtwire/frontoffice/internal/sim"
	"github.com/courtwire/frontoffice/internal/trade"
	"github.com/courtwire/frontoffice/internal/valuation"
)

// Server serves the league state over HTTP.
type Server struct {
	Store    *league.Store
	Book     *trade.Book
	Sim      *sim.Simulator
	Policies map[string]*agent.Policy
	DB       *persistence.DB
	Seed     int64
	Port     int
	AdminKey string // Bearer token for admin POST endpoints. Empty = disabled.
	Advisory bool   // Whether the LLM advisor is wired in.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	tradeLimiter := NewRateLimiter(30, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/teams", s.handleTeams)
	mux.HandleFunc("/api/v1/roster/", s.handleRoster)
	mux.HandleFunc("/api/v1/activity", s.handleActivity)

	// Trade endpoints (POST, public but rate-limited).
	mux.HandleFunc("/api/v1/trade", RateLimitMiddleware(tradeLimiter, s.handleTrade))
	mux.HandleFunc("/api/v1/trade/", RateLimitMiddleware(tradeLimiter, s.handleTradeRoutes))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/simulate", s.adminOnly(s.handleSimulate))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	open := s.Book.Open()
	writeJSON(w, map[string]any{
		"name":           "frontoffice",
		"round":          s.Sim.Round(),
		"seed":           s.Seed,
		"teams":          len(s.Store.Abbrs()),
		"open_proposals": len(open),
		"activity":       s.Book.ActivityLen(),
		"advisory":       s.Advisory,
	})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	abbrs := s.Store.Abbrs()
	sort.Strings(abbrs)

	result := make([]map[string]any, 0, len(abbrs))
	for _, abbr := range abbrs {
		t, _ := s.Store.Team(abbr)
		sum, err := s.Store.Summary(abbr)
		if err != nil {
			continue
		}
		result = append(result, map[string]any{
			"abbr":        t.Abbr,
			"name":        t.FullName(),
			"conference":  t.Conference,
			"division":    t.Division,
			"roster_size": s.Store.RosterSize(abbr),
			"salary":      sum,
		})
	}
	writeJSON(w, result)
}

// handleRoster returns a team's players sorted by salary (highest first)
// with model values, plus the pick cupboard and positional needs.
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	abbr := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/api/v1/roster/"))
	t, ok := s.Store.Team(abbr)
	if !ok {
		http.Error(w, "team not found", http.StatusNotFound)
		return
	}

	roster := s.Store.Roster(abbr)
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].Salary != roster[j].Salary {
			return roster[i].Salary > roster[j].Salary
		}
		return roster[i].ID < roster[j].ID
	})

	players := make([]map[string]any, 0, len(roster))
	for _, p := range roster {
		players = append(players, map[string]any{
			"player": p,
			"value":  valuation.Value(p),
		})
	}

	sum, _ := s.Store.Summary(abbr)
	writeJSON(w, map[string]any{
		"team":    t,
		"name":    t.FullName(),
		"salary":  sum,
		"needs":   agent.Needs(s.Store, abbr).Map(),
		"players": players,
		"picks":   s.Store.Picks(abbr),
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, s.Book.Activity(limit))
}

type tradeRequest struct {
	TeamA      string           `json:"team_a"`
	TeamB      string           `json:"team_b"`
	FromA      league.AssetList `json:"from_a"`
	FromB      league.AssetList `json:"from_b"`
	ProposedBy string           `json:"proposed_by"` // Team abbreviation
	Message    string           `json:"message"`
}

// handleTrade accepts a user-authored proposal, has the responding team's
// front office evaluate it immediately, and returns the outcome.
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	side := trade.SideA
	switch strings.ToUpper(req.ProposedBy) {
	case strings.ToUpper(req.TeamA), "":
	case strings.ToUpper(req.TeamB):
		side = trade.SideB
	default:
		http.Error(w, "proposed_by must name team_a or team_b", http.StatusBadRequest)
		return
	}

	p, err := s.Book.Submit(trade.Draft{
		TeamA:      strings.ToUpper(req.TeamA),
		TeamB:      strings.ToUpper(req.TeamB),
		FromA:      req.FromA,
		FromB:      req.FromB,
		ProposedBy: side,
		Message:    req.Message,
	})
	if err != nil {
		http.Error(w, err.Error(), tradeErrorStatus(err))
		return
	}

	pol, ok := s.Policies[p.Responder()]
	if !ok {
		http.Error(w, "no front office for team "+p.Responder(), http.StatusInternalServerError)
		return
	}
	decision := pol.Evaluate(r.Context(), p)

	rec, counter, err := s.Book.Resolve(p.ID, decision)
	if err != nil {
		http.Error(w, err.Error(), tradeErrorStatus(err))
		return
	}

	resolved, _ := s.Book.Get(p.ID)
	resp := map[string]any{
		"proposal":  resolved,
		"decision":  decision.Kind.String(),
		"rationale": decision.Rationale,
		"activity":  rec,
	}
	if counter != nil {
		resp["counter"] = counter
	}
	writeJSON(w, resp)
}

// handleTradeRoutes dispatches POST /api/v1/trade/{id}/respond.
func (s *Server) handleTradeRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/trade/")
	parts := strings.Split(path, "/")

	if len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet {
		s.handleTradeDetail(w, parts[0])
		return
	}
	if len(parts) == 2 && parts[1] == "respond" && r.Method == http.MethodPost {
		s.handleRespond(w, r, parts[0])
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (s *Server) handleTradeDetail(w http.ResponseWriter, rawID string) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}
	p, ok := s.Book.Get(trade.ProposalID(id))
	if !ok {
		http.Error(w, "proposal not found", http.StatusNotFound)
		return
	}
	writeJSON(w, p)
}

type respondRequest struct {
	Action    string `json:"action"` // "accept" or "reject"
	Rationale string `json:"rationale"`
}

// handleRespond forces a decision on an open proposal on behalf of the
// responding team. Acceptance still re-validates at commit time; a stale
// accept comes back as a rejection, not an error.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	var d trade.Decision
	switch strings.ToLower(req.Action) {
	case "accept":
		d = trade.Decision{Kind: trade.DecideAccept, Rationale: req.Rationale}
	case "reject":
		d = trade.Decision{Kind: trade.DecideReject, Rationale: req.Rationale}
	default:
		http.Error(w, "action must be accept or reject", http.StatusBadRequest)
		return
	}

	rec, _, err := s.Book.Resolve(trade.ProposalID(id), d)
	if err != nil {
		http.Error(w, err.Error(), tradeErrorStatus(err))
		return
	}

	p, _ := s.Book.Get(trade.ProposalID(id))
	writeJSON(w, map[string]any{
		"proposal": p,
		"activity": rec,
	})
}

type simulateRequest struct {
	Rounds int `json:"rounds"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rounds < 1 {
		req.Rounds = 1
	}
	if req.Rounds > 100 {
		http.Error(w, "rounds must be at most 100", http.StatusBadRequest)
		return
	}

	records, err := s.Sim.Run(r.Context(), req.Rounds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"round":    s.Sim.Round(),
		"activity": records,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	snap := persistence.BuildSnapshot(s.Store, s.Book, s.Seed, s.Sim.Round())
	if err := s.DB.Save(snap); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"saved":     true,
		"round":     snap.Round,
		"teams":     len(snap.Teams),
		"proposals": len(snap.Proposals),
	})
}

// tradeErrorStatus maps book errors onto HTTP status codes.
func tradeErrorStatus(err error) int {
	switch {
	case errors.Is(err, trade.ErrUnknownProposal):
		return http.StatusNotFound
	case errors.Is(err, trade.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, trade.ErrAssetNotOwned):
		return http.StatusConflict
	case errors.Is(err, trade.ErrInvalidProposal):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

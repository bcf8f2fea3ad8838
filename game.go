// Killerparty backend
//
// Backend for a real-life "killer" party game. Before the party, an admin
// prepares players.json and assignments.json: every player becomes a killer
// with a secret mission to carry out against a target player. During the
// game, players look up their mission by name, mark it done, and accuse
// whoever they believe is hunting them. The admin follows along on a
// leaderboard.
//
// Features:
// - JSON API under /api, CORS-restricted to a single frontend origin
// - Accent/case-insensitive matching of free-text names against assignments
// - Per-player state created lazily and persisted to flat JSON files
// - Live leaderboard feed over websocket for the admin page
// - QR code of the frontend URL for party-night onboarding

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type missionResponse struct {
	OK          bool   `json:"ok"`
	Player      string `json:"player"`
	Mission     string `json:"mission"`
	Target      string `json:"target"`
	MissionDone bool   `json:"mission_done"`
}

type missionDoneResponse struct {
	OK          bool `json:"ok"`
	MissionDone bool `json:"mission_done"`
}

type guessResponse struct {
	OK bool `json:"ok"`
}

// leaderboardRow is one admin-facing summary line. Rows follow the order
// of players.json; no sorting is applied.
type leaderboardRow struct {
	Display            string `json:"display"`
	Points             int    `json:"points"`
	MissionDone        bool   `json:"mission_done"`
	DiscoveredByTarget bool   `json:"discovered_by_target"`
	HasGuess           bool   `json:"has_guess"`
	GuessedKiller      string `json:"guessed_killer,omitempty"`
	GuessedMission     string `json:"guessed_mission,omitempty"`
}

// Request bodies accept either the id or the display variant of a player
// reference; the two are interchangeable (display names are the ids).
type missionDoneRequest struct {
	PlayerID      string `json:"player_id"`
	PlayerDisplay string `json:"player_display"`
}

type guessRequest struct {
	PlayerID             string `json:"player_id"`
	PlayerDisplay        string `json:"player_display"`
	AccusedKillerID      string `json:"accused_killer_id"`
	AccusedKillerDisplay string `json:"accused_killer_display"`
	GuessedMission       string `json:"guessed_mission"`
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func apiHeaders(cfg *Config, w http.ResponseWriter) {
	securityHeaders(cfg, w)
	w.Header().Set("Access-Control-Allow-Origin", cfg.origin)
	w.Header().Set("Vary", "Origin")
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, payload any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	apiHeaders(cfg, w)
	w.WriteHeader(status)

	return w.Write(data)
}

func writeAPIError(cfg *Config, w http.ResponseWriter, status int, message string) (int, error) {
	return writeJSON(cfg, w, status, errorResponse{OK: false, Error: message})
}

type killerGame struct {
	store gameStore
	live  *leaderboardHub
}

func newKillerGame(store gameStore) *killerGame {
	return &killerGame{
		store: store,
		live:  newLeaderboardHub(),
	}
}

// findAssignment linear-scans assignments for an accent/case-insensitive
// match on the killer name.
func findAssignment(assignments []Assignment, name string) (Assignment, bool) {
	normalized := normalizeName(name)

	for _, assignment := range assignments {
		if normalizeName(assignment.Killer) == normalized {
			return assignment, true
		}
	}

	return Assignment{}, false
}

func buildLeaderboard(players []Player, state GameState) []leaderboardRow {
	rows := make([]leaderboardRow, 0, len(players))

	for _, player := range players {
		row := leaderboardRow{Display: player.Display}

		if playerState, ok := state[player.Display]; ok {
			row.Points = playerState.Points
			row.MissionDone = playerState.MissionDone
			row.DiscoveredByTarget = playerState.DiscoveredByTarget

			if playerState.Guess != nil {
				row.HasGuess = true
				row.GuessedKiller = playerState.Guess.KillerDisplay
				row.GuessedMission = playerState.Guess.Mission
			}
		}

		rows = append(rows, row)
	}

	return rows
}

func (g *killerGame) servePlayers(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		players, err := g.store.Players()
		if err != nil {
			errs <- err
			_, _ = writeAPIError(cfg, w, http.StatusInternalServerError, "failed to load players")

			return
		}

		written, err := writeJSON(cfg, w, http.StatusOK, players)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Player list (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func (g *killerGame) serveMission(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		name := r.URL.Query().Get("player")
		if normalizeName(name) == "" {
			_, _ = writeAPIError(cfg, w, http.StatusBadRequest, "missing player parameter")

			return
		}

		assignments, err := g.store.Assignments()
		if err != nil {
			errs <- err
			_, _ = writeAPIError(cfg, w, http.StatusInternalServerError, "failed to load assignments")

			return
		}

		assignment, found := findAssignment(assignments, name)
		if !found {
			_, _ = writeAPIError(cfg, w, http.StatusNotFound, "no assignment found for player")

			return
		}

		// The lookup itself creates the state entry, keyed by the
		// canonical killer name from the assignment.
		state, err := g.store.UpdateState(func(state GameState) error {
			state.ensure(assignment.Killer)
			return nil
		})
		if err != nil {
			errs <- err
			_, _ = writeAPIError(cfg, w, http.StatusInternalServerError, "failed to persist state")

			return
		}

		g.broadcastLeaderboard(cfg, errs)

		written, err := writeJSON(cfg, w, http.StatusOK, missionResponse{
			OK:          true,
			Player:      assignment.Killer,
			Mission:     assignment.Mission,
			Target:      assignment.Target,
			MissionDone: state[assignment.Killer].MissionDone,
		})
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Mission for %q (%s) to %s in %s",
			assignment.Killer,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func (g *killerGame) serveMissionDone(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req missionDoneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_, _ = writeAPIError(cfg, w, http.StatusBadRequest, "invalid json body")

			return
		}

		key := firstNonEmpty(req.PlayerID, req.PlayerDisplay)
		if key == "" {
			_, _ = writeAPIError(cfg, w, http.StatusBadRequest, "missing player identifier")

			return
		}

		// Marking twice is fine; the flag only ever moves to true.
		if _, err := g.store.UpdateState(func(state GameState) error {
			state.ensure(key).MissionDone = true
			return nil
		}); err != nil {
			errs <- err
			_, _ = writeAPIError(cfg, w, http.StatusInternalServerError, "failed to persist state")

			return
		}

		g.broadcastLeaderboard(cfg, errs)

		written, err := writeJSON(cfg, w, http.StatusOK, missionDoneResponse{OK: true, MissionDone: true})
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "STATE: Mission done for %q (%s) from %s in %s",
			key,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func (g *killerGame) serveGuess(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req guessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_, _ = writeAPIError(cfg, w, http.StatusBadRequest, "invalid json body")

			return
		}

		key := firstNonEmpty(req.PlayerID, req.PlayerDisplay)
		accused := firstNonEmpty(req.AccusedKillerID, req.AccusedKillerDisplay)

		// Validation order is fixed; the error names the first missing field.
		switch {
		case key == "":
			_, _ = writeAPIError(cfg, w, http.StatusBadRequest, "missing player identifier")

			return
		case accused == "":
			_, _ = writeAPIError(cfg, w, http.StatusBadRequest, "missing accused killer")

			return
		case req.GuessedMission == "":
			_, _ = writeAPIError(cfg, w, http.StatusBadRequest, "missing guessed mission")

			return
		}

		// Only the latest accusation counts; any prior guess is replaced.
		if _, err := g.store.UpdateState(func(state GameState) error {
			state.ensure(key).Guess = &Guess{
				KillerID:      firstNonEmpty(req.AccusedKillerID, req.AccusedKillerDisplay),
				KillerDisplay: firstNonEmpty(req.AccusedKillerDisplay, req.AccusedKillerID),
				Mission:       req.GuessedMission,
			}
			return nil
		}); err != nil {
			errs <- err
			_, _ = writeAPIError(cfg, w, http.StatusInternalServerError, "failed to persist state")

			return
		}

		g.broadcastLeaderboard(cfg, errs)

		written, err := writeJSON(cfg, w, http.StatusOK, guessResponse{OK: true})
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "STATE: Guess by %q against %q (%s) from %s in %s",
			key,
			accused,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func (g *killerGame) serveLeaderboard(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		rows, err := g.leaderboard()
		if err != nil {
			errs <- err
			_, _ = writeAPIError(cfg, w, http.StatusInternalServerError, "failed to load leaderboard")

			return
		}

		written, err := writeJSON(cfg, w, http.StatusOK, rows)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Leaderboard (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func (g *killerGame) leaderboard() ([]leaderboardRow, error) {
	players, err := g.store.Players()
	if err != nil {
		return nil, err
	}

	state, err := g.store.State()
	if err != nil {
		return nil, err
	}

	return buildLeaderboard(players, state), nil
}

func (g *killerGame) broadcastLeaderboard(cfg *Config, errs chan<- error) {
	rows, err := g.leaderboard()
	if err != nil {
		errs <- fmt.Errorf("leaderboard broadcast: %w", err)

		return
	}

	g.live.broadcast(rows)
}

// serveJoinQR generates a PNG QR code for the frontend URL, for players
// joining from their phones.
func serveJoinQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		const qrSize = 320 // mobile-friendly size

		png, err := qrcode.Encode(cfg.frontendURL, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		apiHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err

			return
		}
	}
}

// register sets up all game routes under $path:
//   - GET  $path/players        → players.json contents
//   - GET  $path/mission        → assignment lookup by free-text name
//   - POST $path/mission_done   → mark the caller's mission complete
//   - POST $path/guess          → submit an accusation
//   - GET  $path/leaderboard    → admin summary rows
//   - GET  $path/leaderboard/ws → live admin summary over websocket
//   - GET  $path/qr             → PNG QR code of the frontend URL
func (g *killerGame) register(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+path+"/players", g.servePlayers(cfg, errs))
	mux.GET(cfg.prefix+path+"/mission", g.serveMission(cfg, errs))
	mux.POST(cfg.prefix+path+"/mission_done", g.serveMissionDone(cfg, errs))
	mux.POST(cfg.prefix+path+"/guess", g.serveGuess(cfg, errs))
	mux.GET(cfg.prefix+path+"/leaderboard", g.serveLeaderboard(cfg, errs))
	mux.GET(cfg.prefix+path+"/leaderboard/ws", g.serveLeaderboardWS(cfg))
	mux.GET(cfg.prefix+path+"/qr", serveJoinQR(cfg, errs))
}

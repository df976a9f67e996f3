package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"paperbot/internal/ledger"
)

// APIServer is the operational HTTP surface: health, running-bot status,
// run triggers for an external scheduler, alert evaluation, portfolio
// snapshot queries, and paper account reset. It is deliberately not a
// dashboard; rendering lives elsewhere.
type APIServer struct {
	server *http.Server
	runner *Runner
	bots   *Store
	alerts *AlertEvaluator
	paper  *ledger.PaperLedger
	prices PriceSource
	logger *zap.Logger
	start  time.Time
}

// NewAPIServer creates the operational HTTP server.
func NewAPIServer(port int, runner *Runner, bots *Store, alerts *AlertEvaluator,
	paper *ledger.PaperLedger, prices PriceSource, logger *zap.Logger) *APIServer {
	s := &APIServer{
		runner: runner,
		bots:   bots,
		alerts: alerts,
		paper:  paper,
		prices: prices,
		logger: logger.Named("api-server"),
		start:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/run", s.runHandler)
	mux.HandleFunc("/alerts/evaluate", s.alertsHandler)
	mux.HandleFunc("/snapshots", s.snapshotsHandler)
	mux.HandleFunc("/paper/reset", s.paperResetHandler)

	s.server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	running, err := s.bots.Running()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := struct {
		Uptime      string `json:"uptime"`
		RunningBots int    `json:"running_bots"`
	}{
		Uptime:      time.Since(s.start).String(),
		RunningBots: len(running),
	}
	s.writeJSON(w, status)
}

// runHandler triggers cycles: POST /run for every running bot, or
// POST /run?bot=ID for one. Overlapping invocations are tolerated; the
// paper ledger's row locking keeps concurrent cycles consistent.
func (s *APIServer) runHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	if botParam := r.URL.Query().Get("bot"); botParam != "" {
		botID, ok := s.uintParam(w, botParam)
		if !ok {
			return
		}
		s.writeJSON(w, []Result{s.runner.RunOne(r.Context(), botID)})
		return
	}

	s.writeJSON(w, s.runner.RunAll(r.Context()))
}

// alertsHandler evaluates a board's open alert rules against live prices:
// POST /alerts/evaluate?board=ID. The response is the alerts triggered by
// this evaluation.
func (s *APIServer) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	boardID, ok := s.uintParam(w, r.URL.Query().Get("board"))
	if !ok {
		return
	}

	triggered, err := s.alerts.EvaluateBoard(r.Context(), boardID, s.prices)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, triggered)
}

// snapshotsHandler returns a bot's portfolio snapshots, newest first:
// GET /snapshots?bot=ID&limit=N.
func (s *APIServer) snapshotsHandler(w http.ResponseWriter, r *http.Request) {
	botID, ok := s.uintParam(w, r.URL.Query().Get("bot"))
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	snaps, err := s.bots.Snapshots(botID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, snaps)
}

// paperResetHandler restores a paper account to its starting balance:
// POST /paper/reset?board=ID&user=ID.
func (s *APIServer) paperResetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	boardID, ok := s.uintParam(w, r.URL.Query().Get("board"))
	if !ok {
		return
	}
	userID, ok := s.uintParam(w, r.URL.Query().Get("user"))
	if !ok {
		return
	}

	if err := s.paper.Reset(boardID, userID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) uintParam(w http.ResponseWriter, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		http.Error(w, "invalid id parameter", http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}

func (s *APIServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Package api exposes the settings and timer-control surface over HTTP, and
// hosts the bridge websocket endpoint for out-of-process overlay clients.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bryanchriswhite/breakwall/internal/bridge"
	"github.com/bryanchriswhite/breakwall/internal/config"
	"github.com/bryanchriswhite/breakwall/internal/displays"
	"github.com/bryanchriswhite/breakwall/internal/logger"
	"github.com/bryanchriswhite/breakwall/internal/timer"
)

// Controls is the slice of the authority the HTTP layer may drive.
type Controls interface {
	StartTimer()
	PauseTimer()
	ResetTimer()
	SkipBreak()
	SnoozeBreak()
	TimerState() timer.State
	BreakActive() bool
	BreakRemaining() int
	PendingBreak() bool
}

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	configMgr *config.Manager
	controls  Controls
	provider  displays.Provider
	hub       *bridge.Hub
}

// TimerStatus is the JSON shape of GET /api/timer.
type TimerStatus struct {
	timer.State
	BreakActive    bool `json:"break_active"`
	BreakRemaining int  `json:"break_remaining_seconds"`
	PendingBreak   bool `json:"pending_break"`
}

// NewServer creates a new API server
func NewServer(configMgr *config.Manager, controls Controls, provider displays.Provider, hub *bridge.Hub) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		configMgr: configMgr,
		controls:  controls,
		provider:  provider,
		hub:       hub,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Timer state and control
	api.HandleFunc("/timer", s.handleGetTimer).Methods("GET")
	api.HandleFunc("/timer/start", s.handleTimerAction(Controls.StartTimer)).Methods("POST")
	api.HandleFunc("/timer/pause", s.handleTimerAction(Controls.PauseTimer)).Methods("POST")
	api.HandleFunc("/timer/reset", s.handleTimerAction(Controls.ResetTimer)).Methods("POST")
	api.HandleFunc("/timer/skip", s.handleTimerAction(Controls.SkipBreak)).Methods("POST")
	api.HandleFunc("/timer/snooze", s.handleTimerAction(Controls.SnoozeBreak)).Methods("POST")

	// Settings
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods("PUT")

	// Display topology
	api.HandleFunc("/displays", s.handleGetDisplays).Methods("GET")

	// Bridge endpoint for out-of-process overlay surfaces
	api.HandleFunc("/overlay", s.hub.HandleWebSocket)

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Starting HTTP server")
	return http.ListenAndServe(addr, s.Handler())
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	status := TimerStatus{
		State:          s.controls.TimerState(),
		BreakActive:    s.controls.BreakActive(),
		BreakRemaining: s.controls.BreakRemaining(),
		PendingBreak:   s.controls.PendingBreak(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleTimerAction wraps a control invocation and returns the resulting
// timer state.
func (s *Server) handleTimerAction(action func(Controls)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action(s.controls)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.controls.TimerState())
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.configMgr.Get())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.configMgr.Update(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleGetDisplays(w http.ResponseWriter, r *http.Request) {
	connected, err := s.provider.Displays()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(connected)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// Package api provides the operational HTTP server: health and stats
// endpoints for monitoring the running bot.
package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/97woo/tgbot/internal/logging"
	"github.com/97woo/tgbot/internal/state"
	"github.com/97woo/tgbot/internal/types"
	"github.com/97woo/tgbot/internal/wallet"
	"github.com/gorilla/mux"
)

// Server exposes read-only operational endpoints over HTTP.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	directory  *wallet.Directory
	ledger     *state.SpendLedger
	history    *state.DropHistory
	config     *ServerConfig
	startedAt  time.Time
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string
	Port         string
	RolloverHour int
	DailyCapWei  *big.Int
}

// NewServer creates the operational HTTP server.
func NewServer(
	config *ServerConfig,
	directory *wallet.Directory,
	ledger *state.SpendLedger,
	history *state.DropHistory,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		directory: directory,
		ledger:    ledger,
		history:   history,
		config:    config,
		startedAt: time.Now(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/drops", s.handleDrops).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         config.Host + ":" + config.Port,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "dropbot",
	})
}

type statsResponse struct {
	Period        string `json:"period"`
	SpentWei      string `json:"spentWei"`
	HeadroomWei   string `json:"headroomWei"`
	Wallets       int    `json:"wallets"`
	Drops         int    `json:"drops"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	period := state.PeriodKey(time.Now(), s.config.RolloverHour)
	respondJSON(w, http.StatusOK, statsResponse{
		Period:        period,
		SpentWei:      s.ledger.Spent(period).String(),
		HeadroomWei:   s.ledger.Headroom(period, s.config.DailyCapWei).String(),
		Wallets:       s.directory.Count(),
		Drops:         s.history.Len(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleDrops returns the most recent drops, newest last. The optional
// "limit" query parameter defaults to 20.
func (s *Server) handleDrops(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid limit",
			})
			return
		}
		limit = n
	}

	recent := s.history.Recent(limit)
	if recent == nil {
		recent = []types.DropRecord{}
	}
	respondJSON(w, http.StatusOK, recent)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting operational server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down operational server")
	return s.httpServer.Shutdown(ctx)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.GetGlobalLogger().WithError(err).Error("Failed to encode response")
	}
}

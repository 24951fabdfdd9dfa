package httpinterface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	interfaces "github.com/tdex-network/tdex-escrow/internal/interfaces"
)

const shutdownTimeout = 5 * time.Second

type service struct {
	escrowSvc application.EscrowService
	feed      *EventFeed
	server    *http.Server
	listener  net.Listener
	addr      string
}

// NewService returns the ops HTTP server exposing:
//   - /healthz liveness probe
//   - /metrics prometheus metrics, if a handler is given
//   - /events websocket feed of ledger events
//   - /stats JSON summary of the ledger
func NewService(
	host string,
	port int,
	escrowSvc application.EscrowService,
	feed *EventFeed,
	metricsHandler http.Handler,
) (interfaces.Service, error) {
	if escrowSvc == nil {
		return nil, fmt.Errorf("missing escrow service")
	}
	if feed == nil {
		return nil, fmt.Errorf("missing event feed")
	}

	svc := &service{
		escrowSvc: escrowSvc,
		feed:      feed,
		addr:      net.JoinHostPort(host, strconv.Itoa(port)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", svc.handleHealth)
	mux.HandleFunc("/stats", svc.handleStats)
	mux.HandleFunc("/events", feed.Handler())
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	svc.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return svc, nil
}

// Start binds the listener synchronously and serves in background.
func (s *service) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = lis

	go func() {
		if err := s.server.Serve(lis); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("ops server stopped unexpectedly")
		}
	}()

	log.Infof("ops server listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	s.feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop ops server")
	}
	log.Debug("ops server stopped")
}

func (s *service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	Trades  chatStatsResponse               `json:"trades"`
	Admins  map[string]adminSummaryResponse `json:"admins"`
	Windows map[string]statsWindowResponse  `json:"windows"`
}

type chatStatsResponse struct {
	Total     int    `json:"total"`
	Open      int    `json:"open"`
	Completed int    `json:"completed"`
	Refunded  int    `json:"refunded"`
	Volume    string `json:"volume"`
}

type adminSummaryResponse struct {
	Trades    int    `json:"trades"`
	Hold      string `json:"hold"`
	Completed string `json:"completed"`
	Refunded  string `json:"refunded"`
}

type statsWindowResponse struct {
	Deals       int       `json:"deals"`
	Amount      string    `json:"amount"`
	WindowStart time.Time `json:"window_start"`
}

// handleStats returns the global counters of the ledger, optionally scoped
// to a chat with the `chat_id` query parameter.
func (s *service) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var chatID int64
	if v := r.URL.Query().Get("chat_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid chat_id", http.StatusBadRequest)
			return
		}
		chatID = id
	}

	chatStats := s.escrowSvc.GetChatStats(chatID)
	resp := statsResponse{
		Trades: chatStatsResponse{
			Total:     chatStats.Total,
			Open:      chatStats.Open,
			Completed: chatStats.Completed,
			Refunded:  chatStats.Refunded,
			Volume:    chatStats.Volume.StringFixed(2),
		},
		Admins:  make(map[string]adminSummaryResponse),
		Windows: make(map[string]statsWindowResponse),
	}
	for admin, summary := range s.escrowSvc.GetAdminSummary() {
		resp.Admins[strconv.FormatInt(admin, 10)] = adminSummaryResponse{
			Trades:    summary.Trades,
			Hold:      summary.Hold.StringFixed(2),
			Completed: summary.Completed.StringFixed(2),
			Refunded:  summary.Refunded.StringFixed(2),
		}
	}
	for admin, window := range s.escrowSvc.GetGlobalStats() {
		resp.Windows[strconv.FormatInt(admin, 10)] = statsWindowResponse{
			Deals:       window.Deals,
			Amount:      window.Amount.StringFixed(2),
			WindowStart: window.WindowStart,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Debug("failed to encode response")
	}
}

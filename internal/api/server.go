// Package api exposes the lifecycle engine to the back-office UI over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/ledger"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/lifecycle"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/registry"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
)

const defaultHistoryLimit = 50

// Server is the HTTP front for status changes, room listing and history.
type Server struct {
	addr       string
	ctrl       *lifecycle.Controller
	reg        *registry.Registry
	ldg        *ledger.Ledger
	httpServer *http.Server
}

// NewServer creates an API server.
func NewServer(host string, port int, ctrl *lifecycle.Controller, reg *registry.Registry, ldg *ledger.Ledger) *Server {
	return &Server{
		addr: fmt.Sprintf("%s:%d", host, port),
		ctrl: ctrl,
		reg:  reg,
		ldg:  ldg,
	}
}

// Routes builds the request mux. Exposed separately so tests can drive the
// handlers without a listening socket.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /rooms/{id}/status", s.handleStatusChange)
	mux.HandleFunc("GET /rooms", s.handleListRooms)
	mux.HandleFunc("GET /rooms/{id}", s.handleGetRoom)
	mux.HandleFunc("GET /rooms/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /resync", s.handleResync)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	return mux
}

// Run starts the API server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// statusChangeRequest is the POST /rooms/{id}/status body.
type statusChangeRequest struct {
	Status string     `json:"status"`
	Until  *time.Time `json:"until,omitempty"`
}

func (s *Server) handleStatusChange(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")

	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	status, err := room.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := s.ctrl.RequestStatusChange(r.Context(), roomID, status, req.Until)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.List())
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.reg.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, lifecycle.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.ldg == nil {
		writeError(w, http.StatusNotFound, errors.New("transition history is disabled"))
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	entries, err := s.ldg.ByRoom(r.PathValue("id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, historyPayload(entries))
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Resync(r.Context()); err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// historyEntry is the wire form of a ledger entry.
type historyEntry struct {
	EventType string     `json:"eventType"`
	Timestamp time.Time  `json:"timestamp"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
	FiresAt   *time.Time `json:"firesAt,omitempty"`
	Source    string     `json:"source,omitempty"`
}

func historyPayload(entries []ledger.Entry) []historyEntry {
	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			EventType: string(e.EventType),
			Timestamp: e.Timestamp,
			From:      string(e.From),
			To:        string(e.To),
			FiresAt:   e.FiresAt,
			Source:    e.Source,
		})
	}
	return out
}

// writeLifecycleError maps the controller's error taxonomy to HTTP codes.
func writeLifecycleError(w http.ResponseWriter, err error) {
	var (
		invalid     *lifecycle.InvalidTransitionError
		persistence *lifecycle.PersistenceError
	)

	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &invalid):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, lifecycle.ErrScheduleInPast):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &persistence):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"message": err.Error()})
}

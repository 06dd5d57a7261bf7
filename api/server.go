// Package api exposes the reservation assistant over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/table-reservation-agent/agent/agents/assistant"
	"github.com/tanpawarit/table-reservation-agent/agent/agents/orchestrator"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	maxBodyBytes = 1 << 20
)

// ChatService handles one inbound guest message.
type ChatService interface {
	HandleMessage(ctx context.Context, req orchestrator.Request) (orchestrator.Reply, error)
}

type ChatRequest struct {
	MessageID     string `json:"message_id"`
	RestaurantID  string `json:"restaurant_id"`
	StoreID       string `json:"store_id,omitempty"`
	ContactNumber string `json:"contact_number"`
	Message       string `json:"message"`
}

type ChatResponse struct {
	MessageID string `json:"message_id"`
	Response  string `json:"response"`
	Status    string `json:"status"`
}

type Server struct {
	Chat ChatService
	// StoreID is the slot pool the assistant books against. Requests naming
	// a different store are logged and served from this one.
	StoreID string
	// Logger is attached to every request context. Nil uses the global logger.
	Logger *zerolog.Logger
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
	})
	mux.HandleFunc("POST /chat", s.handleChat)

	logger := log.Logger
	if s.Logger != nil {
		logger = *s.Logger
	}
	return accessLog(logger, cors.AllowAll().Handler(mux))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ChatResponse{Response: "invalid request body: " + err.Error(), Status: StatusError})
		return
	}

	ctx := r.Context()
	logger := log.Ctx(ctx)
	if store := strings.TrimSpace(req.StoreID); store != "" && s.StoreID != "" && store != s.StoreID {
		logger.Warn().Str("requested_store", store).Str("store_id", s.StoreID).Msg("request names a different store")
	}

	reply, err := s.Chat.HandleMessage(ctx, orchestrator.Request{
		MessageID:     req.MessageID,
		ContactNumber: req.ContactNumber,
		RestaurantID:  req.RestaurantID,
		Text:          req.Message,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if isInvalidRequest(err) {
			status = http.StatusBadRequest
		}
		logger.Error().Err(err).Str("message_id", req.MessageID).Msg("chat request failed")
		writeJSON(w, status, ChatResponse{MessageID: req.MessageID, Response: assistant.ApologyReply, Status: StatusError})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{MessageID: req.MessageID, Response: reply.Reply, Status: StatusSuccess})
}

func isInvalidRequest(err error) bool {
	return errors.Is(err, orchestrator.ErrInvalidMessage) ||
		errors.Is(err, orchestrator.ErrInvalidContact) ||
		errors.Is(err, orchestrator.ErrInvalidRestaurant)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// accessLog attaches logger to the request context, tags it with the method
// and path, and writes one line per request.
func accessLog(logger zerolog.Logger, next http.Handler) http.Handler {
	h := hlog.AccessHandler(func(r *http.Request, status, size int, elapsed time.Duration) {
		hlog.FromRequest(r).Info().
			Int("status", status).
			Int("size", size).
			Dur("elapsed", elapsed).
			Msg("http request")
	})(next)
	h = hlog.URLHandler("path")(h)
	h = hlog.MethodHandler("method")(h)
	return hlog.NewHandler(logger)(h)
}

// Start serves h on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

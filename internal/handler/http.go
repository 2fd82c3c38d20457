package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/logistics-leaderboard/internal/domain"
	"github.com/logistics-leaderboard/internal/service"
	"github.com/logistics-leaderboard/internal/websocket"
)

// Handler provides HTTP handlers for the leaderboard API
type Handler struct {
	service *service.LeaderboardService
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.LeaderboardService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/leaderboards", func(r chi.Router) {
			r.Get("/", h.ListBoards)
			r.Post("/refresh", h.RefreshAll)

			r.Route("/{leaderboardType}/{period}", func(r chi.Router) {
				r.Get("/", h.GetLeaderboard)
				r.Get("/top", h.GetTop)
				r.Get("/position/{participantID}", h.GetPosition)
				r.Post("/refresh", h.Refresh)
				r.Post("/reset", h.Reset)
			})
		})

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// bucketParams extracts and validates the leaderboard type and period from
// the URL. A false return means the error response has already been written.
func (h *Handler) bucketParams(w http.ResponseWriter, r *http.Request) (domain.Role, domain.Period, bool) {
	role := domain.Role(chi.URLParam(r, "leaderboardType"))
	if !role.IsValid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRole)
		return "", "", false
	}

	period := domain.Period(chi.URLParam(r, "period"))
	if !period.IsValid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidPeriod)
		return "", "", false
	}

	return role, period, true
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// ListBoards returns every available (type, period) bucket
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards := make([]map[string]string, 0, len(domain.Roles())*len(domain.Periods()))
	for _, role := range domain.Roles() {
		for _, period := range domain.Periods() {
			boards = append(boards, map[string]string{
				"leaderboard_type": string(role),
				"period":           string(period),
			})
		}
	}
	h.writeSuccess(w, boards)
}

// GetLeaderboard returns a paginated page of a leaderboard bucket
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	role, period, ok := h.bucketParams(w, r)
	if !ok {
		return
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	result, err := h.service.GetLeaderboardPage(r.Context(), role, period, page)
	if err != nil {
		h.logger.Error("failed to get leaderboard", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, result)
}

// GetTop returns the top N participants of a bucket
func (h *Handler) GetTop(w http.ResponseWriter, r *http.Request) {
	role, period, ok := h.bucketParams(w, r)
	if !ok {
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := h.service.TopN(r.Context(), role, period, limit)
	if err != nil {
		h.logger.Error("failed to get top", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, entries)
}

// GetPosition returns a participant's rank and score in a bucket. A
// participant with no activity in the window is reported as unranked with a
// null payload rather than an error.
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	role, period, ok := h.bucketParams(w, r)
	if !ok {
		return
	}

	participantID := chi.URLParam(r, "participantID")
	if participantID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	position, err := h.service.GetPosition(r.Context(), role, period, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			h.writeSuccess(w, nil)
			return
		}
		h.logger.Error("failed to get position", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, position)
}

// Refresh recomputes a single leaderboard bucket
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	role, period, ok := h.bucketParams(w, r)
	if !ok {
		return
	}

	if err := h.service.UpdateLeaderboard(r.Context(), role, period); err != nil {
		h.logger.Error("failed to refresh leaderboard", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "refreshed"})
}

// RefreshAll recomputes every leaderboard bucket
func (h *Handler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	h.service.UpdateAllLeaderboards(r.Context())
	h.writeSuccess(w, map[string]string{"status": "refreshed"})
}

// Reset deactivates a bucket's snapshots and clears its mirror
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	role, period, ok := h.bucketParams(w, r)
	if !ok {
		return
	}

	if err := h.service.ResetLeaderboard(r.Context(), role, period); err != nil {
		h.logger.Error("failed to reset leaderboard", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "reset"})
}

package analytics_api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/analytics"
	"ms-registration/internal/logger"
	"ms-registration/internal/utils"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/registrations/stats", h.GetStats)
	r.Get("/api/events/{eventId}/summary", h.GetEventSummary)
}

// GetStats handles the ledger-wide totals request
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting registration stats: "+err.Error())
		w.Header().Set("Retry-After", "1")
		utils.WriteJSON(w, http.StatusServiceUnavailable,
			utils.ErrorResponse("Failed to get stats", err.Error()).WithKind("transient_error", nil))
		return
	}

	utils.WriteJSON(w, http.StatusOK, stats)
}

// GetEventSummary handles the live allocation summary of one event
func (h *Handler) GetEventSummary(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ErrorResponse("Invalid event id", "eventId must be a positive integer").
				WithKind("validation_error", map[string]string{"event_id": "must be a positive integer"}))
		return
	}

	summary, err := h.Service.EventSummary(r.Context(), eventID)
	if errors.Is(err, analytics.ErrEventNotFound) {
		utils.WriteJSON(w, http.StatusNotFound,
			utils.ErrorResponse("Event not found", err.Error()).WithKind("event_not_found", nil))
		return
	}
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Error getting summary for event %d: %v", eventID, err))
		w.Header().Set("Retry-After", "1")
		utils.WriteJSON(w, http.StatusServiceUnavailable,
			utils.ErrorResponse("Failed to get event summary", err.Error()).WithKind("transient_error", nil))
		return
	}

	utils.WriteJSON(w, http.StatusOK, summary)
}

package catalog_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/registration_api"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/utils"
)

type Catalog interface {
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpsertEvent(ctx context.Context, in models.EventInput) (*models.Event, error)
}

// EventDeleter removes an event through the ledger's deletion guard.
type EventDeleter interface {
	DeleteEvent(ctx context.Context, eventID int64) error
}

type Handler struct {
	Catalog Catalog
	Deleter EventDeleter
	Logger  *logger.Logger
}

func NewHandler(catalog Catalog, deleter EventDeleter, log *logger.Logger) *Handler {
	return &Handler{Catalog: catalog, Deleter: deleter, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/events", h.ListEvents)
	r.Get("/api/events/{eventId}", h.GetEvent)
	r.Put("/api/events/{eventId}", h.UpsertEvent)
	r.Delete("/api/events/{eventId}", h.DeleteEvent)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Catalog.ListEvents(r.Context())
	if err != nil {
		registration_api.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, err := h.Catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		registration_api.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}

// UpsertEvent creates or replaces the event named in the path. An id in the
// body is ignored.
func (h *Handler) UpsertEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	var in models.EventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.Logger.Debug("API", fmt.Sprintf("UpsertEvent: failed to decode request body: %v", err))
		registration_api.WriteError(w, h.Logger, &service.Error{
			Kind:    service.KindValidation,
			Message: "invalid JSON body",
			Fields:  map[string]string{"body": "invalid JSON body"},
		})
		return
	}
	in.ID = eventID

	event, err := h.Catalog.UpsertEvent(r.Context(), in)
	if err != nil {
		registration_api.WriteError(w, h.Logger, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if err := h.Deleter.DeleteEvent(r.Context(), eventID); err != nil {
		registration_api.WriteError(w, h.Logger, err)
		return
	}
	h.Logger.Info("CATALOG", fmt.Sprintf("Event %d deleted", eventID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || id <= 0 {
		registration_api.WriteError(w, h.Logger, &service.Error{
			Kind:    service.KindValidation,
			Message: "invalid event id",
			Fields:  map[string]string{"event_id": "must be a positive integer"},
		})
		return 0, false
	}
	return id, true
}

package registration_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/badge"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/sse"
	"ms-registration/internal/utils"
)

// Ledger is the part of the ledger service the HTTP layer drives.
type Ledger interface {
	Register(ctx context.Context, req service.RegistrationRequest) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.Registration, error)
	ListRegistrations(ctx context.Context, q service.ListQuery) (*models.RegistrationPage, error)
	GetRegistration(ctx context.Context, id int64) (*models.Registration, error)
	RemoveRegistration(ctx context.Context, id int64) error
}

type Handler struct {
	Ledger Ledger
	Feed   *sse.RegistrationFeed
	Badges *badge.Generator
	Logger *logger.Logger
}

func NewHandler(ledger Ledger, feed *sse.RegistrationFeed, badges *badge.Generator, log *logger.Logger) *Handler {
	return &Handler{
		Ledger: ledger,
		Feed:   feed,
		Badges: badges,
		Logger: log,
	}
}

// RegisterRoutes registers the registration routes on a chi router.
// /api/registrations/stats belongs to the analytics handler and must be
// mounted on the same router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/events/{eventId}/registrations", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Get("/", h.ListByEvent)
		r.Get("/stream", h.StreamRegistrations)
	})

	r.Get("/api/registrations", h.ListRegistrations)
	r.Get("/api/registrations/{id:[0-9-]+}", h.GetRegistration)
	r.Delete("/api/registrations/{id:[0-9-]+}", h.RemoveRegistration)
	r.Get("/api/registrations/{id:[0-9-]+}/badge.png", h.GetBadge)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventId", "event_id")
	if !ok {
		return
	}

	var req service.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Debug("API", fmt.Sprintf("Register: failed to decode request body: %v", err))
		badRequest(w, "body", "invalid JSON body")
		return
	}
	req.EventID = eventID

	reg, err := h.Ledger.Register(r.Context(), req)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, reg)
}

func (h *Handler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventId", "event_id")
	if !ok {
		return
	}

	regs, err := h.Ledger.ListByEvent(r.Context(), eventID)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, regs)
}

// ListRegistrations serves GET /api/registrations?event_id=&page=&limit=.
// Missing page and limit take their defaults; bad values are rejected by the
// ledger before it queries.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := service.ListQuery{Page: service.DefaultPage, Limit: service.DefaultLimit}

	if v := query.Get("event_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "event_id", "must be an integer")
			return
		}
		q.EventID = &id
	}
	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "page", "must be an integer")
			return
		}
		q.Page = page
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "limit", "must be an integer")
			return
		}
		q.Limit = limit
	}

	page, err := h.Ledger.ListRegistrations(r.Context(), q)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "id")
	if !ok {
		return
	}

	reg, err := h.Ledger.GetRegistration(r.Context(), id)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) RemoveRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "id")
	if !ok {
		return
	}

	if err := h.Ledger.RemoveRegistration(r.Context(), id); err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetBadge renders the check-in QR code of a registration.
func (h *Handler) GetBadge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "id")
	if !ok {
		return
	}

	reg, err := h.Ledger.GetRegistration(r.Context(), id)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	png, err := h.Badges.PNG(*reg)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBadge: failed to render badge for registration %d: %v", id, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to render badge", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// pathID parses a positive integer path parameter, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, param, field string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, field, "must be a positive integer")
		return 0, false
	}
	return id, true
}

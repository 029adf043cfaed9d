package registration_api

import (
	"errors"
	"net/http"
	"strconv"

	"ms-registration/internal/logger"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/utils"
)

// statusFor maps each ledger error kind to its own HTTP status.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindEventNotFound, service.KindNotFound:
		return http.StatusNotFound
	case service.KindEventUnavailable,
		service.KindDuplicateRegistration,
		service.KindInsufficientCapacity,
		service.KindHasDependents:
		return http.StatusConflict
	case service.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError sends err as an APIResponse whose kind and details let a client
// tell every rejection apart.
func WriteError(w http.ResponseWriter, log *logger.Logger, err error) {
	var e *service.Error
	if !errors.As(err, &e) {
		log.Error("API", "Unclassified error: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal error", err.Error()))
		return
	}

	var details map[string]string
	switch e.Kind {
	case service.KindValidation:
		details = e.Fields
	case service.KindDuplicateRegistration:
		details = map[string]string{"existing_registration_id": strconv.FormatInt(e.ExistingID, 10)}
	case service.KindInsufficientCapacity:
		details = map[string]string{"remaining": strconv.Itoa(e.Remaining)}
	case service.KindHasDependents:
		details = map[string]string{"dependent_count": strconv.Itoa(e.DependentCount)}
	case service.KindTransient:
		w.Header().Set("Retry-After", "1")
		log.Warn("API", "Transient failure: "+err.Error())
	}

	status := statusFor(e.Kind)
	utils.WriteJSON(w, status, utils.ErrorResponse(http.StatusText(status), e.Message).WithKind(e.Kind.String(), details))
}

// badRequest reports a malformed path or body before the ledger is called.
func badRequest(w http.ResponseWriter, field, message string) {
	utils.WriteJSON(w, http.StatusBadRequest,
		utils.ErrorResponse(http.StatusText(http.StatusBadRequest), message).
			WithKind(service.KindValidation.String(), map[string]string{field: message}))
}

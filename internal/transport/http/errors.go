package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mohdshadink/spotshare/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidID            = "invalid_id"
	codeOwnerIDRequired      = "owner_id_required"
	codeInvalidRate          = "invalid_rate"
	codeInvalidBillingUnit   = "invalid_billing_unit"
	codeSpotNotFound         = "spot_not_found"
	codeSpotUnavailable      = "spot_unavailable"
	codeDriverHasLiveHold    = "driver_has_live_hold"
	codeHoldNotFound         = "hold_not_found"
	codeNoActiveHold         = "no_active_hold"
	codeInvalidCode          = "invalid_code"
	codeHoldExpired          = "hold_expired"
	codeNotCancellable       = "hold_not_cancellable"
	codeHoldNotVerified      = "hold_not_verified"
	codeAlreadyActivated     = "hold_already_activated"
	codeSessionNotFound      = "session_not_found"
	codeSessionNotActive     = "session_not_active"
	codeCodeSpaceExhausted   = "code_space_exhausted"
	codeForbidden            = "forbidden"
	codeStreamingUnsupported = "streaming_unsupported"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps a sentinel from the service layer to its HTTP shape.
// Conflicts and stale-state failures are 409 so callers know to reconcile and
// retry; bad input is 400; code-space exhaustion is a retryable 503.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrOwnerIDRequired):
		writeError(w, http.StatusBadRequest, codeOwnerIDRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidRate):
		writeError(w, http.StatusBadRequest, codeInvalidRate, err.Error())
	case errors.Is(err, domain.ErrInvalidBillingUnit):
		writeError(w, http.StatusBadRequest, codeInvalidBillingUnit, err.Error())
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, codeInvalidCode, err.Error())
	case errors.Is(err, domain.ErrSpotNotFound):
		writeError(w, http.StatusNotFound, codeSpotNotFound, err.Error())
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, codeSessionNotFound, err.Error())
	case errors.Is(err, domain.ErrNoActiveHold):
		writeError(w, http.StatusNotFound, codeNoActiveHold, err.Error())
	case errors.Is(err, domain.ErrSpotUnavailable):
		writeError(w, http.StatusConflict, codeSpotUnavailable, err.Error())
	case errors.Is(err, domain.ErrDriverHasLiveHold):
		writeError(w, http.StatusConflict, codeDriverHasLiveHold, err.Error())
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
	case errors.Is(err, domain.ErrNotCancellable):
		writeError(w, http.StatusConflict, codeNotCancellable, err.Error())
	case errors.Is(err, domain.ErrHoldNotVerified):
		writeError(w, http.StatusConflict, codeHoldNotVerified, err.Error())
	case errors.Is(err, domain.ErrAlreadyActivated):
		writeError(w, http.StatusConflict, codeAlreadyActivated, err.Error())
	case errors.Is(err, domain.ErrSessionNotActive):
		writeError(w, http.StatusConflict, codeSessionNotActive, err.Error())
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		writeError(w, http.StatusServiceUnavailable, codeCodeSpaceExhausted, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

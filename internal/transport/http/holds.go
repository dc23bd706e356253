package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mohdshadink/spotshare/internal/app"
	"github.com/mohdshadink/spotshare/internal/domain"
)

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
}

// HoldActions groups the per-hold operations served under /holds/{id}.
type HoldActions interface {
	CancelHold(ctx context.Context, holdID string) error
	Activate(ctx context.Context, in app.ActivateInput) (domain.Session, error)
}

// HandleCreateHold serves POST /holds.
func HandleCreateHold(svc HoldCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		hold, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			DriverID: req.DriverID,
			SpotID:   req.SpotID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toHoldResponse(hold))
	}
}

// HandleHoldRoutes serves POST /holds/{id}/cancel and POST /holds/{id}/activate.
func HandleHoldRoutes(svc HoldActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holdID, action, ok := parseHoldPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		switch action {
		case "cancel":
			if err := svc.CancelHold(r.Context(), holdID); err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, statusResponse{Status: "cancelled"})

		case "activate":
			// The body is optional: activation without a payment reference is
			// allowed.
			var req activateHoldRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			session, err := svc.Activate(r.Context(), app.ActivateInput{
				HoldID:     holdID,
				PaymentRef: req.PaymentRef,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toSessionResponse(session))

		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseHoldPath(path string) (holdID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "holds" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type createHoldRequest struct {
	SpotID   string `json:"spot_id"`
	DriverID string `json:"driver_id"`
}

type activateHoldRequest struct {
	PaymentRef string `json:"payment_ref"`
}

type statusResponse struct {
	Status string `json:"status"`
}

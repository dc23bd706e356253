package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mohdshadink/spotshare/internal/app"
	"github.com/mohdshadink/spotshare/internal/domain"
	"github.com/mohdshadink/spotshare/internal/notify"
)

// SpotAdmin is the minimal interface needed for spot administration.
type SpotAdmin interface {
	CreateSpot(ctx context.Context, in app.CreateSpotInput) (domain.Spot, error)
	GetSpot(ctx context.Context, spotID string) (domain.Spot, error)
	ListSpots(ctx context.Context) ([]domain.Spot, error)
	SuspendSpot(ctx context.Context, spotID string) (domain.Spot, error)
}

// CodeVerifier is the minimal interface needed to verify a hold's code.
type CodeVerifier interface {
	VerifyCode(ctx context.Context, spotID, code string) (domain.Hold, error)
}

// HandleSpots serves the /spots collection: POST creates, GET lists.
func HandleSpots(svc SpotAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req createSpotRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			spot, err := svc.CreateSpot(r.Context(), app.CreateSpotInput{
				OwnerID:            req.OwnerID,
				RateCents:          req.RateCents,
				BillingUnitMinutes: req.BillingUnitMinutes,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toSpotResponse(spot))

		case http.MethodGet:
			spots, err := svc.ListSpots(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			out := make([]spotResponse, 0, len(spots))
			for _, spot := range spots {
				out = append(out, toSpotResponse(spot))
			}
			writeJSON(w, http.StatusOK, out)

		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleSpotRoutes serves the /spots/{id} subtree: the spot itself, the
// suspend side channel, code verification, and the spot's event stream.
func HandleSpotRoutes(admin SpotAdmin, verifier CodeVerifier, broker *notify.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spotID, action, ok := parseSpotPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			spot, err := admin.GetSpot(r.Context(), spotID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toSpotResponse(spot))

		case "suspend":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			spot, err := admin.SuspendSpot(r.Context(), spotID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toSpotResponse(spot))

		case "verify":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			var req verifyCodeRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			hold, err := verifier.VerifyCode(r.Context(), spotID, req.Code)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toHoldResponse(hold))

		case "events":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			streamEvents(w, r, broker, nil, notify.SpotTopic(spotID))

		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseSpotPath(path string) (spotID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "spots" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	return parts[1], parts[2], true
}

type createSpotRequest struct {
	OwnerID            string `json:"owner_id"`
	RateCents          int    `json:"rate_cents"`
	BillingUnitMinutes int    `json:"billing_unit_minutes"`
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

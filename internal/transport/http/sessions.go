package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/mohdshadink/spotshare/internal/domain"
)

// SessionActions groups the per-session operations served under /sessions/{id}.
type SessionActions interface {
	Close(ctx context.Context, sessionID string) (domain.Session, error)
	ReportOverstay(ctx context.Context, sessionID string) (int, error)
	MarkDisputed(ctx context.Context, sessionID string) error
}

// HandleSessionRoutes serves POST /sessions/{id}/close, /overstay and /dispute.
func HandleSessionRoutes(svc SessionActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, action, ok := parseSessionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		switch action {
		case "close":
			session, err := svc.Close(r.Context(), sessionID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toSessionResponse(session))

		case "overstay":
			count, err := svc.ReportOverstay(r.Context(), sessionID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, overstayResponse{
				SessionID:      sessionID,
				OverstayAlerts: count,
			})

		case "dispute":
			if err := svc.MarkDisputed(r.Context(), sessionID); err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, statusResponse{Status: "disputed"})

		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseSessionPath(path string) (sessionID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "sessions" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type overstayResponse struct {
	SessionID      string `json:"session_id"`
	OverstayAlerts int    `json:"overstay_alerts"`
}

package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mohdshadink/spotshare/internal/app"
	"github.com/mohdshadink/spotshare/internal/notify"
)

// Snapshotter is the minimal interface needed to take a subject snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context, subjectID string) (app.Snapshot, error)
}

// HandleSubjectRoutes serves GET /subjects/{id}/snapshot and the subject's
// event stream at GET /subjects/{id}/events.
func HandleSubjectRoutes(svc Snapshotter, broker *notify.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, action, ok := parseSubjectPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		switch action {
		case "snapshot":
			snap, err := svc.Snapshot(r.Context(), subjectID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toSnapshotResponse(snap))

		case "events":
			// The stream opens with a snapshot so a reconnecting client can
			// resync without replaying missed events. streamEvents subscribes
			// before calling this, closing the window between the snapshot
			// read and the subscription.
			streamEvents(w, r, broker, func(ctx context.Context) (any, error) {
				snap, err := svc.Snapshot(ctx, subjectID)
				if err != nil {
					return nil, err
				}
				return toSnapshotResponse(snap), nil
			}, notify.SubjectTopic(subjectID))

		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func parseSubjectPath(path string) (subjectID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "subjects" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type snapshotResponse struct {
	Hold    *holdResponse    `json:"hold"`
	Session *sessionResponse `json:"session"`
	Spot    *spotResponse    `json:"spot"`
	TakenAt time.Time        `json:"taken_at"`
}

func toSnapshotResponse(snap app.Snapshot) snapshotResponse {
	out := snapshotResponse{TakenAt: snap.TakenAt}
	if snap.Hold != nil {
		h := toHoldResponse(*snap.Hold)
		out.Hold = &h
	}
	if snap.Session != nil {
		s := toSessionResponse(*snap.Session)
		out.Session = &s
	}
	if snap.Spot != nil {
		s := toSpotResponse(*snap.Spot)
		out.Spot = &s
	}
	return out
}

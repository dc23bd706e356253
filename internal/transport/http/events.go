package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mohdshadink/spotshare/internal/notify"
)

// streamEvents serves a server-sent event stream of everything published on
// the given topics. A non-nil snapshot func is called after the subscription
// is registered and its result sent as the opening "snapshot" frame: a
// transition committed while the snapshot is read is already queued on the
// subscription, so the client sees it either in the snapshot or on the stream
// (possibly both; delivery is at-least-once). The stream runs until the client
// disconnects.
func streamEvents(w http.ResponseWriter, r *http.Request, broker *notify.Broker, snapshot func(context.Context) (any, error), topics ...string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeStreamingUnsupported, "streaming unsupported")
		return
	}

	sub := broker.Subscribe(topics...)
	defer sub.Close()

	var opening any
	if snapshot != nil {
		var err error
		opening, err = snapshot(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if opening != nil {
		if err := writeSSE(w, "snapshot", opening); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-sub.C:
			if err := writeSSE(w, string(ev.Type), ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

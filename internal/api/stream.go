package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

const streamHeartbeat = 15 * time.Second

// stream is the realtime channel: clients join the room for one resource
// and receive new events as server-sent events named new-email, new-sms,
// or new-transaction. There is no replay; only events published while
// connected are delivered.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	kind := identity.Kind(r.URL.Query().Get("kind"))
	key := r.URL.Query().Get("key")
	if !kind.Valid() || key == "" {
		writeError(w, http.StatusBadRequest, "kind and key required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.broker.Subscribe(identity.Room(kind, key))
	defer h.broker.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": joined %s\n\n", sub.Room())
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(env.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Event, data)
			flusher.Flush()
		}
	}
}

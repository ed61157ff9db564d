package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/randstring/randstring-go/internal/model"
)

const eventsKeepAlive = 15 * time.Second

// HandleEvents handles GET /api/v1/session/events requests, streaming a
// snapshot as a server-sent event after every state change.
func (h *SessionHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse("streaming unsupported"))
		return
	}

	release, err := h.repo.Hold(r.Context(), s.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer release()

	updates := make(chan model.Snapshot, 8)
	unsubscribe := s.Generator.Subscribe(func(snap model.Snapshot) {
		select {
		case updates <- snap:
		default:
			// Slow reader; it will catch up from the next snapshot.
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	log := zerolog.Ctx(r.Context())
	if err := writeEvent(w, s.Generator.Snapshot()); err != nil {
		log.Debug().Err(err).Msg("events.write.failed")
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.Generator.Done():
			_, _ = fmt.Fprint(w, "event: closed\ndata: {}\n\n")
			flusher.Flush()
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap := <-updates:
			if err := writeEvent(w, snap); err != nil {
				log.Debug().Err(err).Msg("events.write.failed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\nid: %d\ndata: %s\n\n", snap.Generation, data)
	return err
}

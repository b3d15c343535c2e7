package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benjamin1108/reinvent-insight/internal/events"
	"github.com/benjamin1108/reinvent-insight/internal/api/shared"
)

// keepaliveInterval is how often an SSE comment is written to hold idle
// proxies open while the pipeline is between events.
const keepaliveInterval = 15 * time.Second

// StreamEvents handles GET /api/analyses/{id}/events requests. It delivers the
// task's full event history followed by live events as Server-Sent Events. A
// reconnecting client always receives the complete history again, so the
// stream it observes is a consistent prefix regardless of when it attached.
func (h *AnalysisHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathTaskID(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	stream, err := h.manager.Attach(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := h.logger.With("task_id", id)
	logger.Debug("event stream attached")

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("event stream client disconnected")
			return

		case <-keepalive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case event, open := <-stream:
			if !open {
				// History drained and the channel is closed: the task
				// reached a terminal state and every event was delivered.
				logger.Debug("event stream completed")
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				logger.Debug("event stream write failed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one event in SSE framing, using the event kind as the
// SSE event name and the JSON-encoded event as the data payload.
func writeSSEEvent(w http.ResponseWriter, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + string(event.Kind) + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}
	return nil
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

func isJobTerminal(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// sendSSEEvent writes one server-sent event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(`{}`)
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}

// streamJobEvents relays a training job's events to the client. The first
// event is always a "status" snapshot; the stream ends when the job reaches a
// terminal state or the client goes away. Idle streams get comment pings.
func streamJobEvents(w http.ResponseWriter, r *http.Request, job *TrainJob) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events := job.AddListener()
	defer job.RemoveListener(events)

	sendSSEEvent(w, flusher, "status", job.Snapshot())
	if isJobTerminal(job.GetStatus()) {
		return
	}

	keepAlive := time.NewTicker(constants.SSEKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
			if isJobTerminal(job.GetStatus()) {
				return
			}
		}
	}
}

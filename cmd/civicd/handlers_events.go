package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/civicai/civicai/internal/realtime"
	"github.com/rs/zerolog/log"
)

// GET /api/events
//
// Streams issue events from the realtime feed as server-sent events. The
// officer dashboard keeps one connection open instead of polling the list
// endpoint.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		httpError(w, http.StatusServiceUnavailable, "realtime feed is not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Debug().Msg("Event stream client connected")

	err := s.feed.Subscribe(r.Context(), func(event realtime.Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to encode event for stream")
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
		flusher.Flush()
	})
	if err != nil && r.Context().Err() == nil {
		log.Warn().Err(err).Msg("Event stream subscription ended")
	}
	log.Debug().Msg("Event stream client disconnected")
}

package wheel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var ssePingInterval = 15 * time.Second

// EventsSSEHandler streams round events to one client. Reconnects replay
// from Last-Event-ID; anything older than the buffer window means the client
// should resync via the state endpoint first.
func EventsSSEHandler(coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeErr(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}
		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		buf := coord.Buffer()
		for _, ev := range buf.ReplayAfter(r.Header.Get("Last-Event-ID")) {
			if err := WriteSSE(w, ev); err != nil {
				return
			}
		}
		flusher.Flush()

		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)
		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ping := StreamEvent{
					Event:     EventPing,
					SessionID: coord.CurrentSessionID(),
					ServerTS:  time.Now().UnixMilli(),
					Data:      map[string]any{"ts": time.Now().UnixMilli()},
				}
				if err := WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func WriteSSE(w http.ResponseWriter, ev StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.EventID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.EventID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"comandas-go/internal/app"
	"comandas-go/internal/httpx"
)

const ssePing = 25 * time.Second

// Events streams order and inventory events for the caller's role.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	u := s.App.CurrentUser(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("streaming_unsupported", "streaming unsupported", http.StatusInternalServerError))
		return
	}

	ch, cancel := s.App.SSE().Subscribe(app.TopicsFor(u.Role), 32)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	hello, _ := json.Marshal(map[string]any{"ok": true, "role": u.Role, "ts": time.Now().Unix()})
	fmt.Fprintf(w, "event: hello\ndata: %s\n\n", hello)
	flusher.Flush()

	keep := time.NewTicker(ssePing)
	defer keep.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keep.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(ev.Data)
			if err != nil {
				s.App.Logger().Warn("sse: encode event failed", "type", ev.Type, "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, b)
			flusher.Flush()
		}
	}
}

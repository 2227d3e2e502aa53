// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bvk/makerbot/api"
	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

// handleWatch streams job events over a websocket. Optional "job" query
// parameter selects the events of a single job.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, &api.Error{Code: "MethodNotAllowed", Message: r.Method})
		return
	}

	jobID := r.URL.Query().Get("job")
	if jobID != "" {
		if _, err := s.registry.Status(r.Context(), jobID); err != nil {
			status, code := errorStatus(err)
			writeError(w, status, &api.Error{Code: code, Message: err.Error()})
			return
		}
	}

	receiver, err := s.registry.Subscribe()
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, &api.Error{Code: code, Message: err.Error()})
		return
	}
	defer receiver.Close()

	eventsCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		writeError(w, http.StatusInternalServerError, &api.Error{Code: "Internal", Message: err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("could not upgrade to websocket", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	// Control frames are processed only while reading.
	peerClosed := make(chan struct{})
	go func() {
		defer close(peerClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	closeCtx := s.cg.Context()
	for {
		select {
		case <-closeCtx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return

		case <-peerClosed:
			return

		case e, ok := <-eventsCh:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			if jobID != "" && e.JobID != jobID {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(s.opts.WebsocketWriteTimeout))
			if err := conn.WriteJSON(toAPIEvent(e)); err != nil {
				slog.Warn("could not write job event to websocket", "remote", r.RemoteAddr, "err", err)
				return
			}
		}
	}
}

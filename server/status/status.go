package status

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type handler struct {
	m      *Monitor
	logger *slog.Logger
}

func ApplyRouter(m *Monitor, logger *slog.Logger) func(chi.Router) {
	h := &handler{m: m, logger: logger}

	return func(r chi.Router) {
		r.Get("/", h.Status())
		r.Get("/ws", h.WebSocket())
	}
}

func (h *handler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.m.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// WebSocket streams every job event as a JSON text message until the client
// disconnects or the monitor stops.
func (h *handler) WebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", slog.String("err", err.Error()))
			return
		}
		defer conn.Close()

		ch, cancel := h.m.Watch()
		defer cancel()

		// drain control frames and notice the client going away
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case e, ok := <-ch:
				if !ok {
					conn.WriteControl(
						websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
						time.Now().Add(writeWait),
					)
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(e); err != nil {
					h.logger.Debug("websocket write failed", slog.String("err", err.Error()))
					return
				}
			}
		}
	}
}

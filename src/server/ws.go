package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"panicpod/src/execution"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// LogStreamHandler streams execution log entries over a websocket. The
// client first receives the full history of the current run, then live
// entries as they are appended. Slow clients miss live entries rather than
// stalling the run.
func LogStreamHandler(execStore *execution.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Error("websocket upgrade failed")
			return
		}
		defer conn.Close()

		entries, cancel := execStore.Subscribe()
		defer cancel()

		for _, entry := range execStore.Logs() {
			if err := writeEntry(conn, entry); err != nil {
				return
			}
		}

		// Read pump; the client never sends data but we must notice close
		// frames.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if err := writeEntry(conn, entry); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}

func writeEntry(conn *websocket.Conn, entry any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(entry)
}

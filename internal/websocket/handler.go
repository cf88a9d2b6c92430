package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades connections and runs them as Hub clients. When
// greet is set its message is the first thing the client receives; filter
// limits which broadcasts reach the client.
func HandleWebSocket(hub *Hub, greet func() (Message, bool), filter Filter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err, "remote", r.RemoteAddr)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, filter)
		client.Run(r.Context(), greet)
	}
}

package httpapi

import (
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"hideseek/internal/server"
)

// WS bridges a WebSocket client into the same session as raw TCP clients:
// the accepted socket is wrapped as a net.Conn and handed to the connection
// handler, one text message per protocol line.
func WS(srv *server.Server, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debugw("websocket accept failed", "err", err)
			return
		}
		conn := websocket.NetConn(r.Context(), c, websocket.MessageText)
		// Blocks until the client leaves or the party refuses the slot.
		srv.Adopt(conn)
	}
}

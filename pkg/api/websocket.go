package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/inkbase/inkbase/internal/logger"
	"github.com/inkbase/inkbase/pkg/relay"
)

const maxFrameSize = 16 << 20 // attachments ride inside chat frames

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The relay authenticates messages by signature, not by origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocketHandler upgrades the connection and pumps frames into the
// relay until the peer goes away.
func websocketHandler(rl *relay.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed",
				logger.Err(err), logger.ClientIP(r.RemoteAddr))
			return
		}
		ws.SetReadLimit(maxFrameSize)

		ctx := r.Context()
		conn := relay.NewConn(ws)
		defer func() {
			rl.HandleClose(ctx, conn)
			_ = ws.Close()
		}()

		logger.Debug("websocket connected", logger.ClientIP(r.RemoteAddr))

		for {
			_, frame, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("websocket read failed",
						logger.Err(err), logger.ClientIP(r.RemoteAddr))
				}
				return
			}
			rl.HandleMessage(ctx, conn, frame)
		}
	}
}

package server

import (
	"net/http"

	"github.com/sreenidhis29/niyantrana-sos/internal/ws"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// handleFeed godoc
// @Title Live change feed
// @Description Upgrades to a WebSocket carrying every store mutation as a
// typed frame, in publish order.
// @Resource Feed
// @Route /v1/feed [get]
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:3000", "niyantrana.vercel.app"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}

	client := ws.NewClient(uuid.New().String(), conn, s.hub)
	client.Start()
}

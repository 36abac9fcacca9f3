package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	// sendChannelSize controls the max number
	// of messages that can be queued for a client.
	sendChannelSize = 16
	pingPeriod      = (60 * 9 * time.Second) / 10
)

// Client is one connected feed consumer. The feed is write-mostly: inbound
// frames are read only to detect closure.
type Client struct {
	ID     string
	conn   *websocket.Conn
	hub    *Hub
	send   chan Message
	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient wraps an accepted connection.
func NewClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:     id,
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, sendChannelSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the read and write pumps and registers with the hub.
func (c *Client) Start() {
	go c.readPump()
	go c.writePump()
	select {
	case c.hub.register <- c:
	case <-c.hub.ctx.Done():
		c.Close()
	}
}

// Close tears the connection down.
func (c *Client) Close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "feed closed")
	c.cancel()
}

func (c *Client) readPump() {
	defer func() {
		// After shutdown nothing receives on unregister; the hub context
		// keeps the send from blocking forever.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.Close()
	}()

	for {
		// Inbound frames carry no commands; reading keeps close/ping
		// handling alive and surfaces disconnects.
		var discard json.RawMessage
		if err := wsjson.Read(c.ctx, c.conn, &discard); err != nil {
			c.hub.log.Debug().Str("client_id", c.ID).Err(err).Msg("feed read ended")
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := wsjson.Write(c.ctx, c.conn, msg); err != nil {
				c.hub.log.Debug().Str("client_id", c.ID).Err(err).Msg("feed write failed")
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(c.ctx); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

package messaging

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// StreamClient relays one page view's reports to a websocket debug overlay.
type StreamClient struct {
	conn        *websocket.Conn
	broadcaster Broadcaster
	pageViewID  string
	send        chan Message
	logger      *slog.Logger
}

// NewStreamClient relays send, a subscription of b, to a websocket connection.
func NewStreamClient(conn *websocket.Conn, b Broadcaster, pageViewID string, send chan Message, logger *slog.Logger) *StreamClient {
	return &StreamClient{
		conn:        conn,
		broadcaster: b,
		pageViewID:  pageViewID,
		send:        send,
		logger:      logger,
	}
}

// Run blocks until the peer disconnects or the page view ends.
func (c *StreamClient) Run() {
	go c.readPump()
	c.writePump()
}

// readPump drains control frames; the overlay never sends data.
func (c *StreamClient) readPump() {
	defer func() {
		c.broadcaster.Unsubscribe(c.pageViewID, c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Websocket read failed", "pageViewId", c.pageViewID, "error", err)
			}
			return
		}
	}
}

func (c *StreamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The page view ended or the reader unsubscribed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error("Failed to marshal stream message", "pageViewId", c.pageViewID, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

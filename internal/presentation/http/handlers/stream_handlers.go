package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/messaging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS middleware does not cover upgrades; the page view token is the gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandlers serve the live report stream of debug-enabled page views
type StreamHandlers struct {
	service *services.PageViewService
	logger  *logging.ChanneledLogger
}

// NewStreamHandlers creates stream handlers with injected dependencies
func NewStreamHandlers(service *services.PageViewService, logger *logging.ChanneledLogger) *StreamHandlers {
	return &StreamHandlers{service: service, logger: logger}
}

// StreamSSE handles GET /api/v1/pageviews/:id/stream
func (h *StreamHandlers) StreamSSE(c *gin.Context) {
	id := c.Param("id")
	ch, err := h.service.Subscribe(id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer h.service.Unsubscribe(id, ch)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(c.Writer, ": connection established\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-ch:
			if !ok {
				return false
			}
			frame, err := message.SSE()
			if err != nil {
				h.logger.HTTP().Error("Failed to encode stream message", "pageViewId", id, "error", err.Error())
				return true
			}
			io.WriteString(w, frame)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// StreamWS handles GET /api/v1/pageviews/:id/ws
func (h *StreamHandlers) StreamWS(c *gin.Context) {
	id := c.Param("id")
	ch, err := h.service.Subscribe(id)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.service.Unsubscribe(id, ch)
		h.logger.HTTP().Warn("Websocket upgrade failed", "pageViewId", id, "error", err.Error())
		return
	}

	client := messaging.NewStreamClient(conn, h.service.Broadcaster(), id, ch, h.logger.WithPageView(logging.ChannelHTTP, id))
	client.Run()
}

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS middleware
		return true
	},
}

// StreamEvents handles GET /api/events (SSE). The stream carries meeting
// events from subscription time onward; there is no replay.
func (h *Handlers) StreamEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := h.monitor.Events()
	defer sub.Close()

	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				// Stream terminated (fatal monitoring failure)
				return false
			}
			data, _ := json.Marshal(evt)
			c.SSEvent("meeting", string(data))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// StreamEventsWS handles GET /api/events/ws, pushing meeting events over a
// websocket until the client disconnects or the stream terminates.
func (h *Handlers) StreamEventsWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.monitor.Events()
	defer sub.Close()

	// Drain client frames so pings and close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for evt := range sub.Events() {
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
	}

	// Subscription completed; tell the client this is the end of stream
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream completed"),
		time.Now().Add(time.Second))
}

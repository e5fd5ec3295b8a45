package api_router

import (
	"fmt"
	"io"
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/app"

	ginsse "github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

const (
	// retryHint tells a dropped client how long to wait before
	// reconnecting, in milliseconds.
	retryHint = 10000

	heartbeatInterval = 25 * time.Second
)

// EventsHandler serves the long-lived event stream.
type EventsHandler struct {
	*Handler
}

func NewEventsHandler(a *app.App) *EventsHandler {
	return &EventsHandler{Handler: NewHandler(a)}
}

// Stream subscribes the client and relays broadcast frames until the
// connection drops. A comment frame every 25s keeps idle proxies from
// cutting the connection.
func (h *EventsHandler) Stream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	id, ch := h.App.Broadcaster().Subscribe()
	defer h.App.Broadcaster().Unsubscribe(id)

	_, _ = fmt.Fprintf(c.Writer, "retry: %d\n\n", retryHint)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case raw, ok := <-ch:
			if !ok {
				return false
			}
			_ = ginsse.Encode(w, ginsse.Event{Data: string(raw)})
			return true
		case <-heartbeat.C:
			_, _ = io.WriteString(w, ":hb\n\n")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

package api_router

import (
	"net/http"
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/app"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	*Handler
}

func NewHealthHandler(a *app.App) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(a)}
}

type HealthResponse struct {
	Status      string  `json:"status"`
	Version     string  `json:"version"`
	Uptime      float64 `json:"uptime"`
	Backend     string  `json:"backend"`
	Subscribers int     `json:"subscribers"`
}

func (h *HealthHandler) Check(c *gin.Context) {
	res := HealthResponse{
		Status:      "healthy",
		Version:     app.Version,
		Uptime:      time.Since(h.App.StartTime).Seconds(),
		Backend:     h.App.Store.Name(),
		Subscribers: h.App.Broadcaster().SubscriberCount(),
	}
	if _, err := h.App.SyncService.ChangesSince(c.Request.Context(), nil); err != nil {
		res.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

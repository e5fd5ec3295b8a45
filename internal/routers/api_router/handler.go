// Package api_router holds the HTTP API route handlers.
package api_router

import (
	"github.com/haierkeys/holarchy-browser-service/internal/app"
)

// Handler is the base handler every API handler embeds for access to
// the app container.
type Handler struct {
	App *app.App
}

func NewHandler(a *app.App) *Handler {
	return &Handler{App: a}
}

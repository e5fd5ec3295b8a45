// Package routers assembles the gin engine.
package routers

import (
	"time"

	"github.com/haierkeys/holarchy-browser-service/internal/app"
	"github.com/haierkeys/holarchy-browser-service/internal/middleware"
	"github.com/haierkeys/holarchy-browser-service/internal/routers/api_router"

	"github.com/gin-gonic/gin"
)

// NewRouter wires middleware and routes around the app container.
func NewRouter(appContainer *app.App) *gin.Engine {
	cfg := appContainer.Config()
	gin.SetMode(cfg.Server.RunMode)

	r := gin.New()
	r.Use(middleware.Cors())
	r.Use(middleware.AccessLogWithLogger(appContainer.Logger()))
	r.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

	eventsHandler := api_router.NewEventsHandler(appContainer)

	// The event stream stays outside the API group: it must not be
	// bounded by the request context timeout.
	r.GET("/events", eventsHandler.Stream)

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfo(app.Name, app.Version))
		api.Use(middleware.ContextTimeout(time.Duration(cfg.App.DefaultContextTimeout) * time.Second))

		pageHandler := api_router.NewPageHandler(appContainer)
		syncHandler := api_router.NewSyncHandler(appContainer)
		holonHandler := api_router.NewHolonHandler(appContainer)
		healthHandler := api_router.NewHealthHandler(appContainer)

		api.GET("/pages", pageHandler.List)
		api.GET("/pages/:id", pageHandler.Get)
		api.POST("/pages", pageHandler.Create)
		api.PUT("/pages/:id", pageHandler.Update)
		api.DELETE("/pages/:id", pageHandler.Delete)

		api.GET("/sync/changes", syncHandler.Changes)
		api.POST("/sync/changes", syncHandler.Merge)
		api.GET("/export", syncHandler.Export)
		api.POST("/import", syncHandler.Import)

		api.GET("/holons", holonHandler.List)
		api.POST("/holons", holonHandler.Create)
		api.GET("/holons/:id", holonHandler.Get)
		api.GET("/holons/:id/reputation", holonHandler.Reputation)
		api.POST("/links", holonHandler.CreateLink)
		api.POST("/links/auto", holonHandler.AutoRelate)
		api.POST("/trust/events", holonHandler.ApplyTrustEvent)

		api.GET("/health", healthHandler.Check)
	}

	r.NoRoute(middleware.NoFound())

	return r
}

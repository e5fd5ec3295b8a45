package api_router

import (
	"net/http"

	"github.com/haierkeys/holarchy-browser-service/internal/app"
	"github.com/haierkeys/holarchy-browser-service/internal/dto"
	"github.com/haierkeys/holarchy-browser-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

// HolonHandler serves the graph routes: holons, links, trust events.
type HolonHandler struct {
	*Handler
}

func NewHolonHandler(a *app.App) *HolonHandler {
	return &HolonHandler{Handler: NewHandler(a)}
}

func (h *HolonHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.App.TrustService.ListHolons(c.Request.Context()))
}

func (h *HolonHandler) Get(c *gin.Context) {
	holon, err := h.App.TrustService.GetHolon(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, holon)
}

func (h *HolonHandler) Create(c *gin.Context) {
	params := &dto.HolonCreateRequest{}
	if err := c.ShouldBindJSON(params); err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("invalid holon payload", err))
		return
	}
	holon, err := h.App.TrustService.CreateHolon(c.Request.Context(), params, c.Query("sourceId"))
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, holon)
}

func (h *HolonHandler) CreateLink(c *gin.Context) {
	params := &dto.LinkCreateRequest{}
	if err := c.ShouldBindJSON(params); err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("invalid link payload", err))
		return
	}
	link, err := h.App.TrustService.CreateLink(c.Request.Context(), params)
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *HolonHandler) AutoRelate(c *gin.Context) {
	c.JSON(http.StatusOK, h.App.TrustService.AutoRelate(c.Request.Context()))
}

func (h *HolonHandler) ApplyTrustEvent(c *gin.Context) {
	params := &dto.TrustEventRequest{}
	if err := c.ShouldBindJSON(params); err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("invalid trust event payload", err))
		return
	}
	ev, err := h.App.TrustService.ApplyEvent(c.Request.Context(), params)
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *HolonHandler) Reputation(c *gin.Context) {
	rep, err := h.App.TrustService.Reputation(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

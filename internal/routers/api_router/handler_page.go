package api_router

import (
	"net/http"
	"strconv"

	"github.com/haierkeys/holarchy-browser-service/internal/app"
	"github.com/haierkeys/holarchy-browser-service/internal/dto"
	"github.com/haierkeys/holarchy-browser-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PageHandler serves the page CRUD routes.
type PageHandler struct {
	*Handler
}

func NewPageHandler(a *app.App) *PageHandler {
	return &PageHandler{Handler: NewHandler(a)}
}

func pageID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errors.NotFound("Not found")
	}
	return id, nil
}

func (h *PageHandler) List(c *gin.Context) {
	pages, err := h.App.PageService.List(c.Request.Context())
	if err != nil {
		h.App.Logger().Error("page list failed", zap.Error(err))
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, pages)
}

func (h *PageHandler) Get(c *gin.Context) {
	id, err := pageID(c)
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	page, err := h.App.PageService.Get(c.Request.Context(), id)
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PageHandler) Create(c *gin.Context) {
	params := &dto.PageCreateRequest{}
	if err := c.ShouldBindJSON(params); err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("invalid page payload", err))
		return
	}
	page, err := h.App.PageService.Create(c.Request.Context(), params)
	if err != nil {
		h.App.Logger().Error("page create failed", zap.Error(err))
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

func (h *PageHandler) Update(c *gin.Context) {
	id, err := pageID(c)
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	params := &dto.PageUpdateRequest{}
	if err := c.ShouldBindJSON(params); err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("invalid page payload", err))
		return
	}
	page, err := h.App.PageService.Update(c.Request.Context(), id, params)
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PageHandler) Delete(c *gin.Context) {
	id, err := pageID(c)
	if err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	if err := h.App.PageService.Delete(c.Request.Context(), id); err != nil {
		errors.ErrorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

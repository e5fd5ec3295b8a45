package api_router

import (
	"io"
	"net/http"

	"github.com/haierkeys/holarchy-browser-service/internal/app"
	"github.com/haierkeys/holarchy-browser-service/internal/dto"
	"github.com/haierkeys/holarchy-browser-service/pkg/errors"
	"github.com/haierkeys/holarchy-browser-service/pkg/timex"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SyncHandler serves batch reconciliation and backup transfer.
type SyncHandler struct {
	*Handler
}

func NewSyncHandler(a *app.App) *SyncHandler {
	return &SyncHandler{Handler: NewHandler(a)}
}

func (h *SyncHandler) Changes(c *gin.Context) {
	var since *timex.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := timex.Parse(raw)
		if err != nil {
			errors.ErrorResponse(c, errors.MalformedInput("invalid since timestamp", err))
			return
		}
		since = &parsed
	}
	res, err := h.App.SyncService.ChangesSince(c.Request.Context(), since)
	if err != nil {
		h.App.Logger().Error("changes read failed", zap.Error(err))
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SyncHandler) Merge(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("unreadable body", err))
		return
	}
	items, err := dto.DecodeChangeBatch(raw)
	if err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("invalid sync payload", err))
		return
	}
	serverTime, err := h.App.SyncService.MergeBatch(c.Request.Context(), items)
	if err != nil {
		h.App.Logger().Error("sync merge failed", zap.Error(err))
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "serverTime": serverTime})
}

func (h *SyncHandler) Export(c *gin.Context) {
	res, err := h.App.SyncService.Export(c.Request.Context())
	if err != nil {
		h.App.Logger().Error("export failed", zap.Error(err))
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SyncHandler) Import(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("unreadable body", err))
		return
	}
	rows, err := dto.DecodeImportRows(raw)
	if err != nil {
		errors.ErrorResponse(c, errors.MalformedInput("invalid import payload", err))
		return
	}
	replace := c.Query("replace") == "1" || c.Query("replace") == "true"
	if err := h.App.SyncService.Import(c.Request.Context(), rows, replace); err != nil {
		h.App.Logger().Error("import failed", zap.Error(err))
		errors.ErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tobyn/inkwell/internal/service"
)

// AdminHandler handles operational endpoints: batch recalibration and
// estimate-parameter reload.
type AdminHandler struct {
	calibration *service.CalibrationService
	reload      func() error
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - calibration: batch recalibration service.
//   - reload: callback that re-reads estimate parameters from
//     configuration; may be nil.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(calibration *service.CalibrationService, reload func() error) *AdminHandler {
	return &AdminHandler{calibration: calibration, reload: reload}
}

// Recalibrate handles POST /api/v1/admin/recalibrate.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) Recalibrate(c *gin.Context) {
	result, err := h.calibration.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Recalibration failed: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReloadParams handles POST /api/v1/admin/reload-params.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) ReloadParams(c *gin.Context) {
	if h.reload == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Parameter reload is not configured",
		})
		return
	}
	if err := h.reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Reload failed: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

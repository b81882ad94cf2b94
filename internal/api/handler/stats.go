package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tobyn/inkwell/internal/service"
)

// StatsHandler handles the aggregate statistics endpoint.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler creates a new stats handler.
// Parameters:
//   - stats: stats service instance.
// Returns:
//   - *StatsHandler: initialized handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GetStats handles GET /api/v1/stats. The numbers come from a short-TTL
// cache and may lag recent writes slightly.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Aggregate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

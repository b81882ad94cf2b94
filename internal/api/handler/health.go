package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tobyn/inkwell/internal/store"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	sessions store.SessionStore
}

// NewHealthHandler creates a new health handler.
// Parameters:
//   - sessions: session store checked by the readiness probe.
// Returns:
//   - *HealthHandler: initialized handler.
func NewHealthHandler(sessions store.SessionStore) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// Health returns the liveness status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "inkwell",
	})
}

// Ready reports whether the session store is reachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.sessions.Connect(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"message-service/internal/telemetry"
)

// GroupLister reports live broadcast groups and their sizes.
type GroupLister interface {
	Groups() map[string]int
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, groups GroupLister, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/groups", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"groups": groups.Groups()})
	})

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c), nil)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

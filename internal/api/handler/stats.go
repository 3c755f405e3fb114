package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz is the liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// GetStats reports connection, waiting and active-pair counts.
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Stats())
}

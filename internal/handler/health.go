package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and whether a load cycle is running
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	busy := false
	if h.loader != nil {
		busy = h.loader.Busy()
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "loading": busy})
}

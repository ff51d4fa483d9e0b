package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Models lists the models the configured provider offers and the one in use.
func (h *Handler) Models(c *gin.Context) {
	models, err := h.generator.Models(c.Request.Context())
	if err != nil {
		h.log.Error("list models: ", err)
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Failed to fetch models: " + err.Error()})
		return
	}
	if models == nil {
		models = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"current": h.generator.Name(),
		"models":  models,
	})
}

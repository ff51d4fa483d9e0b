package server

import (
	"github.com/bz888/solver/internal/api/server/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerRoutes(router *gin.Engine, handler *handlers.Handler, reg *prometheus.Registry) {
	router.GET("/", handler.Root)
	router.GET("/models", handler.Models)
	router.POST("/upload", handler.Upload)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}

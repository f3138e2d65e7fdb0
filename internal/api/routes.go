package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/qr", qrHandler)
		api.GET("/layouts", h.listLayouts)
		api.GET("/layouts/schema", layoutSchema)
		api.POST("/render", h.renderHandler)
		api.GET("/cards/:hash", h.cardHandler)
		api.POST("/reweight", h.reweightHandler)
		api.POST("/batch", h.batchHandler)
		api.GET("/batch/ws", h.batchSocket)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

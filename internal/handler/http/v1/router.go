package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check доступен без аутентификации
	api.GET("/system/health", h.healthCheck)

	// Realtime-подписка аутентифицируется сама (api_key в query или заголовке)
	api.GET("/ws", h.wsEndpoint)

	protected := api.Group("", APIKeyAuthMiddleware(h.cfg, h.logger))

	// Маршруты для управления инцидентами
	incidents := protected.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.GET("/:id/events", h.listIncidentEvents)
		incidents.POST("/:id/resolve", h.resolveIncident)
		incidents.POST("/:id/cancel", h.cancelIncident)
	}

	// Маршруты для управления юнитами
	units := protected.Group("/units")
	{
		units.POST("", h.createUnit)
		units.GET("", h.listUnits)
		units.GET("/available", h.listAvailableUnits)
		units.GET("/:id", h.getUnit)
		units.POST("/:id/status", h.setUnitStatus)
		units.POST("/:id/arrive", h.arrive)
		units.POST("/:id/clear", h.clear)
		units.POST("/:id/cancel", h.cancelDispatch)
	}

	// Маршрут назначения юнита на инцидент
	protected.POST("/dispatch", h.assign)

	// Маршрут диагностики realtime-подключений
	protected.GET("/ws/status", h.wsStatus)
}

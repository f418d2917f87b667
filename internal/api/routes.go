package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tabletop_web/internal/api/handlers"
	"tabletop_web/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services) {
	// 初始化 handlers
	roomHandler := handlers.NewRoomHandler(services.Registry)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocket, services.Router)

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	api := r.Group("/api")
	{
		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		api.GET("/rooms", roomHandler.ListRooms)
	}

	// WebSocket 連接點
	r.GET("/ws", wsHandler.HandleWebSocket)
}

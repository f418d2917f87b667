package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tabletop_web/internal/service"
)

// RoomHandler 提供房間列表查詢
type RoomHandler struct {
	registry *service.RoomRegistry
}

func NewRoomHandler(registry *service.RoomRegistry) *RoomHandler {
	return &RoomHandler{registry: registry}
}

// ListRooms 回傳與 roomsinfo 事件相同的房間列表
func (h *RoomHandler) ListRooms(c *gin.Context) {
	infos, err := h.registry.Infos(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "無法取得房間列表"})
		return
	}

	c.JSON(http.StatusOK, infos)
}

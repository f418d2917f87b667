package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tabletop_web/internal/service"
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	ws     *service.WebSocketService
	router service.Dispatcher
}

func NewWebSocketHandler(ws *service.WebSocketService, router service.Dispatcher) *WebSocketHandler {
	return &WebSocketHandler{
		ws:     ws,
		router: router,
	}
}

// HandleWebSocket 升級連線後持續處理事件直到斷線
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已經回應錯誤
		c.Error(err)
		return
	}

	// 連線的生命週期不跟著請求的 context
	h.ws.HandleConnection(context.WithoutCancel(c.Request.Context()), conn, h.router)
}

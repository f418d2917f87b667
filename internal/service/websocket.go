package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tabletop_web/internal/models"
)

const (
	sendBufferSize = 256
	maxFrameBytes  = 64 * 1024
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
)

// Fanout 將事件送給單一連線、房間內所有成員或全部連線
type Fanout interface {
	SendTo(connID string, frame models.Frame)
	BroadcastRoom(roomNo int, frame models.Frame)
	BroadcastAll(frame models.Frame)
	Join(roomNo int, connID string)
	Leave(roomNo int, connID string)
}

// Dispatcher 處理連線上的事件，同一連線的事件依序呼叫
type Dispatcher interface {
	Connect(connID string) *Session
	Dispatch(ctx context.Context, s *Session, frame models.Frame)
	Disconnect(ctx context.Context, s *Session)
}

// Client 代表一個 WebSocket 客戶端連接
type Client struct {
	ID       string
	Conn     *websocket.Conn
	SendChan chan models.Frame // 消息發送通道，由 writePump 寫出
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		Conn:     conn,
		SendChan: make(chan models.Frame, sendBufferSize),
	}
}

// WebSocketService 管理所有連線以及房間頻道
type WebSocketService struct {
	clients    map[string]*Client
	channels   map[int]map[string]*Client // roomNo -> connID -> client
	clientsMux sync.RWMutex
	logger     *slog.Logger
}

func NewWebSocketService(logger *slog.Logger) *WebSocketService {
	return &WebSocketService{
		clients:  make(map[string]*Client),
		channels: make(map[int]map[string]*Client),
		logger:   logger,
	}
}

// HandleConnection 處理一條已升級的連線直到斷線
func (s *WebSocketService) HandleConnection(ctx context.Context, conn *websocket.Conn, d Dispatcher) {
	client := newClient(uuid.NewString(), conn)
	s.register(client)
	session := d.Connect(client.ID)
	s.logger.Info("user connected", "conn", client.ID)

	defer func() {
		d.Disconnect(ctx, session)
		s.unregister(client)
		conn.Close()
		s.logger.Info("user disconnected", "conn", client.ID)
	}()

	go s.writePump(client)
	s.readPump(ctx, client, session, d)
}

// readPump 依序讀取並處理客戶端的事件
func (s *WebSocketService) readPump(ctx context.Context, client *Client, session *Session, d Dispatcher) {
	client.Conn.SetReadLimit(maxFrameBytes)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket unexpected close", "conn", client.ID, "error", err)
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Event == "" {
			s.logger.Debug("frame parse error", "conn", client.ID, "error", err)
			s.SendTo(client.ID, models.NewFrame(eventError, errorPayload{Msg: ErrInvalidPayload.Error()}))
			continue
		}

		d.Dispatch(ctx, session, frame)
	}
}

// writePump 將 SendChan 的事件寫到連線，並定期送出 ping
func (s *WebSocketService) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-client.SendChan:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(frame); err != nil {
				s.logger.Debug("write frame failed", "conn", client.ID, "error", err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketService) SendTo(connID string, frame models.Frame) {
	s.clientsMux.RLock()
	client, ok := s.clients[connID]
	var slow []*Client
	if ok && !s.trySend(client, frame) {
		slow = append(slow, client)
	}
	s.clientsMux.RUnlock()

	s.dropSlow(slow)
}

// BroadcastRoom 向房間頻道內的所有客戶端廣播
func (s *WebSocketService) BroadcastRoom(roomNo int, frame models.Frame) {
	s.clientsMux.RLock()
	var slow []*Client
	for _, client := range s.channels[roomNo] {
		if !s.trySend(client, frame) {
			slow = append(slow, client)
		}
	}
	s.clientsMux.RUnlock()

	s.dropSlow(slow)
}

// BroadcastAll 向伺服器上的所有連線廣播
func (s *WebSocketService) BroadcastAll(frame models.Frame) {
	s.clientsMux.RLock()
	var slow []*Client
	for _, client := range s.clients {
		if !s.trySend(client, frame) {
			slow = append(slow, client)
		}
	}
	s.clientsMux.RUnlock()

	s.dropSlow(slow)
}

// 呼叫前必須持有讀鎖，SendChan 只會在寫鎖下關閉
func (s *WebSocketService) trySend(client *Client, frame models.Frame) bool {
	select {
	case client.SendChan <- frame:
		return true
	default:
		return false
	}
}

// 客戶端消息隊列已滿，關閉連接
func (s *WebSocketService) dropSlow(clients []*Client) {
	for _, client := range clients {
		s.logger.Warn("send buffer full, dropping client", "conn", client.ID)
		s.unregister(client)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
}

// Join 將連線加入房間的廣播頻道
func (s *WebSocketService) Join(roomNo int, connID string) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	client, ok := s.clients[connID]
	if !ok {
		return
	}
	if s.channels[roomNo] == nil {
		s.channels[roomNo] = make(map[string]*Client)
	}
	s.channels[roomNo][connID] = client
}

func (s *WebSocketService) Leave(roomNo int, connID string) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	s.leaveLocked(roomNo, connID)
}

func (s *WebSocketService) leaveLocked(roomNo int, connID string) {
	if members, ok := s.channels[roomNo]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(s.channels, roomNo)
		}
	}
}

func (s *WebSocketService) register(client *Client) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	s.clients[client.ID] = client
}

// unregister 移除連線並關閉 SendChan，可重複呼叫
func (s *WebSocketService) unregister(client *Client) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	if _, ok := s.clients[client.ID]; !ok {
		return
	}
	delete(s.clients, client.ID)
	for roomNo := range s.channels {
		s.leaveLocked(roomNo, client.ID)
	}
	close(client.SendChan)
}

// RoomClients 取得房間頻道內的連線數
func (s *WebSocketService) RoomClients(roomNo int) int {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	return len(s.channels[roomNo])
}

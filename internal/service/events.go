package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tabletop_web/internal/models"
)

const eventError = "error"

type errorPayload struct {
	Event string `json:"event,omitempty"`
	Msg   string `json:"msg"`
}

// HandlerFunc 處理一個事件，回傳的錯誤由 Dispatch 回報給請求者
type HandlerFunc func(ctx context.Context, s *Session, data json.RawMessage) error

// RoomHandlerFunc 處理需要已進入房間的事件
type RoomHandlerFunc func(ctx context.Context, s *Session, room *Room, data json.RawMessage) error

// EventRouter 將事件名稱對應到處理函式
type EventRouter struct {
	registry  *RoomRegistry
	lifecycle *LifecycleManager
	sessions  *SessionManager
	fanout    Fanout
	rolls     *RollOrchestrator
	logger    *slog.Logger
	routes    map[string]HandlerFunc

	// 非同步擲骰結果寫回時使用，不隨連線取消
	baseCtx context.Context
}

func NewEventRouter(
	ctx context.Context,
	registry *RoomRegistry,
	lifecycle *LifecycleManager,
	sessions *SessionManager,
	fanout Fanout,
	rolls *RollOrchestrator,
	logger *slog.Logger,
) *EventRouter {
	e := &EventRouter{
		registry:  registry,
		lifecycle: lifecycle,
		sessions:  sessions,
		fanout:    fanout,
		rolls:     rolls,
		logger:    logger,
		baseCtx:   context.WithoutCancel(ctx),
	}
	e.routes = map[string]HandlerFunc{
		// session
		"enterRoom": e.handleEnterRoom,
		"leaveRoom": e.handleLeaveRoom,

		// discovery
		"roomsinfo": e.handleRoomsInfo,
		"roomData":  e.handleRoomData,
		"systems":   e.handleSystems,

		// room admin
		"createRoom":  e.handleCreateRoom,
		"room.delete": e.inRoom(e.handleRoomDelete),

		// chat
		"chat.init": e.inRoom(e.handleChatInit),
		"chat.send": e.inRoom(e.handleChatSend),

		// status / chits
		"status.init": e.inRoom(e.handleStatusInit),
		"status.edit": e.inRoom(e.handleStatusEdit),
		"chits.init":  e.inRoom(e.handleChitsInit),
		"chit.add":    e.inRoom(e.handleChitAdd),
		"chit.update": e.inRoom(e.handleChitUpdate),
		"chit.delete": e.inRoom(e.handleChitDelete),

		// map
		"map.change": e.inRoom(e.handleMapChange),

		// images
		"images":        e.handleImages,
		"images.add":    e.handleImagesAdd,
		"images.delete": e.handleImagesDelete,
	}
	return e
}

func (e *EventRouter) Connect(connID string) *Session {
	return e.sessions.Connect(connID)
}

func (e *EventRouter) Disconnect(ctx context.Context, s *Session) {
	e.sessions.Disconnect(ctx, s)
}

// Dispatch 執行事件對應的處理函式直到完成
func (e *EventRouter) Dispatch(ctx context.Context, s *Session, frame models.Frame) {
	handle, ok := e.routes[frame.Event]
	var err error
	if !ok {
		err = ErrUnknownEvent
	} else {
		err = handle(ctx, s, frame.Data)
	}
	if err == nil {
		return
	}

	if isValidationError(err) {
		e.logger.Debug("event rejected", "event", frame.Event, "conn", s.ID, "error", err)
	} else {
		e.logger.Error("event failed", "event", frame.Event, "conn", s.ID, "error", err)
	}
	e.fanout.SendTo(s.ID, models.NewFrame(eventError, errorPayload{Event: frame.Event, Msg: clientMessage(err)}))
}

func (e *EventRouter) inRoom(h RoomHandlerFunc) HandlerFunc {
	return func(ctx context.Context, s *Session, data json.RawMessage) error {
		no, ok := s.Room()
		if !ok {
			return ErrNotInRoom
		}
		room, ok := e.registry.Room(no)
		if !ok {
			return ErrInvalidRoom
		}
		return h(ctx, s, room, data)
	}
}

func (e *EventRouter) reply(s *Session, event string, data any) {
	e.fanout.SendTo(s.ID, models.NewFrame(event, data))
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

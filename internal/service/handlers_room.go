package service

import (
	"context"
	"encoding/json"

	"tabletop_web/internal/utils"
)

type createRoomPayload struct {
	RoomID   int    `json:"roomId"`
	RoomName string `json:"roomName"`
	Password string `json:"password"`
	System   string `json:"system"`
}

func (e *EventRouter) handleEnterRoom(ctx context.Context, s *Session, data json.RawMessage) error {
	var req EnterRoomRequest
	if err := decode(data, &req); err != nil {
		e.reply(s, "enterRoom.failed", errorPayload{Msg: clientMessage(err)})
		return nil
	}
	err := e.sessions.EnterRoom(ctx, s, req)
	if err != nil && isValidationError(err) {
		// enterRoom.failed 已經送出
		e.logger.Info("enter room rejected", "conn", s.ID, "room", req.TryRoomNo, "reason", err)
		return nil
	}
	return err
}

func (e *EventRouter) handleLeaveRoom(ctx context.Context, s *Session, _ json.RawMessage) error {
	return e.sessions.LeaveRoom(ctx, s)
}

func (e *EventRouter) handleRoomsInfo(ctx context.Context, s *Session, _ json.RawMessage) error {
	infos, err := e.registry.Infos(ctx)
	if err != nil {
		return err
	}
	e.reply(s, "roomsinfo", infos)
	return nil
}

func (e *EventRouter) handleRoomData(ctx context.Context, s *Session, data json.RawMessage) error {
	var no int
	if err := decode(data, &no); err != nil {
		return err
	}
	room, ok := e.registry.Room(no)
	if !ok {
		return ErrInvalidRoom
	}
	return room.Do(ctx, func(r *Room) error {
		e.reply(s, "roomData", r.data(r.hasMember(s.ID)))
		return nil
	})
}

func (e *EventRouter) handleSystems(ctx context.Context, s *Session, _ json.RawMessage) error {
	systems, err := e.rolls.Systems(ctx)
	if err != nil {
		return err
	}
	e.reply(s, "systems", systems)
	return nil
}

// handleCreateRoom 結果只回給請求者，房間內此時還沒有成員
func (e *EventRouter) handleCreateRoom(ctx context.Context, s *Session, data json.RawMessage) error {
	var p createRoomPayload
	err := decode(data, &p)
	if err == nil {
		err = e.createRoom(ctx, p)
	}
	if err != nil {
		if !isValidationError(err) {
			e.logger.Error("failed make room", "room", p.RoomID, "error", err)
		}
		e.reply(s, "createRoom.error", errorPayload{Msg: clientMessage(err)})
		return nil
	}

	e.logger.Info("success create room", "room", p.RoomID, "name", p.RoomName)
	e.reply(s, "createRoom.success", nil)
	return nil
}

func (e *EventRouter) createRoom(ctx context.Context, p createRoomPayload) error {
	room, ok := e.registry.Room(p.RoomID)
	if !ok {
		return ErrInvalidRoom
	}
	hash, err := utils.HashPassword(p.Password)
	if err != nil {
		return err
	}

	return room.Do(ctx, func(r *Room) error {
		if r.state.IsCreated.Value {
			return ErrRoomAlreadyCreated
		}
		if err := commit(ctx, r.db, keyRoomName, &r.state.RoomName, p.RoomName); err != nil {
			return err
		}
		if err := commit(ctx, r.db, keyPassword, &r.state.Password, hash); err != nil {
			return err
		}
		if err := commit(ctx, r.db, keySystem, &r.state.System, p.System); err != nil {
			return err
		}
		// isCreated 最後寫入，中途失敗的房間仍維持未建立
		return commit(ctx, r.db, keyIsCreated, &r.state.IsCreated, true)
	})
}

// handleRoomDelete 先通知房間成員再重設房間
func (e *EventRouter) handleRoomDelete(ctx context.Context, s *Session, room *Room, _ json.RawMessage) error {
	var created bool
	err := room.Do(ctx, func(r *Room) error {
		created = r.state.IsCreated.Value
		return nil
	})
	if err != nil {
		return err
	}
	if !created {
		return ErrRoomNotCreated
	}

	evicted, err := e.lifecycle.ResetRoom(ctx, room, func(r *Room) {
		r.broadcast(e.fanout, "room.delete", nil)
	})
	e.sessions.evict(room.No(), evicted)
	if err != nil {
		return err
	}
	e.logger.Info("room deleted", "room", room.No(), "by", s.ID)
	return nil
}

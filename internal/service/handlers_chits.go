package service

import (
	"context"
	"encoding/json"

	"tabletop_web/internal/models"
)

type mapPayload struct {
	Map string `json:"map"`
}

func (e *EventRouter) handleStatusInit(ctx context.Context, s *Session, room *Room, _ json.RawMessage) error {
	return room.DoCreated(ctx, func(r *Room) error {
		e.reply(s, "status.init", r.state.Status.Value)
		return nil
	})
}

// handleStatusEdit 更新狀態樣板並重建所有棋子的狀態
func (e *EventRouter) handleStatusEdit(ctx context.Context, s *Session, room *Room, data json.RawMessage) error {
	var template string
	if err := decode(data, &template); err != nil {
		return err
	}

	return room.DoCreated(ctx, func(r *Room) error {
		chits := models.ApplyStatusSchema(r.state.Chits.Value, template)
		if err := commit(ctx, r.db, keyStatus, &r.state.Status, template); err != nil {
			return err
		}
		if err := commit(ctx, r.db, keyChits, &r.state.Chits, chits); err != nil {
			return err
		}
		r.broadcast(e.fanout, "status.init", template)
		r.broadcast(e.fanout, "chits.init", chits)
		return nil
	})
}

func (e *EventRouter) handleChitsInit(ctx context.Context, s *Session, room *Room, _ json.RawMessage) error {
	return room.DoCreated(ctx, func(r *Room) error {
		e.reply(s, "chits.init", r.state.Chits.Value)
		return nil
	})
}

func (e *EventRouter) handleChitAdd(ctx context.Context, s *Session, room *Room, data json.RawMessage) error {
	return e.upsertChit(ctx, room, data, "chit.add")
}

func (e *EventRouter) handleChitUpdate(ctx context.Context, s *Session, room *Room, data json.RawMessage) error {
	return e.upsertChit(ctx, room, data, "chit.update")
}

// upsertChit 同 id 的棋子只會保留一個，只廣播變動的棋子
func (e *EventRouter) upsertChit(ctx context.Context, room *Room, data json.RawMessage, event string) error {
	var chit models.Chit
	if err := decode(data, &chit); err != nil {
		return err
	}
	if chit.ID == "" {
		return ErrInvalidPayload
	}

	return room.DoCreated(ctx, func(r *Room) error {
		next := models.UpsertChit(r.state.Chits.Value, chit)
		if err := commit(ctx, r.db, keyChits, &r.state.Chits, next); err != nil {
			return err
		}
		r.broadcast(e.fanout, event, chit)
		return nil
	})
}

func (e *EventRouter) handleChitDelete(ctx context.Context, s *Session, room *Room, data json.RawMessage) error {
	var id models.ID
	if err := decode(data, &id); err != nil {
		return err
	}

	return room.DoCreated(ctx, func(r *Room) error {
		next := models.RemoveChit(r.state.Chits.Value, id)
		if err := commit(ctx, r.db, keyChits, &r.state.Chits, next); err != nil {
			return err
		}
		r.broadcast(e.fanout, "chit.delete", id)
		return nil
	})
}

func (e *EventRouter) handleMapChange(ctx context.Context, s *Session, room *Room, data json.RawMessage) error {
	var p mapPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	return room.DoCreated(ctx, func(r *Room) error {
		if err := commit(ctx, r.db, keyMap, &r.state.Map, p.Map); err != nil {
			return err
		}
		r.broadcast(e.fanout, "map.change", mapPayload{Map: r.state.Map.Value})
		return nil
	})
}

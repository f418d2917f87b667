package service

import (
	"context"
	"encoding/json"
	"slices"

	"tabletop_web/internal/models"
)

type chatSendPayload struct {
	Msg    models.ChatMessage `json:"msg"`
	System string             `json:"system"`
}

func (e *EventRouter) handleChatInit(ctx context.Context, s *Session, room *Room, _ json.RawMessage) error {
	return room.DoCreated(ctx, func(r *Room) error {
		e.reply(s, "chat.init", r.state.ChatLog.Value)
		return nil
	})
}

// handleChatSend 寫入並廣播訊息後，在背景擲骰
func (e *EventRouter) handleChatSend(ctx context.Context, s *Session, room *Room, data json.RawMessage) error {
	var p chatSendPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	var generation uint64
	err := room.DoCreated(ctx, func(r *Room) error {
		if err := appendChat(ctx, r, p.Msg); err != nil {
			return err
		}
		r.broadcast(e.fanout, "chat.receive", p.Msg)
		generation = r.generation
		return nil
	})
	if err != nil {
		return err
	}

	e.rollAsync(room, generation, p.System, p.Msg)
	return nil
}

func (e *EventRouter) rollAsync(room *Room, generation uint64, system string, msg models.ChatMessage) {
	result := e.rolls.Start(system, msg.Text)
	go func() {
		res := <-result
		if !res.OK {
			if res.Err != nil {
				e.logger.Debug("dice roll failed", "room", room.No(), "system", system, "error", res.Err)
			}
			return
		}

		dmsg := models.NewSystemMessage(system, res.Body, msg.Color)
		err := room.Do(e.baseCtx, func(r *Room) error {
			// 擲骰期間房間被重設
			if r.generation != generation || !r.state.IsCreated.Value {
				return nil
			}
			if err := appendChat(e.baseCtx, r, dmsg); err != nil {
				return err
			}
			r.broadcast(e.fanout, "chat.receive", dmsg)
			return nil
		})
		if err != nil {
			e.logger.Error("save dice result", "room", room.No(), "error", err)
		}
	}()
}

func appendChat(ctx context.Context, r *Room, msg models.ChatMessage) error {
	next := append(slices.Clone(r.state.ChatLog.Value), msg)
	return commit(ctx, r.db, keyChatLog, &r.state.ChatLog, next)
}

package service

import (
	"context"
	"encoding/json"

	"tabletop_web/internal/models"
)

// 圖片清單不屬於任何房間，變動會廣播給所有連線

func (e *EventRouter) handleImages(ctx context.Context, s *Session, _ json.RawMessage) error {
	return e.registry.Images().Do(ctx, func(l *ImageLibrary) error {
		e.reply(s, "images", l.list())
		return nil
	})
}

func (e *EventRouter) handleImagesAdd(ctx context.Context, s *Session, data json.RawMessage) error {
	var img models.Image
	if err := decode(data, &img); err != nil {
		return err
	}
	if img.ID == "" {
		return ErrInvalidPayload
	}

	return e.registry.Images().Do(ctx, func(l *ImageLibrary) error {
		if err := l.add(ctx, img); err != nil {
			return err
		}
		e.fanout.BroadcastAll(models.NewFrame("images.add", img))
		return nil
	})
}

func (e *EventRouter) handleImagesDelete(ctx context.Context, s *Session, data json.RawMessage) error {
	var id models.ID
	if err := decode(data, &id); err != nil {
		return err
	}

	return e.registry.Images().Do(ctx, func(l *ImageLibrary) error {
		if err := l.remove(ctx, id); err != nil {
			return err
		}
		e.fanout.BroadcastAll(models.NewFrame("images.delete", id))
		return nil
	})
}

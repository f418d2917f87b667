package service

import (
	"context"
	"slices"

	"tabletop_web/internal/models"
	"tabletop_web/internal/repository"
)

// RoomRegistry 以房間編號持有所有房間，啟動時建立一次
type RoomRegistry struct {
	rooms  []*Room
	images *ImageLibrary
}

func newRoomRegistry(rooms []*Room, images *ImageLibrary) *RoomRegistry {
	return &RoomRegistry{rooms: rooms, images: images}
}

// Room 取得房間，編號不存在時 ok 為 false
func (reg *RoomRegistry) Room(no int) (*Room, bool) {
	if no < 0 || no >= len(reg.rooms) {
		return nil, false
	}
	return reg.rooms[no], true
}

func (reg *RoomRegistry) Len() int {
	return len(reg.rooms)
}

func (reg *RoomRegistry) Images() *ImageLibrary {
	return reg.images
}

// Infos 依房間編號順序收集房間列表
func (reg *RoomRegistry) Infos(ctx context.Context) ([]models.RoomInfo, error) {
	infos := make([]models.RoomInfo, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		err := room.Do(ctx, func(r *Room) error {
			infos = append(infos, r.info())
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return infos, nil
}

// Close 停止所有房間的 goroutine
func (reg *RoomRegistry) Close() {
	for _, room := range reg.rooms {
		room.stop()
	}
	if reg.images != nil {
		reg.images.stop()
	}
}

// ImageLibrary 是 master 資料庫中全伺服器共用的圖片清單
type ImageLibrary struct {
	*actor
	db     repository.DocumentDB
	images field[[]models.Image]
}

func newImageLibrary(db repository.DocumentDB) *ImageLibrary {
	return &ImageLibrary{actor: newActor(), db: db}
}

func (l *ImageLibrary) Do(ctx context.Context, fn func(l *ImageLibrary) error) error {
	return l.do(ctx, func() error {
		return fn(l)
	})
}

func (l *ImageLibrary) list() []models.Image {
	return slices.Clone(l.images.Value)
}

// add 以 id 取代既有圖片後加到最後
func (l *ImageLibrary) add(ctx context.Context, img models.Image) error {
	next := append(models.RemoveImage(l.images.Value, img.ID), img)
	return commit(ctx, l.db, keyImages, &l.images, next)
}

func (l *ImageLibrary) remove(ctx context.Context, id models.ID) error {
	return commit(ctx, l.db, keyImages, &l.images, models.RemoveImage(l.images.Value, id))
}

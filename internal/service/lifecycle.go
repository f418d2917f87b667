package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tabletop_web/internal/models"
	"tabletop_web/internal/repository"
)

const bootstrapConcurrency = 4

// LifecycleManager 負責建立、載入與重設房間資料庫
type LifecycleManager struct {
	repo   repository.DocumentRepository
	prefix string
	total  int
	logger *slog.Logger
}

func NewLifecycleManager(repo repository.DocumentRepository, prefix string, total int, logger *slog.Logger) *LifecycleManager {
	return &LifecycleManager{
		repo:   repo,
		prefix: prefix,
		total:  total,
		logger: logger,
	}
}

func (m *LifecycleManager) roomDBName(no int) string {
	return fmt.Sprintf("%s_room_%d", m.prefix, no)
}

// Bootstrap 找不到 master 資料庫時初始化全部資料庫，否則載入既有資料
func (m *LifecycleManager) Bootstrap(ctx context.Context) (*RoomRegistry, error) {
	m.logger.Info("finding master database", "name", m.prefix)
	exists, err := m.repo.Exists(ctx, m.prefix)
	if err != nil {
		return nil, fmt.Errorf("probe master database: %w", err)
	}

	var images *ImageLibrary
	if exists {
		m.logger.Info("found master database", "name", m.prefix)
		images, err = m.openImages(ctx)
	} else {
		m.logger.Warn("master database not found, initializing", "name", m.prefix)
		images, err = m.createImages(ctx)
	}
	if err != nil {
		return nil, err
	}

	rooms := make([]*Room, m.total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bootstrapConcurrency)
	for i := range rooms {
		g.Go(func() error {
			room, err := m.setupRoom(gctx, i, !exists)
			if err != nil {
				return err
			}
			rooms[i] = room
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		images.stop()
		for _, r := range rooms {
			if r != nil {
				r.stop()
			}
		}
		return nil, err
	}

	m.logger.Info("rooms ready", "total", m.total)
	return newRoomRegistry(rooms, images), nil
}

func (m *LifecycleManager) createImages(ctx context.Context) (*ImageLibrary, error) {
	db, err := m.repo.Create(ctx, m.prefix)
	if err != nil {
		return nil, fmt.Errorf("create master database: %w", err)
	}
	lib := newImageLibrary(db)
	lib.images.Value = []models.Image{}
	if err := seedField(ctx, db, keyImages, &lib.images); err != nil {
		lib.stop()
		return nil, fmt.Errorf("seed images: %w", err)
	}
	return lib, nil
}

func (m *LifecycleManager) openImages(ctx context.Context) (*ImageLibrary, error) {
	db, err := m.repo.Open(ctx, m.prefix)
	if err != nil {
		return nil, fmt.Errorf("open master database: %w", err)
	}
	lib := newImageLibrary(db)
	if err := loadField(ctx, db, keyImages, &lib.images); err != nil {
		lib.stop()
		return nil, fmt.Errorf("load images: %w", err)
	}
	return lib, nil
}

// setupRoom 在 create 為 true 或房間資料庫不存在時建立並寫入預設值，否則載入
func (m *LifecycleManager) setupRoom(ctx context.Context, no int, create bool) (*Room, error) {
	name := m.roomDBName(no)
	if !create {
		db, err := m.repo.Open(ctx, name)
		switch {
		case err == nil:
			room := newRoom(no, db)
			if err := room.load(ctx); err != nil {
				room.stop()
				return nil, err
			}
			return room, nil
		case errors.Is(err, repository.ErrNotFound):
			// 房間總數調高後新增的房間
			m.logger.Warn("room database missing, initializing", "room", no, "name", name)
		default:
			return nil, err
		}
	}

	room := newRoom(no, nil)
	if err := m.recreate(ctx, room); err != nil {
		room.stop()
		return nil, err
	}
	return room, nil
}

// recreate 刪除並重建房間資料庫，寫入預設值
func (m *LifecycleManager) recreate(ctx context.Context, room *Room) error {
	name := m.roomDBName(room.no)
	m.logger.Info("create room database", "room", room.no, "name", name)

	if err := m.repo.Destroy(ctx, name); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("destroy %s: %w", name, err)
	}
	db, err := m.repo.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	room.db = db
	return room.seed(ctx)
}

// ResetRoom 將房間恢復成初始狀態，不影響其他房間。
// notify 會在清除資料前於房間的 goroutine 上呼叫，回傳被移出的成員。
func (m *LifecycleManager) ResetRoom(ctx context.Context, room *Room, notify func(r *Room)) ([]models.Member, error) {
	var evicted []models.Member
	err := room.Do(ctx, func(r *Room) error {
		if notify != nil {
			notify(r)
		}
		evicted = r.memberList()
		r.members = nil
		r.generation++
		return m.recreate(ctx, r)
	})
	if err != nil {
		return evicted, fmt.Errorf("reset room %d: %w", room.no, err)
	}
	m.logger.Info("room reset", "room", room.no, "evicted", len(evicted))
	return evicted, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"tabletop_web/internal/models"
	"tabletop_web/internal/repository"
)

// 房間資料庫中每個欄位各自是一份文件
const (
	keyIsCreated = "isCreated"
	keyRoomNo    = "roomNo"
	keyRoomName  = "roomName"
	keyPassword  = "password"
	keySystem    = "system"
	keyChatLog   = "chatLog"
	keyChits     = "chits"
	keyStatus    = "status"
	keyMap       = "map"

	keyImages = "images"
)

const defaultSystem = "DiceBot"

// field 是一份文件在記憶體中的副本，Rev 必須跟著每次寫入更新
type field[T any] struct {
	Value T
	Rev   repository.Revision
}

type roomState struct {
	IsCreated field[bool]
	RoomNo    field[int]
	RoomName  field[string]
	Password  field[string]
	System    field[string]
	ChatLog   field[[]models.ChatMessage]
	Chits     field[[]models.Chit]
	Status    field[string]
	Map       field[string]
}

// Room 代表一個房間的權威狀態，所有讀寫都必須透過 Do 在房間自己的 goroutine 上執行
type Room struct {
	*actor
	no         int
	db         repository.DocumentDB
	state      roomState
	members    []models.Member
	seq        uint64
	generation uint64
}

func newRoom(no int, db repository.DocumentDB) *Room {
	return &Room{
		actor: newActor(),
		no:    no,
		db:    db,
	}
}

func (r *Room) No() int {
	return r.no
}

// Do 在房間的 goroutine 上執行 fn
func (r *Room) Do(ctx context.Context, fn func(r *Room) error) error {
	return r.do(ctx, func() error {
		return fn(r)
	})
}

// DoCreated 與 Do 相同，但房間尚未建立時回傳 ErrRoomNotCreated
func (r *Room) DoCreated(ctx context.Context, fn func(r *Room) error) error {
	return r.Do(ctx, func(r *Room) error {
		if !r.state.IsCreated.Value {
			return ErrRoomNotCreated
		}
		return fn(r)
	})
}

func (r *Room) broadcast(fanout Fanout, event string, data any) {
	r.seq++
	frame := models.NewFrame(event, data)
	frame.Seq = r.seq
	fanout.BroadcastRoom(r.no, frame)
}

func (r *Room) hasMember(connID string) bool {
	return slices.ContainsFunc(r.members, func(m models.Member) bool {
		return m.ID == connID
	})
}

func (r *Room) addMember(m models.Member) {
	if r.hasMember(m.ID) {
		return
	}
	r.members = append(r.members, m)
}

func (r *Room) removeMember(connID string) bool {
	before := len(r.members)
	r.members = slices.DeleteFunc(r.members, func(m models.Member) bool {
		return m.ID == connID
	})
	return len(r.members) != before
}

func (r *Room) memberList() []models.Member {
	return append([]models.Member{}, r.members...)
}

func (r *Room) info() models.RoomInfo {
	return models.RoomInfo{
		RoomNo:    r.state.RoomNo.Value,
		IsCreated: r.state.IsCreated.Value,
		Text:      r.state.RoomName.Value,
		System:    r.state.System.Value,
	}
}

// data 整理給客戶端的房間資料，非成員只能看到公開欄位
func (r *Room) data(private bool) models.RoomData {
	d := models.RoomData{
		Member:    r.memberList(),
		IsCreated: r.state.IsCreated.Value,
		RoomNo:    r.state.RoomNo.Value,
		RoomName:  r.state.RoomName.Value,
		System:    r.state.System.Value,
	}
	if private {
		d.ChatLog = slices.Clone(r.state.ChatLog.Value)
		d.Chits = slices.Clone(r.state.Chits.Value)
		d.Status = r.state.Status.Value
		d.Map = r.state.Map.Value
	}
	return d
}

func defaultRoomState(no int) roomState {
	return roomState{
		IsCreated: field[bool]{Value: false},
		RoomNo:    field[int]{Value: no},
		RoomName:  field[string]{Value: ""},
		Password:  field[string]{Value: ""},
		System:    field[string]{Value: defaultSystem},
		ChatLog:   field[[]models.ChatMessage]{Value: []models.ChatMessage{}},
		Chits:     field[[]models.Chit]{Value: []models.Chit{}},
		Status:    field[string]{Value: ""},
		Map:       field[string]{Value: ""},
	}
}

// seed 將預設值寫入剛建立的房間資料庫
func (r *Room) seed(ctx context.Context) error {
	st := defaultRoomState(r.no)
	steps := []func() error{
		func() error { return seedField(ctx, r.db, keyIsCreated, &st.IsCreated) },
		func() error { return seedField(ctx, r.db, keyRoomNo, &st.RoomNo) },
		func() error { return seedField(ctx, r.db, keyRoomName, &st.RoomName) },
		func() error { return seedField(ctx, r.db, keyPassword, &st.Password) },
		func() error { return seedField(ctx, r.db, keySystem, &st.System) },
		func() error { return seedField(ctx, r.db, keyChatLog, &st.ChatLog) },
		func() error { return seedField(ctx, r.db, keyChits, &st.Chits) },
		func() error { return seedField(ctx, r.db, keyStatus, &st.Status) },
		func() error { return seedField(ctx, r.db, keyMap, &st.Map) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("seed room %d: %w", r.no, err)
		}
	}
	r.state = st
	return nil
}

// load 從資料庫讀取所有欄位，不做任何寫入
func (r *Room) load(ctx context.Context) error {
	var st roomState
	steps := []func() error{
		func() error { return loadField(ctx, r.db, keyIsCreated, &st.IsCreated) },
		func() error { return loadField(ctx, r.db, keyRoomNo, &st.RoomNo) },
		func() error { return loadField(ctx, r.db, keyRoomName, &st.RoomName) },
		func() error { return loadField(ctx, r.db, keyPassword, &st.Password) },
		func() error { return loadField(ctx, r.db, keySystem, &st.System) },
		func() error { return loadField(ctx, r.db, keyChatLog, &st.ChatLog) },
		func() error { return loadField(ctx, r.db, keyChits, &st.Chits) },
		func() error { return loadField(ctx, r.db, keyStatus, &st.Status) },
		func() error { return loadField(ctx, r.db, keyMap, &st.Map) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("load room %d: %w", r.no, err)
		}
	}
	r.state = st
	return nil
}

func loadField[T any](ctx context.Context, db repository.DocumentDB, key string, f *field[T]) error {
	var v T
	rev, err := db.Get(ctx, key, &v)
	if err != nil {
		return err
	}
	f.Value = v
	f.Rev = rev
	return nil
}

func seedField[T any](ctx context.Context, db repository.DocumentDB, key string, f *field[T]) error {
	rev, err := db.Put(ctx, key, f.Value, 0)
	if err != nil {
		return err
	}
	f.Rev = rev
	return nil
}

// commit 寫入 next，成功後才更新記憶體中的值與 revision。
// 遇到 revision 衝突時重新讀取目前的 revision 再重試一次。
func commit[T any](ctx context.Context, db repository.DocumentDB, key string, f *field[T], next T) error {
	rev, err := db.Put(ctx, key, next, f.Rev)
	if errors.Is(err, repository.ErrConflict) {
		current, getErr := db.Get(ctx, key, nil)
		if getErr != nil {
			return fmt.Errorf("refresh %s after conflict: %w", key, getErr)
		}
		rev, err = db.Put(ctx, key, next, current)
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	f.Value = next
	f.Rev = rev
	return nil
}

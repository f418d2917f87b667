package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tabletop_web/internal/models"
	"tabletop_web/internal/utils"
)

const noRoom = -1

// Session 是單一連線的狀態，同一時間最多只在一個房間
type Session struct {
	ID string

	mu     sync.Mutex
	roomNo int
	name   string
}

func newSession(id string) *Session {
	return &Session{ID: id, roomNo: noRoom}
}

// Room 回傳目前所在的房間
func (s *Session) Room() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomNo, s.roomNo != noRoom
}

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) setRoom(no int, name string) {
	s.mu.Lock()
	s.roomNo = no
	s.name = name
	s.mu.Unlock()
}

// clearRoom 只有目前在 no 房間時才清除
func (s *Session) clearRoom(no int) {
	s.mu.Lock()
	if s.roomNo == no {
		s.roomNo = noRoom
	}
	s.mu.Unlock()
}

type EnterRoomRequest struct {
	TryRoomNo int    `json:"tryRoomNo"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Ticket    string `json:"ticket,omitempty"`
}

type enterRoomSuccess struct {
	RoomNo int    `json:"roomNo"`
	Ticket string `json:"ticket,omitempty"`
}

// SessionManager 管理連線的進出房間與房間成員名單
type SessionManager struct {
	registry *RoomRegistry
	fanout   Fanout
	tickets  *utils.TicketIssuer
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(registry *RoomRegistry, fanout Fanout, tickets *utils.TicketIssuer, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		registry: registry,
		fanout:   fanout,
		tickets:  tickets,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

func (m *SessionManager) Connect(connID string) *Session {
	s := newSession(connID)
	m.mu.Lock()
	m.sessions[connID] = s
	m.mu.Unlock()
	return s
}

// Disconnect 斷線時離開目前的房間
func (m *SessionManager) Disconnect(ctx context.Context, s *Session) {
	if err := m.LeaveRoom(ctx, s); err != nil {
		m.logger.Error("leave room on disconnect", "conn", s.ID, "error", err)
	}
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()
}

func (m *SessionManager) session(connID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[connID]
	return s, ok
}

// EnterRoom 依序檢查房間編號、是否已建立、密碼，失敗時只通知請求者
func (m *SessionManager) EnterRoom(ctx context.Context, s *Session, req EnterRoomRequest) error {
	if _, ok := s.Room(); ok {
		if err := m.LeaveRoom(ctx, s); err != nil {
			return err
		}
	}

	err := m.enter(ctx, s, req)
	if err != nil {
		if isValidationError(err) {
			m.fanout.SendTo(s.ID, models.NewFrame("enterRoom.failed", errorPayload{Msg: clientMessage(err)}))
		}
		return err
	}
	return nil
}

func (m *SessionManager) enter(ctx context.Context, s *Session, req EnterRoomRequest) error {
	room, ok := m.registry.Room(req.TryRoomNo)
	if !ok {
		return ErrInvalidRoom
	}

	// bcrypt 比對較慢，不在房間的 goroutine 上執行
	var hash string
	err := room.DoCreated(ctx, func(r *Room) error {
		hash = r.state.Password.Value
		return nil
	})
	if err != nil {
		return err
	}
	if !m.authorize(room.no, hash, req) {
		return ErrPasswordMismatch
	}

	var ticket string
	err = room.DoCreated(ctx, func(r *Room) error {
		// 驗證後房間被重設
		if r.state.Password.Value != hash {
			return ErrPasswordMismatch
		}
		m.fanout.Join(r.no, s.ID)
		r.addMember(models.Member{ID: s.ID, Name: req.Name})
		s.setRoom(r.no, req.Name)
		r.broadcast(m.fanout, "member.list", r.memberList())

		t, err := m.tickets.Generate(r.no, req.Name, hash)
		if err != nil {
			m.logger.Warn("generate room ticket", "room", r.no, "error", err)
		}
		ticket = t
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("enter room", "conn", s.ID, "room", room.no, "name", req.Name)
	m.fanout.SendTo(s.ID, models.NewFrame("enterRoom.success", enterRoomSuccess{RoomNo: room.no, Ticket: ticket}))
	return nil
}

func (m *SessionManager) authorize(roomNo int, hash string, req EnterRoomRequest) bool {
	if req.Ticket != "" {
		_, err := m.tickets.Verify(req.Ticket, roomNo, hash)
		if err == nil {
			return true
		}
		m.logger.Debug("room ticket rejected, checking password", "room", roomNo, "name", req.Name, "error", err)
	}
	return utils.CheckPassword(hash, req.Password)
}

// LeaveRoom 將連線移出目前的房間，不在房間時不做任何事
func (m *SessionManager) LeaveRoom(ctx context.Context, s *Session) error {
	no, ok := s.Room()
	if !ok {
		return nil
	}
	room, ok := m.registry.Room(no)
	if !ok {
		s.clearRoom(no)
		return nil
	}

	err := room.Do(ctx, func(r *Room) error {
		removed := r.removeMember(s.ID)
		m.fanout.Leave(r.no, s.ID)
		s.clearRoom(r.no)
		if removed {
			r.broadcast(m.fanout, "member.list", r.memberList())
		}
		return nil
	})
	if errors.Is(err, ErrStopped) {
		s.clearRoom(no)
		return nil
	}
	return err
}

// evict 房間重設後把原成員移回大廳
func (m *SessionManager) evict(roomNo int, members []models.Member) {
	for _, member := range members {
		m.fanout.Leave(roomNo, member.ID)
		if s, ok := m.session(member.ID); ok {
			s.clearRoom(roomNo)
		}
	}
}

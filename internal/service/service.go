package service

import (
	"context"
	"log/slog"
	"time"

	"tabletop_web/internal/dice"
	"tabletop_web/internal/repository"
	"tabletop_web/internal/utils"
)

// Options 是建立服務所需的設定
type Options struct {
	Prefix       string
	TotalRooms   int
	DiceURL      string
	DiceTimeout  time.Duration
	TicketSecret string
	TicketTTL    time.Duration
	Logger       *slog.Logger

	// Roller 不為 nil 時取代依 DiceURL 選擇的擲骰實作
	Roller dice.Roller
}

type Services struct {
	Registry  *RoomRegistry
	Lifecycle *LifecycleManager
	Sessions  *SessionManager
	WebSocket *WebSocketService
	Rolls     *RollOrchestrator
	Router    *EventRouter
}

// NewServices 啟動所有房間並組裝事件處理
func NewServices(ctx context.Context, repos *repository.Repositories, opts Options) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lifecycle := NewLifecycleManager(repos.Document, opts.Prefix, opts.TotalRooms, logger.With("component", "lifecycle"))
	registry, err := lifecycle.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	roller := opts.Roller
	if roller == nil {
		roller, err = newRoller(opts, logger)
		if err != nil {
			registry.Close()
			return nil, err
		}
	}

	ws := NewWebSocketService(logger.With("component", "websocket"))
	tickets := utils.NewTicketIssuer(opts.TicketSecret, opts.TicketTTL)
	sessions := NewSessionManager(registry, ws, tickets, logger.With("component", "session"))
	rolls := NewRollOrchestrator(roller, opts.DiceTimeout, logger.With("component", "dice"))
	router := NewEventRouter(ctx, registry, lifecycle, sessions, ws, rolls, logger.With("component", "events"))

	return &Services{
		Registry:  registry,
		Lifecycle: lifecycle,
		Sessions:  sessions,
		WebSocket: ws,
		Rolls:     rolls,
		Router:    router,
	}, nil
}

func newRoller(opts Options, logger *slog.Logger) (dice.Roller, error) {
	if opts.DiceURL != "" {
		logger.Info("using bcdice api", "url", opts.DiceURL)
		return dice.NewBCDiceClient(opts.DiceURL, opts.DiceTimeout), nil
	}
	seed, err := dice.NewSeed()
	if err != nil {
		return nil, err
	}
	logger.Warn("dice.url not set, using local roller")
	return dice.NewLocalRoller(seed), nil
}

func (s *Services) Close() {
	s.Registry.Close()
}

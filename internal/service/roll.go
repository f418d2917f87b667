package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"tabletop_web/internal/dice"
)

// RollResult 是一次非同步擲骰的結果，OK 為 false 時不應產生聊天訊息
type RollResult struct {
	OK   bool
	Body string
	Err  error
}

// RollOrchestrator 非同步呼叫擲骰服務
type RollOrchestrator struct {
	roller  dice.Roller
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	systems []dice.GameSystem
}

func NewRollOrchestrator(roller dice.Roller, timeout time.Duration, logger *slog.Logger) *RollOrchestrator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RollOrchestrator{
		roller:  roller,
		timeout: timeout,
		logger:  logger,
	}
}

// Start 在背景擲骰，結果只會送出一次
func (o *RollOrchestrator) Start(system, formula string) <-chan RollResult {
	out := make(chan RollResult, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()

		outcome, err := o.roller.Roll(ctx, system, formula)
		switch {
		case err != nil:
			out <- RollResult{Err: err}
		case !outcome.OK:
			out <- RollResult{}
		default:
			out <- RollResult{OK: true, Body: outcome.Text}
		}
	}()
	return out
}

// Systems 回傳支援的遊戲系統，第一次成功取得後快取
func (o *RollOrchestrator) Systems(ctx context.Context) ([]dice.GameSystem, error) {
	o.mu.Lock()
	cached := o.systems
	o.mu.Unlock()
	if cached != nil {
		return slices.Clone(cached), nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	systems, err := o.roller.Systems(ctx)
	if err != nil {
		return nil, err
	}
	if systems == nil {
		systems = []dice.GameSystem{}
	}

	o.mu.Lock()
	o.systems = systems
	o.mu.Unlock()
	return slices.Clone(systems), nil
}

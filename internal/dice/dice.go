// Package dice 提供擲骰服務的用戶端。
//
// Roller 的實作可以是遠端的 BCDice-API，也可以是不需要外部服務的本地擲骰器。
package dice

import (
	"context"
	"errors"
)

// ErrUnavailable 擲骰服務無法連線或回應異常
var ErrUnavailable = errors.New("dice service unavailable")

// Outcome 是一次擲骰的結果，OK 為 false 表示指令不是擲骰或擲骰失敗
type Outcome struct {
	OK   bool
	Text string
}

// GameSystem 描述擲骰服務支援的遊戲系統
type GameSystem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SortKey string `json:"sort_key,omitempty"`
}

type Roller interface {
	Roll(ctx context.Context, system, command string) (Outcome, error)
	Systems(ctx context.Context) ([]GameSystem, error)
}

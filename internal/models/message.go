package models

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"
)

// Frame 是 WebSocket 上雙向傳遞的事件
type Frame struct {
	Event string          `json:"event"`
	Seq   uint64          `json:"seq,omitempty"` // 房間廣播的序號
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame 將 data 編碼後包成 Frame，data 為 nil 時不帶內容
func NewFrame(event string, data any) Frame {
	f := Frame{Event: event}
	if data == nil {
		return f
	}
	b, err := json.Marshal(data)
	if err != nil {
		slog.Warn("failed to marshal frame", "event", event, "error", err)
		return f
	}
	f.Data = b
	return f
}

// ChatMessage 代表聊天紀錄中的一則訊息，未知欄位會原樣保留
type ChatMessage struct {
	ID    ID
	Name  string
	Text  string
	Color string
	Extra map[string]json.RawMessage
}

// NewSystemMessage 建立擲骰結果等系統訊息
func NewSystemMessage(name, text, color string) ChatMessage {
	return ChatMessage{
		ID:    ID(strconv.FormatInt(time.Now().UnixMilli(), 10)),
		Name:  name,
		Text:  text,
		Color: color,
	}
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	known := map[string]any{
		"name":  m.Name,
		"text":  m.Text,
		"color": m.Color,
	}
	if m.ID != "" {
		known["id"] = m.ID
	}
	return mergeObject(m.Extra, known)
}

func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	known, extra, err := splitObject(data, "id", "name", "text", "color")
	if err != nil {
		return err
	}
	var msg ChatMessage
	if err := decodeField(known, "id", &msg.ID); err != nil {
		return err
	}
	if err := decodeField(known, "name", &msg.Name); err != nil {
		return err
	}
	if err := decodeField(known, "text", &msg.Text); err != nil {
		return err
	}
	if err := decodeField(known, "color", &msg.Color); err != nil {
		return err
	}
	msg.Extra = extra
	*m = msg
	return nil
}

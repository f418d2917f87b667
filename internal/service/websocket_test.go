package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop_web/internal/models"
)

func newTestHub(ids ...string) (*WebSocketService, map[string]*Client) {
	ws := NewWebSocketService(discardLogger())
	clients := make(map[string]*Client, len(ids))
	for _, id := range ids {
		c := newClient(id, nil)
		ws.register(c)
		clients[id] = c
	}
	return ws, clients
}

func TestBroadcastRoomOnlyReachesChannel(t *testing.T) {
	ws, clients := newTestHub("a", "b", "c")
	ws.Join(1, "a")
	ws.Join(1, "b")
	ws.Join(2, "c")

	ws.BroadcastRoom(1, models.NewFrame("map.change", nil))

	assert.Len(t, clients["a"].SendChan, 1)
	assert.Len(t, clients["b"].SendChan, 1)
	assert.Empty(t, clients["c"].SendChan)

	ws.Leave(1, "a")
	ws.BroadcastRoom(1, models.NewFrame("map.change", nil))
	assert.Len(t, clients["a"].SendChan, 1)
	assert.Len(t, clients["b"].SendChan, 2)
	assert.Equal(t, 1, ws.RoomClients(1))
}

func TestBroadcastAll(t *testing.T) {
	ws, clients := newTestHub("a", "b")
	ws.Join(1, "a")

	ws.BroadcastAll(models.NewFrame("images.add", nil))
	for _, c := range clients {
		assert.Len(t, c.SendChan, 1)
	}
}

func TestJoinUnknownConnection(t *testing.T) {
	ws, _ := newTestHub()
	ws.Join(1, "ghost")
	assert.Equal(t, 0, ws.RoomClients(1))
}

func TestSlowClientIsDropped(t *testing.T) {
	ws, clients := newTestHub("slow", "fast")
	ws.Join(0, "slow")
	ws.Join(0, "fast")

	for i := 0; i < sendBufferSize; i++ {
		ws.SendTo("slow", models.NewFrame("chat.receive", nil))
	}
	ws.BroadcastRoom(0, models.NewFrame("chat.receive", nil))

	assert.Equal(t, 1, ws.RoomClients(0))
	assert.Len(t, clients["fast"].SendChan, 1)

	// SendChan 已關閉，讀完緩衝後會得到 ok == false
	n := 0
	for range clients["slow"].SendChan {
		n++
	}
	assert.Equal(t, sendBufferSize, n)

	// 已移除的連線不會再收到事件，也不會 panic
	require.NotPanics(t, func() {
		ws.SendTo("slow", models.NewFrame("chat.receive", nil))
		ws.unregister(clients["slow"])
	})
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop_web/internal/dice"
	"tabletop_web/internal/models"
	"tabletop_web/internal/repository"
	"tabletop_web/internal/service"
	"tabletop_web/internal/storage/storagetest"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := repository.NewRepositories(storagetest.NewDB(t))
	services, err := service.NewServices(context.Background(), repos, service.Options{
		Prefix:       "tt",
		TotalRooms:   2,
		DiceTimeout:  time.Second,
		TicketSecret: "test-secret",
		TicketTTL:    time.Hour,
		Logger:       logger,
		Roller:       dice.NewLocalRoller(1),
	})
	require.NoError(t, err)

	r := gin.New()
	SetupRoutes(r, services)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		services.Close()
	})
	return srv
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRooms(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var infos []models.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	assert.Equal(t, []models.RoomInfo{
		{RoomNo: 0, System: "DiceBot"},
		{RoomNo: 1, System: "DiceBot"},
	}, infos)
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(models.NewFrame(event, data)))
}

func (c *wsClient) expect(event string) models.Frame {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f models.Frame
		require.NoError(c.t, c.conn.ReadJSON(&f))
		if f.Event == event {
			return f
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	srv := newTestServer(t)
	alice, bob := dial(t, srv), dial(t, srv)

	alice.send("createRoom", map[string]any{"roomId": 1, "roomName": "Tavern", "password": "pw", "system": "DiceBot"})
	alice.expect("createRoom.success")

	alice.send("enterRoom", service.EnterRoomRequest{TryRoomNo: 1, Name: "Alice", Password: "pw"})
	alice.expect("enterRoom.success")
	bob.send("enterRoom", service.EnterRoomRequest{TryRoomNo: 1, Name: "Bob", Password: "pw"})
	bob.expect("enterRoom.success")

	alice.send("chat.send", map[string]any{"msg": map[string]any{"name": "Alice", "text": "1d6+1"}, "system": "DiceBot"})

	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(bob.expect("chat.receive").Data, &msg))
	assert.Equal(t, "1d6+1", msg.Text)
	require.NoError(t, json.Unmarshal(bob.expect("chat.receive").Data, &msg))
	assert.Equal(t, "DiceBot", msg.Name)
	assert.True(t, strings.HasPrefix(msg.Text, "(1D6+1) ＞ "), msg.Text)

	// 斷線後其他成員會收到新的成員名單
	require.NoError(t, alice.conn.Close())
	var members []models.Member
	require.NoError(t, json.Unmarshal(bob.expect("member.list").Data, &members))
	require.Len(t, members, 1)
	assert.Equal(t, "Bob", members[0].Name)
}

func TestWebSocketMalformedFrame(t *testing.T) {
	srv := newTestServer(t)
	c := dial(t, srv)

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	f := c.expect("error")
	assert.Contains(t, string(f.Data), "無效的資料格式")
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tabletop_web/internal/dice"
	"tabletop_web/internal/models"
	"tabletop_web/internal/repository"
	"tabletop_web/internal/storage/storagetest"
)

const waitTimeout = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rollerFunc 讓測試直接決定擲骰結果
type rollerFunc func(ctx context.Context, system, command string) (dice.Outcome, error)

func (f rollerFunc) Roll(ctx context.Context, system, command string) (dice.Outcome, error) {
	return f(ctx, system, command)
}

func (f rollerFunc) Systems(context.Context) ([]dice.GameSystem, error) {
	return []dice.GameSystem{dice.LocalSystem}, nil
}

// fixedRoller 只有 2d6 開頭的指令會成功
func fixedRoller(_ context.Context, _ string, command string) (dice.Outcome, error) {
	if strings.HasPrefix(strings.ToLower(command), "2d6") {
		return dice.Outcome{OK: true, Text: "(2D6) ＞ 3,4 ＞ 7"}, nil
	}
	return dice.Outcome{}, nil
}

type testEnv struct {
	t     *testing.T
	repos *repository.Repositories
	svc   *Services
}

func newTestEnv(t *testing.T, roller dice.Roller) *testEnv {
	t.Helper()

	repos := repository.NewRepositories(storagetest.NewDB(t))
	if roller == nil {
		roller = rollerFunc(fixedRoller)
	}
	env := &testEnv{t: t, repos: repos}
	env.svc = env.start(roller)
	return env
}

// restart 停掉目前的服務，在同一個資料庫上重新啟動
func (env *testEnv) restart() {
	env.t.Helper()
	env.svc.Close()
	env.svc = env.start(env.svc.Rolls.roller)
}

func (env *testEnv) start(roller dice.Roller) *Services {
	t := env.t
	t.Helper()

	svc, err := NewServices(context.Background(), env.repos, Options{
		Prefix:       "tt",
		TotalRooms:   3,
		DiceTimeout:  time.Second,
		TicketSecret: "test-secret",
		TicketTTL:    time.Hour,
		Logger:       discardLogger(),
		Roller:       roller,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

// storedChits 直接從房間資料庫讀出 chits 文件
func (env *testEnv) storedChits(roomNo int) []models.Chit {
	env.t.Helper()
	ctx := context.Background()
	db, err := env.repos.Document.Open(ctx, fmt.Sprintf("tt_room_%d", roomNo))
	require.NoError(env.t, err)
	var chits []models.Chit
	_, err = db.Get(ctx, keyChits, &chits)
	require.NoError(env.t, err)
	return chits
}

// testClient 模擬一條連線，直接讀取 SendChan
type testClient struct {
	t       *testing.T
	env     *testEnv
	client  *Client
	session *Session
}

func (env *testEnv) connect() *testClient {
	c := newClient(uuid.NewString(), nil)
	env.svc.WebSocket.register(c)
	return &testClient{
		t:       env.t,
		env:     env,
		client:  c,
		session: env.svc.Router.Connect(c.ID),
	}
}

func (c *testClient) send(event string, data any) {
	c.t.Helper()
	c.env.svc.Router.Dispatch(context.Background(), c.session, models.NewFrame(event, data))
}

func (c *testClient) disconnect() {
	c.env.svc.Router.Disconnect(context.Background(), c.session)
	c.env.svc.WebSocket.unregister(c.client)
}

// expect 讀到指定事件為止，略過其他事件
func (c *testClient) expect(event string) models.Frame {
	c.t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case f, ok := <-c.client.SendChan:
			if !ok {
				c.t.Fatalf("connection closed while waiting for %s", event)
			}
			if f.Event == event {
				return f
			}
		case <-timeout:
			c.t.Fatalf("timed out waiting for %s", event)
		}
	}
}

func (c *testClient) expectData(event string, out any) models.Frame {
	c.t.Helper()
	f := c.expect(event)
	require.NoError(c.t, json.Unmarshal(f.Data, out))
	return f
}

func (c *testClient) expectError(event string) string {
	c.t.Helper()
	var p errorPayload
	c.expectData(eventError, &p)
	require.Equal(c.t, event, p.Event)
	return p.Msg
}

func (c *testClient) expectNone(event string, wait time.Duration) {
	c.t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case f, ok := <-c.client.SendChan:
			if ok && f.Event == event {
				c.t.Fatalf("unexpected %s: %s", event, f.Data)
			}
		case <-deadline:
			return
		}
	}
}

func (c *testClient) drain() {
	for {
		select {
		case <-c.client.SendChan:
		default:
			return
		}
	}
}

func (c *testClient) createRoom(no int, name, password string) {
	c.t.Helper()
	c.send("createRoom", map[string]any{
		"roomId":   no,
		"roomName": name,
		"password": password,
		"system":   "DiceBot",
	})
	c.expect("createRoom.success")
}

func (c *testClient) enter(no int, name, password string) enterRoomSuccess {
	c.t.Helper()
	c.send("enterRoom", EnterRoomRequest{TryRoomNo: no, Name: name, Password: password})
	var ok enterRoomSuccess
	c.expectData("enterRoom.success", &ok)
	return ok
}

func (c *testClient) roomsInfo() []models.RoomInfo {
	c.t.Helper()
	c.send("roomsinfo", nil)
	var infos []models.RoomInfo
	c.expectData("roomsinfo", &infos)
	return infos
}

func (c *testClient) chits() []models.Chit {
	c.t.Helper()
	c.send("chits.init", nil)
	var chits []models.Chit
	c.expectData("chits.init", &chits)
	return chits
}

func (c *testClient) chatLog() []models.ChatMessage {
	c.t.Helper()
	c.send("chat.init", nil)
	var log []models.ChatMessage
	c.expectData("chat.init", &log)
	return log
}

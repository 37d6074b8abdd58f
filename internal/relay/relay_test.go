package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

// startRelay serves a relay backed by open on an httptest server.
func startRelay(t *testing.T, open Opener, health Pinger) *httptest.Server {
	t.Helper()
	srv := NewServer(Config{}, open, health, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		ts.Close()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rooms/" + room + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, ws *websocket.Conn, want string) ServerMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg ServerMessage
		require.NoError(t, ws.ReadJSON(&msg), "waiting for %s", want)
		if msg.Type == want {
			return msg
		}
	}
}

func TestHealthz(t *testing.T) {
	t.Run("healthy without a pinger", func(t *testing.T) {
		ts := startRelay(t, NewMemoryRooms().Open, nil)

		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body.Status)
		assert.Empty(t, body.Redis)
	})

	t.Run("connected redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, "health")
		require.NoError(t, err)
		defer client.Close()

		ts := startRelay(t, NewMemoryRooms().Open, client)
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "connected", body.Redis)
	})

	t.Run("unreachable store", func(t *testing.T) {
		ts := startRelay(t, NewMemoryRooms().Open, failingPinger{})
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "disconnected", body.Redis)
		assert.Equal(t, "connection refused", body.Error)
	})

	t.Run("rejects POST", func(t *testing.T) {
		ts := startRelay(t, NewMemoryRooms().Open, nil)
		resp, err := http.Post(ts.URL+"/healthz", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestRoomName(t *testing.T) {
	ts := startRelay(t, NewMemoryRooms().Open, nil)

	resp, err := http.Get(ts.URL + "/rooms/Bad_Room/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSession_Welcome(t *testing.T) {
	ts := startRelay(t, NewMemoryRooms().Open, nil)
	ws := dial(t, ts, "workshop")

	welcome := readUntil(t, ws, MsgWelcome)
	assert.NotEmpty(t, welcome.ConnectionID)
	require.NotNil(t, welcome.Document)
	assert.Len(t, welcome.Document.Order, 1, "a new room starts with the default layer")
	assert.Equal(t, welcome.ConnectionID, welcome.Document.Meta[board.MetaHost])

	state := readUntil(t, ws, MsgState)
	require.NotNil(t, state.State)
	assert.Equal(t, "none", state.State.Mode)
	assert.Equal(t, 0, state.State.Stage)
	assert.False(t, state.State.CanUndo)
}

func TestSession_InsertReachesPeers(t *testing.T) {
	ts := startRelay(t, NewMemoryRooms().Open, nil)

	alice := dial(t, ts, "workshop")
	aliceID := readUntil(t, alice, MsgWelcome).ConnectionID
	readUntil(t, alice, MsgState)

	bob := dial(t, ts, "workshop")
	welcome := readUntil(t, bob, MsgWelcome)
	assert.Len(t, welcome.Document.Order, 1, "second open must not seed again")

	require.NoError(t, alice.WriteJSON(ClientMessage{
		Type:      MsgInsert,
		LayerType: board.LayerNote,
		At:        &geometry.Point{X: 300, Y: 200},
	}))

	change := readUntil(t, bob, MsgStorage)
	require.NotNil(t, change.Change)
	assert.Equal(t, aliceID, change.Change.Origin)
	require.Len(t, change.Change.Ops, 1)

	state := readUntil(t, alice, MsgState)
	assert.Len(t, state.State.Selection, 1)
	assert.True(t, state.State.CanUndo)
}

func TestSession_RejectsUnknownMessages(t *testing.T) {
	ts := startRelay(t, NewMemoryRooms().Open, nil)
	ws := dial(t, ts, "workshop")
	readUntil(t, ws, MsgWelcome)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "teleport"}))
	msg := readUntil(t, ws, MsgError)
	assert.Contains(t, msg.Error, "unknown message type")

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readUntil(t, ws, MsgError)
	assert.NotEmpty(t, msg.Error)

	// The session survives bad input.
	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MsgUndo}))
	readUntil(t, ws, MsgState)
}

func TestSession_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	open := RedisOpener(&redis.Options{Addr: mr.Addr()})
	ts := startRelay(t, open, nil)

	alice := dial(t, ts, "redis-room")
	readUntil(t, alice, MsgWelcome)
	bob := dial(t, ts, "redis-room")
	readUntil(t, bob, MsgWelcome)

	require.NoError(t, alice.WriteJSON(ClientMessage{
		Type:      MsgInsert,
		LayerType: board.LayerRectangle,
		At:        &geometry.Point{X: 10, Y: 10},
	}))

	change := readUntil(t, bob, MsgStorage)
	require.NotNil(t, change.Change)
	assert.NotEmpty(t, change.Change.Ops)
}

func TestMemoryRooms(t *testing.T) {
	rooms := NewMemoryRooms()

	a, err := rooms.Room("alpha")
	require.NoError(t, err)
	again, err := rooms.Room("alpha")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = rooms.Room("-bad")
	assert.Error(t, err)

	s1, err := rooms.Open(context.Background(), "alpha")
	require.NoError(t, err)
	s2, err := rooms.Open(context.Background(), "alpha")
	require.NoError(t, err)
	assert.NotEqual(t, s1.ConnectionID(), s2.ConnectionID())
}

func TestConfig_TouchIntervalFollowsPresenceTTL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{name: "default", cfg: Config{}, want: 10 * time.Second},
		{name: "third of the ttl", cfg: Config{PresenceTTL: 3 * time.Second}, want: time.Second},
		{name: "short ttl", cfg: Config{PresenceTTL: time.Second}, want: time.Second / 3},
		{name: "explicit interval wins", cfg: Config{PresenceTTL: time.Second, TouchInterval: 200 * time.Millisecond}, want: 200 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.applyDefaults()
			assert.Equal(t, tt.want, cfg.TouchInterval)
			if cfg.PresenceTTL > 0 {
				assert.Less(t, cfg.TouchInterval, cfg.PresenceTTL)
			}
		})
	}
}

func TestSession_ExpiredPeerLeaves(t *testing.T) {
	mr := miniredis.RunT(t)
	redisOpts := &redis.Options{Addr: mr.Addr()}
	srv := NewServer(Config{TouchInterval: 50 * time.Millisecond}, RedisOpener(redisOpts), nil, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		ts.Close()
	})

	ghost, err := board.NewClient(redisOpts, "expiry-room", board.WithConnectionID("ghost"), board.WithPresenceTTL(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { ghost.Close() })
	require.NoError(t, ghost.UpdatePresence(context.Background(), board.Presence{Name: "Ghost"}))

	alice := dial(t, ts, "expiry-room")
	welcome := readUntil(t, alice, MsgWelcome)
	require.Len(t, welcome.Others, 1)
	assert.Equal(t, "ghost", welcome.Others[0].ConnectionID)

	mr.FastForward(3 * time.Second)

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg ServerMessage
		require.NoError(t, alice.ReadJSON(&msg), "waiting for the expired peer to leave")
		if msg.Type == MsgPresence && msg.Presence != nil && msg.Presence.ConnectionID == "ghost" {
			assert.Nil(t, msg.Presence.Presence)
			return
		}
	}
}

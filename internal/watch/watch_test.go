package watch

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

// syncBuffer guards a bytes.Buffer shared with the streaming goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func rect() board.Layer {
	return board.Rectangle{Geometry: board.Geometry{X: 1, Y: 2, Width: 3, Height: 4, Fill: board.ColorShape}}
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, f)

	_, err = ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	insert := &board.ChangeSet{Origin: "conn-1234567890", Version: 3, Ops: []board.Op{
		{Kind: board.OpInsert, ID: "550e8400-e29b-41d4", Index: 0, After: board.Fields{"type": "note"}},
		{Kind: board.OpUpdate, ID: "550e8400-e29b-41d4", Before: board.Fields{"x": "1"}, After: board.Fields{"x": "2", "y": "5"}},
		{Kind: board.OpMove, ID: "550e8400-e29b-41d4", Index: 0, To: 2},
		{Kind: board.OpMeta, After: board.Fields{board.MetaStage: "4"}},
		{Kind: board.OpDelete, ID: "abc", Before: board.Fields{"type": "path"}},
	}}

	t.Run("default formatter formats changes", func(t *testing.T) {
		var buf bytes.Buffer
		f := &defaultFormatter{writer: &buf, now: fixedNow}
		require.NoError(t, f.FormatChange(insert))

		out := buf.String()
		assert.Contains(t, out, "[09:30:00] ✨ Layer inserted type=note id=550e8400 by=conn-123")
		assert.Contains(t, out, "fields=x,y")
		assert.Contains(t, out, "from=0 to=2")
		assert.Contains(t, out, "🎬 Stage changed stage=4")
		assert.Contains(t, out, "🗑️  Layer deleted type=path id=abc")
		assert.Equal(t, 5, strings.Count(out, "\n"))
	})

	t.Run("default formatter formats peers and room events", func(t *testing.T) {
		var buf bytes.Buffer
		f := &defaultFormatter{writer: &buf, now: fixedNow}
		require.NoError(t, f.FormatPresence("peer-1", &board.Presence{Name: "Ana"}, true))
		require.NoError(t, f.FormatPresence("peer-1", nil, false))
		require.NoError(t, f.FormatRoom(&board.RoomEvent{Type: board.RoomEventStartTimer, Time: 300, Origin: "peer-1"}))
		require.NoError(t, f.FormatRoom(&board.RoomEvent{Type: board.RoomEventPlay, SoundID: "gong"}))

		out := buf.String()
		assert.Contains(t, out, "🙋 Peer joined conn=peer-1 name=Ana")
		assert.Contains(t, out, "👋 Peer left conn=peer-1")
		assert.Contains(t, out, "⏱️  Timer started time=300s by=peer-1")
		assert.Contains(t, out, "🔔 Sound played sound=gong by=-")
	})

	t.Run("json formatter formats changes", func(t *testing.T) {
		var buf bytes.Buffer
		f := &jsonFormatter{writer: &buf, now: fixedNow}
		require.NoError(t, f.FormatChange(insert))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 5)
		assert.Contains(t, lines[0], `"event":"layer_inserted"`)
		assert.Contains(t, lines[0], `"origin":"conn-1234567890"`)
		assert.Contains(t, lines[0], `"layer":{"type":"note"}`)
		assert.Contains(t, lines[1], `"event":"layer_updated"`)
		assert.Contains(t, lines[2], `"to":2`)
		assert.Contains(t, lines[3], `"event":"room_updated"`)
		assert.Contains(t, lines[4], `"event":"layer_deleted"`)
	})

	t.Run("json formatter formats room events", func(t *testing.T) {
		var buf bytes.Buffer
		f := &jsonFormatter{writer: &buf, now: fixedNow}
		require.NoError(t, f.FormatRoom(&board.RoomEvent{Type: board.RoomEventStopTimer, Origin: "x"}))
		assert.Contains(t, buf.String(), `"event":"room_event"`)
		assert.Contains(t, buf.String(), `"type":"STOP_TIMER"`)
		assert.NotContains(t, buf.String(), "sound_id")
	})
}

func TestStreamActivity(t *testing.T) {
	room := board.NewMemoryRoom("watch")
	watcher := room.Connect("watcher")
	peer := room.Connect("peer-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- stream(ctx, watcher, OutputFormatDefault, out, fixedNow) }()

	// Wait for the subscription before producing events.
	require.Eventually(t, func() bool {
		_ = peer.Broadcast(ctx, board.RoomEvent{Type: board.RoomEventPlay, SoundID: "ping"})
		return strings.Contains(out.String(), "Sound played")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, peer.UpdatePresence(ctx, board.Presence{Name: "Bo"}))

	// Cursor moves from a known peer are not reported again.
	require.NoError(t, peer.UpdatePresence(ctx, board.Presence{Name: "Bo", Cursor: &geometry.Point{X: 5, Y: 5}}))

	_, err := peer.Mutate(ctx, func(tx *board.Tx) error { return tx.InsertLayer("l1", rect()) })
	require.NoError(t, err)
	require.NoError(t, peer.Broadcast(ctx, board.RoomEvent{Type: board.RoomEventStopTimer}))
	require.NoError(t, peer.Close())

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Peer left")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	s := out.String()
	assert.Equal(t, 1, strings.Count(s, "Peer joined"))
	assert.Contains(t, s, "Layer inserted type=rectangle id=l1 by=peer-1")
	assert.Contains(t, s, "Timer stopped")
	assert.Less(t, strings.Index(s, "Layer inserted"), strings.Index(s, "Timer stopped"))
}

func TestStreamActivity_UnknownFormat(t *testing.T) {
	conn := board.NewMemoryRoom("watch").Connect("w")
	err := StreamActivity(context.Background(), conn, OutputFormat("xml"), &bytes.Buffer{})
	assert.Error(t, err)
}

package presence

import (
	"testing"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorFor(t *testing.T) {
	assert.Equal(t, ColorFor("conn-1"), ColorFor("conn-1"))
	assert.Contains(t, Palette, ColorFor("conn-2"))

	seen := map[board.Color]bool{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		seen[ColorFor(id)] = true
	}
	assert.Greater(t, len(seen), 1, "ids spread over the palette")
}

func TestTracker(t *testing.T) {
	tr := NewTracker("self")
	tr.Reset([]board.Other{
		{ConnectionID: "self", Presence: board.Presence{Selection: []string{"x"}}},
		{ConnectionID: "bob", Presence: board.Presence{Cursor: &geometry.Point{X: 10, Y: 20}, Name: "Bob"}},
		{ConnectionID: "alice", Presence: board.Presence{Selection: []string{"l1", "l2"}}},
	})
	require.Equal(t, 2, tr.Len())

	t.Run("cursors skip connections outside the canvas", func(t *testing.T) {
		cursors := tr.Cursors()
		require.Len(t, cursors, 1)
		assert.Equal(t, "bob", cursors[0].ConnectionID)
		assert.Equal(t, "Bob", cursors[0].Name)
		assert.Equal(t, geometry.Point{X: 10, Y: 20}, cursors[0].Point)
		assert.Equal(t, ColorFor("bob"), cursors[0].Color)
	})

	t.Run("selection tints", func(t *testing.T) {
		tints := tr.SelectionTints()
		assert.Equal(t, map[string]board.Color{"l1": ColorFor("alice"), "l2": ColorFor("alice")}, tints)
	})

	t.Run("own events are ignored", func(t *testing.T) {
		assert.False(t, tr.Apply(board.PresenceEvent{ConnectionID: "self", Presence: &board.Presence{}}))
		assert.Equal(t, 2, tr.Len())
	})

	t.Run("updates replace and leaves remove", func(t *testing.T) {
		assert.True(t, tr.Apply(board.PresenceEvent{ConnectionID: "bob", Presence: &board.Presence{Name: "Bob"}}))
		assert.Empty(t, tr.Cursors())

		assert.True(t, tr.Apply(board.PresenceEvent{ConnectionID: "alice"}))
		assert.False(t, tr.Apply(board.PresenceEvent{ConnectionID: "alice"}))
		assert.Empty(t, tr.SelectionTints())
		assert.Equal(t, 1, tr.Len())
	})
}

func TestTracker_Drafts(t *testing.T) {
	tr := NewTracker("self")
	ink := board.ColorInk
	tr.Apply(board.PresenceEvent{ConnectionID: "bob", Presence: &board.Presence{
		PencilDraft: []board.PathPoint{{X: 1, Y: 1, Pressure: 0.5}, {X: 2, Y: 3, Pressure: 0.5}},
		PenColor:    &ink,
	}})
	tr.Apply(board.PresenceEvent{ConnectionID: "carol", Presence: &board.Presence{
		PencilDraft: []board.PathPoint{{X: 5, Y: 5}},
	}})
	tr.Apply(board.PresenceEvent{ConnectionID: "dave", Presence: &board.Presence{}})

	drafts := tr.Drafts()
	require.Len(t, drafts, 2)
	assert.Equal(t, "bob", drafts[0].ConnectionID)
	assert.Equal(t, board.ColorInk, drafts[0].Color)
	assert.Len(t, drafts[0].Points, 2)
	assert.Equal(t, ColorFor("carol"), drafts[1].Color)
}

func TestTracker_Prune(t *testing.T) {
	tr := NewTracker("self")
	tr.Apply(board.PresenceEvent{ConnectionID: "bob", Presence: &board.Presence{Selection: []string{"a", "b"}}})

	tr.Prune([]string{"a"})
	assert.Equal(t, map[string]board.Color{"b": ColorFor("bob")}, tr.SelectionTints())
}

func TestTracker_ResetReportsDepartures(t *testing.T) {
	tr := NewTracker("self")
	assert.Empty(t, tr.Reset([]board.Other{{ConnectionID: "carol"}, {ConnectionID: "bob"}, {ConnectionID: "dave"}}))

	left := tr.Reset([]board.Other{{ConnectionID: "bob"}, {ConnectionID: "erin"}})
	assert.Equal(t, []string{"carol", "dave"}, left)
	assert.Equal(t, 2, tr.Len())
}

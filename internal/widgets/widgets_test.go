package widgets

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRoom(t *testing.T, layers map[string]board.Layer, order ...string) *board.MemoryConn {
	t.Helper()
	conn := board.NewMemoryRoom("widgets-test").Connect("conn-a")
	_, err := conn.Mutate(context.Background(), func(tx *board.Tx) error {
		for _, id := range order {
			if err := tx.InsertLayer(id, layers[id]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return conn
}

func execute(t *testing.T, conn *board.MemoryConn, cmd Command, actor Actor, rules Rules) bool {
	t.Helper()
	var changed bool
	_, err := conn.Mutate(context.Background(), func(tx *board.Tx) error {
		var err error
		changed, err = Execute(tx, cmd, actor, rules)
		return err
	})
	require.NoError(t, err)
	return changed
}

func lookup[T board.Layer](t *testing.T, conn *board.MemoryConn, id string) T {
	t.Helper()
	doc, err := conn.Snapshot(context.Background())
	require.NoError(t, err)
	l, ok := doc.Lookup(id)
	require.True(t, ok, "layer %s exists", id)
	v, ok := l.(T)
	require.True(t, ok, "layer %s has the expected type", id)
	return v
}

func widgetGeom() board.Geometry {
	return board.Geometry{Width: 200, Height: 120, Fill: board.ColorWidget}
}

func TestToggleReaction(t *testing.T) {
	conn := setupRoom(t, map[string]board.Layer{
		"tv": board.TopicVote{Geometry: widgetGeom(), Value: "Offline mode"},
	}, "tv")
	alice := Actor{UserID: "alice", At: time.UnixMilli(1000)}
	bob := Actor{UserID: "bob", At: time.UnixMilli(2000)}

	t.Run("first pick adds", func(t *testing.T) {
		assert.True(t, execute(t, conn, ToggleReaction{LayerID: "tv", Emoji: "👍"}, alice, DefaultRules()))
		tv := lookup[board.TopicVote](t, conn, "tv")
		assert.Equal(t, board.Reaction{Emoji: "👍", TimestampMs: 1000}, tv.Reactions["alice"])
	})

	t.Run("another user is independent", func(t *testing.T) {
		execute(t, conn, ToggleReaction{LayerID: "tv", Emoji: "🔥"}, bob, DefaultRules())
		tv := lookup[board.TopicVote](t, conn, "tv")
		assert.Len(t, tv.Reactions, 2)
	})

	t.Run("different emoji replaces", func(t *testing.T) {
		execute(t, conn, ToggleReaction{LayerID: "tv", Emoji: "❤️"}, alice, DefaultRules())
		tv := lookup[board.TopicVote](t, conn, "tv")
		assert.Equal(t, "❤️", tv.Reactions["alice"].Emoji)
		assert.Len(t, tv.Reactions, 2)
	})

	t.Run("same emoji twice restores the original map", func(t *testing.T) {
		before := lookup[board.TopicVote](t, conn, "tv").Reactions
		execute(t, conn, ToggleReaction{LayerID: "tv", Emoji: "😀"}, alice, DefaultRules())
		execute(t, conn, ToggleReaction{LayerID: "tv", Emoji: "😀"}, alice, DefaultRules())
		after := lookup[board.TopicVote](t, conn, "tv").Reactions
		_, has := after["alice"]
		assert.False(t, has)
		assert.Equal(t, before["bob"], after["bob"])
	})

	t.Run("wrong variant is a no-op", func(t *testing.T) {
		conn := setupRoom(t, map[string]board.Layer{"n": board.Note{Geometry: widgetGeom()}}, "n")
		assert.False(t, execute(t, conn, ToggleReaction{LayerID: "n", Emoji: "👍"}, alice, DefaultRules()))
	})

	t.Run("missing layer is a no-op", func(t *testing.T) {
		assert.False(t, execute(t, conn, ToggleReaction{LayerID: "gone", Emoji: "👍"}, alice, DefaultRules()))
	})
}

func TestDiscussionCommands(t *testing.T) {
	conn := setupRoom(t, map[string]board.Layer{
		"d": board.Discussion{Geometry: widgetGeom(), Category: board.CategoryIdea, Status: board.StatusOngoing},
	}, "d")
	actor := Actor{UserID: "alice", At: time.UnixMilli(5000)}

	assert.True(t, execute(t, conn, AddComment{LayerID: "d", Content: "ship it", VoteType: board.VoteAgree}, actor, DefaultRules()))
	assert.True(t, execute(t, conn, AddComment{LayerID: "d", Content: "wait"}, actor, DefaultRules()))

	d := lookup[board.Discussion](t, conn, "d")
	require.Len(t, d.Comments, 2)
	assert.NotEqual(t, d.Comments[0].ID, d.Comments[1].ID)
	assert.Equal(t, "alice", d.Comments[0].UserID)
	assert.Equal(t, board.VoteAgree, d.Comments[0].VoteType)
	assert.Equal(t, int64(5000), d.Comments[0].TimestampMs)

	first := d.Comments[0].ID
	execute(t, conn, ReactToComment{LayerID: "d", CommentID: first, Emoji: "👏"}, actor, DefaultRules())
	d = lookup[board.Discussion](t, conn, "d")
	assert.Equal(t, "👏", d.Comments[0].Reactions["alice"])
	assert.Empty(t, d.Comments[1].Reactions)

	execute(t, conn, ReactToComment{LayerID: "d", CommentID: first, Emoji: "👏"}, actor, DefaultRules())
	d = lookup[board.Discussion](t, conn, "d")
	assert.Empty(t, d.Comments[0].Reactions)

	assert.False(t, execute(t, conn, ReactToComment{LayerID: "d", CommentID: "nope", Emoji: "👏"}, actor, DefaultRules()))

	assert.True(t, execute(t, conn, SetDiscussionStatus{LayerID: "d", Status: board.StatusCompleted}, actor, DefaultRules()))
	assert.False(t, execute(t, conn, SetDiscussionStatus{LayerID: "d", Status: board.StatusCompleted}, actor, DefaultRules()))

	execute(t, conn, EditDiscussion{LayerID: "d", Category: board.CategoryRisk, Topic: "Latency"}, actor, DefaultRules())
	d = lookup[board.Discussion](t, conn, "d")
	assert.Equal(t, board.CategoryRisk, d.Category)
	assert.Equal(t, "Latency", d.Topic)
	assert.Equal(t, board.StatusCompleted, d.Status)

	t.Run("invalid vote type is rejected", func(t *testing.T) {
		_, err := conn.Mutate(context.Background(), func(tx *board.Tx) error {
			_, err := Execute(tx, AddComment{LayerID: "d", Content: "x", VoteType: "maybe"}, actor, DefaultRules())
			return err
		})
		assert.Error(t, err)
	})
}

func TestPersonaCommands(t *testing.T) {
	conn := setupRoom(t, map[string]board.Layer{"p": board.Persona{Geometry: widgetGeom()}}, "p")
	actor := Actor{UserID: "alice"}

	execute(t, conn, SetPersonaProfile{LayerID: "p", Name: "Dana", Age: "34", Occupation: "Nurse"}, actor, DefaultRules())
	execute(t, conn, AddTrait{LayerID: "p", Category: "goal", Value: "fewer night shifts"}, actor, DefaultRules())
	execute(t, conn, AddTrait{LayerID: "p", Category: "pain", Value: "paper charts"}, actor, DefaultRules())

	p := lookup[board.Persona](t, conn, "p")
	assert.Equal(t, "Dana", p.Name)
	assert.Equal(t, "Nurse", p.Occupation)
	assert.Equal(t, []board.Trait{
		{Category: "goal", Value: "fewer night shifts"},
		{Category: "pain", Value: "paper charts"},
	}, p.Traits)
}

func TestTextCommands(t *testing.T) {
	conn := setupRoom(t, map[string]board.Layer{
		"v":  board.Vision{Geometry: widgetGeom()},
		"s":  board.Spread{Geometry: widgetGeom()},
		"us": board.UserStory{Geometry: widgetGeom(), Fragment: board.FragmentWho},
		"r":  board.Rectangle{Geometry: widgetGeom()},
	}, "v", "s", "us", "r")
	actor := Actor{UserID: "alice"}

	assert.True(t, execute(t, conn, SetValue{LayerID: "v", Value: "Calm clinics"}, actor, DefaultRules()))
	assert.True(t, execute(t, conn, SetAuthorIcon{LayerID: "v", Icon: "🦊"}, actor, DefaultRules()))
	assert.True(t, execute(t, conn, SetContent{LayerID: "s", Content: "offline sync"}, actor, DefaultRules()))
	assert.True(t, execute(t, conn, SetSpread{LayerID: "s", CenterIdea: "sync", Direction: board.DirectionLeft}, actor, DefaultRules()))
	assert.True(t, execute(t, conn, SetFragment{LayerID: "us", Fragment: board.FragmentGoal}, actor, DefaultRules()))
	assert.False(t, execute(t, conn, SetValue{LayerID: "r", Value: "nope"}, actor, DefaultRules()))

	v := lookup[board.Vision](t, conn, "v")
	assert.Equal(t, "Calm clinics", v.Value)
	assert.Equal(t, "🦊", v.AuthorIcon)
	s := lookup[board.Spread](t, conn, "s")
	assert.Equal(t, "offline sync", s.Content)
	assert.Equal(t, board.DirectionLeft, s.Direction)
	assert.Equal(t, board.FragmentGoal, lookup[board.UserStory](t, conn, "us").Fragment)
}

func solvingRoom(t *testing.T) *board.MemoryConn {
	t.Helper()
	layers := map[string]board.Layer{}
	var order []string
	for _, box := range []struct {
		id string
		bt board.BoxType
	}{
		{"d1", board.BoxDefine}, {"d2", board.BoxDefine}, {"d3", board.BoxDefine},
		{"a1", board.BoxAnalyze}, {"a2", board.BoxAnalyze}, {"a3", board.BoxAnalyze},
		{"s1", board.BoxSolve},
	} {
		layers[box.id] = board.SolvingProblem{Geometry: widgetGeom(), BoxType: box.bt, IsLocked: box.bt != board.BoxDefine}
		order = append(order, box.id)
	}
	return setupRoom(t, layers, order...)
}

func TestSolvingProblemGating(t *testing.T) {
	conn := solvingRoom(t)
	actor := Actor{UserID: "alice"}
	rules := DefaultRules()
	long := strings.Repeat("x", 20)

	execute(t, conn, SetContent{LayerID: "d1", Content: long}, actor, rules)
	execute(t, conn, SetContent{LayerID: "d2", Content: long}, actor, rules)
	execute(t, conn, SetContent{LayerID: "d3", Content: strings.Repeat("x", 19)}, actor, rules)
	assert.True(t, lookup[board.SolvingProblem](t, conn, "a1").IsLocked, "one define box is too short")

	t.Run("locked boxes refuse edits", func(t *testing.T) {
		assert.False(t, execute(t, conn, SetContent{LayerID: "a1", Content: long}, actor, rules))
	})

	execute(t, conn, SetContent{LayerID: "d3", Content: long}, actor, rules)
	for _, id := range []string{"a1", "a2", "a3"} {
		assert.False(t, lookup[board.SolvingProblem](t, conn, id).IsLocked, id)
	}
	assert.True(t, lookup[board.SolvingProblem](t, conn, "s1").IsLocked, "analyze is still empty")

	t.Run("content length counts characters", func(t *testing.T) {
		execute(t, conn, SetContent{LayerID: "a1", Content: strings.Repeat("é", 19)}, actor, rules)
		execute(t, conn, SetContent{LayerID: "a2", Content: long}, actor, rules)
		execute(t, conn, SetContent{LayerID: "a3", Content: long}, actor, rules)
		assert.True(t, lookup[board.SolvingProblem](t, conn, "s1").IsLocked, "19 characters is 38 bytes")

		execute(t, conn, SetContent{LayerID: "a1", Content: strings.Repeat("é", 20)}, actor, rules)
		assert.False(t, lookup[board.SolvingProblem](t, conn, "s1").IsLocked)
	})

	t.Run("shortening define relocks the chain", func(t *testing.T) {
		execute(t, conn, SetContent{LayerID: "d1", Content: "short"}, actor, rules)
		assert.True(t, lookup[board.SolvingProblem](t, conn, "a1").IsLocked)
		assert.True(t, lookup[board.SolvingProblem](t, conn, "s1").IsLocked)
		assert.False(t, lookup[board.SolvingProblem](t, conn, "d1").IsLocked)
	})
}

func TestLocked(t *testing.T) {
	sp := func(bt board.BoxType, content string) board.Layer {
		return board.SolvingProblem{Geometry: widgetGeom(), BoxType: bt, Content: content}
	}
	rules := Rules{
		board.BoxDefine:  {MinLength: 2, MaxCount: 2},
		board.BoxAnalyze: {MinLength: 2, MaxCount: 1},
		board.BoxSolve:   {MinLength: 2, MaxCount: 1},
	}

	t.Run("too few boxes", func(t *testing.T) {
		locked := Locked([]board.Entry{
			{ID: "d1", Layer: sp(board.BoxDefine, "ok")},
			{ID: "a1", Layer: sp(board.BoxAnalyze, "")},
		}, rules)
		assert.False(t, locked["d1"])
		assert.True(t, locked["a1"])
	})

	t.Run("complete stage opens the next", func(t *testing.T) {
		locked := Locked([]board.Entry{
			{ID: "d1", Layer: sp(board.BoxDefine, "ok")},
			{ID: "d2", Layer: sp(board.BoxDefine, "ok")},
			{ID: "a1", Layer: sp(board.BoxAnalyze, "")},
			{ID: "s1", Layer: sp(board.BoxSolve, "")},
			{ID: "n", Layer: board.Note{Geometry: widgetGeom()}},
		}, rules)
		assert.False(t, locked["a1"])
		assert.True(t, locked["s1"])
		_, has := locked["n"]
		assert.False(t, has)
	})
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	rules := DefaultRules()
	rules[board.BoxSolve] = Rule{MinLength: 1, MaxCount: 0}
	assert.Error(t, rules.Validate())

	delete(rules, board.BoxSolve)
	assert.Error(t, rules.Validate())
}

func TestDecode(t *testing.T) {
	cmd, err := Decode("toggle_reaction", json.RawMessage(`{"layerId":"tv","emoji":"👍"}`))
	require.NoError(t, err)
	assert.Equal(t, &ToggleReaction{LayerID: "tv", Emoji: "👍"}, cmd)
	assert.Equal(t, "tv", cmd.Target())

	_, err = Decode("launch_rockets", json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = Decode("set_value", json.RawMessage(`{"value":"x"}`))
	assert.Error(t, err)

	_, err = Decode("set_value", json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, `"hello"`, Summary(board.Note{Value: "hello"}))
	assert.Equal(t, "fill #D9D9D9", Summary(board.Rectangle{Geometry: board.Geometry{Fill: board.ColorShape}}))
	assert.Equal(t, `[define, locked] ""`, Summary(board.SolvingProblem{BoxType: board.BoxDefine, IsLocked: true}))
	assert.Equal(t, `branch up "x"`, Summary(board.Spread{Content: "x", Direction: board.DirectionUp}))

	long := Summary(board.Text{Value: strings.Repeat("a", 60)})
	assert.True(t, strings.HasSuffix(long, `..."`))
}

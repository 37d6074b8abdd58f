// Package widgets implements the per-type behavior of layer widgets: the
// targeted read-modify-write commands their renderers issue, the derived
// problem-solving locks and the single render dispatch point.
package widgets

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/oklog/ulid/v2"
)

// Actor is who issues a command and when.
type Actor struct {
	UserID string
	At     time.Time
}

// Command is a targeted edit of one layer. Apply returns the edited layer
// and whether anything changed; a command aimed at the wrong variant changes
// nothing.
type Command interface {
	Target() string
	Apply(l board.Layer, actor Actor) (board.Layer, bool, error)
}

// Execute reads the target layer inside tx, applies cmd and writes the whole
// layer back, then recomputes problem-solving locks. A missing target is a
// silent no-op.
func Execute(tx *board.Tx, cmd Command, actor Actor, rules Rules) (bool, error) {
	l, ok := tx.Layer(cmd.Target())
	if !ok {
		return false, nil
	}

	next, changed, err := cmd.Apply(l, actor)
	if err != nil || !changed {
		return false, err
	}
	if _, err := tx.PutLayer(cmd.Target(), next); err != nil {
		return false, err
	}
	if _, err := RecomputeLocks(tx, rules); err != nil {
		return false, err
	}
	return true, nil
}

// ToggleReaction sets the actor's reaction on a TopicVote. Picking the same
// emoji again removes it; picking another replaces it.
type ToggleReaction struct {
	LayerID string `json:"layerId"`
	Emoji   string `json:"emoji"`
}

func (c ToggleReaction) Target() string { return c.LayerID }

func (c ToggleReaction) Apply(l board.Layer, actor Actor) (board.Layer, bool, error) {
	tv, ok := l.(board.TopicVote)
	if !ok || actor.UserID == "" {
		return l, false, nil
	}
	if c.Emoji == "" {
		return l, false, fmt.Errorf("emoji cannot be empty")
	}

	reactions := make(map[string]board.Reaction, len(tv.Reactions)+1)
	for k, v := range tv.Reactions {
		reactions[k] = v
	}
	if current, has := reactions[actor.UserID]; has && current.Emoji == c.Emoji {
		delete(reactions, actor.UserID)
	} else {
		reactions[actor.UserID] = board.Reaction{Emoji: c.Emoji, TimestampMs: actor.At.UnixMilli()}
	}
	tv.Reactions = reactions
	return tv, true, nil
}

// AddComment appends a comment to a Discussion.
type AddComment struct {
	LayerID  string         `json:"layerId"`
	Content  string         `json:"content"`
	VoteType board.VoteType `json:"voteType"`
}

func (c AddComment) Target() string { return c.LayerID }

func (c AddComment) Apply(l board.Layer, actor Actor) (board.Layer, bool, error) {
	d, ok := l.(board.Discussion)
	if !ok {
		return l, false, nil
	}
	if err := c.VoteType.Validate(); err != nil {
		return l, false, err
	}
	if c.Content == "" {
		return l, false, fmt.Errorf("comment cannot be empty")
	}

	comments := append([]board.Comment{}, d.Comments...)
	comments = append(comments, board.Comment{
		ID:          ulid.Make().String(),
		UserID:      actor.UserID,
		Content:     c.Content,
		VoteType:    c.VoteType,
		TimestampMs: actor.At.UnixMilli(),
		Reactions:   map[string]string{},
	})
	d.Comments = comments
	return d, true, nil
}

// ReactToComment toggles the actor's emoji on one comment.
type ReactToComment struct {
	LayerID   string `json:"layerId"`
	CommentID string `json:"commentId"`
	Emoji     string `json:"emoji"`
}

func (c ReactToComment) Target() string { return c.LayerID }

func (c ReactToComment) Apply(l board.Layer, actor Actor) (board.Layer, bool, error) {
	d, ok := l.(board.Discussion)
	if !ok || actor.UserID == "" || c.Emoji == "" {
		return l, false, nil
	}

	comments := append([]board.Comment{}, d.Comments...)
	for i, cm := range comments {
		if cm.ID != c.CommentID {
			continue
		}
		reactions := make(map[string]string, len(cm.Reactions)+1)
		for k, v := range cm.Reactions {
			reactions[k] = v
		}
		if reactions[actor.UserID] == c.Emoji {
			delete(reactions, actor.UserID)
		} else {
			reactions[actor.UserID] = c.Emoji
		}
		comments[i].Reactions = reactions
		d.Comments = comments
		return d, true, nil
	}
	return l, false, nil
}

// SetDiscussionStatus marks a discussion ongoing or completed.
type SetDiscussionStatus struct {
	LayerID string                 `json:"layerId"`
	Status  board.DiscussionStatus `json:"status"`
}

func (c SetDiscussionStatus) Target() string { return c.LayerID }

func (c SetDiscussionStatus) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	d, ok := l.(board.Discussion)
	if !ok {
		return l, false, nil
	}
	if err := c.Status.Validate(); err != nil {
		return l, false, err
	}
	if d.Status == c.Status {
		return l, false, nil
	}
	d.Status = c.Status
	return d, true, nil
}

// EditDiscussion rewrites a discussion card's heading.
type EditDiscussion struct {
	LayerID     string                   `json:"layerId"`
	Category    board.DiscussionCategory `json:"category"`
	Topic       string                   `json:"topic"`
	Description string                   `json:"description"`
}

func (c EditDiscussion) Target() string { return c.LayerID }

func (c EditDiscussion) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	d, ok := l.(board.Discussion)
	if !ok {
		return l, false, nil
	}
	if c.Category != "" {
		if err := c.Category.Validate(); err != nil {
			return l, false, err
		}
		d.Category = c.Category
	}
	d.Topic = c.Topic
	d.Description = c.Description
	return d, true, nil
}

// AddTrait appends a (category, value) trait to a Persona.
type AddTrait struct {
	LayerID  string `json:"layerId"`
	Category string `json:"category"`
	Value    string `json:"value"`
}

func (c AddTrait) Target() string { return c.LayerID }

func (c AddTrait) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	p, ok := l.(board.Persona)
	if !ok {
		return l, false, nil
	}
	if c.Category == "" || c.Value == "" {
		return l, false, fmt.Errorf("trait needs a category and a value")
	}
	p.Traits = append(append([]board.Trait{}, p.Traits...), board.Trait{Category: c.Category, Value: c.Value})
	return p, true, nil
}

// SetPersonaProfile rewrites a Persona's demographic fields.
type SetPersonaProfile struct {
	LayerID    string `json:"layerId"`
	Name       string `json:"name"`
	Age        string `json:"age"`
	Gender     string `json:"gender"`
	Occupation string `json:"occupation"`
	Location   string `json:"location"`
}

func (c SetPersonaProfile) Target() string { return c.LayerID }

func (c SetPersonaProfile) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	p, ok := l.(board.Persona)
	if !ok {
		return l, false, nil
	}
	p.Name, p.Age, p.Gender, p.Occupation, p.Location = c.Name, c.Age, c.Gender, c.Occupation, c.Location
	return p, true, nil
}

// SetValue edits the free text of Text, Note, Vision, TopicVote and
// UserStory layers.
type SetValue struct {
	LayerID string `json:"layerId"`
	Value   string `json:"value"`
}

func (c SetValue) Target() string { return c.LayerID }

func (c SetValue) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	switch v := l.(type) {
	case board.Text:
		v.Value = c.Value
		return v, true, nil
	case board.Note:
		v.Value = c.Value
		return v, true, nil
	case board.Vision:
		v.Value = c.Value
		return v, true, nil
	case board.TopicVote:
		v.Value = c.Value
		return v, true, nil
	case board.UserStory:
		v.Value = c.Value
		return v, true, nil
	}
	return l, false, nil
}

// SetAuthorIcon sets the author icon of Vision and TopicVote layers.
type SetAuthorIcon struct {
	LayerID string `json:"layerId"`
	Icon    string `json:"icon"`
}

func (c SetAuthorIcon) Target() string { return c.LayerID }

func (c SetAuthorIcon) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	switch v := l.(type) {
	case board.Vision:
		v.AuthorIcon = c.Icon
		return v, true, nil
	case board.TopicVote:
		v.AuthorIcon = c.Icon
		return v, true, nil
	}
	return l, false, nil
}

// SetContent edits Spread and SolvingProblem content. Locked problem-solving
// boxes refuse edits.
type SetContent struct {
	LayerID string `json:"layerId"`
	Content string `json:"content"`
}

func (c SetContent) Target() string { return c.LayerID }

func (c SetContent) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	switch v := l.(type) {
	case board.Spread:
		v.Content = c.Content
		return v, true, nil
	case board.SolvingProblem:
		if v.IsLocked {
			return l, false, nil
		}
		v.Content = c.Content
		return v, true, nil
	}
	return l, false, nil
}

// SetSpread edits a Spread node's center idea and connector direction.
type SetSpread struct {
	LayerID    string          `json:"layerId"`
	CenterIdea string          `json:"centerIdea"`
	Direction  board.Direction `json:"direction"`
}

func (c SetSpread) Target() string { return c.LayerID }

func (c SetSpread) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	s, ok := l.(board.Spread)
	if !ok {
		return l, false, nil
	}
	if err := c.Direction.Validate(); err != nil {
		return l, false, err
	}
	s.CenterIdea = c.CenterIdea
	s.Direction = c.Direction
	return s, true, nil
}

// SetFragment changes which part of a user story a node holds.
type SetFragment struct {
	LayerID  string         `json:"layerId"`
	Fragment board.Fragment `json:"fragment"`
}

func (c SetFragment) Target() string { return c.LayerID }

func (c SetFragment) Apply(l board.Layer, _ Actor) (board.Layer, bool, error) {
	us, ok := l.(board.UserStory)
	if !ok {
		return l, false, nil
	}
	if err := c.Fragment.Validate(); err != nil {
		return l, false, err
	}
	us.Fragment = c.Fragment
	return us, true, nil
}

// Decode builds a command from its wire name and JSON body.
func Decode(kind string, body json.RawMessage) (Command, error) {
	var cmd Command
	switch kind {
	case "toggle_reaction":
		cmd = &ToggleReaction{}
	case "add_comment":
		cmd = &AddComment{}
	case "react_to_comment":
		cmd = &ReactToComment{}
	case "set_discussion_status":
		cmd = &SetDiscussionStatus{}
	case "edit_discussion":
		cmd = &EditDiscussion{}
	case "add_trait":
		cmd = &AddTrait{}
	case "set_persona_profile":
		cmd = &SetPersonaProfile{}
	case "set_value":
		cmd = &SetValue{}
	case "set_author_icon":
		cmd = &SetAuthorIcon{}
	case "set_content":
		cmd = &SetContent{}
	case "set_spread":
		cmd = &SetSpread{}
	case "set_fragment":
		cmd = &SetFragment{}
	default:
		return nil, fmt.Errorf("unknown widget command: %s", kind)
	}
	if err := json.Unmarshal(body, cmd); err != nil {
		return nil, fmt.Errorf("failed to decode %s command: %w", kind, err)
	}
	if cmd.Target() == "" {
		return nil, fmt.Errorf("%s command needs a layerId", kind)
	}
	return cmd, nil
}

package canvas

import (
	"fmt"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// DefaultSizes is the box a freshly inserted layer gets.
var DefaultSizes = map[board.LayerType]geometry.Point{
	board.LayerRectangle:      {X: 100, Y: 100},
	board.LayerEllipse:        {X: 100, Y: 100},
	board.LayerText:           {X: 200, Y: 40},
	board.LayerNote:           {X: 180, Y: 180},
	board.LayerVision:         {X: 320, Y: 200},
	board.LayerTopicVote:      {X: 240, Y: 160},
	board.LayerSpread:         {X: 200, Y: 120},
	board.LayerDiscussion:     {X: 360, Y: 280},
	board.LayerPersona:        {X: 320, Y: 400},
	board.LayerSolvingProblem: {X: 240, Y: 160},
	board.LayerUserStory:      {X: 200, Y: 120},
}

// NewLayer builds a default layer of type t with its top-left corner at at.
// lastUsed, when set, replaces the default fill of shapes and text. Paths are
// only created by the pencil.
func NewLayer(t board.LayerType, at geometry.Point, lastUsed *board.Color) (board.Layer, error) {
	size, ok := DefaultSizes[t]
	if !ok {
		return nil, fmt.Errorf("cannot insert layer of type %q", t)
	}
	g := board.Geometry{X: at.X, Y: at.Y, Width: size.X, Height: size.Y, Fill: board.ColorWidget}
	shapeFill := func(def board.Color) board.Color {
		if lastUsed != nil {
			return *lastUsed
		}
		return def
	}

	switch t {
	case board.LayerRectangle:
		g.Fill = shapeFill(board.ColorShape)
		return board.Rectangle{Geometry: g}, nil
	case board.LayerEllipse:
		g.Fill = shapeFill(board.ColorShape)
		return board.Ellipse{Geometry: g}, nil
	case board.LayerText:
		g.Fill = shapeFill(board.ColorInk)
		return board.Text{Geometry: g, Value: "Text"}, nil
	case board.LayerNote:
		g.Fill = board.ColorNote
		return board.Note{Geometry: g}, nil
	case board.LayerVision:
		return board.Vision{Geometry: g}, nil
	case board.LayerTopicVote:
		return board.TopicVote{Geometry: g, Reactions: map[string]board.Reaction{}}, nil
	case board.LayerSpread:
		return board.Spread{Geometry: g}, nil
	case board.LayerDiscussion:
		return board.Discussion{Geometry: g, Category: board.CategoryIdea, Status: board.StatusOngoing, Comments: []board.Comment{}}, nil
	case board.LayerPersona:
		return board.Persona{Geometry: g, Traits: []board.Trait{}}, nil
	case board.LayerSolvingProblem:
		return board.SolvingProblem{Geometry: g, BoxType: board.BoxDefine}, nil
	case board.LayerUserStory:
		return board.UserStory{Geometry: g, Fragment: board.FragmentWho}, nil
	}
	return nil, fmt.Errorf("cannot insert layer of type %q", t)
}

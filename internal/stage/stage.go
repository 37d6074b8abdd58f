// Package stage holds the fixed workshop stage table: each stage's name, the
// literal camera offset that shows its canvas region and the gimmick widgets
// "add gimmick" inserts there.
package stage

import (
	"fmt"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// Stage is one row of the table.
type Stage struct {
	Index  int
	Name   string
	Camera geometry.Camera
	// Gimmick layers are positioned relative to the stage's canvas origin.
	Gimmick []board.Layer
}

// Count is the number of workshop stages.
const Count = 10

func widget(x, y, w, h float64) board.Geometry {
	return board.Geometry{X: x, Y: y, Width: w, Height: h, Fill: board.ColorWidget}
}

var table = [Count]Stage{
	{
		Index: 0, Name: "Ice Breaking", Camera: geometry.Camera{X: 0, Y: 0},
		Gimmick: []board.Layer{
			board.Note{Geometry: board.Geometry{X: 80, Y: 80, Width: 180, Height: 180, Fill: board.ColorNote}},
		},
	},
	{
		Index: 1, Name: "Vision", Camera: geometry.Camera{X: -3000, Y: 0},
		Gimmick: []board.Layer{
			board.Vision{Geometry: widget(80, 80, 320, 200)},
		},
	},
	{
		Index: 2, Name: "Topic Vote", Camera: geometry.Camera{X: -6000, Y: 0},
		Gimmick: []board.Layer{
			board.TopicVote{Geometry: widget(80, 80, 240, 160), Reactions: map[string]board.Reaction{}},
		},
	},
	{
		Index: 3, Name: "Idea Spread", Camera: geometry.Camera{X: -9000, Y: 0},
		Gimmick: []board.Layer{
			board.Spread{Geometry: widget(400, 300, 200, 120)},
			board.Spread{Geometry: widget(400, 80, 200, 120), Direction: board.DirectionUp},
			board.Spread{Geometry: widget(400, 520, 200, 120), Direction: board.DirectionDown},
			board.Spread{Geometry: widget(120, 300, 200, 120), Direction: board.DirectionLeft},
			board.Spread{Geometry: widget(680, 300, 200, 120), Direction: board.DirectionRight},
		},
	},
	{
		Index: 4, Name: "Discussion", Camera: geometry.Camera{X: -12000, Y: 0},
		Gimmick: []board.Layer{
			board.Discussion{Geometry: widget(80, 80, 360, 280), Category: board.CategoryIdea, Status: board.StatusOngoing, Comments: []board.Comment{}},
		},
	},
	{
		Index: 5, Name: "Persona", Camera: geometry.Camera{X: 0, Y: -2400},
		Gimmick: []board.Layer{
			board.Persona{Geometry: widget(80, 80, 320, 400), Traits: []board.Trait{}},
		},
	},
	{
		Index: 6, Name: "Problem Solving", Camera: geometry.Camera{X: -3000, Y: -2400},
		Gimmick: []board.Layer{
			board.SolvingProblem{Geometry: widget(80, 80, 240, 160), BoxType: board.BoxDefine},
			board.SolvingProblem{Geometry: widget(80, 280, 240, 160), BoxType: board.BoxDefine},
			board.SolvingProblem{Geometry: widget(80, 480, 240, 160), BoxType: board.BoxDefine},
			board.SolvingProblem{Geometry: widget(400, 80, 240, 160), BoxType: board.BoxAnalyze, IsLocked: true},
			board.SolvingProblem{Geometry: widget(400, 280, 240, 160), BoxType: board.BoxAnalyze, IsLocked: true},
			board.SolvingProblem{Geometry: widget(400, 480, 240, 160), BoxType: board.BoxAnalyze, IsLocked: true},
			board.SolvingProblem{Geometry: widget(720, 80, 240, 160), BoxType: board.BoxSolve, IsLocked: true},
			board.SolvingProblem{Geometry: widget(720, 280, 240, 160), BoxType: board.BoxSolve, IsLocked: true},
			board.SolvingProblem{Geometry: widget(720, 480, 240, 160), BoxType: board.BoxSolve, IsLocked: true},
		},
	},
	{
		Index: 7, Name: "User Story", Camera: geometry.Camera{X: -6000, Y: -2400},
		Gimmick: []board.Layer{
			board.UserStory{Geometry: widget(80, 80, 200, 120), Fragment: board.FragmentWho},
			board.UserStory{Geometry: widget(320, 80, 200, 120), Fragment: board.FragmentGoal},
			board.UserStory{Geometry: widget(560, 80, 200, 120), Fragment: board.FragmentAction},
			board.UserStory{Geometry: widget(800, 80, 200, 120), Fragment: board.FragmentTask},
		},
	},
	{
		Index: 8, Name: "Retrospective", Camera: geometry.Camera{X: -9000, Y: -2400},
		Gimmick: []board.Layer{
			board.Discussion{Geometry: widget(80, 80, 360, 280), Category: board.CategoryKeep, Status: board.StatusOngoing, Comments: []board.Comment{}},
			board.Discussion{Geometry: widget(480, 80, 360, 280), Category: board.CategoryProblem, Status: board.StatusOngoing, Comments: []board.Comment{}},
			board.Discussion{Geometry: widget(880, 80, 360, 280), Category: board.CategoryTry, Status: board.StatusOngoing, Comments: []board.Comment{}},
		},
	},
	{
		Index: 9, Name: "Wrap Up", Camera: geometry.Camera{X: -12000, Y: -2400},
		Gimmick: []board.Layer{
			board.Text{Geometry: board.Geometry{X: 80, Y: 80, Width: 200, Height: 40, Fill: board.ColorInk}, Value: "Takeaways"},
			board.Note{Geometry: board.Geometry{X: 80, Y: 160, Width: 180, Height: 180, Fill: board.ColorNote}},
		},
	},
}

// All returns every stage in order.
func All() []Stage {
	out := make([]Stage, Count)
	copy(out, table[:])
	return out
}

// Get returns stage i.
func Get(i int) (Stage, error) {
	if i < 0 || i >= Count {
		return Stage{}, fmt.Errorf("invalid stage %d: must be between 0 and %d", i, Count-1)
	}
	return table[i], nil
}

// Names returns the stage names in order; it seeds the room's process list.
func Names() []string {
	names := make([]string, Count)
	for i, s := range table {
		names[i] = s.Name
	}
	return names
}

// Origin is the canvas point shown at the top-left of the screen when the
// camera sits on this stage.
func (s Stage) Origin() geometry.Point {
	return geometry.Point{X: -s.Camera.X, Y: -s.Camera.Y}
}

// Template returns the stage's gimmick layers placed in canvas space.
func (s Stage) Template() []board.Layer {
	origin := s.Origin()
	out := make([]board.Layer, len(s.Gimmick))
	for i, l := range s.Gimmick {
		out[i] = board.Reshape(l, l.Geom().Bounds().Translate(origin))
	}
	return out
}

// Seed returns the board seed for a room starting on stage 0.
func Seed(host string) board.Seed {
	return board.Seed{Host: host, Process: Names(), Stage: 0, Camera: table[0].Camera}
}

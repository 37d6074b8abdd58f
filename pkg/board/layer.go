package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/ideaboard/pkg/geometry"
)

// MaxLayers is the hard ceiling on the number of layers in one room.
const MaxLayers = 100

// LayerType is the immutable variant tag of a layer.
type LayerType string

const (
	LayerRectangle      LayerType = "rectangle"
	LayerEllipse        LayerType = "ellipse"
	LayerPath           LayerType = "path"
	LayerText           LayerType = "text"
	LayerNote           LayerType = "note"
	LayerVision         LayerType = "vision"
	LayerTopicVote      LayerType = "topic_vote"
	LayerSpread         LayerType = "spread"
	LayerDiscussion     LayerType = "discussion"
	LayerPersona        LayerType = "persona"
	LayerSolvingProblem LayerType = "solving_problem"
	LayerUserStory      LayerType = "user_story"
)

// LayerTypes lists every variant in tool-palette order.
var LayerTypes = []LayerType{
	LayerRectangle, LayerEllipse, LayerPath, LayerText, LayerNote,
	LayerVision, LayerTopicVote, LayerSpread, LayerDiscussion,
	LayerPersona, LayerSolvingProblem, LayerUserStory,
}

// Validate checks if the layer type is one of the known variants.
func (t LayerType) Validate() error {
	for _, known := range LayerTypes {
		if t == known {
			return nil
		}
	}
	return fmt.Errorf("invalid layer type: %s", t)
}

// Color is an opaque RGB fill.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Fixed palette colors.
var (
	ColorShape     = Color{R: 0xD9, G: 0xD9, B: 0xD9}
	ColorInk       = Color{R: 0x1F, G: 0x1F, B: 0x1F}
	ColorNote      = Color{R: 0xFF, G: 0xE8, B: 0x7C}
	ColorWidget    = Color{R: 0xFF, G: 0xFF, B: 0xFF}
	ColorSelection = Color{R: 0x3B, G: 0x82, B: 0xF6}
)

// String renders the color as #RRGGBB.
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor parses #RRGGBB (the leading # is optional).
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Geometry is the part every layer variant shares.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Fill   Color   `json:"fill"`
}

// Bounds returns the layer's bounding box.
func (g Geometry) Bounds() geometry.Rect {
	return geometry.Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

// WithBounds returns g with its box replaced.
func (g Geometry) WithBounds(r geometry.Rect) Geometry {
	g.X, g.Y, g.Width, g.Height = r.X, r.Y, r.Width, r.Height
	return g
}

// Layer is one visual object on the canvas. The set of implementations is
// closed to this package; use a LayerVisitor to handle every variant.
type Layer interface {
	Type() LayerType
	Geom() Geometry
	Accept(v LayerVisitor) error
	withGeom(g Geometry) Layer
}

// LayerVisitor has one method per layer variant. Adding a variant adds a
// method here, so every renderer stops compiling until it handles it.
type LayerVisitor interface {
	VisitRectangle(Rectangle) error
	VisitEllipse(Ellipse) error
	VisitPath(Path) error
	VisitText(Text) error
	VisitNote(Note) error
	VisitVision(Vision) error
	VisitTopicVote(TopicVote) error
	VisitSpread(Spread) error
	VisitDiscussion(Discussion) error
	VisitPersona(Persona) error
	VisitSolvingProblem(SolvingProblem) error
	VisitUserStory(UserStory) error
}

// Reshape returns l moved and sized to bounds. Path points follow the box.
func Reshape(l Layer, bounds geometry.Rect) Layer {
	return l.withGeom(l.Geom().WithBounds(bounds))
}

// WithFill returns l with a new fill.
func WithFill(l Layer, fill Color) Layer {
	g := l.Geom()
	g.Fill = fill
	return l.withGeom(g)
}

type Rectangle struct {
	Geometry
}

func (Rectangle) Type() LayerType               { return LayerRectangle }
func (l Rectangle) Geom() Geometry              { return l.Geometry }
func (l Rectangle) Accept(v LayerVisitor) error { return v.VisitRectangle(l) }
func (l Rectangle) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

type Ellipse struct {
	Geometry
}

func (Ellipse) Type() LayerType               { return LayerEllipse }
func (l Ellipse) Geom() Geometry              { return l.Geometry }
func (l Ellipse) Accept(v LayerVisitor) error { return v.VisitEllipse(l) }
func (l Ellipse) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

// PathPoint is one freehand sample in canvas space.
type PathPoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
}

// Path is a committed freehand stroke. Its box is the bounding box of Points.
type Path struct {
	Geometry
	Points      []PathPoint `json:"points"`
	StrokeWidth float64     `json:"strokeWidth"`
}

func (Path) Type() LayerType               { return LayerPath }
func (l Path) Geom() Geometry              { return l.Geometry }
func (l Path) Accept(v LayerVisitor) error { return v.VisitPath(l) }

// withGeom maps every point from the old box into the new one. A degenerate
// axis (zero extent) is translated instead of scaled.
func (l Path) withGeom(g Geometry) Layer {
	old := l.Geometry
	sx, sy := 1.0, 1.0
	if old.Width != 0 {
		sx = g.Width / old.Width
	}
	if old.Height != 0 {
		sy = g.Height / old.Height
	}

	points := make([]PathPoint, len(l.Points))
	for i, p := range l.Points {
		points[i] = PathPoint{
			X:        g.X + (p.X-old.X)*sx,
			Y:        g.Y + (p.Y-old.Y)*sy,
			Pressure: p.Pressure,
		}
	}

	l.Geometry = g
	l.Points = points
	return l
}

type Text struct {
	Geometry
	Value string `json:"value"`
}

func (Text) Type() LayerType               { return LayerText }
func (l Text) Geom() Geometry              { return l.Geometry }
func (l Text) Accept(v LayerVisitor) error { return v.VisitText(l) }
func (l Text) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

// Note is a sticky note. Its fill is always ColorNote when inserted.
type Note struct {
	Geometry
	Value string `json:"value"`
}

func (Note) Type() LayerType               { return LayerNote }
func (l Note) Geom() Geometry              { return l.Geometry }
func (l Note) Accept(v LayerVisitor) error { return v.VisitNote(l) }
func (l Note) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

type Vision struct {
	Geometry
	Value      string `json:"value"`
	AuthorIcon string `json:"authorIcon"`
}

func (Vision) Type() LayerType               { return LayerVision }
func (l Vision) Geom() Geometry              { return l.Geometry }
func (l Vision) Accept(v LayerVisitor) error { return v.VisitVision(l) }
func (l Vision) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

// Reaction is one user's emoji on a TopicVote.
type Reaction struct {
	Emoji       string `json:"emoji"`
	TimestampMs int64  `json:"timestamp"`
}

// TopicVote holds at most one reaction per user id.
type TopicVote struct {
	Geometry
	Value      string              `json:"value"`
	AuthorIcon string              `json:"authorIcon"`
	Reactions  map[string]Reaction `json:"reactions"`
}

func (TopicVote) Type() LayerType               { return LayerTopicVote }
func (l TopicVote) Geom() Geometry              { return l.Geometry }
func (l TopicVote) Accept(v LayerVisitor) error { return v.VisitTopicVote(l) }
func (l TopicVote) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

// Direction tells a Spread node which side its parent connector leaves from.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Validate checks if the direction is known.
func (d Direction) Validate() error {
	switch d {
	case DirectionNone, DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return nil
	default:
		return fmt.Errorf("invalid spread direction: %s", d)
	}
}

type Spread struct {
	Geometry
	CenterIdea string    `json:"centerIdea"`
	Content    string    `json:"content"`
	Direction  Direction `json:"direction"`
}

func (Spread) Type() LayerType               { return LayerSpread }
func (l Spread) Geom() Geometry              { return l.Geometry }
func (l Spread) Accept(v LayerVisitor) error { return v.VisitSpread(l) }
func (l Spread) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

// DiscussionCategory is the fixed set of discussion card kinds.
type DiscussionCategory string

const (
	CategoryKeep    DiscussionCategory = "keep"
	CategoryProblem DiscussionCategory = "problem"
	CategoryTry     DiscussionCategory = "try"
	CategoryIdea    DiscussionCategory = "idea"
	CategoryRisk    DiscussionCategory = "risk"
)

// Validate checks if the category is known.
func (c DiscussionCategory) Validate() error {
	switch c {
	case CategoryKeep, CategoryProblem, CategoryTry, CategoryIdea, CategoryRisk:
		return nil
	default:
		return fmt.Errorf("invalid discussion category: %s", c)
	}
}

// DiscussionStatus is ongoing until the facilitator closes the card.
type DiscussionStatus string

const (
	StatusOngoing   DiscussionStatus = "ongoing"
	StatusCompleted DiscussionStatus = "completed"
)

// Validate checks if the status is known.
func (s DiscussionStatus) Validate() error {
	switch s {
	case StatusOngoing, StatusCompleted:
		return nil
	default:
		return fmt.Errorf("invalid discussion status: %s", s)
	}
}

// VoteType is how a comment leans on its discussion topic.
type VoteType string

const (
	VoteNone     VoteType = ""
	VoteAgree    VoteType = "agree"
	VoteDisagree VoteType = "disagree"
	VoteNeutral  VoteType = "neutral"
)

// Validate checks if the vote type is known.
func (v VoteType) Validate() error {
	switch v {
	case VoteNone, VoteAgree, VoteDisagree, VoteNeutral:
		return nil
	default:
		return fmt.Errorf("invalid vote type: %s", v)
	}
}

// Comment is one entry in a discussion thread. Reactions maps user id to emoji.
type Comment struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Content     string            `json:"content"`
	VoteType    VoteType          `json:"voteType"`
	TimestampMs int64             `json:"timestamp"`
	Reactions   map[string]string `json:"reactions"`
}

type Discussion struct {
	Geometry
	Category    DiscussionCategory `json:"category"`
	Topic       string             `json:"topic"`
	Description string             `json:"description"`
	Status      DiscussionStatus   `json:"status"`
	Comments    []Comment          `json:"comments"`
}

func (Discussion) Type() LayerType               { return LayerDiscussion }
func (l Discussion) Geom() Geometry              { return l.Geometry }
func (l Discussion) Accept(v LayerVisitor) error { return v.VisitDiscussion(l) }
func (l Discussion) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

// Trait is one (category, value) line on a persona card.
type Trait struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

type Persona struct {
	Geometry
	Name       string  `json:"name"`
	Age        string  `json:"age"`
	Gender     string  `json:"gender"`
	Occupation string  `json:"occupation"`
	Location   string  `json:"location"`
	Traits     []Trait `json:"traits"`
}

func (Persona) Type() LayerType               { return LayerPersona }
func (l Persona) Geom() Geometry              { return l.Geometry }
func (l Persona) Accept(v LayerVisitor) error { return v.VisitPersona(l) }
func (l Persona) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

// BoxType is a stage of the define -> analyze -> solve pipeline.
type BoxType string

const (
	BoxDefine  BoxType = "define"
	BoxAnalyze BoxType = "analyze"
	BoxSolve   BoxType = "solve"
)

// BoxTypes lists the pipeline stages in order.
var BoxTypes = []BoxType{BoxDefine, BoxAnalyze, BoxSolve}

// Validate checks if the box type is known.
func (b BoxType) Validate() error {
	switch b {
	case BoxDefine, BoxAnalyze, BoxSolve:
		return nil
	default:
		return fmt.Errorf("invalid box type: %s", b)
	}
}

// Previous returns the stage that gates b, or "" for the first stage.
func (b BoxType) Previous() BoxType {
	for i, t := range BoxTypes {
		if t == b && i > 0 {
			return BoxTypes[i-1]
		}
	}
	return ""
}

// SolvingProblem is a pipeline box. IsLocked mirrors a derived value and is
// only ever written by the lock recomputation.
type SolvingProblem struct {
	Geometry
	BoxType  BoxType `json:"boxType"`
	Content  string  `json:"content"`
	IsLocked bool    `json:"isLocked"`
}

func (SolvingProblem) Type() LayerType               { return LayerSolvingProblem }
func (l SolvingProblem) Geom() Geometry              { return l.Geometry }
func (l SolvingProblem) Accept(v LayerVisitor) error { return v.VisitSolvingProblem(l) }
func (l SolvingProblem) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

// Fragment is the part of a user story one node holds.
type Fragment string

const (
	FragmentWho    Fragment = "who"
	FragmentGoal   Fragment = "goal"
	FragmentAction Fragment = "action"
	FragmentTask   Fragment = "task"
)

// Validate checks if the fragment is known.
func (f Fragment) Validate() error {
	switch f {
	case FragmentWho, FragmentGoal, FragmentAction, FragmentTask:
		return nil
	default:
		return fmt.Errorf("invalid story fragment: %s", f)
	}
}

type UserStory struct {
	Geometry
	Fragment Fragment `json:"fragment"`
	Value    string   `json:"value"`
}

func (UserStory) Type() LayerType               { return LayerUserStory }
func (l UserStory) Geom() Geometry              { return l.Geometry }
func (l UserStory) Accept(v LayerVisitor) error { return v.VisitUserStory(l) }
func (l UserStory) withGeom(g Geometry) Layer   { l.Geometry = g; return l }

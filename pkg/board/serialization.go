package board

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between layers and Redis hashes
//
// Every layer is stored as a flat string hash so that concurrent writers touch
// individual keys. Collection fields (points, reactions, comments, traits) are
// JSON-encoded into a single key and are rewritten as a whole.

// Fields is the flat hash encoding of a layer or of the room meta record.
type Fields map[string]string

// Clone returns an independent copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Type returns the variant tag stored in f.
func (f Fields) Type() LayerType {
	return LayerType(f["type"])
}

// EncodeLayer converts a layer to its hash form.
func EncodeLayer(l Layer) (Fields, error) {
	enc := &hashEncoder{}
	if err := l.Accept(enc); err != nil {
		return nil, err
	}
	return enc.fields, nil
}

type hashEncoder struct {
	fields Fields
}

func (e *hashEncoder) base(t LayerType, g Geometry) {
	e.fields = Fields{
		"type":   string(t),
		"x":      formatFloat(g.X),
		"y":      formatFloat(g.Y),
		"width":  formatFloat(g.Width),
		"height": formatFloat(g.Height),
		"fill":   g.Fill.String(),
	}
}

func (e *hashEncoder) json(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	e.fields[key] = string(data)
	return nil
}

func (e *hashEncoder) VisitRectangle(l Rectangle) error {
	e.base(LayerRectangle, l.Geometry)
	return nil
}

func (e *hashEncoder) VisitEllipse(l Ellipse) error {
	e.base(LayerEllipse, l.Geometry)
	return nil
}

func (e *hashEncoder) VisitPath(l Path) error {
	e.base(LayerPath, l.Geometry)
	e.fields["stroke_width"] = formatFloat(l.StrokeWidth)
	points := l.Points
	if points == nil {
		points = []PathPoint{}
	}
	return e.json("points", points)
}

func (e *hashEncoder) VisitText(l Text) error {
	e.base(LayerText, l.Geometry)
	e.fields["value"] = l.Value
	return nil
}

func (e *hashEncoder) VisitNote(l Note) error {
	e.base(LayerNote, l.Geometry)
	e.fields["value"] = l.Value
	return nil
}

func (e *hashEncoder) VisitVision(l Vision) error {
	e.base(LayerVision, l.Geometry)
	e.fields["value"] = l.Value
	e.fields["author_icon"] = l.AuthorIcon
	return nil
}

func (e *hashEncoder) VisitTopicVote(l TopicVote) error {
	e.base(LayerTopicVote, l.Geometry)
	e.fields["value"] = l.Value
	e.fields["author_icon"] = l.AuthorIcon
	reactions := l.Reactions
	if reactions == nil {
		reactions = map[string]Reaction{}
	}
	return e.json("reactions", reactions)
}

func (e *hashEncoder) VisitSpread(l Spread) error {
	e.base(LayerSpread, l.Geometry)
	e.fields["center_idea"] = l.CenterIdea
	e.fields["content"] = l.Content
	e.fields["direction"] = string(l.Direction)
	return nil
}

func (e *hashEncoder) VisitDiscussion(l Discussion) error {
	e.base(LayerDiscussion, l.Geometry)
	e.fields["category"] = string(l.Category)
	e.fields["topic"] = l.Topic
	e.fields["description"] = l.Description
	e.fields["status"] = string(l.Status)
	comments := l.Comments
	if comments == nil {
		comments = []Comment{}
	}
	return e.json("comments", comments)
}

func (e *hashEncoder) VisitPersona(l Persona) error {
	e.base(LayerPersona, l.Geometry)
	e.fields["name"] = l.Name
	e.fields["age"] = l.Age
	e.fields["gender"] = l.Gender
	e.fields["occupation"] = l.Occupation
	e.fields["location"] = l.Location
	traits := l.Traits
	if traits == nil {
		traits = []Trait{}
	}
	return e.json("traits", traits)
}

func (e *hashEncoder) VisitSolvingProblem(l SolvingProblem) error {
	e.base(LayerSolvingProblem, l.Geometry)
	e.fields["box_type"] = string(l.BoxType)
	e.fields["content"] = l.Content
	e.fields["is_locked"] = strconv.FormatBool(l.IsLocked)
	return nil
}

func (e *hashEncoder) VisitUserStory(l UserStory) error {
	e.base(LayerUserStory, l.Geometry)
	e.fields["fragment"] = string(l.Fragment)
	e.fields["value"] = l.Value
	return nil
}

// DecodeLayer converts a hash back to a layer. Unknown keys are ignored and
// missing scalar keys decode to their zero value.
func DecodeLayer(f Fields) (Layer, error) {
	t := f.Type()
	if err := t.Validate(); err != nil {
		return nil, err
	}

	g, err := decodeGeometry(f)
	if err != nil {
		return nil, err
	}

	switch t {
	case LayerRectangle:
		return Rectangle{Geometry: g}, nil

	case LayerEllipse:
		return Ellipse{Geometry: g}, nil

	case LayerPath:
		l := Path{Geometry: g, Points: []PathPoint{}}
		if l.StrokeWidth, err = parseFloat(f, "stroke_width"); err != nil {
			return nil, err
		}
		if err := decodeJSON(f, "points", &l.Points); err != nil {
			return nil, err
		}
		return l, nil

	case LayerText:
		return Text{Geometry: g, Value: f["value"]}, nil

	case LayerNote:
		return Note{Geometry: g, Value: f["value"]}, nil

	case LayerVision:
		return Vision{Geometry: g, Value: f["value"], AuthorIcon: f["author_icon"]}, nil

	case LayerTopicVote:
		l := TopicVote{Geometry: g, Value: f["value"], AuthorIcon: f["author_icon"], Reactions: map[string]Reaction{}}
		if err := decodeJSON(f, "reactions", &l.Reactions); err != nil {
			return nil, err
		}
		return l, nil

	case LayerSpread:
		return Spread{
			Geometry:   g,
			CenterIdea: f["center_idea"],
			Content:    f["content"],
			Direction:  Direction(f["direction"]),
		}, nil

	case LayerDiscussion:
		l := Discussion{
			Geometry:    g,
			Category:    DiscussionCategory(f["category"]),
			Topic:       f["topic"],
			Description: f["description"],
			Status:      DiscussionStatus(f["status"]),
			Comments:    []Comment{},
		}
		if err := decodeJSON(f, "comments", &l.Comments); err != nil {
			return nil, err
		}
		return l, nil

	case LayerPersona:
		l := Persona{
			Geometry:   g,
			Name:       f["name"],
			Age:        f["age"],
			Gender:     f["gender"],
			Occupation: f["occupation"],
			Location:   f["location"],
			Traits:     []Trait{},
		}
		if err := decodeJSON(f, "traits", &l.Traits); err != nil {
			return nil, err
		}
		return l, nil

	case LayerSolvingProblem:
		locked, _ := strconv.ParseBool(f["is_locked"])
		return SolvingProblem{
			Geometry: g,
			BoxType:  BoxType(f["box_type"]),
			Content:  f["content"],
			IsLocked: locked,
		}, nil

	case LayerUserStory:
		return UserStory{Geometry: g, Fragment: Fragment(f["fragment"]), Value: f["value"]}, nil
	}

	return nil, fmt.Errorf("invalid layer type: %s", t)
}

func decodeGeometry(f Fields) (Geometry, error) {
	var g Geometry
	var err error
	if g.X, err = parseFloat(f, "x"); err != nil {
		return g, err
	}
	if g.Y, err = parseFloat(f, "y"); err != nil {
		return g, err
	}
	if g.Width, err = parseFloat(f, "width"); err != nil {
		return g, err
	}
	if g.Height, err = parseFloat(f, "height"); err != nil {
		return g, err
	}
	if fill := f["fill"]; fill != "" {
		if g.Fill, err = ParseColor(fill); err != nil {
			return g, err
		}
	}
	return g, nil
}

func parseFloat(f Fields, key string) (float64, error) {
	raw, ok := f[key]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s field: %w", key, err)
	}
	return v, nil
}

func decodeJSON(f Fields, key string, out interface{}) error {
	raw := f[key]
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toHash(f Fields) map[string]interface{} {
	hash := make(map[string]interface{}, len(f))
	for k, v := range f {
		hash[k] = v
	}
	return hash
}

// Package export renders a board snapshot to PDF or PNG. Layers are painted
// in z-order onto a page sized to the bounding box of everything on the board.
package export

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// ErrEmpty is returned when the document has no layers to draw.
var ErrEmpty = errors.New("nothing to export")

// Format is an output file format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// ParseFormat accepts "pdf" or "png".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPDF, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (must be pdf or png)", s)
	}
}

// Options control page framing.
type Options struct {
	// Padding is the margin around the board content, in canvas units.
	Padding float64
	// Scale converts canvas units to output units (points or pixels).
	Scale float64
}

func (o *Options) applyDefaults() {
	if o.Padding <= 0 {
		o.Padding = 40
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
}

// Write renders doc in the given format.
func Write(w io.Writer, format Format, doc *board.Document, opts Options) error {
	switch format {
	case FormatPDF:
		return PDF(w, doc, opts)
	case FormatPNG:
		return PNG(w, doc, opts)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// surface is a drawing target in canvas coordinates.
type surface interface {
	Rect(r geometry.Rect, fill board.Color, outline bool)
	Ellipse(r geometry.Rect, fill board.Color)
	Curve(c curve, color board.Color, width float64)
	Text(r geometry.Rect, lines []string, color board.Color, size float64)
}

// frame maps canvas coordinates onto the output page.
type frame struct {
	origin geometry.Point
	scale  float64
	width  float64
	height float64
}

func newFrame(doc *board.Document, opts Options) (frame, []board.Entry, error) {
	opts.applyDefaults()
	entries := doc.Entries()
	rects := make([]geometry.Rect, 0, len(entries))
	for _, e := range entries {
		rects = append(rects, e.Layer.Geom().Bounds())
	}
	bounds, ok := geometry.Union(rects...)
	if !ok {
		return frame{}, nil, ErrEmpty
	}
	return frame{
		origin: geometry.Point{X: bounds.X - opts.Padding, Y: bounds.Y - opts.Padding},
		scale:  opts.Scale,
		width:  (bounds.Width + 2*opts.Padding) * opts.Scale,
		height: (bounds.Height + 2*opts.Padding) * opts.Scale,
	}, entries, nil
}

func (f frame) x(v float64) float64      { return (v - f.origin.X) * f.scale }
func (f frame) y(v float64) float64      { return (v - f.origin.Y) * f.scale }
func (f frame) scaled(v float64) float64 { return v * f.scale }

func (f frame) point(p geometry.Point) geometry.Point {
	return geometry.Point{X: f.x(p.X), Y: f.y(p.Y)}
}

func (f frame) rect(r geometry.Rect) geometry.Rect {
	return geometry.Rect{X: f.x(r.X), Y: f.y(r.Y), Width: f.scaled(r.Width), Height: f.scaled(r.Height)}
}

// segment is one quadratic Bézier piece.
type segment struct {
	Ctrl geometry.Point
	To   geometry.Point
}

type curve struct {
	Start    geometry.Point
	Segments []segment
}

// smooth turns freehand samples into quadratic curves through the midpoints
// of consecutive samples, using each sample as the control point.
func smooth(points []board.PathPoint) curve {
	if len(points) == 0 {
		return curve{}
	}
	pt := func(i int) geometry.Point { return geometry.Point{X: points[i].X, Y: points[i].Y} }
	c := curve{Start: pt(0)}
	if len(points) == 1 {
		return c
	}
	for i := 1; i < len(points)-1; i++ {
		a, b := pt(i), pt(i+1)
		c.Segments = append(c.Segments, segment{Ctrl: a, To: geometry.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}})
	}
	last := pt(len(points) - 1)
	c.Segments = append(c.Segments, segment{Ctrl: last, To: last})
	return c
}

const (
	textSize  = 14
	labelSize = 11
)

var (
	colorOutline = board.Color{R: 0x9C, G: 0xA3, B: 0xAF}
	colorLocked  = board.Color{R: 0xE5, G: 0xE7, B: 0xEB}
)

// painter draws each layer variant onto a surface.
type painter struct {
	s surface
}

func paint(s surface, entries []board.Entry) error {
	p := painter{s: s}
	for _, e := range entries {
		if err := e.Layer.Accept(p); err != nil {
			return fmt.Errorf("failed to draw layer %s: %w", e.ID, err)
		}
	}
	return nil
}

// card draws an outlined widget box with its non-empty text lines.
func (p painter) card(g board.Geometry, lines ...string) error {
	var text []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			text = append(text, l)
		}
	}
	p.s.Rect(g.Bounds(), g.Fill, true)
	p.s.Text(g.Bounds(), text, board.ColorInk, labelSize)
	return nil
}

func (p painter) VisitRectangle(l board.Rectangle) error {
	p.s.Rect(l.Bounds(), l.Fill, false)
	return nil
}

func (p painter) VisitEllipse(l board.Ellipse) error {
	p.s.Ellipse(l.Bounds(), l.Fill)
	return nil
}

func (p painter) VisitPath(l board.Path) error {
	p.s.Curve(smooth(l.Points), l.Fill, l.StrokeWidth)
	return nil
}

func (p painter) VisitText(l board.Text) error {
	p.s.Text(l.Bounds(), strings.Split(l.Value, "\n"), l.Fill, textSize)
	return nil
}

func (p painter) VisitNote(l board.Note) error {
	p.s.Rect(l.Bounds(), l.Fill, false)
	p.s.Text(l.Bounds(), strings.Split(l.Value, "\n"), board.ColorInk, textSize)
	return nil
}

func (p painter) VisitVision(l board.Vision) error {
	return p.card(l.Geometry, "Vision", l.Value, l.AuthorIcon)
}

func (p painter) VisitTopicVote(l board.TopicVote) error {
	lines := []string{l.Value}
	counts := map[string]int{}
	for _, r := range l.Reactions {
		counts[r.Emoji]++
	}
	emojis := make([]string, 0, len(counts))
	for e := range counts {
		emojis = append(emojis, e)
	}
	sort.Strings(emojis)
	for _, e := range emojis {
		lines = append(lines, fmt.Sprintf("%s x%d", e, counts[e]))
	}
	return p.card(l.Geometry, lines...)
}

func (p painter) VisitSpread(l board.Spread) error {
	if l.CenterIdea != "" {
		return p.card(l.Geometry, l.CenterIdea)
	}
	return p.card(l.Geometry, l.Content)
}

func (p painter) VisitDiscussion(l board.Discussion) error {
	lines := []string{
		fmt.Sprintf("[%s] %s", l.Category, l.Topic),
		l.Description,
		fmt.Sprintf("%s, %d comments", l.Status, len(l.Comments)),
	}
	return p.card(l.Geometry, lines...)
}

func (p painter) VisitPersona(l board.Persona) error {
	var facts []string
	for _, v := range []string{l.Age, l.Gender, l.Occupation, l.Location} {
		if v != "" {
			facts = append(facts, v)
		}
	}
	lines := []string{l.Name, strings.Join(facts, ", ")}
	for _, t := range l.Traits {
		lines = append(lines, t.Category+": "+t.Value)
	}
	return p.card(l.Geometry, lines...)
}

func (p painter) VisitSolvingProblem(l board.SolvingProblem) error {
	g := l.Geometry
	header := strings.ToUpper(string(l.BoxType))
	if l.IsLocked {
		g.Fill = colorLocked
		header += " (locked)"
	}
	return p.card(g, header, l.Content)
}

func (p painter) VisitUserStory(l board.UserStory) error {
	return p.card(l.Geometry, string(l.Fragment)+": "+l.Value)
}

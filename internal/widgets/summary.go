package widgets

import (
	"fmt"
	"strings"

	"github.com/dyluth/ideaboard/pkg/board"
)

// Summary renders a one-line text description of a layer.
func Summary(l board.Layer) string {
	s := &summarizer{}
	if err := l.Accept(s); err != nil {
		return string(l.Type())
	}
	return s.out
}

type summarizer struct {
	out string
}

func (s *summarizer) VisitRectangle(l board.Rectangle) error {
	s.out = "fill " + l.Fill.String()
	return nil
}

func (s *summarizer) VisitEllipse(l board.Ellipse) error {
	s.out = "fill " + l.Fill.String()
	return nil
}

func (s *summarizer) VisitPath(l board.Path) error {
	s.out = fmt.Sprintf("%d points, stroke %g", len(l.Points), l.StrokeWidth)
	return nil
}

func (s *summarizer) VisitText(l board.Text) error {
	s.out = quote(l.Value)
	return nil
}

func (s *summarizer) VisitNote(l board.Note) error {
	s.out = quote(l.Value)
	return nil
}

func (s *summarizer) VisitVision(l board.Vision) error {
	s.out = quote(l.Value)
	return nil
}

func (s *summarizer) VisitTopicVote(l board.TopicVote) error {
	s.out = fmt.Sprintf("%s (%d reactions)", quote(l.Value), len(l.Reactions))
	return nil
}

func (s *summarizer) VisitSpread(l board.Spread) error {
	if l.CenterIdea != "" {
		s.out = "center " + quote(l.CenterIdea)
		return nil
	}
	s.out = fmt.Sprintf("%s %s", directionLabel(l.Direction), quote(l.Content))
	return nil
}

func (s *summarizer) VisitDiscussion(l board.Discussion) error {
	s.out = fmt.Sprintf("[%s/%s] %s (%d comments)", l.Category, l.Status, quote(l.Topic), len(l.Comments))
	return nil
}

func (s *summarizer) VisitPersona(l board.Persona) error {
	s.out = fmt.Sprintf("%s (%d traits)", quote(l.Name), len(l.Traits))
	return nil
}

func (s *summarizer) VisitSolvingProblem(l board.SolvingProblem) error {
	state := "open"
	if l.IsLocked {
		state = "locked"
	}
	s.out = fmt.Sprintf("[%s, %s] %s", l.BoxType, state, quote(l.Content))
	return nil
}

func (s *summarizer) VisitUserStory(l board.UserStory) error {
	s.out = fmt.Sprintf("%s: %s", l.Fragment, quote(l.Value))
	return nil
}

func directionLabel(d board.Direction) string {
	if d == board.DirectionNone {
		return "branch"
	}
	return "branch " + string(d)
}

func quote(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	if len([]rune(v)) > 40 {
		v = string([]rune(v)[:37]) + "..."
	}
	return fmt.Sprintf("%q", v)
}

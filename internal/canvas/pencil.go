package canvas

import (
	"context"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// SetPenColor sets the color of the next pencil stroke.
func (e *Engine) SetPenColor(c board.Color) { e.penColor = c }

// SetPenSize sets the stroke width of the next pencil stroke.
func (e *Engine) SetPenSize(size float64) {
	if size > 0 {
		e.penSize = size
	}
}

func (e *Engine) appendDraft(p board.PathPoint) {
	if n := len(e.draft); n > 0 && e.draft[n-1].X == p.X && e.draft[n-1].Y == p.Y {
		return
	}
	e.draft = append(e.draft, p)
}

// commitDraft turns the draft into a Path layer. Drafts with fewer than two
// points, or drawn while the room is full, are dropped.
func (e *Engine) commitDraft(ctx context.Context) error {
	draft := e.draft
	e.draft = nil
	if len(draft) == 0 {
		return nil
	}
	if len(draft) < 2 {
		e.log.Debug().Int("points", len(draft)).Msg("draft_discarded")
		return e.publish(ctx)
	}

	points := make([]geometry.Point, len(draft))
	for i, p := range draft {
		points[i] = geometry.Point{X: p.X, Y: p.Y}
	}
	bounds, _ := geometry.BoundsOf(points)
	path := board.Path{
		Geometry:    board.Geometry{Fill: e.penColor}.WithBounds(bounds),
		Points:      draft,
		StrokeWidth: e.penSize,
	}

	id := e.newID()
	_, err := e.mutate(ctx, func(tx *board.Tx) error {
		return tx.InsertLayer(id, path)
	})
	switch {
	case isLimit(err):
		e.log.Info().Int("points", len(draft)).Msg("draft_rejected_limit")
	case err != nil:
		return err
	default:
		e.log.Debug().Str("layer_id", id).Int("points", len(draft)).Msg("path_committed")
	}
	return e.publish(ctx)
}

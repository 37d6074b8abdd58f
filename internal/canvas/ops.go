package canvas

import (
	"context"

	"github.com/dyluth/ideaboard/internal/stage"
	"github.com/dyluth/ideaboard/internal/widgets"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// Insert places a default layer of type t at the canvas point at and selects
// it. It returns the new id, or "" when the room is full.
func (e *Engine) Insert(ctx context.Context, t board.LayerType, at geometry.Point) (string, error) {
	l, err := NewLayer(t, at, e.lastUsed)
	if err != nil {
		return "", err
	}

	id := e.newID()
	_, err = e.mutate(ctx, func(tx *board.Tx) error {
		return tx.InsertLayer(id, l)
	})
	if isLimit(err) {
		e.log.Info().Str("type", string(t)).Int("max_layers", board.MaxLayers).Msg("insert_rejected_limit")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	e.log.Debug().Str("layer_id", id).Str("type", string(t)).Msg("layer_inserted")
	e.selection.Set(id)
	return id, e.publish(ctx)
}

// Update writes a partial field patch to one layer. Unknown ids are ignored.
func (e *Engine) Update(ctx context.Context, id string, patch board.Fields) (bool, error) {
	var found bool
	_, err := e.mutate(ctx, func(tx *board.Tx) error {
		var err error
		found, err = tx.UpdateLayer(id, patch)
		return err
	})
	if err != nil {
		return false, err
	}
	if !found {
		e.log.Debug().Str("layer_id", id).Msg("update_missing_layer")
	}
	return found, nil
}

// Delete removes layers and drops them from the selection and the published
// presence in the same step.
func (e *Engine) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := e.mutate(ctx, func(tx *board.Tx) error {
		for _, id := range ids {
			tx.DeleteLayer(id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if e.selection.Remove(ids...) {
		return e.publish(ctx)
	}
	return nil
}

// DeleteSelection removes every selected layer.
func (e *Engine) DeleteSelection(ctx context.Context) error {
	return e.Delete(ctx, e.selection.IDs()...)
}

// Translate moves every selected layer by delta.
func (e *Engine) Translate(ctx context.Context, delta geometry.Point) error {
	if e.selection.Len() == 0 || (delta.X == 0 && delta.Y == 0) {
		return nil
	}
	ids := e.selection.IDs()
	_, err := e.mutate(ctx, func(tx *board.Tx) error {
		for _, id := range ids {
			l, ok := tx.Layer(id)
			if !ok {
				continue
			}
			if _, err := tx.PutLayer(id, board.Reshape(l, l.Geom().Bounds().Translate(delta))); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// Resize sets the bounds of the selected layer. It does nothing unless
// exactly one layer is selected.
func (e *Engine) Resize(ctx context.Context, bounds geometry.Rect) error {
	if e.selection.Len() != 1 {
		return nil
	}
	id := e.selection.IDs()[0]
	_, err := e.mutate(ctx, func(tx *board.Tx) error {
		l, ok := tx.Layer(id)
		if !ok {
			return nil
		}
		_, err := tx.PutLayer(id, board.Reshape(l, bounds))
		return err
	})
	return err
}

// SetFill recolors the selection and remembers the color for later shape
// inserts.
func (e *Engine) SetFill(ctx context.Context, fill board.Color) error {
	e.lastUsed = &fill
	ids := e.selection.IDs()
	if len(ids) == 0 {
		return nil
	}
	_, err := e.mutate(ctx, func(tx *board.Tx) error {
		for _, id := range ids {
			l, ok := tx.Layer(id)
			if !ok {
				continue
			}
			if _, err := tx.PutLayer(id, board.WithFill(l, fill)); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// LastUsedColor returns the fill picked most recently this session.
func (e *Engine) LastUsedColor() (board.Color, bool) {
	if e.lastUsed == nil {
		return board.Color{}, false
	}
	return *e.lastUsed, true
}

// BringToFront moves the selection to the top of the z-order, keeping the
// selected layers' relative order.
func (e *Engine) BringToFront(ctx context.Context) error {
	return e.restack(ctx, true)
}

// SendToBack moves the selection to the bottom of the z-order, keeping the
// selected layers' relative order.
func (e *Engine) SendToBack(ctx context.Context) error {
	return e.restack(ctx, false)
}

func (e *Engine) restack(ctx context.Context, front bool) error {
	if e.selection.Len() == 0 {
		return nil
	}
	_, err := e.mutate(ctx, func(tx *board.Tx) error {
		var picked []string
		for _, id := range tx.LayerIDs() {
			if e.selection.Contains(id) {
				picked = append(picked, id)
			}
		}
		if front {
			for _, id := range picked {
				tx.MoveLayer(id, tx.LayerCount()-1)
			}
			return nil
		}
		for i := len(picked) - 1; i >= 0; i-- {
			tx.MoveLayer(picked[i], 0)
		}
		return nil
	})
	return err
}

// InsertGimmick inserts the template widgets of stage i as one undo step and
// selects them. Widgets past the layer ceiling are skipped.
func (e *Engine) InsertGimmick(ctx context.Context, i int) ([]string, error) {
	s, err := stage.Get(i)
	if err != nil {
		return nil, err
	}

	var ids []string
	_, err = e.mutate(ctx, func(tx *board.Tx) error {
		ids = ids[:0]
		for _, l := range s.Template() {
			id := e.newID()
			if err := tx.InsertLayer(id, l); err != nil {
				if isLimit(err) {
					e.log.Info().Int("stage", i).Int("inserted", len(ids)).Msg("gimmick_truncated_limit")
					return nil
				}
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	e.selection.Set(ids...)
	return ids, e.publish(ctx)
}

// NavigateStage moves the room to stage i and pans the camera to it. Stage
// changes are shared room state, not local edits, so they are not recorded in
// the undo history.
func (e *Engine) NavigateStage(ctx context.Context, i int) error {
	s, err := stage.Get(i)
	if err != nil {
		return err
	}
	cs, err := e.store.Mutate(ctx, func(tx *board.Tx) error {
		tx.SetStage(s.Index, s.Camera)
		return nil
	})
	if err != nil {
		return err
	}
	e.log.Info().Int("stage", s.Index).Str("name", s.Name).Msg("stage_changed")
	return e.absorb(ctx, cs)
}

// Execute runs a widget command as one undo step.
func (e *Engine) Execute(ctx context.Context, cmd widgets.Command) (bool, error) {
	actor := widgets.Actor{UserID: e.cfg.UserID, At: e.now()}
	if actor.UserID == "" {
		actor.UserID = e.store.ConnectionID()
	}

	var changed bool
	_, err := e.mutate(ctx, func(tx *board.Tx) error {
		var err error
		changed, err = widgets.Execute(tx, cmd, actor, e.cfg.Rules)
		return err
	})
	if err != nil {
		return false, err
	}
	if !changed {
		e.log.Debug().Str("layer_id", cmd.Target()).Msg("widget_command_noop")
	}
	return changed, nil
}

// Broadcast sends a room event to every connection.
func (e *Engine) Broadcast(ctx context.Context, ev board.RoomEvent) error {
	return e.store.Broadcast(ctx, ev)
}

// Package history keeps one connection's undo and redo stacks over a shared
// board.
//
// A step is every change set recorded between Begin and End (or a single
// change set recorded outside a bracket). Undo reverts a step inside one store
// transaction; fields another connection changed since are left alone.
package history

import (
	"context"
	"fmt"

	"github.com/dyluth/ideaboard/pkg/board"
)

// DefaultDepth is how many steps are kept when no depth is configured.
const DefaultDepth = 100

type step []*board.ChangeSet

// History records local change sets. It is not safe for concurrent use; it
// belongs to the single goroutine driving one canvas engine.
type History struct {
	depth   int
	undo    []step
	redo    []step
	pending step
	nesting int
}

// New creates a history keeping at most depth steps.
func New(depth int) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &History{depth: depth}
}

// Begin opens a bracket. Change sets recorded until the matching End form a
// single step. Brackets nest.
func (h *History) Begin() {
	h.nesting++
}

// End closes a bracket. Closing the outermost bracket pushes the collected
// step. Unbalanced calls are ignored.
func (h *History) End() {
	if h.nesting == 0 {
		return
	}
	h.nesting--
	if h.nesting == 0 && len(h.pending) > 0 {
		h.push(h.pending)
		h.pending = nil
	}
}

// Pause is Begin under the name gesture handlers use.
func (h *History) Pause() { h.Begin() }

// Resume is End under the name gesture handlers use.
func (h *History) Resume() { h.End() }

// Paused reports whether a bracket is open.
func (h *History) Paused() bool {
	return h.nesting > 0
}

// Record adds a change set. Empty change sets are ignored.
func (h *History) Record(cs *board.ChangeSet) {
	if cs.Empty() {
		return
	}
	if h.nesting > 0 {
		h.pending = append(h.pending, cs)
		return
	}
	h.push(step{cs})
}

func (h *History) push(s step) {
	h.undo = append(h.undo, s)
	if len(h.undo) > h.depth {
		h.undo = h.undo[len(h.undo)-h.depth:]
	}
	h.redo = nil
}

// CanUndo reports whether there is a step to undo.
func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo reports whether there is a step to redo.
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// Undo reverts the newest step. It returns the change set the revert produced,
// which may be empty when peers already overwrote everything the step did.
// An open bracket is closed first so a half-finished gesture is undone whole.
//
// The change set the revert produced becomes the redo step, so a redo only
// touches what this undo actually changed. A revert that changed nothing
// leaves nothing to redo.
func (h *History) Undo(ctx context.Context, store board.Store) (*board.ChangeSet, error) {
	h.flush()
	if len(h.undo) == 0 {
		return nil, nil
	}
	s := h.undo[len(h.undo)-1]

	cs, err := revert(ctx, store, s)
	if err != nil {
		return nil, fmt.Errorf("undo failed: %w", err)
	}

	h.undo = h.undo[:len(h.undo)-1]
	if !cs.Empty() {
		h.redo = append(h.redo, step{cs})
	}
	return cs, nil
}

// Redo reverts the most recent undo. Fields and layers peers changed since
// the undo are left alone, so a layer a peer deleted stays deleted.
func (h *History) Redo(ctx context.Context, store board.Store) (*board.ChangeSet, error) {
	h.flush()
	if len(h.redo) == 0 {
		return nil, nil
	}
	s := h.redo[len(h.redo)-1]

	cs, err := revert(ctx, store, s)
	if err != nil {
		return nil, fmt.Errorf("redo failed: %w", err)
	}

	h.redo = h.redo[:len(h.redo)-1]
	if !cs.Empty() {
		h.undo = append(h.undo, step{cs})
		if len(h.undo) > h.depth {
			h.undo = h.undo[len(h.undo)-h.depth:]
		}
	}
	return cs, nil
}

func revert(ctx context.Context, store board.Store, s step) (*board.ChangeSet, error) {
	return store.Mutate(ctx, func(tx *board.Tx) error {
		for i := len(s) - 1; i >= 0; i-- {
			tx.Revert(s[i])
		}
		return nil
	})
}

// flush pushes whatever an open bracket collected and closes it.
func (h *History) flush() {
	if h.nesting == 0 {
		return
	}
	h.nesting = 0
	if len(h.pending) > 0 {
		h.push(h.pending)
		h.pending = nil
	}
}

// Clear drops both stacks and any open bracket.
func (h *History) Clear() {
	h.undo, h.redo, h.pending, h.nesting = nil, nil, nil, 0
}

// Package canvas is the per-client interaction engine of a board. It turns
// pointer, key and tool events into the interaction state machine's
// transitions and into store mutations, keeps a local mirror of the shared
// document, owns the local selection and undo history and publishes this
// client's presence.
//
// An Engine is driven by a single goroutine. Its methods are not safe for
// concurrent use; they return once the store has accepted the mutation.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/ideaboard/internal/history"
	"github.com/dyluth/ideaboard/internal/presence"
	"github.com/dyluth/ideaboard/internal/widgets"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultThreshold is the Manhattan distance a press must travel before it
// becomes a selection net.
const DefaultThreshold = 5

// Config holds the local tool settings of one client.
type Config struct {
	Threshold    float64
	HistoryDepth int
	PencilSize   float64
	PencilColor  board.Color
	Rules        widgets.Rules
	UserID       string
	Name         string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Threshold:    DefaultThreshold,
		HistoryDepth: history.DefaultDepth,
		PencilSize:   16,
		PencilColor:  board.ColorInk,
		Rules:        widgets.DefaultRules(),
	}
}

// Engine drives one client's canvas.
type Engine struct {
	store     board.Store
	cfg       Config
	history   *history.History
	peers     *presence.Tracker
	doc       *board.Document
	state     State
	selection Selection
	cursor    *geometry.Point
	draft     []board.PathPoint
	lastUsed  *board.Color
	penColor  board.Color
	penSize   float64
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// New creates an engine on store. Call Sync before handling input.
func New(store board.Store, cfg Config, logger zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.PencilSize <= 0 {
		cfg.PencilSize = def.PencilSize
	}
	if cfg.Rules == nil {
		cfg.Rules = def.Rules
	}

	return &Engine{
		store:    lockingStore{Store: store, rules: cfg.Rules},
		cfg:      cfg,
		history:  history.New(cfg.HistoryDepth),
		peers:    presence.NewTracker(store.ConnectionID()),
		doc:      board.NewDocument(),
		penColor: cfg.PencilColor,
		penSize:  cfg.PencilSize,
		log:      logger.With().Str("component", "canvas").Str("connection", store.ConnectionID()).Logger(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// lockingStore recomputes problem-solving locks at the end of every
// transaction, including undo and redo.
type lockingStore struct {
	board.Store
	rules widgets.Rules
}

func (s lockingStore) Mutate(ctx context.Context, fn func(tx *board.Tx) error) (*board.ChangeSet, error) {
	return s.Store.Mutate(ctx, func(tx *board.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		_, err := widgets.RecomputeLocks(tx, s.rules)
		return err
	})
}

// Sync reloads the document mirror and the peer list from the store.
func (e *Engine) Sync(ctx context.Context) error {
	doc, err := e.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	others, err := e.store.Others(ctx)
	if err != nil {
		return fmt.Errorf("failed to load presence: %w", err)
	}
	e.doc = doc
	e.peers.Reset(others)

	var gone []string
	for _, id := range e.selection.IDs() {
		if _, ok := e.doc.Layers[id]; !ok {
			gone = append(gone, id)
		}
	}
	if e.selection.Remove(gone...) {
		return e.publish(ctx)
	}
	return nil
}

// RefreshPeers reloads the peer list from the store. Peers whose presence
// expired without a leave event are dropped; their ids are returned.
func (e *Engine) RefreshPeers(ctx context.Context) ([]string, error) {
	others, err := e.store.Others(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load presence: %w", err)
	}
	return e.peers.Reset(others), nil
}

// State returns the current interaction state.
func (e *Engine) State() State { return e.state }

// Selection returns the selected layer ids.
func (e *Engine) Selection() []string { return e.selection.IDs() }

// Document returns the local mirror of the shared document. Callers must not
// modify it.
func (e *Engine) Document() *board.Document { return e.doc }

// Peers returns the tracker of other connections.
func (e *Engine) Peers() *presence.Tracker { return e.peers }

// History returns the local undo history.
func (e *Engine) History() *history.History { return e.history }

// Camera returns the current pan offset.
func (e *Engine) Camera() geometry.Camera { return e.doc.Camera() }

// Draft returns the pencil stroke in progress.
func (e *Engine) Draft() []board.PathPoint {
	return append([]board.PathPoint(nil), e.draft...)
}

// Presence returns what this client publishes to its peers.
func (e *Engine) Presence() board.Presence {
	pen := e.penColor
	p := board.Presence{
		Selection:   e.selection.IDs(),
		PencilDraft: e.Draft(),
		PenColor:    &pen,
		Name:        e.cfg.Name,
		UserID:      e.cfg.UserID,
	}
	if e.cursor != nil {
		c := *e.cursor
		p.Cursor = &c
	}
	return p
}

func (e *Engine) publish(ctx context.Context) error {
	if err := e.store.UpdatePresence(ctx, e.Presence()); err != nil {
		return fmt.Errorf("failed to publish presence: %w", err)
	}
	return nil
}

// mutate runs fn in one store transaction, records the result in the local
// history and folds it into the mirror.
func (e *Engine) mutate(ctx context.Context, fn func(tx *board.Tx) error) (*board.ChangeSet, error) {
	cs, err := e.store.Mutate(ctx, fn)
	if err != nil {
		return nil, err
	}
	e.history.Record(cs)
	if err := e.absorb(ctx, cs); err != nil {
		return cs, err
	}
	return cs, nil
}

// absorb applies a change set to the mirror. A gap in versions means events
// were missed, so the mirror is reloaded instead.
func (e *Engine) absorb(ctx context.Context, cs *board.ChangeSet) error {
	if cs.Empty() || (cs.Version != 0 && cs.Version <= e.doc.Version) {
		return nil
	}
	if cs.Version != 0 && cs.Version != e.doc.Version+1 {
		e.log.Debug().Int64("have", e.doc.Version).Int64("got", cs.Version).Msg("mirror_resync")
		return e.Sync(ctx)
	}
	e.doc.Apply(cs)

	deleted := cs.Deleted()
	e.peers.Prune(deleted)
	if e.selection.Remove(deleted...) {
		return e.publish(ctx)
	}
	return nil
}

// Apply folds an event from the room subscription into the engine. Storage
// changes update the mirror and drop deleted layers from the selection;
// presence changes update the peer tracker.
func (e *Engine) Apply(ctx context.Context, ev board.Event) error {
	switch ev.Kind {
	case board.EventStorage:
		if ev.Change == nil {
			return nil
		}
		return e.absorb(ctx, ev.Change)
	case board.EventPresence:
		if ev.Presence != nil {
			e.peers.Apply(*ev.Presence)
		}
	case board.EventRoom:
		if ev.Room != nil {
			e.log.Debug().Str("type", string(ev.Room.Type)).Str("origin", ev.Room.Origin).Msg("room_event")
		}
	}
	return nil
}

func (e *Engine) toCanvas(p Pointer) geometry.Point {
	return e.Camera().ScreenToCanvas(p.screen())
}

// PointerDown handles a press on empty canvas.
func (e *Engine) PointerDown(ctx context.Context, p Pointer) error {
	pt := e.toCanvas(p)
	switch e.state.Mode {
	case ModeInserting:
		return nil
	case ModePencil:
		e.draft = []board.PathPoint{{X: pt.X, Y: pt.Y, Pressure: p.Pressure}}
		return e.publish(ctx)
	case ModeNone:
		e.state = State{Mode: ModePressing, Origin: pt}
	}
	return nil
}

// PointerMove handles pointer motion. Every move publishes the cursor.
func (e *Engine) PointerMove(ctx context.Context, p Pointer) error {
	pt := e.toCanvas(p)
	e.cursor = &pt

	switch e.state.Mode {
	case ModePressing:
		if pt.Manhattan(e.state.Origin) > e.cfg.Threshold {
			e.state = State{Mode: ModeSelectionNet, Origin: e.state.Origin, Current: pt}
			e.updateSelectionNet()
		}
	case ModeSelectionNet:
		e.state.Current = pt
		e.updateSelectionNet()
	case ModeTranslating:
		delta := pt.Sub(e.state.Current)
		e.state.Current = pt
		if err := e.Translate(ctx, delta); err != nil {
			return err
		}
	case ModeResizing:
		if err := e.Resize(ctx, geometry.ResizeBounds(e.state.InitialBounds, e.state.Corner, pt)); err != nil {
			return err
		}
	case ModePencil:
		if p.Pressed && e.draft != nil {
			e.appendDraft(board.PathPoint{X: pt.X, Y: pt.Y, Pressure: p.Pressure})
		}
	}
	return e.publish(ctx)
}

// PointerUp ends the current gesture.
func (e *Engine) PointerUp(ctx context.Context, p Pointer) error {
	pt := e.toCanvas(p)
	switch e.state.Mode {
	case ModePressing:
		e.state = State{Mode: ModeNone}
		if e.selection.Clear() {
			return e.publish(ctx)
		}
	case ModeSelectionNet:
		e.state = State{Mode: ModeNone}
	case ModeTranslating, ModeResizing:
		e.history.Resume()
		e.state = State{Mode: ModeNone}
	case ModeInserting:
		t := e.state.LayerType
		e.state = State{Mode: ModeNone}
		if _, err := e.Insert(ctx, t, pt); err != nil {
			return err
		}
	case ModePencil:
		return e.commitDraft(ctx)
	}
	return nil
}

// PointerLeave clears the published cursor.
func (e *Engine) PointerLeave(ctx context.Context) error {
	e.cursor = nil
	return e.publish(ctx)
}

// LayerPointerDown starts dragging a layer. An unselected layer becomes the
// selection first. History is paused until the pointer is released.
func (e *Engine) LayerPointerDown(ctx context.Context, id string, p Pointer) error {
	if e.state.Mode == ModeInserting || e.state.Mode == ModePencil {
		return nil
	}
	if _, ok := e.doc.Layers[id]; !ok {
		e.log.Debug().Str("layer_id", id).Msg("pointer_down_missing_layer")
		return nil
	}

	changed := false
	if !e.selection.Contains(id) {
		changed = e.selection.Set(id)
	}
	e.history.Pause()
	e.state = State{Mode: ModeTranslating, Current: e.toCanvas(p)}
	if changed {
		return e.publish(ctx)
	}
	return nil
}

// ResizeHandlePointerDown starts a resize of the single selected layer.
func (e *Engine) ResizeHandlePointerDown(corner geometry.Side, initial geometry.Rect) error {
	if err := corner.Validate(); err != nil {
		return err
	}
	if e.selection.Len() != 1 {
		return nil
	}
	e.history.Pause()
	e.state = State{Mode: ModeResizing, InitialBounds: initial, Corner: corner}
	return nil
}

// SelectTool switches tools from any state. A gesture in progress is ended.
func (e *Engine) SelectTool(ctx context.Context, tool Tool) error {
	e.endGesture()
	hadDraft := len(e.draft) > 0
	e.draft = nil

	switch tool.Kind {
	case ToolInsert:
		if _, ok := DefaultSizes[tool.LayerType]; !ok {
			return fmt.Errorf("cannot insert layer of type %q", tool.LayerType)
		}
		e.state = State{Mode: ModeInserting, LayerType: tool.LayerType}
	case ToolPencil:
		e.state = State{Mode: ModePencil}
	default:
		e.state = State{Mode: ModeNone}
	}
	if hadDraft {
		return e.publish(ctx)
	}
	return nil
}

// KeyDown handles keyboard shortcuts. They apply in every mode.
func (e *Engine) KeyDown(ctx context.Context, k Key) error {
	mod := k.Ctrl || k.Meta
	switch {
	case k.Name == "Backspace" || k.Name == "Delete":
		return e.DeleteSelection(ctx)
	case mod && (k.Name == "z" || k.Name == "Z") && k.Shift:
		return e.Redo(ctx)
	case mod && (k.Name == "z" || k.Name == "Z"):
		return e.Undo(ctx)
	case mod && (k.Name == "y" || k.Name == "Y"):
		return e.Redo(ctx)
	}
	return nil
}

func (e *Engine) updateSelectionNet() {
	net := geometry.RectFromPoints(e.state.Origin, e.state.Current)
	var ids []string
	for _, entry := range e.doc.Entries() {
		if entry.Layer.Geom().Bounds().Intersects(net) {
			ids = append(ids, entry.ID)
		}
	}
	e.selection.Set(ids...)
}

// endGesture finishes a translate or resize in progress so its history
// bracket closes as one step.
func (e *Engine) endGesture() {
	if e.state.Mode == ModeTranslating || e.state.Mode == ModeResizing {
		e.history.Resume()
		e.state = State{Mode: ModeNone}
	}
}

// Undo reverts the newest local step. A drag in progress is ended first.
func (e *Engine) Undo(ctx context.Context) error {
	e.endGesture()
	cs, err := e.history.Undo(ctx, e.store)
	if err != nil {
		return err
	}
	if cs == nil {
		return nil
	}
	return e.absorb(ctx, cs)
}

// Redo reapplies the most recently undone step. A drag in progress is ended
// first.
func (e *Engine) Redo(ctx context.Context) error {
	e.endGesture()
	cs, err := e.history.Redo(ctx, e.store)
	if err != nil {
		return err
	}
	if cs == nil {
		return nil
	}
	return e.absorb(ctx, cs)
}

func isLimit(err error) bool {
	return errors.Is(err, board.ErrLayerLimit)
}

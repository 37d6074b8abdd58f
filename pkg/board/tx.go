package board

import (
	"fmt"
	"strconv"

	"github.com/dyluth/ideaboard/pkg/geometry"
)

// Tx is the handle a Mutate callback receives. Reads see the transaction's own
// writes. Every write is recorded as an Op; the store applies the ops as one
// unit once the callback returns nil.
type Tx struct {
	doc       *Document
	maxLayers int
	ops       []Op
}

func newTx(doc *Document, maxLayers int) *Tx {
	if maxLayers <= 0 || maxLayers > MaxLayers {
		maxLayers = MaxLayers
	}
	return &Tx{doc: doc.Clone(), maxLayers: maxLayers}
}

// Layer decodes the layer with the given id.
func (tx *Tx) Layer(id string) (Layer, bool) {
	return tx.doc.Lookup(id)
}

// Fields returns a copy of the raw hash of a layer.
func (tx *Tx) Fields(id string) (Fields, bool) {
	f, ok := tx.doc.Layers[id]
	return f.Clone(), ok
}

// Has reports whether a layer exists.
func (tx *Tx) Has(id string) bool {
	_, ok := tx.doc.Layers[id]
	return ok
}

// LayerIDs returns the z-ordered id list.
func (tx *Tx) LayerIDs() []string {
	return append([]string{}, tx.doc.Order...)
}

// LayerCount returns the number of layers.
func (tx *Tx) LayerCount() int {
	return len(tx.doc.Order)
}

// MaxLayers returns the ceiling this transaction enforces.
func (tx *Tx) MaxLayers() int {
	return tx.maxLayers
}

// Entries returns the decodable layers in paint order.
func (tx *Tx) Entries() []Entry {
	return tx.doc.Entries()
}

// InsertLayer appends a new layer on top of the z-order.
func (tx *Tx) InsertLayer(id string, l Layer) error {
	f, err := EncodeLayer(l)
	if err != nil {
		return err
	}
	return tx.insertFields(id, f, len(tx.doc.Order))
}

func (tx *Tx) insertFields(id string, f Fields, index int) error {
	if id == "" {
		return fmt.Errorf("layer id cannot be empty")
	}
	if _, exists := tx.doc.Layers[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateLayer, id)
	}
	if len(tx.doc.Order) >= tx.maxLayers {
		return ErrLayerLimit
	}
	if index < 0 || index > len(tx.doc.Order) {
		index = len(tx.doc.Order)
	}

	tx.doc.Layers[id] = f.Clone()
	tx.doc.Order = insertAt(tx.doc.Order, id, index)
	tx.ops = append(tx.ops, Op{Kind: OpInsert, ID: id, Index: index, After: f.Clone()})
	return nil
}

// UpdateLayer merges patch into an existing layer, writing only keys whose
// value changes. It reports false when the layer does not exist.
func (tx *Tx) UpdateLayer(id string, patch Fields) (bool, error) {
	current, ok := tx.doc.Layers[id]
	if !ok {
		return false, nil
	}
	if t, retag := patch["type"]; retag && t != current["type"] {
		return false, fmt.Errorf("%w: %s -> %s", ErrTypeChange, current["type"], t)
	}

	before, after := Fields{}, Fields{}
	for k, v := range patch {
		old, had := current[k]
		if had && old == v {
			continue
		}
		if had {
			before[k] = old
		}
		after[k] = v
		current[k] = v
	}
	if len(after) > 0 {
		tx.ops = append(tx.ops, Op{Kind: OpUpdate, ID: id, Before: before, After: after})
	}
	return true, nil
}

// PutLayer replaces a layer with l, which must be of the same variant.
func (tx *Tx) PutLayer(id string, l Layer) (bool, error) {
	f, err := EncodeLayer(l)
	if err != nil {
		return false, err
	}
	return tx.UpdateLayer(id, f)
}

// DeleteLayer removes a layer from the map and the z-order.
func (tx *Tx) DeleteLayer(id string) bool {
	f, ok := tx.doc.Layers[id]
	if !ok {
		return false
	}
	index := indexOf(tx.doc.Order, id)
	delete(tx.doc.Layers, id)
	tx.doc.Order = removeID(tx.doc.Order, id)
	tx.ops = append(tx.ops, Op{Kind: OpDelete, ID: id, Index: index, Before: f})
	return true
}

// MoveLayer moves a layer to position to in the z-order. Out of range targets
// are clamped.
func (tx *Tx) MoveLayer(id string, to int) bool {
	from := indexOf(tx.doc.Order, id)
	if from < 0 {
		return false
	}
	if to < 0 {
		to = 0
	}
	if to > len(tx.doc.Order)-1 {
		to = len(tx.doc.Order) - 1
	}
	if from == to {
		return true
	}
	tx.doc.Order = moveID(tx.doc.Order, id, to)
	tx.ops = append(tx.ops, Op{Kind: OpMove, ID: id, Index: from, To: to})
	return true
}

// Meta returns a room meta value.
func (tx *Tx) Meta(key string) string {
	return tx.doc.Meta[key]
}

// HasMeta reports whether a meta key is set.
func (tx *Tx) HasMeta(key string) bool {
	_, ok := tx.doc.Meta[key]
	return ok
}

// SetMeta writes meta values, recording only the changed keys.
func (tx *Tx) SetMeta(values Fields) {
	before, after := Fields{}, Fields{}
	for k, v := range values {
		old, had := tx.doc.Meta[k]
		if had && old == v {
			continue
		}
		if had {
			before[k] = old
		}
		after[k] = v
		tx.doc.Meta[k] = v
	}
	if len(after) > 0 {
		tx.ops = append(tx.ops, Op{Kind: OpMeta, Before: before, After: after})
	}
}

// Camera returns the camera offset.
func (tx *Tx) Camera() geometry.Camera {
	return tx.doc.Camera()
}

// Stage returns the workshop stage index.
func (tx *Tx) Stage() int {
	return tx.doc.Stage()
}

// SetStage switches the stage and pans the camera in one write.
func (tx *Tx) SetStage(stage int, camera geometry.Camera) {
	tx.SetMeta(Fields{
		MetaStage:   strconv.Itoa(stage),
		MetaCameraX: formatFloat(camera.X),
		MetaCameraY: formatFloat(camera.Y),
	})
}

// Revert undoes cs against the current state, newest op first. A field is only
// restored while it still holds the value cs wrote, so later edits by other
// connections survive.
func (tx *Tx) Revert(cs *ChangeSet) {
	if cs == nil {
		return
	}
	for i := len(cs.Ops) - 1; i >= 0; i-- {
		op := cs.Ops[i]
		switch op.Kind {
		case OpInsert:
			tx.DeleteLayer(op.ID)
		case OpDelete:
			if !tx.Has(op.ID) && tx.LayerCount() < tx.maxLayers {
				_ = tx.insertFields(op.ID, op.Before, op.Index)
			}
		case OpUpdate:
			if f, ok := tx.doc.Layers[op.ID]; ok {
				tx.conditionalUpdate(op.ID, f, op.After, op.Before)
			}
		case OpMove:
			tx.MoveLayer(op.ID, op.Index)
		case OpMeta:
			tx.conditionalMeta(op.After, op.Before)
		}
	}
}

// conditionalUpdate moves every key from its expected value to target, but
// only for keys that still hold the expected value.
func (tx *Tx) conditionalUpdate(id string, current, expected, target Fields) {
	before, after := conditionalDiff(current, expected, target)
	if len(before)+len(after) == 0 {
		return
	}
	applyDiff(current, before, after)
	tx.ops = append(tx.ops, Op{Kind: OpUpdate, ID: id, Before: before, After: after})
}

func (tx *Tx) conditionalMeta(expected, target Fields) {
	before, after := conditionalDiff(tx.doc.Meta, expected, target)
	if len(before)+len(after) == 0 {
		return
	}
	applyDiff(tx.doc.Meta, before, after)
	tx.ops = append(tx.ops, Op{Kind: OpMeta, Before: before, After: after})
}

// conditionalDiff returns the before/after pair that turns current into
// target for the keys still matching expected.
func conditionalDiff(current, expected, target Fields) (Fields, Fields) {
	keys := map[string]struct{}{}
	for k := range expected {
		keys[k] = struct{}{}
	}
	for k := range target {
		keys[k] = struct{}{}
	}

	before, after := Fields{}, Fields{}
	for k := range keys {
		cur, has := current[k]
		want, expectHas := expected[k]
		if has != expectHas || cur != want {
			continue
		}
		next, keep := target[k]
		if has == keep && cur == next {
			continue
		}
		if has {
			before[k] = cur
		}
		// A key in before but not in after is a removal.
		if keep {
			after[k] = next
		}
	}
	return before, after
}

func (tx *Tx) changeSet(origin string) *ChangeSet {
	return &ChangeSet{Origin: origin, Ops: tx.ops}
}

package board

import (
	"errors"
	"strconv"

	"github.com/dyluth/ideaboard/pkg/geometry"
)

var (
	// ErrLayerLimit is returned by Tx.InsertLayer when the room already holds
	// the maximum number of layers.
	ErrLayerLimit = errors.New("layer limit reached")

	// ErrDuplicateLayer is returned when inserting an id that already exists.
	ErrDuplicateLayer = errors.New("layer id already exists")

	// ErrTypeChange is returned when an update would retag a layer.
	ErrTypeChange = errors.New("layer type is immutable")

	// ErrTxConflict is returned when an optimistic transaction kept losing
	// the race against concurrent writers.
	ErrTxConflict = errors.New("transaction conflict: too many concurrent writers")
)

// Room meta keys.
const (
	MetaCreatedAt = "created_at_ms"
	MetaTime      = "time"
	MetaProcess   = "process"
	MetaHost      = "host"
	MetaVotes     = "votes"
	MetaGroupCall = "group_call"
	MetaStage     = "stage"
	MetaCameraX   = "camera_x"
	MetaCameraY   = "camera_y"
)

// Document is a point-in-time copy of a room: the z-ordered id list, the layer
// hashes and the room meta record.
type Document struct {
	Order   []string          `json:"order"`
	Layers  map[string]Fields `json:"layers"`
	Meta    Fields            `json:"meta"`
	Version int64             `json:"version"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Order:  []string{},
		Layers: map[string]Fields{},
		Meta:   Fields{},
	}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	out := &Document{
		Order:   append([]string{}, d.Order...),
		Layers:  make(map[string]Fields, len(d.Layers)),
		Meta:    d.Meta.Clone(),
		Version: d.Version,
	}
	if out.Meta == nil {
		out.Meta = Fields{}
	}
	for id, f := range d.Layers {
		out.Layers[id] = f.Clone()
	}
	return out
}

// Lookup decodes the layer with the given id. Missing or undecodable layers
// report false.
func (d *Document) Lookup(id string) (Layer, bool) {
	f, ok := d.Layers[id]
	if !ok {
		return nil, false
	}
	l, err := DecodeLayer(f)
	if err != nil {
		return nil, false
	}
	return l, true
}

// Entry pairs a layer with its id.
type Entry struct {
	ID    string
	Layer Layer
}

// Entries returns the decodable layers in paint order.
func (d *Document) Entries() []Entry {
	entries := make([]Entry, 0, len(d.Order))
	for _, id := range d.Order {
		if l, ok := d.Lookup(id); ok {
			entries = append(entries, Entry{ID: id, Layer: l})
		}
	}
	return entries
}

// Camera returns the camera offset stored in meta.
func (d *Document) Camera() geometry.Camera {
	x, _ := strconv.ParseFloat(d.Meta[MetaCameraX], 64)
	y, _ := strconv.ParseFloat(d.Meta[MetaCameraY], 64)
	return geometry.Camera{X: x, Y: y}
}

// Stage returns the current workshop stage index.
func (d *Document) Stage() int {
	n, _ := strconv.Atoi(d.Meta[MetaStage])
	return n
}

// Apply replays a change set onto d unconditionally. Change sets at or below
// the document's version are ignored, so a cache can apply every event it
// receives after taking a snapshot.
func (d *Document) Apply(cs *ChangeSet) {
	if cs == nil || (cs.Version != 0 && cs.Version <= d.Version) {
		return
	}
	for _, op := range cs.Ops {
		switch op.Kind {
		case OpInsert:
			if _, exists := d.Layers[op.ID]; !exists {
				d.Layers[op.ID] = op.After.Clone()
				d.Order = insertAt(d.Order, op.ID, op.Index)
			}
		case OpUpdate:
			if f, ok := d.Layers[op.ID]; ok {
				applyDiff(f, op.Before, op.After)
			}
		case OpDelete:
			delete(d.Layers, op.ID)
			d.Order = removeID(d.Order, op.ID)
		case OpMove:
			d.Order = moveID(d.Order, op.ID, op.To)
		case OpMeta:
			applyDiff(d.Meta, op.Before, op.After)
		}
	}
	if cs.Version != 0 {
		d.Version = cs.Version
	}
}

// OpKind names one primitive document change.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
	OpMove   OpKind = "move"
	OpMeta   OpKind = "meta"
)

// Op is one primitive change. For updates and meta changes Before and After
// hold only the touched keys; a key missing from After was removed. Inserts
// carry the full hash in After and deletes in Before.
type Op struct {
	Kind   OpKind `json:"kind"`
	ID     string `json:"id,omitempty"`
	Index  int    `json:"index,omitempty"`
	To     int    `json:"to,omitempty"`
	Before Fields `json:"before,omitempty"`
	After  Fields `json:"after,omitempty"`
}

// ChangeSet is the ordered list of ops one transaction applied.
type ChangeSet struct {
	Origin  string `json:"origin"`
	Version int64  `json:"version"`
	Ops     []Op   `json:"ops"`
}

// Empty reports whether the change set changed nothing.
func (cs *ChangeSet) Empty() bool {
	return cs == nil || len(cs.Ops) == 0
}

// Touched returns the ids of layers the change set inserted, updated or moved.
func (cs *ChangeSet) Touched() []string {
	return cs.ids(OpInsert, OpUpdate, OpMove)
}

// Deleted returns the ids of layers the change set removed.
func (cs *ChangeSet) Deleted() []string {
	return cs.ids(OpDelete)
}

func (cs *ChangeSet) ids(kinds ...OpKind) []string {
	if cs == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, op := range cs.Ops {
		for _, k := range kinds {
			if op.Kind == k && op.ID != "" && !seen[op.ID] {
				seen[op.ID] = true
				out = append(out, op.ID)
			}
		}
	}
	return out
}

func applyDiff(target, before, after Fields) {
	for k := range before {
		if _, ok := after[k]; !ok {
			delete(target, k)
		}
	}
	for k, v := range after {
		target[k] = v
	}
}

func insertAt(order []string, id string, index int) []string {
	if index < 0 || index > len(order) {
		index = len(order)
	}
	order = append(order, "")
	copy(order[index+1:], order[index:])
	order[index] = id
	return order
}

func removeID(order []string, id string) []string {
	for i, existing := range order {
		if existing == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func indexOf(order []string, id string) int {
	for i, existing := range order {
		if existing == id {
			return i
		}
	}
	return -1
}

func moveID(order []string, id string, to int) []string {
	if indexOf(order, id) < 0 {
		return order
	}
	order = removeID(order, id)
	return insertAt(order, id, to)
}

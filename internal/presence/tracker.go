// Package presence tracks the other connections of a room and derives what a
// client draws for them: cursors, selection tints and in-progress pencil
// drafts.
package presence

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// Palette holds the peer colors. A connection always maps to the same entry.
var Palette = []board.Color{
	{R: 0xDC, G: 0x26, B: 0x26},
	{R: 0xD9, G: 0x77, B: 0x06},
	{R: 0x05, G: 0x96, B: 0x69},
	{R: 0x7C, G: 0x3A, B: 0xED},
	{R: 0xDB, G: 0x27, B: 0x77},
	{R: 0x25, G: 0x63, B: 0xEB},
	{R: 0x08, G: 0x91, B: 0xB2},
	{R: 0x65, G: 0xA3, B: 0x0D},
}

// ColorFor returns the palette color of a connection.
func ColorFor(connectionID string) board.Color {
	h := fnv.New32a()
	h.Write([]byte(connectionID))
	return Palette[h.Sum32()%uint32(len(Palette))]
}

// Cursor is a remote pointer position.
type Cursor struct {
	ConnectionID string
	Name         string
	Color        board.Color
	Point        geometry.Point
}

// Draft is a remote in-progress pencil stroke.
type Draft struct {
	ConnectionID string
	Color        board.Color
	Points       []board.PathPoint
}

// Tracker keeps the presence of every other connection in a room. It is safe
// for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	self   string
	others map[string]board.Presence
}

// NewTracker creates a tracker that ignores the connection self.
func NewTracker(self string) *Tracker {
	return &Tracker{self: self, others: map[string]board.Presence{}}
}

// Reset replaces the tracked state with a full listing from Store.Others. It
// returns the sorted ids of connections that were tracked but are no longer
// listed.
func (t *Tracker) Reset(others []board.Other) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := make(map[string]board.Presence, len(others))
	for _, o := range others {
		if o.ConnectionID == t.self {
			continue
		}
		next[o.ConnectionID] = o.Presence.Clone()
	}
	var left []string
	for id := range t.others {
		if _, ok := next[id]; !ok {
			left = append(left, id)
		}
	}
	sort.Strings(left)
	t.others = next
	return left
}

// Apply folds a presence event into the tracked state. A nil presence
// removes the connection. It reports whether anything changed.
func (t *Tracker) Apply(ev board.PresenceEvent) bool {
	if ev.ConnectionID == "" || ev.ConnectionID == t.self {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if ev.Presence == nil {
		if _, ok := t.others[ev.ConnectionID]; !ok {
			return false
		}
		delete(t.others, ev.ConnectionID)
		return true
	}
	t.others[ev.ConnectionID] = ev.Presence.Clone()
	return true
}

// Len returns the number of tracked connections.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.others)
}

// Others returns the tracked connections sorted by connection id.
func (t *Tracker) Others() []board.Other {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]board.Other, 0, len(t.others))
	for id, p := range t.others {
		out = append(out, board.Other{ConnectionID: id, Presence: p.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out
}

// Cursors returns the cursors of connections whose pointer is on the canvas.
func (t *Tracker) Cursors() []Cursor {
	var out []Cursor
	for _, o := range t.Others() {
		if o.Presence.Cursor == nil {
			continue
		}
		out = append(out, Cursor{
			ConnectionID: o.ConnectionID,
			Name:         o.Presence.Name,
			Color:        ColorFor(o.ConnectionID),
			Point:        *o.Presence.Cursor,
		})
	}
	return out
}

// SelectionTints maps each layer selected by another connection to that
// connection's color. When several peers select the same layer, the one with
// the lowest connection id wins.
func (t *Tracker) SelectionTints() map[string]board.Color {
	tints := map[string]board.Color{}
	for _, o := range t.Others() {
		for _, id := range o.Presence.Selection {
			if _, taken := tints[id]; !taken {
				tints[id] = ColorFor(o.ConnectionID)
			}
		}
	}
	return tints
}

// Drafts returns the in-progress pencil strokes of other connections. A draft
// is drawn in the peer's pen color when one is published.
func (t *Tracker) Drafts() []Draft {
	var out []Draft
	for _, o := range t.Others() {
		if len(o.Presence.PencilDraft) == 0 {
			continue
		}
		c := ColorFor(o.ConnectionID)
		if o.Presence.PenColor != nil {
			c = *o.Presence.PenColor
		}
		out = append(out, Draft{ConnectionID: o.ConnectionID, Color: c, Points: o.Presence.PencilDraft})
	}
	return out
}

// Prune drops ids from every tracked selection. It is called when layers are
// deleted so tints of removed layers disappear before the peer republishes.
func (t *Tracker) Prune(deleted []string) {
	if len(deleted) == 0 {
		return
	}
	gone := make(map[string]bool, len(deleted))
	for _, id := range deleted {
		gone[id] = true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for conn, p := range t.others {
		kept := p.Selection[:0:0]
		for _, id := range p.Selection {
			if !gone[id] {
				kept = append(kept, id)
			}
		}
		p.Selection = kept
		t.others[conn] = p
	}
}

package canvas

import (
	"fmt"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// Mode is the interaction state of one client's canvas.
type Mode int

const (
	ModeNone Mode = iota
	ModePressing
	ModeSelectionNet
	ModeTranslating
	ModeResizing
	ModeInserting
	ModePencil
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModePressing:
		return "pressing"
	case ModeSelectionNet:
		return "selection_net"
	case ModeTranslating:
		return "translating"
	case ModeResizing:
		return "resizing"
	case ModeInserting:
		return "inserting"
	case ModePencil:
		return "pencil"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is the current mode plus the data that mode carries. Fields not used
// by the mode are zero.
type State struct {
	Mode Mode

	// Origin is where the pointer went down (Pressing, SelectionNet).
	Origin geometry.Point
	// Current is the last pointer position (SelectionNet, Translating).
	Current geometry.Point

	// InitialBounds and Corner describe an active resize.
	InitialBounds geometry.Rect
	Corner        geometry.Side

	// LayerType is the kind being placed (Inserting).
	LayerType board.LayerType
}

// ToolKind is a toolbar choice.
type ToolKind int

const (
	ToolSelect ToolKind = iota
	ToolInsert
	ToolPencil
)

// Tool selects what the next pointer gesture does.
type Tool struct {
	Kind      ToolKind
	LayerType board.LayerType
}

// Pointer is a pointer sample in screen space.
type Pointer struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure,omitempty"`
	// Pressed is true while the primary button is held.
	Pressed bool `json:"pressed,omitempty"`
}

func (p Pointer) screen() geometry.Point {
	return geometry.Point{X: p.X, Y: p.Y}
}

// Key is a key press with its modifiers.
type Key struct {
	Name  string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`
}

// Selection is the ordered set of locally selected layer ids.
type Selection struct {
	ids []string
}

// IDs returns a copy of the selected ids.
func (s *Selection) IDs() []string {
	return append([]string{}, s.ids...)
}

// Len returns how many layers are selected.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Set replaces the selection. It reports whether the selection changed.
func (s *Selection) Set(ids ...string) bool {
	next := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			next = append(next, id)
		}
	}
	if equalIDs(s.ids, next) {
		return false
	}
	s.ids = next
	return true
}

// Clear empties the selection.
func (s *Selection) Clear() bool {
	return s.Set()
}

// Remove drops ids from the selection.
func (s *Selection) Remove(ids ...string) bool {
	if len(ids) == 0 || len(s.ids) == 0 {
		return false
	}
	gone := map[string]bool{}
	for _, id := range ids {
		gone[id] = true
	}
	kept := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		if !gone[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(s.ids) {
		return false
	}
	s.ids = kept
	return true
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

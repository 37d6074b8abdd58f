// Package layers lists and inspects the layers of a room for the CLI.
package layers

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// OutputFormat specifies how to format the layer list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with one-line summaries
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete layers as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria narrows a listing. All filters are ANDed together.
type FilterCriteria struct {
	TypeGlob string         // Glob pattern for the layer type, empty = no filter
	Within   *geometry.Rect // Only layers intersecting this canvas rect, nil = no filter
}

func (fc *FilterCriteria) matches(l board.Layer) bool {
	if fc.TypeGlob != "" {
		matched, err := filepath.Match(fc.TypeGlob, string(l.Type()))
		if err != nil || !matched {
			return false
		}
	}
	if fc.Within != nil && !fc.Within.Intersects(l.Geom().Bounds()) {
		return false
	}
	return true
}

// Filter returns the entries that match fc, keeping z-order.
func Filter(entries []board.Entry, fc *FilterCriteria) []board.Entry {
	if fc == nil {
		return entries
	}
	out := make([]board.Entry, 0, len(entries))
	for _, e := range entries {
		if fc.matches(e.Layer) {
			out = append(out, e)
		}
	}
	return out
}

// List snapshots the room and writes its layers back-to-front.
func List(ctx context.Context, store board.Store, room string, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	doc, err := store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}

	if filters != nil && filters.TypeGlob != "" {
		if _, err := filepath.Match(filters.TypeGlob, ""); err != nil {
			return fmt.Errorf("invalid type pattern %q: %w", filters.TypeGlob, err)
		}
	}
	entries := Filter(doc.Entries(), filters)

	switch format {
	case OutputFormatDefault:
		FormatTable(w, entries, room)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, entries); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}

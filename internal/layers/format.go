package layers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dyluth/ideaboard/internal/widgets"
	"github.com/dyluth/ideaboard/pkg/board"
)

// Record is the JSON shape of one listed layer.
type Record struct {
	ID    string          `json:"id"`
	Type  board.LayerType `json:"type"`
	Index int             `json:"index"`
	Layer board.Layer     `json:"layer"`
}

// FormatTable writes layers as a formatted table in z-order.
// Returns the number of layers formatted.
func FormatTable(w io.Writer, entries []board.Entry, room string) int {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No layers found in room '%s'\n", room)
		return 0
	}

	fmt.Fprintf(w, "Layers in room '%s':\n\n", room)

	fmt.Fprintf(w, "%-10s %-10s %-22s %-8s %s\n",
		"ID", "TYPE", "BOUNDS", "FILL", "SUMMARY")
	fmt.Fprintf(w, "%-10s %-10s %-22s %-8s %s\n",
		"----------", "----------", "----------------------", "--------", "----------------------------------------")

	for _, e := range entries {
		g := e.Layer.Geom()
		fmt.Fprintf(w, "%-10s %-10s %-22s %-8s %s\n",
			formatID(e.ID),
			formatType(e.Layer.Type()),
			formatBounds(g),
			g.Fill.String(),
			widgets.Summary(e.Layer),
		)
	}

	noun := "layer"
	if len(entries) != 1 {
		noun = "layers"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(entries), noun)

	return len(entries)
}

// FormatJSONL writes one Record per line.
func FormatJSONL(w io.Writer, entries []board.Entry) error {
	for i, e := range entries {
		data, err := json.Marshal(Record{ID: e.ID, Type: e.Layer.Type(), Index: i, Layer: e.Layer})
		if err != nil {
			return fmt.Errorf("failed to marshal layer to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one layer as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, r Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layer to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatID truncates ids to their first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatType shortens the longer widget names.
func formatType(t board.LayerType) string {
	switch t {
	case board.LayerTopicVote:
		return "vote"
	case board.LayerSolvingProblem:
		return "problem"
	case board.LayerUserStory:
		return "story"
	case board.LayerDiscussion:
		return "discuss"
	}
	return string(t)
}

func formatBounds(g board.Geometry) string {
	return fmt.Sprintf("%g,%g %gx%g", g.X, g.Y, g.Width, g.Height)
}

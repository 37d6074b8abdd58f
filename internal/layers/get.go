package layers

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/dyluth/ideaboard/internal/resolver"
	"github.com/dyluth/ideaboard/pkg/board"
)

// Get resolves a full or short layer id and writes the layer as JSON.
func Get(ctx context.Context, store board.Store, id string, w io.Writer) error {
	doc, err := store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}

	fullID, err := resolver.ResolveLayerID(doc, id)
	if err != nil {
		if resolver.IsNotFoundError(err) {
			return &LayerNotFoundError{LayerID: id}
		}
		return err
	}

	l, ok := doc.Lookup(fullID)
	if !ok {
		return fmt.Errorf("layer %s could not be decoded", fullID)
	}

	r := Record{ID: fullID, Type: l.Type(), Index: slices.Index(doc.Order, fullID), Layer: l}
	if err := FormatSingleJSON(w, r); err != nil {
		return fmt.Errorf("failed to format layer: %w", err)
	}
	return nil
}

// LayerNotFoundError represents a specific "layer not found" error.
type LayerNotFoundError struct {
	LayerID string
}

func (e *LayerNotFoundError) Error() string {
	return fmt.Sprintf("layer with ID '%s' not found", e.LayerID)
}

// IsNotFound returns true if the error is a LayerNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*LayerNotFoundError)
	return ok
}

package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/google/uuid"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 4

// ResolveLayerID resolves a short layer id prefix against a document.
// Full UUIDs and exact ids are returned as-is when the layer exists.
func ResolveLayerID(doc *board.Document, shortID string) (string, error) {
	if _, ok := doc.Layers[shortID]; ok {
		return shortID, nil
	}
	if _, err := uuid.Parse(shortID); err == nil {
		return "", &NotFoundError{ShortID: shortID}
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	var matches []string
	for id := range doc.Layers {
		if strings.HasPrefix(id, shortID) {
			matches = append(matches, id)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no layer matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no layers found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple layers matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d layers", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists up to 10 matching ids for the user.
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous short ID '%s' matches %d layers:\n", err.ShortID, len(err.Matches))

	shown := min(len(err.Matches), 10)
	for _, id := range err.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(err.Matches) > shown {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-shown)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the layer.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}

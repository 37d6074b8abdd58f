// Package watch streams room activity for the CLI.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/ideaboard/pkg/board"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	// OutputFormatDefault is human-readable output with timestamps and emojis
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON is line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatDefault, OutputFormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

type formatter interface {
	FormatChange(cs *board.ChangeSet) error
	FormatPresence(connectionID string, p *board.Presence, joined bool) error
	FormatRoom(ev *board.RoomEvent) error
}

func newFormatter(format OutputFormat, w io.Writer, now func() time.Time) (formatter, error) {
	switch format {
	case OutputFormatDefault:
		return &defaultFormatter{writer: w, now: now}, nil
	case OutputFormatJSON:
		return &jsonFormatter{writer: w, now: now}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// StreamActivity writes every document change, peer join or leave and room
// event until ctx is cancelled. Cursor and selection moves are not reported.
func StreamActivity(ctx context.Context, store board.Store, format OutputFormat, w io.Writer) error {
	return stream(ctx, store, format, w, time.Now)
}

func stream(ctx context.Context, store board.Store, format OutputFormat, w io.Writer, now func() time.Time) error {
	f, err := newFormatter(format, w, now)
	if err != nil {
		return err
	}

	sub, err := store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to room: %w", err)
	}
	defer sub.Close()

	others, err := store.Others(ctx)
	if err != nil {
		return fmt.Errorf("failed to load presence: %w", err)
	}
	seen := map[string]bool{}
	for _, o := range others {
		seen[o.ConnectionID] = true
	}

	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(w, "subscription error: %v\n", err)

		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := formatEvent(f, ev, seen); err != nil {
				return err
			}
		}
	}
}

func formatEvent(f formatter, ev board.Event, seen map[string]bool) error {
	switch ev.Kind {
	case board.EventStorage:
		if ev.Change.Empty() {
			return nil
		}
		return f.FormatChange(ev.Change)
	case board.EventPresence:
		if ev.Presence == nil {
			return nil
		}
		id := ev.Presence.ConnectionID
		switch {
		case ev.Presence.Presence == nil && seen[id]:
			delete(seen, id)
			return f.FormatPresence(id, nil, false)
		case ev.Presence.Presence != nil && !seen[id]:
			seen[id] = true
			return f.FormatPresence(id, ev.Presence.Presence, true)
		}
	case board.EventRoom:
		if ev.Room != nil {
			return f.FormatRoom(ev.Room)
		}
	}
	return nil
}

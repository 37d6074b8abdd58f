package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/ideaboard/pkg/board"
)

type defaultFormatter struct {
	writer io.Writer
	now    func() time.Time
}

func (f *defaultFormatter) line(format string, a ...any) error {
	_, err := fmt.Fprintf(f.writer, "[%s] %s\n", f.now().Format("15:04:05"), fmt.Sprintf(format, a...))
	return err
}

func (f *defaultFormatter) FormatChange(cs *board.ChangeSet) error {
	by := shortID(cs.Origin)
	for _, op := range cs.Ops {
		var err error
		switch op.Kind {
		case board.OpInsert:
			err = f.line("✨ Layer inserted type=%s id=%s by=%s", op.After["type"], shortID(op.ID), by)
		case board.OpUpdate:
			err = f.line("✏️  Layer updated id=%s fields=%s by=%s", shortID(op.ID), keys(op.After, op.Before), by)
		case board.OpDelete:
			err = f.line("🗑️  Layer deleted type=%s id=%s by=%s", op.Before["type"], shortID(op.ID), by)
		case board.OpMove:
			err = f.line("↕️  Layer moved id=%s from=%d to=%d by=%s", shortID(op.ID), op.Index, op.To, by)
		case board.OpMeta:
			if stage, ok := op.After[board.MetaStage]; ok {
				err = f.line("🎬 Stage changed stage=%s by=%s", stage, by)
			} else {
				err = f.line("📝 Room updated keys=%s by=%s", keys(op.After, op.Before), by)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *defaultFormatter) FormatPresence(connectionID string, p *board.Presence, joined bool) error {
	if !joined {
		return f.line("👋 Peer left conn=%s", shortID(connectionID))
	}
	name := p.Name
	if name == "" {
		name = "-"
	}
	return f.line("🙋 Peer joined conn=%s name=%s", shortID(connectionID), name)
}

func (f *defaultFormatter) FormatRoom(ev *board.RoomEvent) error {
	by := shortID(ev.Origin)
	switch ev.Type {
	case board.RoomEventStartTimer:
		return f.line("⏱️  Timer started time=%ds by=%s", ev.Time, by)
	case board.RoomEventStopTimer:
		return f.line("⏹️  Timer stopped by=%s", by)
	case board.RoomEventPlay:
		return f.line("🔔 Sound played sound=%s by=%s", ev.SoundID, by)
	default:
		return f.line("📣 Room event type=%s by=%s", ev.Type, by)
	}
}

type jsonFormatter struct {
	writer io.Writer
	now    func() time.Time
}

func (f *jsonFormatter) emit(event string, fields map[string]any) error {
	fields["event"] = event
	fields["timestamp_ms"] = f.now().UnixMilli()
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", data)
	return err
}

func (f *jsonFormatter) FormatChange(cs *board.ChangeSet) error {
	for _, op := range cs.Ops {
		fields := map[string]any{
			"origin":  cs.Origin,
			"version": cs.Version,
		}
		if op.ID != "" {
			fields["id"] = op.ID
		}
		var event string
		switch op.Kind {
		case board.OpInsert:
			event = "layer_inserted"
			fields["layer"] = op.After
			fields["index"] = op.Index
		case board.OpUpdate:
			event = "layer_updated"
			fields["before"] = op.Before
			fields["after"] = op.After
		case board.OpDelete:
			event = "layer_deleted"
			fields["layer"] = op.Before
		case board.OpMove:
			event = "layer_moved"
			fields["from"] = op.Index
			fields["to"] = op.To
		case board.OpMeta:
			event = "room_updated"
			fields["before"] = op.Before
			fields["after"] = op.After
		default:
			continue
		}
		if err := f.emit(event, fields); err != nil {
			return err
		}
	}
	return nil
}

func (f *jsonFormatter) FormatPresence(connectionID string, p *board.Presence, joined bool) error {
	if !joined {
		return f.emit("peer_left", map[string]any{"connection_id": connectionID})
	}
	return f.emit("peer_joined", map[string]any{
		"connection_id": connectionID,
		"name":          p.Name,
		"user_id":       p.UserID,
	})
}

func (f *jsonFormatter) FormatRoom(ev *board.RoomEvent) error {
	fields := map[string]any{"type": ev.Type, "origin": ev.Origin}
	if ev.SoundID != "" {
		fields["sound_id"] = ev.SoundID
	}
	if ev.Time != 0 {
		fields["time"] = ev.Time
	}
	return f.emit("room_event", fields)
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// keys lists the field names touched by an update, sorted.
func keys(after, before board.Fields) string {
	set := map[string]bool{}
	for k := range after {
		set[k] = true
	}
	for k := range before {
		set[k] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store is one connection's handle on a shared room. Implementations are safe
// for concurrent use.
type Store interface {
	// ConnectionID identifies this connection in presence and change origins.
	ConnectionID() string

	// Snapshot returns a copy of the current document.
	Snapshot(ctx context.Context) (*Document, error)

	// Mutate runs fn against the current document and applies everything it
	// wrote as one unit. If fn returns an error nothing is applied. The
	// returned change set is empty when fn wrote nothing.
	Mutate(ctx context.Context, fn func(tx *Tx) error) (*ChangeSet, error)

	// UpdatePresence replaces this connection's presence.
	UpdatePresence(ctx context.Context, p Presence) error

	// Others returns the presence of every other connection in the room.
	Others(ctx context.Context) ([]Other, error)

	// Broadcast sends a fire-and-forget room event to every connection.
	Broadcast(ctx context.Context, ev RoomEvent) error

	// Subscribe delivers storage, presence and room events, including the
	// ones this connection caused.
	Subscribe(ctx context.Context) (*Subscription, error)

	// Close drops this connection's presence and releases resources.
	Close() error
}

// Presence is the ephemeral per-connection state. It is never written into a
// Document.
type Presence struct {
	Cursor      *geometry.Point `json:"cursor"`
	Selection   []string        `json:"selection"`
	PencilDraft []PathPoint     `json:"pencilDraft,omitempty"`
	PenColor    *Color          `json:"penColor,omitempty"`
	Name        string          `json:"name,omitempty"`
	UserID      string          `json:"userId,omitempty"`
}

// Clone returns a deep copy of p.
func (p Presence) Clone() Presence {
	out := p
	if p.Cursor != nil {
		c := *p.Cursor
		out.Cursor = &c
	}
	if p.PenColor != nil {
		c := *p.PenColor
		out.PenColor = &c
	}
	out.Selection = append([]string(nil), p.Selection...)
	out.PencilDraft = append([]PathPoint(nil), p.PencilDraft...)
	return out
}

// Other is another connection's presence.
type Other struct {
	ConnectionID string   `json:"connectionId"`
	Presence     Presence `json:"presence"`
}

// PresenceEvent reports a presence change. Presence is nil when the
// connection left.
type PresenceEvent struct {
	ConnectionID string    `json:"connectionId"`
	Presence     *Presence `json:"presence"`
}

// RoomEventType names a cross-client signal that is not part of the document.
type RoomEventType string

const (
	RoomEventPlay       RoomEventType = "PLAY"
	RoomEventAudioPlay  RoomEventType = "AUDIO_PLAY"
	RoomEventAudioPause RoomEventType = "AUDIO_PAUSE"
	RoomEventStartTimer RoomEventType = "START_TIMER"
	RoomEventStopTimer  RoomEventType = "STOP_TIMER"
)

// Validate checks if the room event type is known.
func (t RoomEventType) Validate() error {
	switch t {
	case RoomEventPlay, RoomEventAudioPlay, RoomEventAudioPause, RoomEventStartTimer, RoomEventStopTimer:
		return nil
	default:
		return fmt.Errorf("invalid room event type: %s", t)
	}
}

// RoomEvent is a broadcast signal. SoundID is set for PLAY and Time (seconds)
// for START_TIMER.
type RoomEvent struct {
	Type    RoomEventType `json:"type"`
	SoundID string        `json:"soundId,omitempty"`
	Time    int64         `json:"time,omitempty"`
	Origin  string        `json:"origin,omitempty"`
}

// Validate checks the event type and its payload.
func (e RoomEvent) Validate() error {
	if err := e.Type.Validate(); err != nil {
		return err
	}
	if e.Type == RoomEventPlay && e.SoundID == "" {
		return fmt.Errorf("PLAY event requires soundId")
	}
	if e.Type == RoomEventStartTimer && e.Time <= 0 {
		return fmt.Errorf("START_TIMER event requires a positive time")
	}
	return nil
}

// EventKind tells which field of an Event is set.
type EventKind string

const (
	EventStorage  EventKind = "storage"
	EventPresence EventKind = "presence"
	EventRoom     EventKind = "room"
)

// Event is one notification from a Subscription.
type Event struct {
	Kind     EventKind      `json:"kind"`
	Change   *ChangeSet     `json:"change,omitempty"`
	Presence *PresenceEvent `json:"presence,omitempty"`
	Room     *RoomEvent     `json:"room,omitempty"`
}

// Subscription represents an active subscription to room events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of room events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

type settings struct {
	maxLayers    int
	presenceTTL  time.Duration
	connectionID string
	logger       zerolog.Logger
}

func defaultSettings() settings {
	return settings{
		maxLayers:   MaxLayers,
		presenceTTL: 30 * time.Second,
		logger:      zerolog.Nop(),
	}
}

// Option configures a Client or MemoryRoom.
type Option func(*settings)

// WithMaxLayers lowers the layer ceiling. Values outside 1..MaxLayers are
// ignored.
func WithMaxLayers(n int) Option {
	return func(s *settings) {
		if n > 0 && n <= MaxLayers {
			s.maxLayers = n
		}
	}
}

// WithPresenceTTL sets how long a Redis presence record survives without a
// refresh.
func WithPresenceTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.presenceTTL = d
		}
	}
}

// WithConnectionID fixes the connection id instead of generating one.
func WithConnectionID(id string) Option {
	return func(s *settings) {
		s.connectionID = id
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

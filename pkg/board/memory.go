package board

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// memoryBuffer is the per-subscriber event buffer of a MemoryRoom. Events for
// a subscriber whose buffer is full are dropped, matching Redis Pub/Sub.
const memoryBuffer = 64

// MemoryRoom is an in-process room shared by every connection created with
// Connect. It serializes mutations under a mutex and is used by tests and by
// the relay when no Redis URL is configured.
type MemoryRoom struct {
	mu       sync.Mutex
	name     string
	doc      *Document
	presence map[string]Presence
	subs     map[*memorySub]struct{}
	settings settings
	log      zerolog.Logger
}

type memorySub struct {
	events chan Event
}

// NewMemoryRoom creates an empty room.
func NewMemoryRoom(name string, opts ...Option) *MemoryRoom {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &MemoryRoom{
		name:     name,
		doc:      NewDocument(),
		presence: map[string]Presence{},
		subs:     map[*memorySub]struct{}{},
		settings: s,
		log:      s.logger.With().Str("component", "board").Str("room", name).Logger(),
	}
}

// Name returns the room name.
func (r *MemoryRoom) Name() string {
	return r.name
}

// Connect opens a connection to the room. An empty id generates one.
func (r *MemoryRoom) Connect(connectionID string) *MemoryConn {
	if connectionID == "" {
		connectionID = uuid.New().String()
	}
	return &MemoryConn{room: r, id: connectionID}
}

func (r *MemoryRoom) publish(ev Event) {
	for sub := range r.subs {
		select {
		case sub.events <- ev:
		default:
			r.log.Warn().Str("kind", string(ev.Kind)).Msg("subscriber_event_dropped")
		}
	}
}

// MemoryConn is one connection to a MemoryRoom.
type MemoryConn struct {
	room   *MemoryRoom
	id     string
	closed bool
}

var _ Store = (*MemoryConn)(nil)

// ConnectionID returns this connection's id.
func (c *MemoryConn) ConnectionID() string {
	return c.id
}

// Snapshot returns a copy of the room document.
func (c *MemoryConn) Snapshot(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.room.mu.Lock()
	defer c.room.mu.Unlock()
	return c.room.doc.Clone(), nil
}

// Mutate runs fn under the room lock and swaps in the transaction's copy.
func (c *MemoryConn) Mutate(ctx context.Context, fn func(tx *Tx) error) (*ChangeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := c.room
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := newTx(r.doc, r.settings.maxLayers)
	if err := fn(tx); err != nil {
		return nil, err
	}

	cs := tx.changeSet(c.id)
	if cs.Empty() {
		cs.Version = r.doc.Version
		return cs, nil
	}

	tx.doc.Version = r.doc.Version + 1
	cs.Version = tx.doc.Version
	r.doc = tx.doc
	r.publish(Event{Kind: EventStorage, Change: cs})
	return cs, nil
}

// UpdatePresence replaces this connection's presence.
func (c *MemoryConn) UpdatePresence(ctx context.Context, p Presence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := c.room
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection %s is closed", c.id)
	}
	r.presence[c.id] = p.Clone()
	published := p.Clone()
	r.publish(Event{Kind: EventPresence, Presence: &PresenceEvent{ConnectionID: c.id, Presence: &published}})
	return nil
}

// Others returns every other connection's presence sorted by connection id.
func (c *MemoryConn) Others(ctx context.Context) ([]Other, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := c.room
	r.mu.Lock()
	defer r.mu.Unlock()

	others := make([]Other, 0, len(r.presence))
	for id, p := range r.presence {
		if id != c.id {
			others = append(others, Other{ConnectionID: id, Presence: p.Clone()})
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].ConnectionID < others[j].ConnectionID })
	return others, nil
}

// Broadcast delivers a room event to every subscriber.
func (c *MemoryConn) Broadcast(ctx context.Context, ev RoomEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid room event: %w", err)
	}
	ev.Origin = c.id

	r := c.room
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publish(Event{Kind: EventRoom, Room: &ev})
	return nil
}

// Subscribe registers a subscriber. The subscription ends on Close or when
// ctx is cancelled.
func (c *MemoryConn) Subscribe(ctx context.Context) (*Subscription, error) {
	r := c.room
	sub := &memorySub{events: make(chan Event, memoryBuffer)}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	errorsChan := make(chan error)
	out := make(chan Event, memoryBuffer)

	go func() {
		defer close(out)
		defer close(errorsChan)
		defer func() {
			r.mu.Lock()
			delete(r.subs, sub)
			r.mu.Unlock()
		}()

		for {
			select {
			case <-subCtx.Done():
				return
			case ev := <-sub.events:
				select {
				case out <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{events: out, errors: errorsChan, cancel: cancel}, nil
}

// Close drops this connection's presence and tells the room it left.
func (c *MemoryConn) Close() error {
	r := c.room
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	delete(r.presence, c.id)
	r.publish(Event{Kind: EventPresence, Presence: &PresenceEvent{ConnectionID: c.id}})
	return nil
}

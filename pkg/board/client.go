package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxTxAttempts bounds how often Mutate re-runs its callback after losing an
// optimistic transaction.
const maxTxAttempts = 16

// Client is a Redis-backed Store for one connection to one room.
// All keys and channels are namespaced with the room name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb      *redis.Client
	room     string
	connID   string
	settings settings
	log      zerolog.Logger
}

var _ Store = (*Client)(nil)

// NewClient creates a new board client for the specified room.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - room: room name (must pass ValidateRoomName)
//   - opts: layer ceiling, presence TTL, connection id and logger
func NewClient(redisOpts *redis.Options, room string, opts ...Option) (*Client, error) {
	if err := ValidateRoomName(room); err != nil {
		return nil, err
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.connectionID == "" {
		s.connectionID = uuid.New().String()
	}

	return &Client{
		rdb:      redis.NewClient(redisOpts),
		room:     room,
		connID:   s.connectionID,
		settings: s,
		log:      s.logger.With().Str("component", "board").Str("room", room).Str("connection", s.connectionID).Logger(),
	}, nil
}

// Room returns the room this client is bound to.
func (c *Client) Room() string {
	return c.room
}

// ConnectionID returns this connection's id.
func (c *Client) ConnectionID() string {
	return c.connID
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close removes this connection's presence, tells the room it left and
// closes the Redis connection. After calling Close(), the client should not be used.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.rdb.Del(ctx, PresenceKey(c.room, c.connID)).Err(); err != nil {
		c.log.Warn().Err(err).Msg("presence_cleanup_failed")
	} else {
		c.publishPresence(ctx, nil)
	}
	return c.rdb.Close()
}

// documentReader is the read surface shared by *redis.Client and *redis.Tx.
type documentReader interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Pipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// Snapshot reads the whole room. Ids in the order list whose hash is missing
// are skipped.
func (c *Client) Snapshot(ctx context.Context) (*Document, error) {
	return c.load(ctx, c.rdb)
}

func (c *Client) load(ctx context.Context, r documentReader) (*Document, error) {
	ids, err := r.LRange(ctx, LayerIDsKey(c.room), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read layer ids from Redis: %w", err)
	}

	layerCmds := make([]*redis.MapStringStringCmd, len(ids))
	var metaCmd *redis.MapStringStringCmd
	var versionCmd *redis.StringCmd
	_, err = r.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			layerCmds[i] = pipe.HGetAll(ctx, LayerKey(c.room, id))
		}
		metaCmd = pipe.HGetAll(ctx, MetaKey(c.room))
		versionCmd = pipe.Get(ctx, VersionKey(c.room))
		return nil
	})
	if err != nil && !IsNotFound(err) {
		return nil, fmt.Errorf("failed to read room from Redis: %w", err)
	}

	doc := NewDocument()
	for i, id := range ids {
		hash, err := layerCmds[i].Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read layer %s: %w", id, err)
		}
		if len(hash) == 0 {
			continue
		}
		if _, dup := doc.Layers[id]; dup {
			continue
		}
		doc.Layers[id] = Fields(hash)
		doc.Order = append(doc.Order, id)
	}

	meta, err := metaCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room meta: %w", err)
	}
	doc.Meta = Fields(meta)

	if raw, err := versionCmd.Result(); err == nil {
		doc.Version, _ = strconv.ParseInt(raw, 10, 64)
	} else if !IsNotFound(err) {
		return nil, fmt.Errorf("failed to read room version: %w", err)
	}

	return doc, nil
}

// callbackError marks errors returned by the Mutate callback so they reach
// the caller unwrapped.
type callbackError struct{ err error }

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// Mutate runs fn inside an optimistic transaction keyed on the room version
// counter. When another writer commits first, the document is re-read and fn
// runs again, so fn must not have side effects outside tx.
//
// Only the keys fn changed are written. The resulting change set is published
// to ideaboard:{room}:storage_events after a successful commit.
func (c *Client) Mutate(ctx context.Context, fn func(tx *Tx) error) (*ChangeSet, error) {
	versionKey := VersionKey(c.room)

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		var cs *ChangeSet

		err := c.rdb.Watch(ctx, func(rtx *redis.Tx) error {
			doc, err := c.load(ctx, rtx)
			if err != nil {
				return err
			}

			tx := newTx(doc, c.settings.maxLayers)
			if err := fn(tx); err != nil {
				return &callbackError{err: err}
			}

			cs = tx.changeSet(c.connID)
			cs.Version = doc.Version
			if cs.Empty() {
				return nil
			}

			var incr *redis.IntCmd
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				c.writeOps(ctx, pipe, cs.Ops, tx.doc.Order)
				incr = pipe.Incr(ctx, versionKey)
				return nil
			})
			if err != nil {
				return err
			}
			cs.Version = incr.Val()
			return nil
		}, versionKey)

		var cbErr *callbackError
		switch {
		case errors.As(err, &cbErr):
			return nil, cbErr.err
		case errors.Is(err, redis.TxFailedErr):
			c.log.Debug().Int("attempt", attempt).Msg("tx_conflict_retry")
			continue
		case err != nil:
			return nil, fmt.Errorf("failed to apply mutation: %w", err)
		}

		if !cs.Empty() {
			c.publishChange(ctx, cs)
		}
		return cs, nil
	}

	c.log.Warn().Int("attempts", maxTxAttempts).Msg("tx_conflict_gave_up")
	return nil, ErrTxConflict
}

// writeOps queues the Redis writes for ops. The order list is rewritten as a
// whole when any op touched it.
func (c *Client) writeOps(ctx context.Context, pipe redis.Pipeliner, ops []Op, order []string) {
	orderChanged := false

	for _, op := range ops {
		switch op.Kind {
		case OpInsert:
			key := LayerKey(c.room, op.ID)
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, toHash(op.After))
			orderChanged = true
		case OpUpdate:
			writeDiff(ctx, pipe, LayerKey(c.room, op.ID), op.Before, op.After)
		case OpDelete:
			pipe.Del(ctx, LayerKey(c.room, op.ID))
			orderChanged = true
		case OpMove:
			orderChanged = true
		case OpMeta:
			writeDiff(ctx, pipe, MetaKey(c.room), op.Before, op.After)
		}
	}

	if orderChanged {
		key := LayerIDsKey(c.room)
		pipe.Del(ctx, key)
		if len(order) > 0 {
			values := make([]interface{}, len(order))
			for i, id := range order {
				values[i] = id
			}
			pipe.RPush(ctx, key, values...)
		}
	}
}

func writeDiff(ctx context.Context, pipe redis.Pipeliner, key string, before, after Fields) {
	var removed []string
	for k := range before {
		if _, ok := after[k]; !ok {
			removed = append(removed, k)
		}
	}
	if len(removed) > 0 {
		pipe.HDel(ctx, key, removed...)
	}
	if len(after) > 0 {
		pipe.HSet(ctx, key, toHash(after))
	}
}

func (c *Client) publishChange(ctx context.Context, cs *ChangeSet) {
	payload, err := json.Marshal(cs)
	if err != nil {
		c.log.Error().Err(err).Msg("change_marshal_failed")
		return
	}
	if err := c.rdb.Publish(ctx, StorageEventsChannel(c.room), payload).Err(); err != nil {
		c.log.Warn().Err(err).Int64("version", cs.Version).Msg("change_publish_failed")
	}
}

// UpdatePresence stores this connection's presence with a TTL and publishes it.
func (c *Client) UpdatePresence(ctx context.Context, p Presence) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}
	if err := c.rdb.Set(ctx, PresenceKey(c.room, c.connID), payload, c.settings.presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to write presence to Redis: %w", err)
	}
	c.publishPresence(ctx, &p)
	return nil
}

// Touch extends this connection's presence TTL without publishing.
func (c *Client) Touch(ctx context.Context) error {
	if err := c.rdb.Expire(ctx, PresenceKey(c.room, c.connID), c.settings.presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}
	return nil
}

func (c *Client) publishPresence(ctx context.Context, p *Presence) {
	payload, err := json.Marshal(PresenceEvent{ConnectionID: c.connID, Presence: p})
	if err != nil {
		c.log.Error().Err(err).Msg("presence_marshal_failed")
		return
	}
	if err := c.rdb.Publish(ctx, PresenceEventsChannel(c.room), payload).Err(); err != nil {
		c.log.Warn().Err(err).Msg("presence_publish_failed")
	}
}

// Others scans the room's presence keys and returns every connection except
// this one, sorted by connection id.
func (c *Client) Others(ctx context.Context) ([]Other, error) {
	prefixLen := len(PresenceKey(c.room, ""))
	var keys []string
	var cursor uint64
	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, PresencePattern(c.room), 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan presence keys: %w", err)
		}
		for _, key := range batch {
			if key[prefixLen:] != c.connID {
				keys = append(keys, key)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return []Other{}, nil
	}

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}

	others := make([]Other, 0, len(keys))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Expired between SCAN and MGET.
			continue
		}
		var p Presence
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			c.log.Warn().Err(err).Str("key", keys[i]).Msg("presence_decode_failed")
			continue
		}
		others = append(others, Other{ConnectionID: keys[i][prefixLen:], Presence: p})
	}

	sort.Slice(others, func(i, j int) bool { return others[i].ConnectionID < others[j].ConnectionID })
	return others, nil
}

// Broadcast publishes a room event.
func (c *Client) Broadcast(ctx context.Context, ev RoomEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid room event: %w", err)
	}
	ev.Origin = c.connID

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal room event: %w", err)
	}
	if err := c.rdb.Publish(ctx, RoomEventsChannel(c.room), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish room event: %w", err)
	}
	return nil
}

// Subscribe subscribes to storage, presence and room events for this room.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10). If the subscriber is
// too slow, events may be dropped by Redis Pub/Sub (at-most-once delivery).
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	storage := StorageEventsChannel(c.room)
	presence := PresenceEventsChannel(c.room)
	room := RoomEventsChannel(c.room)

	pubsub := c.rdb.Subscribe(ctx, storage, presence, room)
	// Wait for confirmation so no event published after Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room events: %w", err)
	}

	eventsChan := make(chan Event, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				ev, err := decodeEvent(msg, storage, presence, room)
				if err != nil {
					select {
					case errorsChan <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

func decodeEvent(msg *redis.Message, storage, presence, room string) (Event, error) {
	switch msg.Channel {
	case storage:
		var cs ChangeSet
		if err := json.Unmarshal([]byte(msg.Payload), &cs); err != nil {
			return Event{}, fmt.Errorf("failed to unmarshal storage event: %w", err)
		}
		return Event{Kind: EventStorage, Change: &cs}, nil
	case presence:
		var pe PresenceEvent
		if err := json.Unmarshal([]byte(msg.Payload), &pe); err != nil {
			return Event{}, fmt.Errorf("failed to unmarshal presence event: %w", err)
		}
		return Event{Kind: EventPresence, Presence: &pe}, nil
	case room:
		var re RoomEvent
		if err := json.Unmarshal([]byte(msg.Payload), &re); err != nil {
			return Event{}, fmt.Errorf("failed to unmarshal room event: %w", err)
		}
		return Event{Kind: EventRoom, Room: &re}, nil
	default:
		return Event{}, fmt.Errorf("unexpected channel: %s", msg.Channel)
	}
}

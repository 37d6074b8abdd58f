package relay

import (
	"context"
	"sync"

	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/redis/go-redis/v9"
)

// Opener connects a new session to a room. Each call returns a fresh
// connection with its own connection id.
type Opener func(ctx context.Context, room string) (board.Store, error)

// RedisOpener opens sessions on a shared Redis server.
func RedisOpener(redisOpts *redis.Options, opts ...board.Option) Opener {
	return func(ctx context.Context, room string) (board.Store, error) {
		client, err := board.NewClient(redisOpts, room, opts...)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, err
		}
		return client, nil
	}
}

// MemoryRooms hosts rooms inside this process. It backs relays started
// without Redis and tests.
type MemoryRooms struct {
	mu    sync.Mutex
	rooms map[string]*board.MemoryRoom
	opts  []board.Option
}

// NewMemoryRooms creates an empty in-process room registry.
func NewMemoryRooms(opts ...board.Option) *MemoryRooms {
	return &MemoryRooms{rooms: map[string]*board.MemoryRoom{}, opts: opts}
}

// Room returns the named room, creating it on first use.
func (m *MemoryRooms) Room(name string) (*board.MemoryRoom, error) {
	if err := board.ValidateRoomName(name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[name]
	if !ok {
		r = board.NewMemoryRoom(name, m.opts...)
		m.rooms[name] = r
	}
	return r, nil
}

// Open implements Opener.
func (m *MemoryRooms) Open(_ context.Context, room string) (board.Store, error) {
	r, err := m.Room(room)
	if err != nil {
		return nil, err
	}
	return r.Connect(""), nil
}

//go:build integration

package board

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisURL := fmt.Sprintf("redis://%s:%s", host, port.Port())

	cleanup := func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	}

	return redisURL, cleanup
}

func TestIntegration_TwoConnectionsShareARoom(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	alice, err := NewClient(opts, "integration", WithConnectionID("alice"))
	require.NoError(t, err)
	defer alice.Close()

	bob, err := NewClient(opts, "integration", WithConnectionID("bob"))
	require.NoError(t, err)
	defer bob.Close()

	sub, err := bob.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	doc, err := Open(ctx, alice, Seed{Host: "alice", Process: []string{"Ice Breaking"}})
	require.NoError(t, err)
	require.Len(t, doc.Order, 1)

	ev := nextEvent(t, sub)
	assert.Equal(t, EventStorage, ev.Kind)

	replica, err := bob.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.Order, replica.Order)
	assert.Equal(t, doc.Layers, replica.Layers)

	id := doc.Order[0]
	cs, err := bob.Mutate(ctx, func(tx *Tx) error {
		_, err := tx.UpdateLayer(id, Fields{"x": "250"})
		return err
	})
	require.NoError(t, err)

	_, err = alice.Mutate(ctx, func(tx *Tx) error {
		tx.Revert(cs)
		return nil
	})
	require.NoError(t, err)

	final, err := bob.Snapshot(ctx)
	require.NoError(t, err)
	l, ok := final.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, 100.0, l.Geom().X)
}

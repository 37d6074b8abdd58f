//go:build integration

package instance

import (
	"context"
	"testing"
	"time"

	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpDown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}
	defer cli.Close()

	room := "it-" + dockerpkg.GenerateRunID()[:8]
	t.Cleanup(func() { Down(context.Background(), cli, room) })

	p, err := Up(ctx, cli, room, "redis:7-alpine")
	require.NoError(t, err)
	assert.Equal(t, dockerpkg.RedisContainerName(room), p.Container)

	exists, err := Exists(ctx, cli, room)
	require.NoError(t, err)
	assert.True(t, exists)

	port, err := RedisPort(ctx, cli, room)
	require.NoError(t, err)
	assert.Equal(t, p.Port, port)
	require.NoError(t, VerifyRunning(ctx, cli, room))

	rooms, err := List(ctx, cli)
	require.NoError(t, err)
	var found bool
	for _, r := range rooms {
		if r.Room == room {
			found = true
			assert.Equal(t, StatusRunning, r.Status)
		}
	}
	assert.True(t, found)

	removed, err := Down(ctx, cli, room)
	require.NoError(t, err)
	assert.Len(t, removed, 2, "container and network")

	exists, err = Exists(ctx, cli, room)
	require.NoError(t, err)
	assert.False(t, exists)
}

package instance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
)

func roomContainers(ctx context.Context, cli *client.Client, room string) ([]types.Container, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", dockerpkg.RoomFilter(room))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return containers, nil
}

// List returns every provisioned room, sorted by name.
func List(ctx context.Context, cli *client.Client) ([]RoomInfo, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", dockerpkg.ProjectFilter())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return summarize(containers, time.Now()), nil
}

// Exists reports whether any container is labelled with room.
func Exists(ctx context.Context, cli *client.Client, room string) (bool, error) {
	containers, err := roomContainers(ctx, cli, room)
	if err != nil {
		return false, err
	}
	return len(containers) > 0, nil
}

// RedisPort reads the published Redis port from the room's container labels.
func RedisPort(ctx context.Context, cli *client.Client, room string) (int, error) {
	c, err := redisContainer(ctx, cli, room)
	if err != nil {
		return 0, err
	}

	portStr, ok := c.Labels[dockerpkg.LabelRedisPort]
	if !ok {
		return 0, fmt.Errorf("Redis port label missing for room '%s'", room)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid Redis port '%s': %w", portStr, err)
	}
	return port, nil
}

// VerifyRunning checks the room's Redis container is up.
func VerifyRunning(ctx context.Context, cli *client.Client, room string) error {
	c, err := redisContainer(ctx, cli, room)
	if err != nil {
		return err
	}
	if c.State != "running" {
		return fmt.Errorf("room '%s' is not running (redis is %s)", room, c.State)
	}
	return nil
}

func redisContainer(ctx context.Context, cli *client.Client, room string) (types.Container, error) {
	containers, err := roomContainers(ctx, cli, room)
	if err != nil {
		return types.Container{}, err
	}
	for _, c := range containers {
		if c.Labels[dockerpkg.LabelComponent] == dockerpkg.ComponentRedis {
			return c, nil
		}
	}
	return types.Container{}, fmt.Errorf("Redis container not found for room '%s'", room)
}

package instance

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
)

// Provisioned describes the resources `up` created for a room.
type Provisioned struct {
	Room      string
	RunID     string
	Network   string
	Container string
	Port      int
}

// URL returns the Redis URL clients on this host should use.
func (p *Provisioned) URL() string {
	return RedisURL(p.Port)
}

// Up creates a network and a Redis container for room. Anything created
// before a failure is removed again.
func Up(ctx context.Context, cli *client.Client, room, image string) (*Provisioned, error) {
	p, err := create(ctx, cli, room, image)
	if err != nil {
		if _, rbErr := Down(ctx, cli, room); rbErr != nil {
			return nil, fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return nil, err
	}
	return p, nil
}

func create(ctx context.Context, cli *client.Client, room, image string) (*Provisioned, error) {
	port, err := FindNextAvailablePort(ctx, cli)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate Redis port: %w", err)
	}

	p := &Provisioned{
		Room:      room,
		RunID:     dockerpkg.GenerateRunID(),
		Network:   dockerpkg.NetworkName(room),
		Container: dockerpkg.RedisContainerName(room),
		Port:      port,
	}

	if _, err := cli.NetworkCreate(ctx, p.Network, types.NetworkCreate{
		Driver: "bridge",
		Labels: dockerpkg.BuildLabels(room, p.RunID, ""),
	}); err != nil {
		return nil, fmt.Errorf("failed to create network '%s': %w", p.Network, err)
	}

	if err := pullIfMissing(ctx, cli, image); err != nil {
		return nil, err
	}

	labels := dockerpkg.BuildLabels(room, p.RunID, dockerpkg.ComponentRedis)
	labels[dockerpkg.LabelRedisPort] = strconv.Itoa(port)

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:  image,
		Labels: labels,
		ExposedPorts: nat.PortSet{
			"6379/tcp": struct{}{},
		},
	}, &container.HostConfig{
		NetworkMode: container.NetworkMode(p.Network),
		PortBindings: nat.PortMap{
			"6379/tcp": []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: strconv.Itoa(port),
				},
			},
		},
	}, nil, nil, p.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}
	return p, nil
}

func pullIfMissing(ctx context.Context, cli *client.Client, image string) error {
	if _, _, err := cli.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	}
	reader, err := cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	return nil
}

// Down stops and removes the room's containers and network. It returns the
// names of what it removed.
func Down(ctx context.Context, cli *client.Client, room string) ([]string, error) {
	containers, err := roomContainers(ctx, cli, room)
	if err != nil {
		return nil, err
	}

	var removed []string
	timeout := 10
	for _, c := range containers {
		name := c.ID
		if len(c.Names) > 0 {
			name = c.Names[0]
		}
		// The container may already be stopped.
		_ = cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout})
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}

	networks, err := cli.NetworkList(ctx, types.NetworkListOptions{
		Filters: filters.NewArgs(filters.Arg("label", dockerpkg.RoomFilter(room))),
	})
	if err != nil {
		return removed, fmt.Errorf("failed to list networks: %w", err)
	}
	for _, n := range networks {
		if err := cli.NetworkRemove(ctx, n.ID); err != nil {
			return removed, fmt.Errorf("failed to remove network %s: %w", n.Name, err)
		}
		removed = append(removed, n.Name)
	}
	return removed, nil
}

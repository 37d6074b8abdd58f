package instance

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
)

const (
	// Port range for room Redis containers (allows 100 concurrent rooms)
	startPort = 6379
	endPort   = 6478
)

// FindNextAvailablePort returns the first port in 6379-6478 that no room
// container has claimed and that can be bound on this host.
func FindNextAvailablePort(ctx context.Context, cli *client.Client) (int, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", dockerpkg.ProjectFilter()),
			filters.Arg("label", fmt.Sprintf("%s=%s", dockerpkg.LabelComponent, dockerpkg.ComponentRedis)),
		),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query Docker containers: %w", err)
	}

	used := make(map[int]bool)
	for _, c := range containers {
		if port, err := strconv.Atoi(c.Labels[dockerpkg.LabelRedisPort]); err == nil {
			used[port] = true
		}
	}

	return pickPort(used, isPortBindable)
}

func pickPort(used map[int]bool, bindable func(int) bool) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if !used[port] && bindable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available Redis ports (range %d-%d exhausted)", startPort, endPort)
}

// isPortBindable checks if a port can be bound on localhost.
func isPortBindable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

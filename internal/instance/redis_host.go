package instance

import (
	"fmt"
	"os"
)

// RedisHost returns the hostname that reaches ports published on the host.
// Inside a container that is host.docker.internal.
func RedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// RedisURL constructs the Redis URL for a room's published port.
func RedisURL(port int) string {
	return fmt.Sprintf("redis://%s:%d", RedisHost(), port)
}

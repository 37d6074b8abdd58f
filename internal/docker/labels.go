package docker

import (
	"fmt"

	"github.com/google/uuid"
)

// Label keys used for ideaboard resources
const (
	LabelProject   = "ideaboard.project"
	LabelRoom      = "ideaboard.room"
	LabelRunID     = "ideaboard.run_id"
	LabelComponent = "ideaboard.component"
	LabelRedisPort = "ideaboard.redis.port"
)

// ComponentRedis marks the container that stores a room.
const ComponentRedis = "redis"

// BuildLabels creates the standard label set for a room's resources.
// component may be empty for shared resources such as the network.
func BuildLabels(room, runID, component string) map[string]string {
	labels := map[string]string{
		LabelProject: "true",
		LabelRoom:    room,
		LabelRunID:   runID,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for one `ideaboard up`.
func GenerateRunID() string {
	return uuid.New().String()
}

// ProjectFilter is the label filter matching every ideaboard resource.
func ProjectFilter() string {
	return fmt.Sprintf("%s=true", LabelProject)
}

// RoomFilter is the label filter matching one room's resources.
func RoomFilter(room string) string {
	return fmt.Sprintf("%s=%s", LabelRoom, room)
}

// NetworkName returns the Docker network name for a room
func NetworkName(room string) string {
	return fmt.Sprintf("ideaboard-network-%s", room)
}

// RedisContainerName returns the Redis container name for a room
func RedisContainerName(room string) string {
	return fmt.Sprintf("ideaboard-redis-%s", room)
}

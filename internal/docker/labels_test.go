package docker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("retro", "run-123", ComponentRedis)

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "retro", labels[LabelRoom])
	assert.Equal(t, "run-123", labels[LabelRunID])
	assert.Equal(t, "redis", labels[LabelComponent])
	assert.Len(t, labels, 4)
}

func TestBuildLabels_NoComponent(t *testing.T) {
	labels := BuildLabels("retro", "run-456", "")

	assert.NotContains(t, labels, LabelComponent)
	assert.Len(t, labels, 3)
}

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	_, err := uuid.Parse(id1)
	assert.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestFilters(t *testing.T) {
	assert.Equal(t, "ideaboard.project=true", ProjectFilter())
	assert.Equal(t, "ideaboard.room=retro", RoomFilter("retro"))
}

func TestResourceNames(t *testing.T) {
	assert.Equal(t, "ideaboard-network-retro", NetworkName("retro"))
	assert.Equal(t, "ideaboard-redis-retro", RedisContainerName("retro"))
}

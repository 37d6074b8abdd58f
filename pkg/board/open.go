package board

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/google/uuid"
)

const (
	// MaxRoomNameLength is the maximum length for a room name.
	MaxRoomNameLength = 63
)

// RoomNamePattern matches valid room names: lowercase alphanumeric with
// hyphens allowed between characters.
var RoomNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateRoomName checks a room name before it is used in Redis keys,
// container names and URLs.
func ValidateRoomName(name string) error {
	if name == "" {
		return fmt.Errorf("room name cannot be empty")
	}

	if len(name) > MaxRoomNameLength {
		return fmt.Errorf("room name too long: %d characters (max: %d)", len(name), MaxRoomNameLength)
	}

	if !RoomNamePattern.MatchString(name) {
		return fmt.Errorf("invalid room name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}

// Seed is the initial room record written the first time a room is opened.
type Seed struct {
	Host    string
	Process []string
	Stage   int
	Camera  geometry.Camera
}

// DefaultLayer is the shape a new, empty room starts with.
func DefaultLayer() Layer {
	return Rectangle{Geometry: Geometry{X: 100, Y: 100, Width: 100, Height: 100, Fill: ColorShape}}
}

// Open joins a room. The first open seeds the meta record (time, process list,
// host, voting record, group-call roster, stage and camera) and, if the room
// has no layers, inserts DefaultLayer. Later opens change nothing.
func Open(ctx context.Context, store Store, seed Seed) (*Document, error) {
	process, err := json.Marshal(seed.Process)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal process list: %w", err)
	}
	if seed.Process == nil {
		process = []byte("[]")
	}

	_, err = store.Mutate(ctx, func(tx *Tx) error {
		if tx.HasMeta(MetaCreatedAt) {
			return nil
		}

		tx.SetMeta(Fields{
			MetaCreatedAt: strconv.FormatInt(time.Now().UnixMilli(), 10),
			MetaTime:      "0",
			MetaProcess:   string(process),
			MetaHost:      seed.Host,
			MetaVotes:     "{}",
			MetaGroupCall: "[]",
		})
		tx.SetStage(seed.Stage, seed.Camera)

		if tx.LayerCount() == 0 {
			return tx.InsertLayer(uuid.New().String(), DefaultLayer())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open room: %w", err)
	}

	return store.Snapshot(ctx)
}

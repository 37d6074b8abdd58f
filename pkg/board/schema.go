package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by room name so many
// rooms can share one Redis server.
//
// Key pattern: ideaboard:{room}:{entity}[:{id}]
// Channel pattern: ideaboard:{room}:{event_type}_events

// LayerKey returns the Redis key for a layer hash.
// Pattern: ideaboard:{room}:layer:{layer_id}
func LayerKey(room, layerID string) string {
	return fmt.Sprintf("ideaboard:%s:layer:%s", room, layerID)
}

// LayerIDsKey returns the Redis key for the z-ordered layer id list.
// Pattern: ideaboard:{room}:layer_ids
func LayerIDsKey(room string) string {
	return fmt.Sprintf("ideaboard:%s:layer_ids", room)
}

// MetaKey returns the Redis key for the room meta hash.
// Pattern: ideaboard:{room}:meta
func MetaKey(room string) string {
	return fmt.Sprintf("ideaboard:%s:meta", room)
}

// VersionKey returns the Redis key for the room's write counter. Every
// mutation increments it and optimistic transactions WATCH it.
// Pattern: ideaboard:{room}:version
func VersionKey(room string) string {
	return fmt.Sprintf("ideaboard:%s:version", room)
}

// PresenceKey returns the Redis key for one connection's presence record.
// Pattern: ideaboard:{room}:presence:{connection_id}
func PresenceKey(room, connectionID string) string {
	return fmt.Sprintf("ideaboard:%s:presence:%s", room, connectionID)
}

// PresencePattern returns the SCAN pattern matching every presence key of a room.
func PresencePattern(room string) string {
	return fmt.Sprintf("ideaboard:%s:presence:*", room)
}

// StorageEventsChannel returns the Pub/Sub channel carrying change sets.
// Pattern: ideaboard:{room}:storage_events
func StorageEventsChannel(room string) string {
	return fmt.Sprintf("ideaboard:%s:storage_events", room)
}

// PresenceEventsChannel returns the Pub/Sub channel carrying presence updates.
// Pattern: ideaboard:{room}:presence_events
func PresenceEventsChannel(room string) string {
	return fmt.Sprintf("ideaboard:%s:presence_events", room)
}

// RoomEventsChannel returns the Pub/Sub channel carrying broadcast room events.
// Pattern: ideaboard:{room}:room_events
func RoomEventsChannel(room string) string {
	return fmt.Sprintf("ideaboard:%s:room_events", room)
}

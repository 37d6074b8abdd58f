// Package board provides the shared document model of an ideaboard room and
// the stores that replicate it.
//
// # Overview
//
// A room is a z-ordered list of layer ids, a map from id to layer and a small
// meta record (workshop stage, camera, host, process list). Every connected
// client reads and mutates the same room through a Store; each connection
// also publishes ephemeral Presence (cursor, selection, pencil draft) that is
// kept apart from the document by type.
//
// # Layers
//
// Layer is a closed sum type: Rectangle, Ellipse, Path, Text, Note, Vision,
// TopicVote, Spread, Discussion, Persona, SolvingProblem and UserStory.
// Code that must handle every variant implements LayerVisitor; adding a
// variant breaks every visitor at compile time.
//
// Layers are stored as flat string hashes (Fields). Collection fields such as
// reactions, comments and traits are JSON-encoded into one key.
//
// # Mutations
//
// Store.Mutate hands a *Tx to a callback. The callback may read and write any
// number of layers; its writes are applied as one unit and reported as a
// ChangeSet, the ordered list of primitive ops it performed. Tx.Revert replays
// a ChangeSet backwards while leaving alone fields that another connection has
// changed since. Reverting the ChangeSet a revert produced redoes it.
//
//	cs, err := store.Mutate(ctx, func(tx *board.Tx) error {
//		return tx.InsertLayer(uuid.New().String(), board.Note{
//			Geometry: board.Geometry{X: 100, Y: 100, Width: 180, Height: 180, Fill: board.ColorNote},
//		})
//	})
//
// # Redis Schema
//
// All Redis keys follow the pattern: ideaboard:{room}:{entity}
//
// Layers: ideaboard:{room}:layer:{layer_id} (hash)
// Order: ideaboard:{room}:layer_ids (list)
// Meta: ideaboard:{room}:meta (hash)
// Version: ideaboard:{room}:version (counter, WATCHed by Mutate)
// Presence: ideaboard:{room}:presence:{connection_id} (string with TTL)
//
// Pub/sub channels: ideaboard:{room}:storage_events,
// ideaboard:{room}:presence_events and ideaboard:{room}:room_events.
package board

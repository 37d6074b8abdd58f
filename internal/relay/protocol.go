package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dyluth/ideaboard/internal/canvas"
	"github.com/dyluth/ideaboard/internal/widgets"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/dyluth/ideaboard/pkg/geometry"
)

// Client message types.
const (
	MsgPointerDown      = "pointer_down"
	MsgPointerMove      = "pointer_move"
	MsgPointerUp        = "pointer_up"
	MsgPointerLeave     = "pointer_leave"
	MsgLayerPointerDown = "layer_pointer_down"
	MsgResizeHandleDown = "resize_handle_down"
	MsgSelectTool       = "select_tool"
	MsgKeyDown          = "key_down"
	MsgInsert           = "insert"
	MsgUpdate           = "update"
	MsgDelete           = "delete"
	MsgSetFill          = "set_fill"
	MsgBringToFront     = "bring_to_front"
	MsgSendToBack       = "send_to_back"
	MsgInsertGimmick    = "insert_gimmick"
	MsgNavigate         = "navigate"
	MsgCommand          = "command"
	MsgBroadcast        = "broadcast"
	MsgUndo             = "undo"
	MsgRedo             = "redo"
)

// Server message types.
const (
	MsgWelcome  = "welcome"
	MsgStorage  = "storage"
	MsgPresence = "presence"
	MsgRoom     = "room"
	MsgState    = "state"
	MsgError    = "error"
)

// ClientMessage is one input event from a browser. Only the fields the type
// needs are set.
type ClientMessage struct {
	Type      string           `json:"type"`
	Pointer   *canvas.Pointer  `json:"pointer,omitempty"`
	Key       *canvas.Key      `json:"key,omitempty"`
	LayerID   string           `json:"layerId,omitempty"`
	LayerIDs  []string         `json:"layerIds,omitempty"`
	LayerType board.LayerType  `json:"layerType,omitempty"`
	Tool      string           `json:"tool,omitempty"`
	Corner    geometry.Side    `json:"corner,omitempty"`
	Bounds    *geometry.Rect   `json:"bounds,omitempty"`
	At        *geometry.Point  `json:"at,omitempty"`
	Patch     board.Fields     `json:"patch,omitempty"`
	Fill      string           `json:"fill,omitempty"`
	Stage     int              `json:"stage,omitempty"`
	Command   string           `json:"command,omitempty"`
	Body      json.RawMessage  `json:"body,omitempty"`
	Event     *board.RoomEvent `json:"event,omitempty"`
}

// ServerMessage is one update pushed to a browser.
type ServerMessage struct {
	Type         string               `json:"type"`
	ConnectionID string               `json:"connectionId,omitempty"`
	Document     *board.Document      `json:"document,omitempty"`
	Others       []board.Other        `json:"others,omitempty"`
	Change       *board.ChangeSet     `json:"change,omitempty"`
	Presence     *board.PresenceEvent `json:"presence,omitempty"`
	Room         *board.RoomEvent     `json:"room,omitempty"`
	State        *StateMessage        `json:"state,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// StateMessage mirrors the local engine state back to its client.
type StateMessage struct {
	Mode      string   `json:"mode"`
	Selection []string `json:"selection"`
	CanUndo   bool     `json:"canUndo"`
	CanRedo   bool     `json:"canRedo"`
	Stage     int      `json:"stage"`
}

func parseTool(name string, t board.LayerType) (canvas.Tool, error) {
	switch name {
	case "", "select":
		return canvas.Tool{Kind: canvas.ToolSelect}, nil
	case "insert":
		return canvas.Tool{Kind: canvas.ToolInsert, LayerType: t}, nil
	case "pencil":
		return canvas.Tool{Kind: canvas.ToolPencil}, nil
	default:
		return canvas.Tool{}, fmt.Errorf("unknown tool: %s", name)
	}
}

// dispatch routes one client message to the engine.
func dispatch(ctx context.Context, e *canvas.Engine, msg ClientMessage) error {
	pointer := func() (canvas.Pointer, error) {
		if msg.Pointer == nil {
			return canvas.Pointer{}, fmt.Errorf("%s requires pointer", msg.Type)
		}
		return *msg.Pointer, nil
	}

	switch msg.Type {
	case MsgPointerDown, MsgPointerMove, MsgPointerUp:
		p, err := pointer()
		if err != nil {
			return err
		}
		switch msg.Type {
		case MsgPointerDown:
			return e.PointerDown(ctx, p)
		case MsgPointerMove:
			return e.PointerMove(ctx, p)
		default:
			return e.PointerUp(ctx, p)
		}
	case MsgPointerLeave:
		return e.PointerLeave(ctx)
	case MsgLayerPointerDown:
		p, err := pointer()
		if err != nil {
			return err
		}
		return e.LayerPointerDown(ctx, msg.LayerID, p)
	case MsgResizeHandleDown:
		if msg.Bounds == nil {
			return fmt.Errorf("%s requires bounds", msg.Type)
		}
		return e.ResizeHandlePointerDown(msg.Corner, *msg.Bounds)
	case MsgSelectTool:
		tool, err := parseTool(msg.Tool, msg.LayerType)
		if err != nil {
			return err
		}
		return e.SelectTool(ctx, tool)
	case MsgKeyDown:
		if msg.Key == nil {
			return fmt.Errorf("%s requires key", msg.Type)
		}
		return e.KeyDown(ctx, *msg.Key)
	case MsgInsert:
		if msg.At == nil {
			return fmt.Errorf("%s requires at", msg.Type)
		}
		_, err := e.Insert(ctx, msg.LayerType, *msg.At)
		return err
	case MsgUpdate:
		_, err := e.Update(ctx, msg.LayerID, msg.Patch)
		return err
	case MsgDelete:
		if len(msg.LayerIDs) == 0 {
			return e.DeleteSelection(ctx)
		}
		return e.Delete(ctx, msg.LayerIDs...)
	case MsgSetFill:
		fill, err := board.ParseColor(msg.Fill)
		if err != nil {
			return err
		}
		return e.SetFill(ctx, fill)
	case MsgBringToFront:
		return e.BringToFront(ctx)
	case MsgSendToBack:
		return e.SendToBack(ctx)
	case MsgInsertGimmick:
		_, err := e.InsertGimmick(ctx, msg.Stage)
		return err
	case MsgNavigate:
		return e.NavigateStage(ctx, msg.Stage)
	case MsgCommand:
		cmd, err := widgets.Decode(msg.Command, msg.Body)
		if err != nil {
			return err
		}
		_, err = e.Execute(ctx, cmd)
		return err
	case MsgBroadcast:
		if msg.Event == nil {
			return fmt.Errorf("%s requires event", msg.Type)
		}
		return e.Broadcast(ctx, *msg.Event)
	case MsgUndo:
		return e.Undo(ctx)
	case MsgRedo:
		return e.Redo(ctx)
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func stateMessage(e *canvas.Engine) ServerMessage {
	return ServerMessage{
		Type: MsgState,
		State: &StateMessage{
			Mode:      e.State().Mode.String(),
			Selection: e.Selection(),
			CanUndo:   e.History().CanUndo(),
			CanRedo:   e.History().CanRedo(),
			Stage:     e.Document().Stage(),
		},
	}
}

func eventMessage(ev board.Event) ServerMessage {
	switch ev.Kind {
	case board.EventStorage:
		return ServerMessage{Type: MsgStorage, Change: ev.Change}
	case board.EventPresence:
		return ServerMessage{Type: MsgPresence, Presence: ev.Presence}
	default:
		return ServerMessage{Type: MsgRoom, Room: ev.Room}
	}
}

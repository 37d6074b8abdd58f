package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event TYPE [ARG]",
	Short: "Broadcast a room event",
	Long: `Send a one-off signal to everyone in a room.

Types:
  play SOUND_ID     Play a sound effect
  audio-play        Start the background music
  audio-pause       Pause the background music
  timer SECONDS     Start the shared countdown
  stop-timer        Stop the countdown

Examples:
  ideaboard event timer 300
  ideaboard event play applause`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEvent,
}

func init() {
	rootCmd.AddCommand(eventCmd)
}

func runEvent(cmd *cobra.Command, args []string) error {
	ev, err := parseEvent(args)
	if err != nil {
		return printer.Error("invalid event", err.Error(), []string{"See: ideaboard event --help"})
	}

	ctx := context.Background()
	client, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Broadcast(ctx, ev); err != nil {
		return printer.Error("failed to broadcast", err.Error(), nil)
	}
	printer.Success("Sent %s to room '%s'\n", ev.Type, client.Room())
	return nil
}

func parseEvent(args []string) (board.RoomEvent, error) {
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	var ev board.RoomEvent
	switch strings.ToLower(args[0]) {
	case "play":
		ev = board.RoomEvent{Type: board.RoomEventPlay, SoundID: arg}
	case "audio-play":
		ev = board.RoomEvent{Type: board.RoomEventAudioPlay}
	case "audio-pause":
		ev = board.RoomEvent{Type: board.RoomEventAudioPause}
	case "timer":
		secs, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return ev, fmt.Errorf("timer needs a number of seconds, got %q", arg)
		}
		ev = board.RoomEvent{Type: board.RoomEventStartTimer, Time: secs}
	case "stop-timer":
		ev = board.RoomEvent{Type: board.RoomEventStopTimer}
	default:
		return ev, fmt.Errorf("unknown event type %q", args[0])
	}
	return ev, ev.Validate()
}

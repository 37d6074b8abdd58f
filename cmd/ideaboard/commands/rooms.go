package commands

import (
	"context"
	"encoding/json"
	"fmt"

	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
	"github.com/dyluth/ideaboard/internal/instance"
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/spf13/cobra"
)

var roomsJSON bool

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List provisioned rooms",
	Long: `List rooms started with 'ideaboard up' by querying Docker for
containers with the ideaboard.project label.

For each room, displays:
  • Room name
  • Status (Running/Degraded/Stopped)
  • Published Redis port
  • Uptime (for running rooms)

Use --json for machine-readable output.`,
	RunE: runRooms,
}

func init() {
	roomsCmd.Flags().BoolVar(&roomsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(roomsCmd)
}

func runRooms(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return printer.Error("Docker not available", err.Error(), nil)
	}
	defer cli.Close()

	infos, err := instance.List(ctx, cli)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if roomsJSON {
		if infos == nil {
			infos = []instance.RoomInfo{}
		}
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal rooms: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No rooms found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run 'ideaboard up --room <name>' to provision one.")
		return nil
	}

	fmt.Fprintf(out, "%-20s %-10s %-6s %s\n", "ROOM", "STATUS", "PORT", "UPTIME")
	for _, info := range infos {
		port := "-"
		if info.Port > 0 {
			port = fmt.Sprint(info.Port)
		}
		fmt.Fprintf(out, "%-20s %-10s %-6s %s\n", info.Room, info.Status, port, info.Uptime)
	}
	return nil
}

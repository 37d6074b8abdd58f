package commands

import (
	"context"
	"fmt"

	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
	"github.com/dyluth/ideaboard/internal/instance"
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Remove a room's Redis",
	Long: `Stop and remove the Docker resources of a room: its Redis container and
network. The room's document is lost.

The command does not prompt for confirmation and executes immediately.`,
	RunE: runDown,
}

func init() {
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	room, err := targetRoom(cfg)
	if err != nil {
		return err
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return printer.Error("Docker not available", err.Error(), nil)
	}
	defer cli.Close()

	removed, err := instance.Down(ctx, cli, room)
	for _, name := range removed {
		printer.Success("Removed %s\n", name)
	}
	if err != nil {
		return printer.Error("failed to remove room", err.Error(), nil)
	}
	if len(removed) == 0 {
		return printer.Error(
			fmt.Sprintf("room '%s' not found", room),
			"No Docker resources are labelled with this room.",
			[]string{"List provisioned rooms: ideaboard rooms"},
		)
	}

	printer.Success("Room '%s' removed\n", room)
	return nil
}

package commands

import (
	"context"
	"fmt"

	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
	"github.com/dyluth/ideaboard/internal/instance"
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision Redis for a room",
	Long: `Start a dedicated Redis container for a room.

Creates and starts:
  • Isolated Docker network
  • Redis container published on 127.0.0.1 (ports 6379-6478)

Other commands find the room's Redis automatically once it is up.

Examples:
  ideaboard up --room workshop`,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
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

	exists, err := instance.Exists(ctx, cli, room)
	if err != nil {
		return err
	}
	if exists {
		return printer.Error(
			fmt.Sprintf("room '%s' already exists", room),
			"Found existing containers for this room.",
			[]string{
				fmt.Sprintf("Stop the existing room: ideaboard down --room %s", room),
				"Choose a different name: ideaboard up --room other-name",
			},
		)
	}

	printer.Step("Provisioning room %s (%s)\n", room, cfg.RedisImage)
	p, err := instance.Up(ctx, cli, room, cfg.RedisImage)
	if err != nil {
		return printer.Error("failed to provision room", err.Error(), []string{"Check that Docker can pull " + cfg.RedisImage})
	}

	printer.Success("Created network: %s\n", p.Network)
	printer.Success("Started Redis: %s\n", p.Container)
	printer.Println()
	printer.Success("Room '%s' is up\n", room)
	printer.Info("  Redis: %s\n", p.URL())
	printer.Info("  Relay: REDIS_URL=%s ideaboard serve\n", p.URL())
	return nil
}

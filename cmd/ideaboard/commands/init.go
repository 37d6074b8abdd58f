package commands

import (
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit  bool
	initListen string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter ideaboard.yml",
	Long: `Write ideaboard.yml in the current directory with every setting spelled
out at its default value.

Use --force to overwrite an existing file.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing ideaboard.yml")
	initCmd.Flags().StringVar(&initListen, "listen", "", "Relay listen address to write")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := scaffold.Initialize(".", scaffold.Options{
		Room:     roomName,
		RedisURL: redisURL,
		Listen:   initListen,
	}, forceInit)
	if err != nil {
		return printer.Error("initialization failed", err.Error(), nil)
	}

	printer.Success("Created %s\n", path)
	printer.Println()
	printer.Println("Next steps:")
	printer.Println("  1. Provision the room's Redis: ideaboard up")
	printer.Println("  2. Start the relay:            ideaboard serve")
	return nil
}

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/internal/watch"
	"github.com/spf13/cobra"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream room activity",
	Long: `Stream a room's activity as it happens: layer edits, stage changes,
peers joining and leaving, timers and sounds.

Output Formats:
  default - One human-readable line per event
  json    - One JSON object per event

Press Ctrl-C to stop.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format: default or json")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, json"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if format == watch.OutputFormatDefault {
		printer.Step("Watching room %s\n", client.Room())
	}
	if err := watch.StreamActivity(ctx, client, format, cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
		return printer.Error("watch stopped", err.Error(), nil)
	}
	return nil
}

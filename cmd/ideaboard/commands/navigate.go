package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/ideaboard/internal/canvas"
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/internal/stage"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate [STAGE]",
	Short: "Move a room to a workshop stage",
	Long: `Move every participant of a room to a workshop stage. STAGE is the
stage number or its name. Without STAGE the stages are listed.

Examples:
  ideaboard navigate
  ideaboard navigate 3
  ideaboard navigate persona`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNavigate,
}

func init() {
	rootCmd.AddCommand(navigateCmd)
}

func runNavigate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		out := cmd.OutOrStdout()
		for _, s := range stage.All() {
			fmt.Fprintf(out, "%2d  %s\n", s.Index, s.Name)
		}
		return nil
	}

	target, err := findStage(args[0])
	if err != nil {
		return printer.Error("unknown stage", err.Error(), []string{"List stages: ideaboard navigate"})
	}

	ctx := context.Background()
	client, cfg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := board.Open(ctx, client, stage.Seed(client.ConnectionID())); err != nil {
		return printer.Error("failed to open room", err.Error(), nil)
	}

	engine := canvas.New(client, canvasConfig(cfg), newLogger())
	if err := engine.Sync(ctx); err != nil {
		return printer.Error("failed to load room", err.Error(), nil)
	}
	if err := engine.NavigateStage(ctx, target.Index); err != nil {
		return printer.Error("failed to change stage", err.Error(), nil)
	}

	printer.Success("Room '%s' moved to stage %d (%s)\n", client.Room(), target.Index, target.Name)
	return nil
}

// findStage matches a stage by number or by a case-insensitive name prefix.
func findStage(arg string) (stage.Stage, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		return stage.Get(i)
	}

	var matches []stage.Stage
	for _, s := range stage.All() {
		if strings.HasPrefix(strings.ToLower(s.Name), strings.ToLower(arg)) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return stage.Stage{}, fmt.Errorf("no stage named %q", arg)
	case 1:
		return matches[0], nil
	default:
		return stage.Stage{}, fmt.Errorf("%q matches %d stages", arg, len(matches))
	}
}

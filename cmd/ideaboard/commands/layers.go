package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/ideaboard/internal/layers"
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/internal/resolver"
	"github.com/dyluth/ideaboard/pkg/geometry"
	"github.com/spf13/cobra"
)

var (
	layersOutputFormat string
	layersType         string
	layersWithin       string
)

var layersCmd = &cobra.Command{
	Use:   "layers [LAYER_ID]",
	Short: "Inspect a room's layers",
	Long: `Inspect the layers of a room in list or get mode.

List Mode (no LAYER_ID):
  Displays every layer back-to-front as a table or line-delimited JSON.

Get Mode (with LAYER_ID):
  Displays one layer as pretty-printed JSON. The id may be shortened to
  any unique prefix of at least four characters.

Examples:
  # List layers of the configured room
  ideaboard layers

  # Only widgets inside the first stage
  ideaboard layers --type '*Vote' --within 0,0,1200,800

  # Full details of one layer
  ideaboard layers 3f2a9c1e`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLayers,
}

func init() {
	layersCmd.Flags().StringVarP(&layersOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")
	layersCmd.Flags().StringVar(&layersType, "type", "", "Glob pattern for the layer type")
	layersCmd.Flags().StringVar(&layersWithin, "within", "", "Only layers intersecting X,Y,W,H")
	rootCmd.AddCommand(layersCmd)
}

func runLayers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	isGetMode := len(args) > 0

	var format layers.OutputFormat
	filters := &layers.FilterCriteria{TypeGlob: layersType}
	if !isGetMode {
		switch layersOutputFormat {
		case "default":
			format = layers.OutputFormatDefault
		case "jsonl":
			format = layers.OutputFormatJSONL
		default:
			return printer.Error(
				"invalid output format",
				fmt.Sprintf("Unknown format: %s", layersOutputFormat),
				[]string{"Valid formats: default, jsonl"},
			)
		}

		if layersWithin != "" {
			r, err := parseRect(layersWithin)
			if err != nil {
				return printer.Error("invalid --within", err.Error(), []string{"Example: --within 0,0,1200,800"})
			}
			filters.Within = &r
		}
	}

	client, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if !isGetMode {
		if err := layers.List(ctx, client, client.Room(), format, filters, cmd.OutOrStdout()); err != nil {
			return printer.Error("failed to list layers", err.Error(), nil)
		}
		return nil
	}

	id := args[0]
	err = layers.Get(ctx, client, id, cmd.OutOrStdout())
	switch {
	case err == nil:
		return nil
	case layers.IsNotFound(err):
		return printer.Error(
			fmt.Sprintf("layer with ID '%s' not found", id),
			"The specified layer does not exist in this room.",
			[]string{"List all layers:\n  ideaboard layers"},
		)
	case resolver.IsAmbiguousError(err):
		return printer.Error("ambiguous layer ID", err.Error(), []string{"Use more characters of the ID"})
	default:
		return printer.Error("failed to get layer", err.Error(), nil)
	}
}

// parseRect reads "X,Y,W,H".
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("expected X,Y,W,H, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("invalid number %q", p)
		}
		v[i] = f
	}
	if v[2] < 0 || v[3] < 0 {
		return geometry.Rect{}, fmt.Errorf("width and height must not be negative")
	}
	return geometry.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

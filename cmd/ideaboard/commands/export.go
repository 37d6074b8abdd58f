package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/ideaboard/internal/export"
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportScale  float64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a room to PDF or PNG",
	Long: `Render every layer of a room onto a single page sized to the board's
content.

Examples:
  # Write workshop.pdf
  ideaboard export --room workshop

  # A double-resolution PNG
  ideaboard export --format png --scale 2 -o board.png`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "pdf", "Output format: pdf or png")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default <room>.<format>)")
	exportCmd.Flags().Float64Var(&exportScale, "scale", 1, "Output units per canvas unit")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return printer.Error("invalid export format", err.Error(), []string{"Valid formats: pdf, png"})
	}

	client, _, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	doc, err := client.Snapshot(ctx)
	if err != nil {
		return printer.Error("failed to load room", err.Error(), nil)
	}

	path := exportOutput
	if path == "" {
		path = fmt.Sprintf("%s.%s", client.Room(), format)
	}

	f, err := os.Create(path)
	if err != nil {
		return printer.Error("failed to create output file", err.Error(), nil)
	}

	err = export.Write(f, format, doc, export.Options{Scale: exportScale})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, export.ErrEmpty) {
			return printer.ErrorWithContext(
				"nothing to export",
				"The room has no layers.",
				map[string]string{"Room": client.Room()},
				nil,
			)
		}
		return printer.Error("export failed", err.Error(), nil)
	}

	printer.Success("Exported %d layers to %s\n", len(doc.Order), path)
	return nil
}

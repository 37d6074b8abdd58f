package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/internal/relay"
	"github.com/spf13/cobra"
)

var (
	discoverTimeout time.Duration
	discoverJSON    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find relays on the local network",
	Long: `Browse the local network for relays started with 'ideaboard serve --advertise'.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 3*time.Second, "How long to listen for announcements")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	peers, err := relay.Discover(context.Background(), discoverTimeout)
	if err != nil {
		return printer.Error("discovery failed", err.Error(), nil)
	}

	out := cmd.OutOrStdout()
	if discoverJSON {
		if peers == nil {
			peers = []relay.Peer{}
		}
		data, err := json.MarshalIndent(peers, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal relays: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(peers) == 0 {
		fmt.Fprintln(out, "No relays found.")
		return nil
	}
	fmt.Fprintf(out, "%-30s %s\n", "HOST", "ADDRESS")
	for _, p := range peers {
		fmt.Fprintf(out, "%-30s %s\n", p.Host, p.Addr)
	}
	return nil
}

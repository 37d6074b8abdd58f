package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/internal/relay"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serveListen    string
	serveMemory    bool
	serveAdvertise bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket relay",
	Long: `Run the relay that serves rooms to browsers.

Browsers connect to ws://<listen>/rooms/<room>/ws. Every room named in a
URL is opened on demand. GET /healthz reports the relay and Redis health.

With --memory the rooms live inside this process and vanish when it exits.

Examples:
  # Serve rooms from the Redis in ideaboard.yml
  ideaboard serve

  # Throwaway rooms, announced on the local network
  ideaboard serve --memory --advertise --listen :9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Keep rooms in memory instead of Redis")
	serveCmd.Flags().BoolVar(&serveAdvertise, "advertise", false, "Announce the relay over mDNS")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The relay is a daemon: JSON logs, info level unless --log-level is given.
	level := zerolog.InfoLevel
	if cmd.Flag("log-level").Changed {
		if l, err := zerolog.ParseLevel(logLevel); err == nil {
			level = l
		}
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	relayCfg := relay.Config{
		Listen:       cfg.Server.Listen,
		Advertise:    cfg.Server.Advertise || serveAdvertise,
		PingInterval: cfg.Server.PingInterval,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		PresenceTTL:  cfg.Room.PresenceTTL,
		Canvas:       canvasConfig(cfg),
	}
	if serveListen != "" {
		relayCfg.Listen = serveListen
	}

	opts := storeOptions(cfg, logger)
	var (
		open   relay.Opener
		health relay.Pinger
	)
	if serveMemory {
		open = relay.NewMemoryRooms(opts...).Open
	} else {
		url := cfg.Redis.URL
		if redisURL != "" {
			url = redisURL
		}
		redisOpts, err := redis.ParseURL(url)
		if err != nil {
			return printer.Error("invalid Redis URL", fmt.Sprintf("Could not parse %q: %v", url, err), nil)
		}

		pinger, err := board.NewClient(redisOpts, cfg.Room.Name, opts...)
		if err != nil {
			return printer.Error("failed to create Redis client", err.Error(), nil)
		}
		defer pinger.Close()
		if err := pinger.Ping(ctx); err != nil {
			return printer.ErrorWithContext(
				"Redis not accessible",
				err.Error(),
				map[string]string{"Redis": redisOpts.Addr},
				[]string{
					"Start Redis, or provision a room: ideaboard up",
					"Run without Redis: ideaboard serve --memory",
				},
			)
		}
		open = relay.RedisOpener(redisOpts, opts...)
		health = pinger
	}

	srv := relay.NewServer(relayCfg, open, health, logger)
	printer.Success("Relay listening on %s\n", relayCfg.Listen)
	if err := srv.ListenAndServe(ctx); err != nil {
		return printer.Error("relay stopped", err.Error(), nil)
	}
	printer.Info("Relay stopped\n")
	return nil
}

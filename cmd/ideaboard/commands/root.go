package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dyluth/ideaboard/internal/canvas"
	"github.com/dyluth/ideaboard/internal/config"
	dockerpkg "github.com/dyluth/ideaboard/internal/docker"
	"github.com/dyluth/ideaboard/internal/instance"
	"github.com/dyluth/ideaboard/internal/printer"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath string
	roomName   string
	redisURL   string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ideaboard",
	Short: "Ideaboard - collaborative workshop whiteboard",
	Long: `Ideaboard is a multiplayer whiteboard for running design workshops.

Rooms keep their shared document in Redis. The relay serves rooms to
browsers over websockets; the other commands inspect, export and steer
a room from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Errors have already been printed by the
// command that produced them.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to ideaboard.yml")
	rootCmd.PersistentFlags().StringVarP(&roomName, "room", "r", "", "Target room (defaults to room.name in the config)")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis URL (overrides config, REDIS_URL and provisioned rooms)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
}

// newLogger builds the CLI's stderr logger.
func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// loadConfig reads ideaboard.yml, or the defaults when it is absent, and
// applies environment overrides.
func loadConfig() (*config.BoardConfig, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Fix the file, or remove it to run with defaults"},
		)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, printer.Error("invalid environment", err.Error(), nil)
	}
	return cfg, nil
}

// targetRoom picks the room from --room, then the config.
func targetRoom(cfg *config.BoardConfig) (string, error) {
	room := roomName
	if room == "" {
		room = cfg.Room.Name
	}
	if err := board.ValidateRoomName(room); err != nil {
		return "", printer.Error(
			"invalid room name",
			err.Error(),
			[]string{"Room names are lowercase letters, digits and dashes"},
		)
	}
	return room, nil
}

// redisOptions resolves where the room's document lives: --redis, then
// REDIS_URL, then a container started by `ideaboard up`, then the config.
func redisOptions(ctx context.Context, cfg *config.BoardConfig, room string) (*redis.Options, error) {
	url := cfg.Redis.URL
	switch {
	case redisURL != "":
		url = redisURL
	case os.Getenv("REDIS_URL") != "":
	default:
		if port, ok := provisionedPort(ctx, room); ok {
			url = instance.RedisURL(port)
		}
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, printer.Error("invalid Redis URL", fmt.Sprintf("Could not parse %q: %v", url, err), nil)
	}
	return opts, nil
}

func provisionedPort(ctx context.Context, room string) (int, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return 0, false
	}
	defer cli.Close()

	port, err := instance.RedisPort(ctx, cli, room)
	if err != nil {
		return 0, false
	}
	return port, true
}

// storeOptions maps room limits from the config onto store options.
func storeOptions(cfg *config.BoardConfig, logger zerolog.Logger) []board.Option {
	return []board.Option{
		board.WithMaxLayers(cfg.Room.MaxLayers),
		board.WithPresenceTTL(cfg.Room.PresenceTTL),
		board.WithLogger(logger),
	}
}

// canvasConfig maps tool settings from the config onto an engine config.
func canvasConfig(cfg *config.BoardConfig) canvas.Config {
	return canvas.Config{
		Threshold:    cfg.Room.SelectionThreshold,
		HistoryDepth: cfg.Room.HistoryDepth,
		PencilSize:   cfg.Pencil.Size,
		PencilColor:  cfg.PencilColor(),
		Rules:        cfg.Rules(),
	}
}

// connect opens a store connection to the target room and checks Redis
// answers.
func connect(ctx context.Context) (*board.Client, *config.BoardConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	room, err := targetRoom(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, err := redisOptions(ctx, cfg, room)
	if err != nil {
		return nil, nil, err
	}

	client, err := board.NewClient(opts, room, storeOptions(cfg, newLogger())...)
	if err != nil {
		return nil, nil, printer.Error("failed to create room client", err.Error(), nil)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, printer.ErrorWithContext(
			"Redis not accessible",
			err.Error(),
			map[string]string{"Room": room, "Redis": opts.Addr},
			[]string{
				fmt.Sprintf("Provision the room: ideaboard up --room %s", room),
				"Point at a running Redis with --redis or REDIS_URL",
			},
		)
	}
	return client, cfg, nil
}

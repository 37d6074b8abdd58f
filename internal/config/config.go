package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dyluth/ideaboard/internal/widgets"
	"github.com/dyluth/ideaboard/pkg/board"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the board configuration.
const DefaultPath = "ideaboard.yml"

// Defaults applied by Validate.
const (
	DefaultRedisURL           = "redis://localhost:6379"
	DefaultRoom               = "default"
	DefaultSelectionThreshold = 5
	DefaultPresenceTTL        = 30 * time.Second
	DefaultHistoryDepth       = 100
	DefaultPencilSize         = 16
	DefaultPencilColor        = "#1F1F1F"
	DefaultListen             = ":8080"
	DefaultPingInterval       = 20 * time.Second
	DefaultReadTimeout        = 60 * time.Second
	DefaultWriteTimeout       = 10 * time.Second
	DefaultRedisImage         = "redis:7-alpine"
)

// BoardConfig represents the top-level ideaboard.yml configuration
type BoardConfig struct {
	Version        string                  `yaml:"version"`
	Redis          *RedisConfig            `yaml:"redis,omitempty"`
	Room           *RoomConfig             `yaml:"room,omitempty"`
	Pencil         *PencilConfig           `yaml:"pencil,omitempty"`
	SolvingProblem map[string]widgets.Rule `yaml:"solving_problem,omitempty"`
	Server         *ServerConfig           `yaml:"server,omitempty"`
	RedisImage     string                  `yaml:"redis_image,omitempty"`
}

// RedisConfig locates the shared document store
type RedisConfig struct {
	URL string `yaml:"url"`
}

// RoomConfig holds per-room limits and client defaults
type RoomConfig struct {
	Name               string        `yaml:"name,omitempty"`
	MaxLayers          int           `yaml:"max_layers,omitempty"`
	SelectionThreshold float64       `yaml:"selection_threshold,omitempty"`
	PresenceTTL        time.Duration `yaml:"presence_ttl,omitempty"`
	HistoryDepth       int           `yaml:"history_depth,omitempty"`
}

// PencilConfig holds the freehand tool defaults
type PencilConfig struct {
	Size  float64 `yaml:"size,omitempty"`
	Color string  `yaml:"color,omitempty"` // "#RRGGBB"
}

// ServerConfig configures the websocket relay
type ServerConfig struct {
	Listen       string        `yaml:"listen,omitempty"`
	Advertise    bool          `yaml:"advertise,omitempty"` // announce the relay over mDNS
	PingInterval time.Duration `yaml:"ping_interval,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// Default returns a validated configuration with every default applied.
func Default() *BoardConfig {
	cfg := &BoardConfig{Version: "1.0"}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate performs strict validation on the configuration and fills in
// defaults for omitted sections
func (c *BoardConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.URL == "" {
		c.Redis.URL = DefaultRedisURL
	}

	if err := c.validateRoom(); err != nil {
		return err
	}
	if err := c.validatePencil(); err != nil {
		return err
	}
	if err := c.validateRules(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}

	if c.RedisImage == "" {
		c.RedisImage = DefaultRedisImage
	}
	return nil
}

func (c *BoardConfig) validateRoom() error {
	if c.Room == nil {
		c.Room = &RoomConfig{}
	}
	r := c.Room

	if r.Name == "" {
		r.Name = DefaultRoom
	}
	if err := board.ValidateRoomName(r.Name); err != nil {
		return fmt.Errorf("room.name: %w", err)
	}

	if r.MaxLayers == 0 {
		r.MaxLayers = board.MaxLayers
	}
	if r.MaxLayers < 1 || r.MaxLayers > board.MaxLayers {
		return fmt.Errorf("room.max_layers must be between 1 and %d, got %d", board.MaxLayers, r.MaxLayers)
	}

	if r.SelectionThreshold == 0 {
		r.SelectionThreshold = DefaultSelectionThreshold
	}
	if r.SelectionThreshold < 0 {
		return fmt.Errorf("room.selection_threshold must be >= 0, got %g", r.SelectionThreshold)
	}

	if r.PresenceTTL == 0 {
		r.PresenceTTL = DefaultPresenceTTL
	}
	if r.PresenceTTL < time.Second {
		return fmt.Errorf("room.presence_ttl must be at least 1s, got %s", r.PresenceTTL)
	}

	if r.HistoryDepth == 0 {
		r.HistoryDepth = DefaultHistoryDepth
	}
	if r.HistoryDepth < 1 {
		return fmt.Errorf("room.history_depth must be >= 1, got %d", r.HistoryDepth)
	}
	return nil
}

func (c *BoardConfig) validatePencil() error {
	if c.Pencil == nil {
		c.Pencil = &PencilConfig{}
	}
	if c.Pencil.Size == 0 {
		c.Pencil.Size = DefaultPencilSize
	}
	if c.Pencil.Size < 0 {
		return fmt.Errorf("pencil.size must be positive, got %g", c.Pencil.Size)
	}
	if c.Pencil.Color == "" {
		c.Pencil.Color = DefaultPencilColor
	}
	if _, err := board.ParseColor(c.Pencil.Color); err != nil {
		return fmt.Errorf("pencil.color: %w", err)
	}
	return nil
}

func (c *BoardConfig) validateRules() error {
	defaults := widgets.DefaultRules()
	if c.SolvingProblem == nil {
		c.SolvingProblem = map[string]widgets.Rule{}
	}
	for name := range c.SolvingProblem {
		if err := board.BoxType(name).Validate(); err != nil {
			return fmt.Errorf("solving_problem: %w", err)
		}
	}
	for _, bt := range board.BoxTypes {
		rule, ok := c.SolvingProblem[string(bt)]
		if !ok {
			rule = defaults[bt]
		}
		if rule.MaxCount == 0 {
			rule.MaxCount = defaults[bt].MaxCount
		}
		c.SolvingProblem[string(bt)] = rule
	}
	return c.Rules().Validate()
}

func (c *BoardConfig) validateServer() error {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	s := c.Server
	if s.Listen == "" {
		s.Listen = DefaultListen
	}
	if s.PingInterval == 0 {
		s.PingInterval = DefaultPingInterval
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.PingInterval >= s.ReadTimeout {
		return fmt.Errorf("server.ping_interval (%s) must be shorter than server.read_timeout (%s)", s.PingInterval, s.ReadTimeout)
	}
	return nil
}

// Rules returns the problem-solving gating rules keyed by box type.
func (c *BoardConfig) Rules() widgets.Rules {
	rules := widgets.Rules{}
	for name, rule := range c.SolvingProblem {
		rules[board.BoxType(name)] = rule
	}
	return rules
}

// PencilColor returns the parsed default pen color.
func (c *BoardConfig) PencilColor() board.Color {
	color, err := board.ParseColor(c.Pencil.Color)
	if err != nil {
		return board.ColorInk
	}
	return color
}

// ApplyEnv overrides configuration from the environment the relay daemon
// runs in: IDEABOARD_ROOM, REDIS_URL and IDEABOARD_LISTEN.
func (c *BoardConfig) ApplyEnv() error {
	if v := os.Getenv("IDEABOARD_ROOM"); v != "" {
		if err := board.ValidateRoomName(v); err != nil {
			return fmt.Errorf("invalid IDEABOARD_ROOM: %w", err)
		}
		c.Room.Name = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("IDEABOARD_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	return nil
}

// Load reads and validates ideaboard.yml from the specified path
func Load(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config BoardConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist.
func LoadOrDefault(path string) (*BoardConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

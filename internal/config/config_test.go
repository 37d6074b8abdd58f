package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/ideaboard/internal/widgets"
	"github.com/dyluth/ideaboard/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "ideaboard.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
redis:
  url: "redis://cache:6380/2"
room:
  name: "retro-42"
  max_layers: 50
  presence_ttl: 45s
pencil:
  size: 8
  color: "#FF0000"
solving_problem:
  define:
    min_length: 10
    max_count: 2
server:
  listen: ":9000"
  advertise: true
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6380/2", config.Redis.URL)
	assert.Equal(t, "retro-42", config.Room.Name)
	assert.Equal(t, 50, config.Room.MaxLayers)
	assert.Equal(t, 45*time.Second, config.Room.PresenceTTL)
	assert.Equal(t, 8.0, config.Pencil.Size)
	assert.Equal(t, board.Color{R: 0xFF}, config.PencilColor())
	assert.Equal(t, ":9000", config.Server.Listen)
	assert.True(t, config.Server.Advertise)

	rules := config.Rules()
	assert.Equal(t, widgets.Rule{MinLength: 10, MaxCount: 2}, rules[board.BoxDefine])
	assert.Equal(t, widgets.DefaultRules()[board.BoxSolve], rules[board.BoxSolve], "omitted stages keep defaults")
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/ideaboard.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
room:
  - this is invalid
    yaml syntax
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadOrDefault(t *testing.T) {
	config, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRedisURL, config.Redis.URL)

	_, err = LoadOrDefault(writeConfig(t, `version: "2.0"`))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	config := Default()
	assert.Equal(t, DefaultRoom, config.Room.Name)
	assert.Equal(t, board.MaxLayers, config.Room.MaxLayers)
	assert.Equal(t, float64(DefaultSelectionThreshold), config.Room.SelectionThreshold)
	assert.Equal(t, DefaultPresenceTTL, config.Room.PresenceTTL)
	assert.Equal(t, DefaultHistoryDepth, config.Room.HistoryDepth)
	assert.Equal(t, board.ColorInk, config.PencilColor())
	assert.Equal(t, DefaultRedisImage, config.RedisImage)
	assert.Equal(t, widgets.DefaultRules(), config.Rules())
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	config := &BoardConfig{Version: "2.0"}
	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 2.0")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config BoardConfig
		errMsg string
	}{
		{
			name:   "max layers above ceiling",
			config: BoardConfig{Version: "1.0", Room: &RoomConfig{MaxLayers: 101}},
			errMsg: "room.max_layers must be between 1 and 100",
		},
		{
			name:   "negative threshold",
			config: BoardConfig{Version: "1.0", Room: &RoomConfig{SelectionThreshold: -1}},
			errMsg: "room.selection_threshold",
		},
		{
			name:   "sub-second presence ttl",
			config: BoardConfig{Version: "1.0", Room: &RoomConfig{PresenceTTL: time.Millisecond}},
			errMsg: "room.presence_ttl",
		},
		{
			name:   "invalid room name",
			config: BoardConfig{Version: "1.0", Room: &RoomConfig{Name: "Bad Room!"}},
			errMsg: "room.name",
		},
		{
			name:   "bad pencil color",
			config: BoardConfig{Version: "1.0", Pencil: &PencilConfig{Color: "red"}},
			errMsg: "pencil.color",
		},
		{
			name:   "unknown box type",
			config: BoardConfig{Version: "1.0", SolvingProblem: map[string]widgets.Rule{"explore": {MaxCount: 1}}},
			errMsg: "invalid box type",
		},
		{
			name:   "negative min length",
			config: BoardConfig{Version: "1.0", SolvingProblem: map[string]widgets.Rule{"solve": {MinLength: -1, MaxCount: 1}}},
			errMsg: "min_length",
		},
		{
			name:   "ping slower than read timeout",
			config: BoardConfig{Version: "1.0", Server: &ServerConfig{PingInterval: time.Minute, ReadTimeout: time.Second}},
			errMsg: "server.ping_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IDEABOARD_ROOM", "from-env")
	t.Setenv("REDIS_URL", "redis://env:6379")
	t.Setenv("IDEABOARD_LISTEN", ":7777")

	config := Default()
	require.NoError(t, config.ApplyEnv())
	assert.Equal(t, "from-env", config.Room.Name)
	assert.Equal(t, "redis://env:6379", config.Redis.URL)
	assert.Equal(t, ":7777", config.Server.Listen)

	t.Setenv("IDEABOARD_ROOM", "NOT VALID")
	assert.Error(t, Default().ApplyEnv())
}

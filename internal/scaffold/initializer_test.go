package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/ideaboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	t.Run("fresh directory", func(t *testing.T) {
		dir := t.TempDir()

		path, err := Initialize(dir, Options{Room: "workshop", Listen: ":9000"}, false)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "ideaboard.yml"), path)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "workshop", cfg.Room.Name)
		assert.Equal(t, ":9000", cfg.Server.Listen)
		assert.Equal(t, config.DefaultRedisURL, cfg.Redis.URL)
		assert.Equal(t, config.DefaultPresenceTTL, cfg.Room.PresenceTTL)
		assert.Equal(t, 20, cfg.SolvingProblem["analyze"].MinLength)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		dir := t.TempDir()
		existing := filepath.Join(dir, "ideaboard.yml")
		require.NoError(t, os.WriteFile(existing, []byte("old content"), 0644))

		_, err := Initialize(dir, Options{}, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project already initialized")

		data, err := os.ReadFile(existing)
		require.NoError(t, err)
		assert.Equal(t, "old content", string(data))
	})

	t.Run("force overwrites", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ideaboard.yml"), []byte("old content"), 0644))

		path, err := Initialize(dir, Options{}, true)
		require.NoError(t, err)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultRoom, cfg.Room.Name)
	})

	t.Run("invalid room is rejected", func(t *testing.T) {
		dir := t.TempDir()

		_, err := Initialize(dir, Options{Room: "Bad Room"}, false)
		require.Error(t, err)
		_, statErr := os.Stat(filepath.Join(dir, "ideaboard.yml"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestCheckExisting(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckExisting(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ideaboard.yml"), []byte("version: \"1.0\"\n"), 0644))
	assert.Error(t, CheckExisting(dir))
}

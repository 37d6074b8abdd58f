package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/ideaboard/internal/config"
)

// CheckExisting returns an error if dir already holds an ideaboard.yml.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'ideaboard init --force' to overwrite it", config.DefaultPath)
	}
	return nil
}

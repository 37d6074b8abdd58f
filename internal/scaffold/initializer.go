// Package scaffold writes a starter ideaboard.yml.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dyluth/ideaboard/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Options fill in the starter configuration.
type Options struct {
	Room     string
	RedisURL string
	Listen   string
}

func (o *Options) applyDefaults() {
	if o.Room == "" {
		o.Room = config.DefaultRoom
	}
	if o.RedisURL == "" {
		o.RedisURL = config.DefaultRedisURL
	}
	if o.Listen == "" {
		o.Listen = config.DefaultListen
	}
}

// Initialize writes ideaboard.yml into dir and returns its path. An existing
// file is only replaced when force is set.
func Initialize(dir string, opts Options, force bool) (string, error) {
	path := filepath.Join(dir, config.DefaultPath)
	if !force {
		if err := CheckExisting(dir); err != nil {
			return "", err
		}
	}

	content, err := render(opts)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The file we just wrote must load cleanly.
	if _, err := config.Load(path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("generated %s is invalid: %w", config.DefaultPath, err)
	}
	return path, nil
}

func render(opts Options) ([]byte, error) {
	opts.applyDefaults()

	tmpl, err := template.ParseFS(templatesFS, "templates/ideaboard.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read ideaboard.yml template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("failed to render ideaboard.yml: %w", err)
	}
	return buf.Bytes(), nil
}

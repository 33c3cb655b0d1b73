package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	defaultAPIBaseURL  = "http://localhost:8000/api"
	creditLimit        = 100
)

// appConfig holds client settings from ~/.flowsync/config.toml with
// environment overrides.
type appConfig struct {
	APIBaseURL string `toml:"api_base_url"`
	TokenPath  string `toml:"token_path"`
}

// resolveConfigDir returns the FlowSync config directory, honoring
// FLOWSYNC_HOME for tests and sandboxed installs.
func resolveConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("FLOWSYNC_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".flowsync"), nil
}

// loadConfig resolves settings in precedence order: environment variables,
// config.toml, built-in defaults. A missing config file is fine.
func loadConfig() (appConfig, error) {
	_ = godotenv.Load()

	dir, err := resolveConfigDir()
	if err != nil {
		return appConfig{}, err
	}

	cfg := appConfig{
		APIBaseURL: defaultAPIBaseURL,
		TokenPath:  filepath.Join(dir, "auth-token.json"),
	}

	path := filepath.Join(dir, "config.toml")
	if _, statErr := os.Stat(path); statErr == nil {
		if _, decodeErr := toml.DecodeFile(path, &cfg); decodeErr != nil {
			return appConfig{}, fmt.Errorf("parse %s: %w", path, decodeErr)
		}
	}

	if apiURL := strings.TrimSpace(os.Getenv("FLOWSYNC_API_URL")); apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if tokenPath := strings.TrimSpace(os.Getenv("FLOWSYNC_TOKEN_PATH")); tokenPath != "" {
		cfg.TokenPath = tokenPath
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg, nil
}

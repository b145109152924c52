// Package config handles settings and file paths for the tasklight server.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

const (
	// AppName is the application directory name.
	AppName = "tasklight"

	// ClientConfigFile is the OAuth client credentials filename.
	ClientConfigFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// DefaultOAuthPort is the default port for the OAuth callback listener.
	DefaultOAuthPort = 8765

	// TasksScope is the OAuth scope for full Google Tasks access.
	TasksScope = "https://www.googleapis.com/auth/tasks"
)

// Config holds all settings for the server.
type Config struct {
	// ClientConfigPath is the path to the OAuth client credentials file.
	ClientConfigPath string

	// TokenPath is the path to the persisted OAuth token file.
	TokenPath string

	// OAuthPort is the local port for the interactive authorization callback.
	OAuthPort int

	// Scopes is the set of OAuth scopes requested during authorization.
	Scopes []string

	// LogLevel is the slog level name ("debug", "info", "warn", "error").
	LogLevel string
}

// New returns a Config populated from defaults and TASKLIGHT_* environment
// variables. If configDir is empty the XDG config directory is used.
//
// Environment overrides:
//
//	TASKLIGHT_CLIENT_CONFIG  path to the OAuth client credentials file
//	TASKLIGHT_TOKEN_FILE     path to the token store
//	TASKLIGHT_OAUTH_PORT     OAuth callback port
//	TASKLIGHT_LOG_LEVEL      log level name
func New(configDir string) *Config {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}

	cfg := &Config{
		ClientConfigPath: filepath.Join(dir, ClientConfigFile),
		TokenPath:        filepath.Join(dir, TokenFile),
		OAuthPort:        DefaultOAuthPort,
		Scopes:           []string{TasksScope},
		LogLevel:         "info",
	}

	if v := os.Getenv("TASKLIGHT_CLIENT_CONFIG"); v != "" {
		cfg.ClientConfigPath = v
	}
	if v := os.Getenv("TASKLIGHT_TOKEN_FILE"); v != "" {
		cfg.TokenPath = v
	}
	if v := os.Getenv("TASKLIGHT_OAUTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			cfg.OAuthPort = port
		}
	}
	if v := os.Getenv("TASKLIGHT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// EnsureTokenDir creates the directory holding the token file if needed.
// Directory is created with mode 0700 since it holds a secret.
func (c *Config) EnsureTokenDir() error {
	return os.MkdirAll(filepath.Dir(c.TokenPath), 0700)
}

// HasClientConfig checks if the OAuth client credentials file exists.
func (c *Config) HasClientConfig() bool {
	_, err := os.Stat(c.ClientConfigPath)
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath)
	return err == nil
}

// Package workspace manages the .stepwise folder: console configuration,
// environments, exported scenarios and the log file.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackcoderx/stepwise/pkg/storage"
)

const FolderName = ".stepwise"

// Config represents the console configuration stored in config.json
type Config struct {
	Environment string  `json:"environment" mapstructure:"environment"` // Active environment name
	PageSize    int     `json:"page_size" mapstructure:"page_size"`
	RateLimit   float64 `json:"rate_limit" mapstructure:"rate_limit"` // Backend requests per second, 0 = unlimited
	Theme       string  `json:"theme" mapstructure:"theme"`           // glamour style for reports
	LogLevel    string  `json:"log_level" mapstructure:"log_level"`
}

// DefaultConfig is written on first run.
func DefaultConfig() Config {
	return Config{
		Environment: "dev",
		PageSize:    20,
		RateLimit:   10,
		Theme:       "auto",
		LogLevel:    "info",
	}
}

// Initialize creates the workspace under dir if it doesn't exist. It reports
// whether anything was created.
func Initialize(dir string) (bool, error) {
	root := filepath.Join(dir, FolderName)
	created := false
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return false, fmt.Errorf("failed to create %s folder: %w", FolderName, err)
		}

		if err := createDefaultConfig(root); err != nil {
			return false, err
		}

		if err := os.MkdirAll(storage.GetEnvironmentsDir(root), 0755); err != nil {
			return false, fmt.Errorf("failed to create environments folder: %w", err)
		}

		if err := createDefaultEnvironment(root); err != nil {
			return false, err
		}
		created = true
	}

	// Ensure subdirectories exist (for upgrades from older versions)
	for _, sub := range []string{storage.GetEnvironmentsDir(root), storage.GetScenariosDir(root), ReportsDir(root)} {
		if err := ensureDir(sub); err != nil {
			return created, err
		}
	}

	return created, nil
}

// Root returns the workspace folder under dir.
func Root(dir string) string {
	return filepath.Join(dir, FolderName)
}

// ConfigPath returns the config file of a workspace root.
func ConfigPath(root string) string {
	return filepath.Join(root, "config.json")
}

// LogPath returns the log file of a workspace root.
func LogPath(root string) string {
	return filepath.Join(root, "stepwise.log")
}

// ReportsDir returns the directory execution reports are written to.
func ReportsDir(root string) string {
	return filepath.Join(root, "reports")
}

// ensureDir creates a directory if it doesn't exist
func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.Mkdir(path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
	}
	return nil
}

// createDefaultEnvironment creates a default dev environment file
func createDefaultEnvironment(root string) error {
	envContent := `# Development environment
backend: http://localhost:8080
target: http://localhost:3000
# auth:
#   flow: client_credentials
#   token_url: http://localhost:8080/oauth/token
#   client_id: console
#   client_secret: "{{env:STEPWISE_CLIENT_SECRET}}"
variables: {}
`
	envPath := storage.EnvironmentPath(root, "dev")
	if err := os.WriteFile(envPath, []byte(envContent), 0644); err != nil {
		return fmt.Errorf("failed to write dev environment: %w", err)
	}
	return nil
}

// createDefaultConfig creates a default configuration file
func createDefaultConfig(root string) error {
	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

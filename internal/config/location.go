package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the configuration file location.
const EnvConfigPath = "BTENG_CONFIG"

// GetConfigPath returns the configuration file path using kubectl-style behavior.
// It first checks the BTENG_CONFIG environment variable, then falls back
// to the default location (~/.bteng/config).
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".bteng", "config"), nil
}

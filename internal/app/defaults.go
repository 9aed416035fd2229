package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - RECALL_CONFIG_PATH: config file location (default: ~/.config/recall.toml)
//   - RECALL_HOME: base directory for recall data (default: ~/.local/share/recall)
//
// log_dir and export_dir are derived from the base directory.
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome("RECALL_CONFIG_PATH", ".config", "recall.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome("RECALL_HOME", ".local", "share", "recall")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"export_dir":  filepath.Join(baseDir, "exports"),
	}, nil
}

// envOrHome returns $name when set, otherwise the path under the home
// directory made of elem.
func envOrHome(name string, elem ...string) (string, error) {
	if v := os.Getenv(name); v != "" {
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for %s: %w", name, err)
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}

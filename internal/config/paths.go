package config

import (
	"os"
	"path/filepath"

	"github.com/taskforge/forge/internal/constants"
	"github.com/taskforge/forge/internal/errors"
)

// GlobalConfigDir returns the path to the global forge configuration
// directory, typically ~/.forge on Unix systems.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.ForgeHome), nil
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "get global config path")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ProjectConfigDir returns the relative path to the project configuration
// directory, always .forge relative to the planning directory.
func ProjectConfigDir() string {
	return constants.ForgeHome
}

// ProjectConfigPath returns the relative path to the project configuration
// file, .forge/config.yaml relative to the planning directory.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), "config.yaml")
}

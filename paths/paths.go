package paths

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the directory holding the global inkwell.yml.
// INKWELL_CONFIG_DIR overrides the default for tests and sandboxes.
func ConfigDir() string {
	if dir := os.Getenv("INKWELL_CONFIG_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "inkwell")
}

// StateDir returns the directory holding persisted state (token, last
// opened repository). INKWELL_STATE_DIR overrides the default.
func StateDir() string {
	if dir := os.Getenv("INKWELL_STATE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(ConfigDir(), "state")
}

// LogDir returns the directory holding log files.
func LogDir() string {
	return filepath.Join(ConfigDir(), "logs")
}

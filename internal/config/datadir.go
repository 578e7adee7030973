// ABOUTME: XDG-based data and config directory resolution for the angler CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default data directory for angler's persistent
// state (manifest databases, run journals). Checks XDG_DATA_HOME first,
// then falls back to ~/.local/share/angler.
func DefaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "angler"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "angler"), nil
}

// DefaultConfigDir returns the default config directory for angler
// configuration. Checks XDG_CONFIG_HOME first, then falls back to
// ~/.config/angler.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "angler"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", "angler"), nil
}

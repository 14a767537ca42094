package config

import (
	"os"
	"path/filepath"
)

// FindRepoRoot walks upward from start looking for a .git marker; if none
// is found, the starting directory is used as-is.
func FindRepoRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// StateDir returns <repo>/.lb.
func StateDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".lb")
}

// GlobalConfigDir returns ~/.config/lb.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lb"), nil
}

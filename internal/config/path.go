package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the data directory used when --data-dir is not set.
// PIGEON_DATA_DIR wins, then XDG_DATA_HOME, then an OS-specific location, then
// ~/.pigeon. Without a home directory it returns ./data.
func DefaultDataDir() string {
	if dir := os.Getenv("PIGEON_DATA_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "pigeon")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	for _, c := range dataDirCandidates(home) {
		if c.ok && isDir(c.parent) {
			return filepath.Join(c.parent, c.name)
		}
	}
	return filepath.Join(home, ".pigeon")
}

type dataDirCandidate struct {
	parent string
	name   string
	ok     bool
}

// dataDirCandidates lists platform locations in preference order. /var/lib is
// only writable by root, so it is skipped for other users.
func dataDirCandidates(home string) []dataDirCandidate {
	return []dataDirCandidate{
		{parent: "/var/lib", name: "pigeon", ok: os.Geteuid() == 0},
		{parent: filepath.Join(home, "Library", "Application Support"), name: "Pigeon", ok: true},
		{parent: filepath.Join(home, "AppData", "Local"), name: "Pigeon", ok: true},
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

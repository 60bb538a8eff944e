package config

import (
	"os"
	"path/filepath"
	"strings"
)

// rootMarkers identify a workspace root, nearest first.
var rootMarkers = []string{dirName, "go.mod", ".git"}

// ResolveProjectRoot picks the workspace root handed to the language
// server: lsp.root when configured, else the closest ancestor of the working
// directory holding a root marker, else the working directory itself.
func ResolveProjectRoot(cfg *Config) string {
	if cfg != nil {
		if root := expandHomeDir(cfg.LSP.Root); root != "" {
			if abs, err := filepath.Abs(root); err == nil {
				return abs
			}
			return root
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if root, ok := findRoot(cwd); ok {
		return root
	}
	return cwd
}

func findRoot(dir string) (string, bool) {
	home := homeDir()
	for {
		// The home directory holds the user config dir, which is not a
		// workspace marker.
		if dir != home {
			for _, marker := range rootMarkers {
				if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
					return dir, true
				}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func expandHomeDir(path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "~":
		if home := homeDir(); home != "" {
			return home
		}
	case strings.HasPrefix(path, "~/"):
		if home := homeDir(); home != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

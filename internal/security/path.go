package security

import (
	"path/filepath"
	"strings"
)

// withinRoot reports whether path resolves inside root, purely lexically
// (no symlink resolution — the filesystem tool layer already guards against
// symlink escape before a path ever reaches classification here).
func withinRoot(path, root string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath := path
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(absRoot, path)
	}
	absPath = filepath.Clean(absPath)
	absRoot = filepath.Clean(absRoot)
	if absPath == absRoot {
		return true
	}
	return strings.HasPrefix(absPath, absRoot+string(filepath.Separator))
}

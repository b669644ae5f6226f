// Package pathutil normalizes note paths so the vault, the watcher, and
// the height sidecar all key documents the same way.
package pathutil

import (
	"path/filepath"
	"strings"
)

// NormalizePath converts Windows-style separators to the current
// platform's separator and cleans the resulting path.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}

	replaced := strings.ReplaceAll(p, "\\", "/")
	return filepath.Clean(filepath.FromSlash(replaced))
}

// VaultRelative returns the path to target relative to the vault
// directory, always forward-slashed. The relative form is the document
// key everywhere: watcher messages, the height sidecar, the status bar.
func VaultRelative(vaultDir, target string) (string, error) {
	base := NormalizePath(vaultDir)
	cleanedTarget := NormalizePath(target)

	rel, err := filepath.Rel(base, cleanedTarget)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

// IsMarkdown reports whether a path names a markdown note.
func IsMarkdown(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".md")
}

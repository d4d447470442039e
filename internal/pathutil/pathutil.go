// Package pathutil provides path normalization and hierarchy tests shared by the
// event log, the derivation engine and the notifier binding.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Resolve makes path absolute, cleans it and normalizes it to Unicode NFC.
// Symlinks are not evaluated: paths are compared exactly as the notifier reports them.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return norm.NFC.String(filepath.Clean(abs)), nil
}

// MustResolve is like Resolve but falls back to a cleaned, normalized copy of path
// when the working directory cannot be determined.
func MustResolve(path string) string {
	resolved, err := Resolve(path)
	if err != nil {
		return norm.NFC.String(filepath.Clean(path))
	}
	return resolved
}

// IsSubPathOf reports whether path is a strict descendant of ancestor.
// A path is never a sub path of itself. Both arguments are cleaned first, so
// trailing separators are ignored. Comparison is case sensitive.
func IsSubPathOf(path, ancestor string) bool {
	path = filepath.Clean(path)
	ancestor = filepath.Clean(ancestor)

	if path == ancestor {
		return false
	}

	// The filesystem root already ends with a separator.
	prefix := ancestor
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	return strings.HasPrefix(path, prefix)
}

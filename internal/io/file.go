// Package ioutils provides file system utilities for e6dl.
//
// This package contains functions for:
//   - Directory creation (idempotent, safe under concurrent workers)
//   - Filename sanitization for tag-derived directory names
package ioutils

import (
	"os"
	"regexp"
	"strings"
)

// SanitizeFileName removes or replaces characters that are invalid in
// file/folder names.
//
// Group labels are derived from service data (tag text, rating names),
// which may contain path separators or other characters the filesystem
// rejects. Sanitizing keeps every label a single, valid path segment.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) become underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace collapses to a single space
//   - Trailing whitespace is removed
//
// Example:
//
//	SanitizeFileName("artist/name") // Returns "artist_name"
func SanitizeFileName(name string) string {
	// Replace invalid path/file characters with underscore
	invalidChars := regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	name = invalidChars.ReplaceAllString(name, "_")

	// Remove trailing dots (Windows doesn't allow filenames ending with dots)
	name = regexp.MustCompile(`\.+$`).ReplaceAllString(name, "")

	// Replace multiple whitespace with single space for cleaner names
	name = regexp.MustCompile(`\s+`).ReplaceAllString(name, " ")

	// Remove trailing whitespace
	name = strings.TrimRight(name, " ")

	return name
}

// EnsureDir creates a directory and all parent directories if they
// don't exist.
//
// Directories are created with mode 0755. If the directory already
// exists, no error is returned, so two workers racing to create the
// same group subdirectory both succeed.
//
// Example:
//
//	err := EnsureDir("./out/collection_42")
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

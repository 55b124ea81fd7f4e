// Package sanitize validates paths and patterns that come from outside the
// process (the GitHub API, config files) before they touch the filesystem.
package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrPathTraversal indicates a path escapes its root.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrAbsolutePath indicates an absolute path was given where a relative
	// one was expected.
	ErrAbsolutePath = errors.New("absolute path not allowed")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidPattern indicates a glob pattern is malformed or reaches
	// outside the work dir.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// JoinWithin joins the relative, slash-separated path onto root and checks
// that the result stays inside root.
func JoinWithin(root, path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	native := filepath.FromSlash(path)
	if filepath.IsAbs(native) || strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, path)
	}

	clean := filepath.Clean(native)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	return filepath.Join(root, clean), nil
}

// ValidateGlobPattern checks that pattern is valid doublestar syntax and
// stays relative to the directory it is matched against.
func ValidateGlobPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPattern)
	}
	if strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("%w: absolute", ErrInvalidPattern)
	}
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: contains path traversal", ErrInvalidPattern)
		}
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: malformed", ErrInvalidPattern)
	}
	return nil
}

// ValidateGlobPatterns validates each pattern.
func ValidateGlobPatterns(patterns []string) error {
	for i, p := range patterns {
		if err := ValidateGlobPattern(p); err != nil {
			return fmt.Errorf("pattern[%d] %q: %w", i, p, err)
		}
	}
	return nil
}

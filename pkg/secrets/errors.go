// Package secrets finds credentials in requirement text before it leaves the
// repository. Detection uses the Gitleaks default rule set, narrowed by the
// project's .gitleaks.toml and an optional user allowlist.
package secrets

import "errors"

var (
	// ErrInvalidRegex indicates an allowlist pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates an allowlist file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")
)

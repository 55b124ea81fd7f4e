package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// DefaultFileName is looked up in the work dir when no --config is given.
	DefaultFileName = ".featuresync.yaml"
)

// sections lists the top-level keys environment variables may populate.
// Anything else in the environment (PATH, HOME, RUNNER_*) is ignored.
var sections = map[string]bool{
	"github":     true,
	"codebeamer": true,
	"git":        true,
	"sync":       true,
	"secrets":    true,
	"metrics":    true,
	"logging":    true,
	"telemetry":  true,
}

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (GITHUB_TOKEN, CODEBEAMER_API_URL, etc.)
//  2. YAML config file
//  3. Defaults (see Default)
//
// An empty configPath skips the file. A non-empty configPath must exist.
//
// # Security Considerations
//
// Files that are world-writable are rejected, since the file can redirect
// credentials to another tracker. Files larger than 1MB are rejected.
//
// # Environment Variable Mapping
//
// The first underscore separates section from field, which lines up with
// the names GitHub Actions and the workflow already export:
//
//	GITHUB_EVENT_PATH    -> github.event_path
//	GITHUB_HEAD_REF      -> github.head_ref
//	CODEBEAMER_API_URL   -> codebeamer.api_url
//	CODEBEAMER_TRACKER_ID -> codebeamer.tracker_id
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		// Use rawbytes provider to avoid re-opening the file
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	// A configured include list replaces the default one instead of
	// being merged into it index by index.
	if k.Exists("github.include") {
		cfg.GitHub.Include = nil
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ResolvePath returns flagPath when set, otherwise the default file in
// workDir if one exists, otherwise "".
func ResolvePath(flagPath, workDir string) string {
	if flagPath != "" {
		return flagPath
	}
	candidate := filepath.Join(workDir, DefaultFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// envKey maps an environment variable to a config key, splitting on the
// first underscore only (section.field_name pattern). It returns "" for
// variables outside the known sections, which koanf skips.
func envKey(s string) string {
	lower := strings.ToLower(s)
	section, field, ok := strings.Cut(lower, "_")
	if !ok || field == "" || !sections[section] {
		return ""
	}
	return section + "." + field
}

// envValue skips empty variables so that an exported but blank variable
// (GITHUB_HEAD_REF on push events) does not mask a file setting.
func envValue(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	return envKey(key), value
}

func readConfigFile(path string) ([]byte, error) {
	// Open file once and validate using file descriptor to avoid TOCTOU race
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties checks file permissions and size.
// Takes FileInfo from an already-opened file descriptor to avoid TOCTOU race.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", info.Name())
	}

	// Skip on Windows (different permission model)
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o002 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (must not be world-writable)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

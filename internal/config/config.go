// Package config provides configuration loading for featuresync.
//
// Configuration is assembled once in main and handed to each component's
// constructor; no other package reads the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/featuresync/internal/sanitize"
)

// Config holds the complete featuresync configuration.
type Config struct {
	GitHub     GitHubConfig     `koanf:"github"`
	Codebeamer CodebeamerConfig `koanf:"codebeamer"`
	Git        GitConfig        `koanf:"git"`
	Sync       SyncConfig       `koanf:"sync"`
	Secrets    SecretsConfig    `koanf:"secrets"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// GitHubConfig describes the pull request being synchronized. Field names
// line up with the variables GitHub Actions exports (GITHUB_TOKEN,
// GITHUB_REPOSITORY, GITHUB_EVENT_PATH, ...).
type GitHubConfig struct {
	Token      Secret `koanf:"token"`
	Repository string `koanf:"repository"` // owner/name
	EventPath  string `koanf:"event_path"`
	EventName  string `koanf:"event_name"`
	HeadRef    string `koanf:"head_ref"`
	RefName    string `koanf:"ref_name"`
	// APIURL points at a GitHub Enterprise API; empty means api.github.com.
	APIURL string `koanf:"api_url"`
	// Include holds doublestar patterns selecting feature files.
	Include []string `koanf:"include"`
}

// CodebeamerConfig holds requirements tracker connection settings.
type CodebeamerConfig struct {
	APIURL     string   `koanf:"api_url"`
	Username   string   `koanf:"username"`
	Password   Secret   `koanf:"password"`
	TrackerID  int      `koanf:"tracker_id"`
	Timeout    Duration `koanf:"timeout"`
	RateLimit  float64  `koanf:"rate_limit"` // requests per second
	MaxRetries int      `koanf:"max_retries"`
}

// GitConfig controls how annotated files are committed and pushed.
type GitConfig struct {
	Remote        string `koanf:"remote"`
	AuthorName    string `koanf:"author_name"`
	AuthorEmail   string `koanf:"author_email"`
	CommitMessage string `koanf:"commit_message"`
	Push          bool   `koanf:"push"`
}

// SyncConfig holds synchronization behaviour.
type SyncConfig struct {
	WorkDir     string `koanf:"work_dir"`
	DryRun      bool   `koanf:"dry_run"`
	SafetyTag   string `koanf:"safety_tag"`
	SecurityTag string `koanf:"security_tag"`
}

// SecretsConfig controls redaction of secrets from tracker payloads.
type SecretsConfig struct {
	Redact bool `koanf:"redact"`
	// AllowlistPath is a user-level allowlist TOML file. The project's
	// .gitleaks.toml in the work dir is always consulted.
	AllowlistPath string `koanf:"allowlist_path"`
}

// MetricsConfig controls the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// LoggingConfig is the subset of logging settings exposed to users.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig is the subset of OpenTelemetry settings exposed to users.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"` // grpc or http/protobuf
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			Include: []string{"**/*.feature"},
		},
		Codebeamer: CodebeamerConfig{
			Timeout:    Duration(30 * time.Second),
			RateLimit:  5,
			MaxRetries: 3,
		},
		Git: GitConfig{
			Remote:        "origin",
			AuthorName:    "Codebeamer Integration",
			AuthorEmail:   "action@github.com",
			CommitMessage: "Add Codebeamer requirement IDs to feature files",
			Push:          true,
		},
		Sync: SyncConfig{
			WorkDir:     ".",
			SafetyTag:   "@Safety",
			SecurityTag: "@Security",
		},
		Secrets: SecretsConfig{
			Redact: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "featuresync",
		},
	}
}

// Validate checks settings that are wrong regardless of which command runs.
func (c *Config) Validate() error {
	if c.Codebeamer.APIURL != "" {
		if _, err := url.ParseRequestURI(c.Codebeamer.APIURL); err != nil {
			return fmt.Errorf("invalid codebeamer.api_url: %w", err)
		}
	}
	if c.Codebeamer.RateLimit < 0 {
		return fmt.Errorf("codebeamer.rate_limit must be >= 0, got %v", c.Codebeamer.RateLimit)
	}
	if c.Codebeamer.MaxRetries < 0 {
		return fmt.Errorf("codebeamer.max_retries must be >= 0, got %d", c.Codebeamer.MaxRetries)
	}
	if c.Codebeamer.Timeout.Duration() <= 0 {
		return errors.New("codebeamer.timeout must be positive")
	}
	if len(c.GitHub.Include) == 0 {
		return errors.New("github.include must list at least one pattern")
	}
	if err := sanitize.ValidateGlobPatterns(c.GitHub.Include); err != nil {
		return fmt.Errorf("invalid github.include: %w", err)
	}
	if c.Sync.WorkDir == "" {
		return errors.New("sync.work_dir is required")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}

// Validate checks that enough is set to create tracker items.
func (c *CodebeamerConfig) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("codebeamer.api_url is required"))
	}
	if c.Username == "" {
		errs = append(errs, errors.New("codebeamer.username is required"))
	}
	if !c.Password.IsSet() {
		errs = append(errs, errors.New("codebeamer.password is required"))
	}
	if c.TrackerID <= 0 {
		errs = append(errs, errors.New("codebeamer.tracker_id must be a positive integer"))
	}
	return errors.Join(errs...)
}

// OwnerRepo splits Repository ("owner/name").
func (g *GitHubConfig) OwnerRepo() (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(g.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("github.repository must be owner/name, got %q", g.Repository)
	}
	return owner, repo, nil
}

// Branch returns the branch annotated files are pushed to: the PR head ref
// when present, otherwise the ref name of the triggering event.
func (g *GitHubConfig) Branch() string {
	if g.HeadRef != "" {
		return g.HeadRef
	}
	return g.RefName
}

package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{
			name:    "bad api url",
			mutate:  func(c *Config) { c.Codebeamer.APIURL = "not a url" },
			wantErr: "codebeamer.api_url",
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.Codebeamer.RateLimit = -1 },
			wantErr: "rate_limit",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Codebeamer.MaxRetries = -1 },
			wantErr: "max_retries",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Codebeamer.Timeout = 0 },
			wantErr: "timeout",
		},
		{
			name:    "empty include",
			mutate:  func(c *Config) { c.GitHub.Include = nil },
			wantErr: "github.include",
		},
		{
			name:    "include escapes work dir",
			mutate:  func(c *Config) { c.GitHub.Include = []string{"../**/*.feature"} },
			wantErr: "github.include",
		},
		{
			name:    "empty work dir",
			mutate:  func(c *Config) { c.Sync.WorkDir = "" },
			wantErr: "work_dir",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCodebeamerConfig_Validate(t *testing.T) {
	var empty CodebeamerConfig
	err := empty.Validate()
	require.Error(t, err)
	for _, field := range []string{"api_url", "username", "password", "tracker_id"} {
		assert.Contains(t, err.Error(), field)
	}

	full := CodebeamerConfig{
		APIURL:    "https://cb.example.com/api/v3",
		Username:  "robot",
		Password:  "pw",
		TrackerID: 12,
	}
	assert.NoError(t, full.Validate())
}

func TestGitHubConfig_OwnerRepo(t *testing.T) {
	g := GitHubConfig{Repository: "acme/widgets"}
	owner, repo, err := g.OwnerRepo()
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)

	for _, bad := range []string{"", "acme", "/widgets", "acme/", "a/b/c"} {
		g := GitHubConfig{Repository: bad}
		_, _, err := g.OwnerRepo()
		assert.Error(t, err, bad)
	}
}

func TestGitHubConfig_Branch(t *testing.T) {
	assert.Equal(t, "head", (&GitHubConfig{HeadRef: "head", RefName: "ref"}).Branch())
	assert.Equal(t, "ref", (&GitHubConfig{RefName: "ref"}).Branch())
	assert.Empty(t, (&GitHubConfig{}).Branch())
}

func TestSecret_NeverPrints(t *testing.T) {
	s := Secret("ghp_supersecret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "ghp_supersecret", s.Value())

	data, err := json.Marshal(struct{ Token Secret }{s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "supersecret")

	assert.Empty(t, Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

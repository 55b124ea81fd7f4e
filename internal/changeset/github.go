package changeset

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fyrsmithlabs/featuresync/internal/config"
	"github.com/fyrsmithlabs/featuresync/internal/logging"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// File statuses reported by the pull request files API that a run acts on.
const (
	StatusAdded    = "added"
	StatusModified = "modified"
)

// NewGitHubClient creates a GitHub client authenticated with token. apiURL
// selects a GitHub Enterprise Server; empty or api.github.com uses the
// public API.
func NewGitHubClient(ctx context.Context, token config.Secret, apiURL string) (*github.Client, error) {
	if !token.IsSet() {
		return nil, fmt.Errorf("GitHub token not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if apiURL == "" {
		return client, nil
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
	}
	if u.Host == "api.github.com" {
		return client, nil
	}
	return client.WithEnterpriseURLs(apiURL, apiURL)
}

// GitHubProvider lists the feature files a pull request touches.
type GitHubProvider struct {
	client  *github.Client
	include []string
	retry   *RetryConfig
	logger  *logging.Logger
}

// NewGitHubProvider creates a provider. include holds doublestar patterns;
// a nil retry uses DefaultRetryConfig.
func NewGitHubProvider(client *github.Client, include []string, retry *RetryConfig, logger *logging.Logger) *GitHubProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &GitHubProvider{
		client:  client,
		include: include,
		retry:   retry,
		logger:  logger,
	}
}

// ChangedFiles returns the paths, relative to the repository root, of files
// the pull request adds or modifies that match the include patterns. Paths
// are returned in API order.
func (p *GitHubProvider) ChangedFiles(ctx context.Context, pr PullRequest) ([]string, error) {
	if err := pr.Validate(); err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: 100}
	var paths []string
	for {
		var files []*github.CommitFile
		resp, err := retryGitHubOperation(ctx, p.retry, p.logger, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			files, resp, err = p.client.PullRequests.ListFiles(ctx, pr.Owner, pr.Repo, pr.Number, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list files of %s: %w", pr, err)
		}

		for _, f := range files {
			if Selected(f.GetFilename(), f.GetStatus(), p.include) {
				paths = append(paths, f.GetFilename())
			} else {
				p.logger.Trace(ctx, "file not selected",
					zap.String("path", f.GetFilename()),
					zap.String("status", f.GetStatus()),
				)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	p.logger.Info(ctx, "listed pull request files",
		zap.Stringer("pull_request", pr),
		zap.Int("selected", len(paths)),
	)
	return paths, nil
}

// Selected reports whether a pull request file takes part in a run: it must
// be added or modified and match one of the include patterns.
func Selected(path, status string, include []string) bool {
	if status != StatusAdded && status != StatusModified {
		return false
	}
	return Matches(path, include)
}

// Matches reports whether path matches any doublestar pattern in include.
// Invalid patterns never match.
func Matches(path string, include []string) bool {
	path = strings.TrimPrefix(path, "./")
	for _, pattern := range include {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

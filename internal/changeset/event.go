package changeset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/google/go-github/v57/github"
)

// maxEventSize bounds the event payload GitHub writes to GITHUB_EVENT_PATH.
const maxEventSize = 25 << 20

// ErrNoPullRequest is returned when the triggering event does not carry a
// pull request.
var ErrNoPullRequest = errors.New("event does not reference a pull request")

// validNameRegex matches GitHub owner and repository names.
var validNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// PullRequest identifies the pull request a run synchronizes.
type PullRequest struct {
	Owner   string
	Repo    string
	Number  int
	HeadRef string
}

// String returns owner/repo#number.
func (p PullRequest) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}

// Validate checks the fields used to build API paths.
func (p PullRequest) Validate() error {
	if p.Number <= 0 {
		return fmt.Errorf("invalid PR number %d", p.Number)
	}
	if !validNameRegex.MatchString(p.Owner) {
		return fmt.Errorf("invalid repository owner %q", p.Owner)
	}
	if !validNameRegex.MatchString(p.Repo) {
		return fmt.Errorf("invalid repository name %q", p.Repo)
	}
	return nil
}

// LoadEvent reads the webhook payload GitHub Actions stores at path and
// extracts the pull request. name is GITHUB_EVENT_NAME; an empty name is
// treated as "pull_request".
//
// pull_request and pull_request_target events take the top-level number,
// falling back to pull_request.number. pull_request_review events take
// pull_request.number. Anything else yields ErrNoPullRequest.
func LoadEvent(path, name string) (*PullRequest, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no event path", ErrNoPullRequest)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event file: %w", err)
	}
	defer f.Close()

	payload, err := io.ReadAll(io.LimitReader(f, maxEventSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}

	return ParseEvent(name, payload)
}

// ParseEvent extracts the pull request from an event payload.
func ParseEvent(name string, payload []byte) (*PullRequest, error) {
	switch name {
	case "", "pull_request_target":
		name = "pull_request"
	}

	event, err := github.ParseWebHook(name, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoPullRequest, name, err)
	}

	var (
		pr     *github.PullRequest
		repo   *github.Repository
		number int
	)
	switch e := event.(type) {
	case *github.PullRequestEvent:
		pr, repo = e.GetPullRequest(), e.GetRepo()
		number = e.GetNumber()
		if number == 0 {
			number = pr.GetNumber()
		}
	case *github.PullRequestReviewEvent:
		pr, repo = e.GetPullRequest(), e.GetRepo()
		number = pr.GetNumber()
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoPullRequest, name)
	}

	if number == 0 {
		return nil, ErrNoPullRequest
	}

	out := &PullRequest{
		Owner:   repo.GetOwner().GetLogin(),
		Repo:    repo.GetName(),
		Number:  number,
		HeadRef: pr.GetHead().GetRef(),
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return out, nil
}

package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// PublishOptions configures a Publisher.
type PublishOptions struct {
	Remote      string
	Branch      string // empty: the branch HEAD points at
	AuthorName  string
	AuthorEmail string
	// Token authenticates HTTPS pushes as x-access-token, the form GitHub
	// accepts for installation and workflow tokens.
	Token string
	Push  bool
}

// PublishResult describes what Publish did.
type PublishResult struct {
	Commit string // empty when nothing was committed
	Branch string
	Pushed bool
}

// Publisher commits a set of files in one repository and pushes the commit.
type Publisher struct {
	dir  string
	opts PublishOptions
	now  func() time.Time
}

// NewPublisher creates a publisher for the repository containing dir. Paths
// passed to Publish are relative to dir.
func NewPublisher(dir string, opts PublishOptions) *Publisher {
	if opts.Remote == "" {
		opts.Remote = gogit.DefaultRemoteName
	}
	return &Publisher{dir: dir, opts: opts, now: time.Now}
}

// Publish stages paths, commits them with message and, when pushing is
// enabled, points refs/heads/<branch> at the commit and pushes that ref.
//
// An empty path list, or paths without changes, is a no-op. When the push
// fails the commit is kept and returned together with the error.
func (p *Publisher) Publish(ctx context.Context, paths []string, message string) (*PublishResult, error) {
	result := &PublishResult{}
	if len(paths) == 0 {
		return result, nil
	}

	repo, err := openRepo(p.dir)
	if err != nil {
		return result, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return result, fmt.Errorf("opening worktree: %w", err)
	}

	staged, err := p.stage(wt, paths)
	if err != nil {
		return result, err
	}
	if !staged {
		return result, nil
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  p.now(),
		},
	})
	if err != nil {
		return result, fmt.Errorf("committing: %w", err)
	}
	result.Commit = hash.String()

	branch, err := p.branch(repo)
	if err != nil {
		if p.opts.Push {
			return result, err
		}
		// Commit-only runs on a detached HEAD have no ref to move.
		return result, nil
	}
	result.Branch = branch

	ref := plumbing.NewBranchReferenceName(branch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(ref, hash)); err != nil {
		return result, fmt.Errorf("updating %s: %w", ref, err)
	}

	if !p.opts.Push {
		return result, nil
	}

	push := &gogit.PushOptions{
		RemoteName: p.opts.Remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref.String() + ":" + ref.String())},
	}
	if p.opts.Token != "" {
		push.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: p.opts.Token}
	}
	err = repo.PushContext(ctx, push)
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return result, fmt.Errorf("pushing %s to %s: %w", branch, p.opts.Remote, err)
	}
	result.Pushed = true
	return result, nil
}

// stage adds paths to the index and reports whether any of them differ
// from HEAD.
func (p *Publisher) stage(wt *gogit.Worktree, paths []string) (bool, error) {
	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return false, fmt.Errorf("resolving worktree root: %w", err)
	}
	base, err := filepath.Abs(p.dir)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", p.dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}

	rels := make([]string, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(root, filepath.Join(base, filepath.FromSlash(path)))
		if err != nil {
			return false, fmt.Errorf("locating %s in worktree: %w", path, err)
		}
		rel = filepath.ToSlash(rel)
		if _, err := wt.Add(rel); err != nil {
			return false, fmt.Errorf("staging %s: %w", rel, err)
		}
		rels = append(rels, rel)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("reading status: %w", err)
	}
	for _, rel := range rels {
		if fs := status.File(rel); fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			return true, nil
		}
	}
	return false, nil
}

func (p *Publisher) branch(repo *gogit.Repository) (string, error) {
	if p.opts.Branch != "" {
		return p.opts.Branch, nil
	}
	branch, err := headBranch(repo)
	if errors.Is(err, ErrDetachedHead) {
		return "", fmt.Errorf("%w: %v", ErrNoBranch, err)
	}
	return branch, err
}

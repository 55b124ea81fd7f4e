// Package git commits and pushes annotated feature files.
//
// It is built on go-git so that CI runners need no git binary, and so that
// the token used for pushing never appears on a command line.
package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

var (
	// ErrNotGitRepo indicates the directory is not inside a Git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrDetachedHead indicates HEAD does not point at a branch.
	ErrDetachedHead = errors.New("HEAD is detached")

	// ErrNoBranch indicates a push was requested without a branch to push.
	ErrNoBranch = errors.New("no branch to push to")
)

// openRepo opens the repository containing path, searching parent
// directories for .git.
func openRepo(path string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, path)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return repo, nil
}

// DetectBranch returns the branch HEAD points at in the repository
// containing projectPath.
//
// CI checkouts of pull requests are usually detached; callers should prefer
// the branch the CI system reports and use this as a fallback.
func DetectBranch(projectPath string) (string, error) {
	repo, err := openRepo(projectPath)
	if err != nil {
		return "", err
	}
	return headBranch(repo)
}

func headBranch(repo *gogit.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Name().Short(), nil
}

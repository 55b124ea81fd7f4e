package changeset

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// LocalProvider selects files from a directory tree by pattern.
type LocalProvider struct {
	fsys    fs.FS
	include []string
	exclude []string
}

// NewLocalProvider creates a provider rooted at dir.
func NewLocalProvider(dir string, include []string) *LocalProvider {
	return &LocalProvider{fsys: os.DirFS(dir), include: include}
}

// ChangedFiles returns every regular file under the root matching an
// include pattern, as sorted slash-separated relative paths. Files under
// .git are skipped.
func (p *LocalProvider) ChangedFiles(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, pattern := range p.include {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
		matches, err := doublestar.Glob(p.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if m == ".git" || strings.HasPrefix(m, ".git/") || p.excluded(m) {
				continue
			}
			seen[m] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for m := range seen {
		paths = append(paths, m)
	}
	sort.Strings(paths)
	return paths, nil
}

// Exclude skips files matching any of patterns (doublestar syntax, as
// produced by the ignore package). It returns p for chaining.
func (p *LocalProvider) Exclude(patterns ...string) *LocalProvider {
	p.exclude = append(p.exclude, patterns...)
	return p
}

func (p *LocalProvider) excluded(path string) bool {
	for _, pattern := range p.exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

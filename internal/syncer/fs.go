package syncer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/featuresync/internal/sanitize"
)

// Reader loads document text by path.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// Writer stores document text by path.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// DirFS reads and writes files by slash-separated path relative to Root.
// Paths that are absolute or climb out of Root are rejected, since they come
// from the GitHub API. An empty Root means the current directory.
type DirFS struct {
	Root string
}

func (d DirFS) resolve(path string) (string, error) {
	root := d.Root
	if root == "" {
		root = "."
	}
	return sanitize.JoinWithin(root, path)
}

// ReadFile reads path under Root.
func (d DirFS) ReadFile(path string) ([]byte, error) {
	full, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// WriteFile replaces path under Root through a temp file and rename, keeping
// the existing file mode.
func (d DirFS) WriteFile(path string, data []byte) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(full)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	return os.Rename(tmpName, full)
}

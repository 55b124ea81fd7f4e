// Package ignore reads gitignore-style files into doublestar patterns so
// that local scans skip vendored or generated feature files.
package ignore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFiles are consulted in the scanned directory, in order.
var DefaultFiles = []string{".gitignore", ".featuresyncignore"}

// Parser reads ignore files from a directory.
type Parser struct {
	// Files lists the ignore file names to look for.
	Files []string
}

// NewParser creates a parser for the given ignore file names. With no names
// DefaultFiles are used.
func NewParser(files ...string) *Parser {
	if len(files) == 0 {
		files = DefaultFiles
	}
	return &Parser{Files: files}
}

// Patterns reads every ignore file present in dir and returns their patterns
// without duplicates. Missing files are skipped.
func (p *Parser) Patterns(dir string) ([]string, error) {
	var patterns []string
	seen := make(map[string]bool)

	for _, name := range p.Files {
		filePatterns, err := readFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, pat := range filePatterns {
			if !seen[pat] {
				seen[pat] = true
				patterns = append(patterns, pat)
			}
		}
	}
	return patterns, nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if pat := parseLine(scanner.Text()); pat != "" {
			patterns = append(patterns, pat)
		}
	}
	return patterns, scanner.Err()
}

// parseLine converts one ignore line to a glob. Comments, blank lines and
// negations (unsupported) yield "".
func parseLine(line string) string {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return ""
	}
	return toGlob(line)
}

// toGlob maps gitignore semantics onto doublestar:
//   - a leading "/" anchors at the root
//   - a trailing "/" matches everything below the directory
//   - a name without "/" matches at any depth
//   - a name without an extension is treated as a directory as well
func toGlob(pattern string) string {
	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")

	if strings.HasSuffix(pattern, "/") {
		pattern += "**"
	}
	if !anchored && !strings.Contains(strings.TrimSuffix(pattern, "/**"), "/") && !strings.HasPrefix(pattern, "*") {
		pattern = "**/" + pattern
	}
	if !strings.HasSuffix(pattern, "/**") && !strings.HasSuffix(pattern, "/*") && !strings.Contains(filepath.Base(pattern), ".") {
		pattern += "/**"
	}
	return pattern
}

package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// previewLen is how many leading characters of a secret the marker keeps.
const previewLen = 4

// Finding is a detected secret.
type Finding struct {
	RuleID string
	Line   int
	Match  string
}

// Detector scans strings with the Gitleaks default rules. It is built once
// and safe for concurrent use.
type Detector struct {
	mu sync.Mutex
	d  *detect.Detector
}

// NewDetector builds a detector narrowed by the allowlists found under
// projectDir and at userAllowlistPath.
func NewDetector(projectDir, userAllowlistPath string) (*Detector, error) {
	allowlist, err := LoadAllowlists(projectDir, userAllowlistPath)
	if err != nil {
		return nil, err
	}
	return NewDetectorWithAllowlist(allowlist)
}

// NewDetectorWithAllowlist builds a detector from an already loaded
// allowlist. A nil allowlist applies none.
func NewDetectorWithAllowlist(allowlist *Allowlist) (*Detector, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("gitleaks default config: %w", err)
	}
	if !allowlist.Empty() {
		if err := applyAllowlist(&d.Config, allowlist); err != nil {
			return nil, err
		}
	}
	return &Detector{d: d}, nil
}

// Detect returns every secret found in content.
func (d *Detector) Detect(content string) []Finding {
	d.mu.Lock()
	found := d.d.DetectString(content)
	d.mu.Unlock()

	out := make([]Finding, 0, len(found))
	for _, f := range found {
		if f.Secret == "" {
			continue
		}
		out = append(out, Finding{RuleID: f.RuleID, Line: f.StartLine, Match: f.Secret})
	}
	return out
}

// Redact replaces each detected secret in s with a
// [REDACTED:<rule>:<preview>] marker and returns the number of distinct
// secrets replaced.
func (d *Detector) Redact(s string) (string, int, error) {
	findings := d.Detect(s)
	if len(findings) == 0 {
		return s, 0, nil
	}

	// Longest first so a secret that contains another is replaced whole.
	sort.SliceStable(findings, func(i, j int) bool {
		return len(findings[i].Match) > len(findings[j].Match)
	})

	seen := make(map[string]bool, len(findings))
	count := 0
	for _, f := range findings {
		if seen[f.Match] || !strings.Contains(s, f.Match) {
			continue
		}
		seen[f.Match] = true
		s = strings.ReplaceAll(s, f.Match, Marker(f.RuleID, f.Match))
		count++
	}
	return s, count, nil
}

// Marker formats the replacement text for a secret.
func Marker(ruleID, secret string) string {
	preview := secret
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	return fmt.Sprintf("[REDACTED:%s:%s]", ruleID, preview)
}

func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) error {
	global := &gitleaksConfig.Allowlist{Description: "featuresync project/user allowlist"}

	for _, p := range allowlist.Paths {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRegex, p, err)
		}
		global.Paths = append(global.Paths, (*gitleaksRegexp.Regexp)(re))
	}
	for _, p := range allowlist.Regexes {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRegex, p, err)
		}
		global.Regexes = append(global.Regexes, (*gitleaksRegexp.Regexp)(re))
	}

	cfg.Allowlists = append(cfg.Allowlists, global)
	return nil
}

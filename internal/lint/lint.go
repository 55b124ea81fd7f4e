// Package lint checks feature files for problems that sync would either
// trip over or silently accept.
package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/featuresync/internal/requirement"
)

// Rule names.
const (
	RuleDuplicateID = "duplicate-id"
	RuleMissingLink = "missing-link"
	RuleNoScenarios = "no-scenarios"
	RuleUntitled    = "untitled"
	RuleOrphanLink  = "orphan-link"
)

// Severity ranks findings. Only errors fail a check.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Document is a feature file to check.
type Document struct {
	Path string
	Text string
}

// Finding is one problem at one location.
type Finding struct {
	Rule      string
	Severity  Severity
	Path      string
	Line      int
	PrimaryID string
	Message   string
}

// Report is the result of Check.
type Report struct {
	Documents    int
	Requirements int
	Findings     []Finding
}

// HasErrors reports whether any finding is an error.
func (r *Report) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns how many findings have the given rule.
func (r *Report) Count(rule string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Rule == rule {
			n++
		}
	}
	return n
}

type location struct {
	path string
	line int
}

// Check parses every document and reports findings sorted by path and line.
// An identity tag is a duplicate when it already appeared earlier in the same
// document or in an earlier document.
func Check(docs []Document) Report {
	var report Report
	seen := make(map[string]location)

	for _, doc := range docs {
		report.Documents++
		report.Findings = append(report.Findings, orphanLinks(doc)...)

		for _, r := range requirement.Parse(doc.Text) {
			report.Requirements++
			at := func(rule string, sev Severity, msg string) {
				report.Findings = append(report.Findings, Finding{
					Rule: rule, Severity: sev, Path: doc.Path, Line: r.LineNumber, PrimaryID: r.PrimaryID, Message: msg,
				})
			}

			if first, dup := seen[r.PrimaryID]; dup {
				at(RuleDuplicateID, SeverityError, fmt.Sprintf("%s already defined at %s:%d", r.PrimaryID, first.path, first.line))
			} else {
				seen[r.PrimaryID] = location{path: doc.Path, line: r.LineNumber}
			}
			if r.Title == "" {
				at(RuleUntitled, SeverityWarning, "no Feature: title, tracker item will be named after the identity tag")
			}
			if len(r.Scenarios) == 0 {
				at(RuleNoScenarios, SeverityWarning, "no scenarios, acceptance criteria will be empty")
			}
			if !r.HasRemoteLink() {
				at(RuleMissingLink, SeverityInfo, "not yet synced")
			}
		}
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})
	return report
}

// orphanLinks finds remote links above the first identity tag. The parser
// ignores them, so whatever they were meant to link stays unlinked.
func orphanLinks(doc Document) []Finding {
	var out []Finding
	for i, line := range strings.Split(doc.Text, "\n") {
		tok := requirement.ClassifyLine(line)
		if tok.Kind == requirement.TokenIdentity {
			break
		}
		if tok.Kind == requirement.TokenRemoteLink {
			out = append(out, Finding{
				Rule:     RuleOrphanLink,
				Severity: SeverityWarning,
				Path:     doc.Path,
				Line:     i + 1,
				Message:  tok.Text + " appears before any identity tag and is ignored",
			})
		}
	}
	return out
}

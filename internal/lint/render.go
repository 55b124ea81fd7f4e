package lint

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	locStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func severityStyle(s Severity) lipgloss.Style {
	switch s {
	case SeverityError:
		return errorStyle
	case SeverityWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

// Render formats the report grouped by file. Findings below minSeverity are
// counted in the summary but not listed.
func Render(r Report, minSeverity Severity) string {
	var b strings.Builder
	counts := make(map[Severity]int)

	lastPath := ""
	for _, f := range r.Findings {
		counts[f.Severity]++
		if f.Severity < minSeverity {
			continue
		}
		if f.Path != lastPath {
			if lastPath != "" {
				b.WriteString("\n")
			}
			b.WriteString(pathStyle.Render(f.Path) + "\n")
			lastPath = f.Path
		}

		subject := f.PrimaryID
		if subject != "" {
			subject += " "
		}
		fmt.Fprintf(&b, "  %s %s %s%s %s\n",
			locStyle.Render(fmt.Sprintf("%4d", f.Line)),
			severityStyle(f.Severity).Render(fmt.Sprintf("%-7s", f.Severity)),
			subject,
			locStyle.Render("["+f.Rule+"]"),
			f.Message,
		)
	}
	if lastPath != "" {
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("%d file(s), %d requirement(s): %s, %s, %s",
		r.Documents, r.Requirements,
		errorStyle.Render(fmt.Sprintf("%d error(s)", counts[SeverityError])),
		warningStyle.Render(fmt.Sprintf("%d warning(s)", counts[SeverityWarning])),
		infoStyle.Render(fmt.Sprintf("%d info", counts[SeverityInfo])),
	)
	b.WriteString(summaryStyle.Render(summary))
	b.WriteString("\n")
	return b.String()
}

package requirement

import "strings"

// RemoteLinkTag formats the link tag for a tracker item id.
func RemoteLinkTag(remoteID string) string {
	return RemoteLinkPrefix + remoteID
}

// Annotate records remoteID against the requirement identified by primaryID.
//
// The first line whose trimmed content equals primaryID is located. If the
// line after it is already a remote link, that line is rewritten; otherwise a
// new link line is inserted directly below the identity line. When primaryID
// does not occur, text is returned unchanged.
//
// No other line is touched. Indentation is copied from the line being
// replaced (or from the identity line on insert) and "\r\n" endings are kept,
// so repeated calls with the same arguments are a no-op.
func Annotate(text, primaryID, remoteID string) string {
	lines := strings.Split(text, "\n")

	idx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == primaryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return text
	}

	tag := RemoteLinkTag(remoteID)
	if next := idx + 1; next < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[next]), RemoteLinkPrefix) {
		lines[next] = rewriteLine(lines[next], tag)
		return strings.Join(lines, "\n")
	}

	inserted := rewriteLine(lines[idx], tag)
	lines = append(lines[:idx+1], append([]string{inserted}, lines[idx+1:]...)...)
	return strings.Join(lines, "\n")
}

// rewriteLine replaces the content of template with content, keeping its
// leading whitespace and a trailing carriage return.
func rewriteLine(template, content string) string {
	indent := template[:len(template)-len(strings.TrimLeft(template, " \t"))]
	var cr string
	if strings.HasSuffix(template, "\r") {
		cr = "\r"
	}
	return indent + content + cr
}

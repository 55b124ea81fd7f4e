package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"# comment", ""},
		{"!keep.feature", ""},
		{"*.log", "*.log"},
		{"vendor", "**/vendor/**"},
		{"vendor/", "**/vendor/**"},
		{"/generated", "generated/**"},
		{"third_party/specs", "third_party/specs/**"},
		{"draft.feature", "**/draft.feature"},
		{"**/build", "**/build/**"},
		{"tmp\r", "**/tmp/**"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLine(tt.line))
		})
	}
}

func TestParser_Patterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("# build\nvendor/\n*.log\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".featuresyncignore"), []byte("vendor/\ndrafts/\n"), 0o644))

	patterns, err := NewParser().Patterns(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"**/vendor/**", "*.log", "**/drafts/**"}, patterns)
}

func TestParser_NoFiles(t *testing.T) {
	patterns, err := NewParser(".missing").Patterns(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

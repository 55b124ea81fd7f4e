package sanitize

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinWithin(t *testing.T) {
	root := filepath.Join("work", "repo")

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "simple", path: "features/door.feature", want: filepath.Join(root, "features", "door.feature")},
		{name: "dot segments inside root", path: "features/../specs/a.feature", want: filepath.Join(root, "specs", "a.feature")},
		{name: "empty", path: "", wantErr: ErrEmptyPath},
		{name: "absolute", path: "/etc/passwd", wantErr: ErrAbsolutePath},
		{name: "parent", path: "../secrets.feature", wantErr: ErrPathTraversal},
		{name: "escapes after clean", path: "features/../../x.feature", wantErr: ErrPathTraversal},
		{name: "dotdot only", path: "..", wantErr: ErrPathTraversal},
		{name: "dotdot prefix in name is fine", path: "..notes.feature", want: filepath.Join(root, "..notes.feature")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinWithin(root, tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateGlobPatterns(t *testing.T) {
	assert.NoError(t, ValidateGlobPatterns([]string{"**/*.feature", "specs/{door,lock}/*.feature"}))

	for _, bad := range []string{"", "/abs/*.feature", "../**/*.feature", "specs/[unclosed"} {
		t.Run(bad, func(t *testing.T) {
			assert.ErrorIs(t, ValidateGlobPattern(bad), ErrInvalidPattern)
		})
	}
}

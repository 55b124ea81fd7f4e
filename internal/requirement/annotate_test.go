package requirement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		primaryID string
		remoteID  string
		want      string
	}{
		{
			name:      "inserts link after identity",
			text:      "@ADS-001\nScenario: s\n  Given x\n",
			primaryID: "@ADS-001",
			remoteID:  "789",
			want:      "@ADS-001\n@CB-789\nScenario: s\n  Given x\n",
		},
		{
			name:      "overwrites existing link",
			text:      "@ADS-001\n@CB-555\nScenario: s\n",
			primaryID: "@ADS-001",
			remoteID:  "789",
			want:      "@ADS-001\n@CB-789\nScenario: s\n",
		},
		{
			name:      "unknown identity leaves text unchanged",
			text:      "@ADS-001\nScenario: s\n",
			primaryID: "@ADS-404",
			remoteID:  "789",
			want:      "@ADS-001\nScenario: s\n",
		},
		{
			name:      "identity on last line without newline",
			text:      "Feature: x\n@ADS-9",
			primaryID: "@ADS-9",
			remoteID:  "1",
			want:      "Feature: x\n@ADS-9\n@CB-1",
		},
		{
			name:      "keeps indentation",
			text:      "  @ADS-2\n  Feature: f\n",
			primaryID: "@ADS-2",
			remoteID:  "3",
			want:      "  @ADS-2\n  @CB-3\n  Feature: f\n",
		},
		{
			name:      "keeps CRLF endings",
			text:      "@ADS-1\r\nFeature: f\r\n",
			primaryID: "@ADS-1",
			remoteID:  "10",
			want:      "@ADS-1\r\n@CB-10\r\nFeature: f\r\n",
		},
		{
			name:      "prefix of another id does not match",
			text:      "@ADS-10\n@ADS-1\n",
			primaryID: "@ADS-1",
			remoteID:  "4",
			want:      "@ADS-10\n@ADS-1\n@CB-4\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Annotate(tt.text, tt.primaryID, tt.remoteID))
		})
	}
}

func TestAnnotate_Idempotent(t *testing.T) {
	text := doorInterlockWithoutLink()
	once := Annotate(text, "@ADS-123", "42")
	twice := Annotate(once, "@ADS-123", "42")
	assert.Equal(t, once, twice)
}

func TestAnnotate_NonDestructive(t *testing.T) {
	text := doorInterlockWithoutLink()
	before := strings.Split(text, "\n")
	after := strings.Split(Annotate(text, "@ADS-123", "42"), "\n")

	require.Len(t, after, len(before)+1)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, "@CB-42", after[1])
	assert.Equal(t, before[1:], after[2:])
}

func TestAnnotate_MultipleRequirementsInOneDocument(t *testing.T) {
	text := "@ADS-1\nFeature: a\n@ADS-2\nFeature: b\n@ADS-3\n@CB-7\nFeature: c\n"

	text = Annotate(text, "@ADS-1", "100")
	text = Annotate(text, "@ADS-2", "200")

	assert.Equal(t, "@ADS-1\n@CB-100\nFeature: a\n@ADS-2\n@CB-200\nFeature: b\n@ADS-3\n@CB-7\nFeature: c\n", text)

	reqs := Parse(text)
	require.Len(t, reqs, 3)
	assert.Equal(t, "100", reqs[0].RemoteID)
	assert.Equal(t, "200", reqs[1].RemoteID)
	assert.Equal(t, "7", reqs[2].RemoteID)
}

func doorInterlockWithoutLink() string {
	return strings.Replace(doorInterlock, "@CB-142600\n", "", 1)
}

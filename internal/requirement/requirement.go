package requirement

import (
	"slices"
	"strings"
)

// Tag prefixes and keywords recognised by the parser.
const (
	IdentityPrefix   = "@ADS-"
	RemoteLinkPrefix = "@CB-"
	TagPrefix        = "@"

	FeatureKeyword         = "Feature:"
	ScenarioKeyword        = "Scenario:"
	ScenarioOutlineKeyword = "Scenario Outline:"
)

// Requirement is one identity-tagged block of a feature file.
type Requirement struct {
	// PrimaryID is the full identity tag, e.g. "@ADS-123".
	PrimaryID string `json:"primary_id" yaml:"primary_id"`

	// LineNumber is the 1-based line of the identity tag. Diagnostics only.
	LineNumber int `json:"line_number" yaml:"line_number"`

	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Scenarios   []string `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`

	// Tags holds every other tag line in first-seen order, without duplicates.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// RemoteID is the payload of an existing @CB- tag, empty if none.
	RemoteID string `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
}

// HasRemoteLink reports whether the text already links this requirement to
// a tracker item.
func (r *Requirement) HasRemoteLink() bool {
	return r.RemoteID != ""
}

// HasTag reports whether tag (including the leading "@") is present.
func (r *Requirement) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// DescriptionText returns the description with surrounding whitespace removed.
func (r *Requirement) DescriptionText() string {
	return strings.TrimSpace(r.Description)
}

// addTag appends tag unless it is already present.
func (r *Requirement) addTag(tag string) {
	if !r.HasTag(tag) {
		r.Tags = append(r.Tags, tag)
	}
}

// CreateRequest is the payload for creating a tracker item from a
// Requirement.
type CreateRequest struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`

	// Rationale carries the identity tag so the tracker item points back
	// at the feature file.
	Rationale string `json:"rationale"`

	Safety   bool `json:"safety"`
	Security bool `json:"security"`

	// Verified marks that executable acceptance evidence exists. Always true
	// for requirements that come from a feature file.
	Verified bool `json:"verified"`
}

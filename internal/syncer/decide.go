package syncer

import (
	"strings"

	"github.com/fyrsmithlabs/featuresync/internal/requirement"
)

// DecisionKind says what the syncer does with a requirement.
type DecisionKind int

const (
	// DecisionSkip means the requirement is already linked to a tracker item.
	DecisionSkip DecisionKind = iota
	// DecisionCreate means a tracker item must be created.
	DecisionCreate
)

// String returns the decision name used in logs and metrics.
func (k DecisionKind) String() string {
	if k == DecisionCreate {
		return "create"
	}
	return "skip"
}

// DecideOptions names the tags that set the safety and security flags.
type DecideOptions struct {
	SafetyTag   string
	SecurityTag string
}

// DefaultDecideOptions returns the stock tag names.
func DefaultDecideOptions() DecideOptions {
	return DecideOptions{SafetyTag: "@Safety", SecurityTag: "@Security"}
}

func (o DecideOptions) withDefaults() DecideOptions {
	d := DefaultDecideOptions()
	if o.SafetyTag == "" {
		o.SafetyTag = d.SafetyTag
	}
	if o.SecurityTag == "" {
		o.SecurityTag = d.SecurityTag
	}
	return o
}

// Decision is the outcome of Decide. Request is set only for DecisionCreate.
type Decision struct {
	Kind    DecisionKind
	Request *requirement.CreateRequest
}

// Decide maps a requirement to a create request, or to a skip when it already
// carries a remote link.
func Decide(r requirement.Requirement, opts DecideOptions) Decision {
	if r.HasRemoteLink() {
		return Decision{Kind: DecisionSkip}
	}
	opts = opts.withDefaults()

	name := r.Title
	if name == "" {
		name = "Requirement from " + r.PrimaryID
	}
	description := r.DescriptionText()
	if description == "" {
		description = "Requirement extracted from " + r.PrimaryID
	}

	return Decision{
		Kind: DecisionCreate,
		Request: &requirement.CreateRequest{
			Name:               name,
			Description:        description,
			AcceptanceCriteria: strings.Join(r.Scenarios, "\n\n"),
			Rationale:          r.PrimaryID,
			Safety:             r.HasTag(opts.SafetyTag),
			Security:           r.HasTag(opts.SecurityTag),
			Verified:           true,
		},
	}
}

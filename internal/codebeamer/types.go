package codebeamer

// Custom field names expected by the requirements tracker configuration.
const (
	FieldRationale          = "Rationale"
	FieldAcceptanceCriteria = "Acceptance Criteria"
	FieldPOF                = "POF"
	FieldSafety             = "Safety"
	FieldSecurity           = "Security"
)

type itemRequest struct {
	Name         string        `json:"name"`
	Tracker      trackerRef    `json:"tracker"`
	Description  string        `json:"description"`
	CustomFields []customField `json:"customFields"`
}

type trackerRef struct {
	ID int `json:"id"`
}

type customField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type itemResponse struct {
	ID int64 `json:"id"`
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

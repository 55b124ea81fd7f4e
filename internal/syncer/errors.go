package syncer

import "fmt"

// Operations reported in SyncError.Op.
const (
	OpRead   = "read"
	OpRedact = "redact"
	OpCreate = "create"
	OpWrite  = "write"
)

// SyncError records a failure scoped to one requirement or one document.
// PrimaryID is empty for document-level failures.
type SyncError struct {
	Op        string
	Path      string
	PrimaryID string
	Err       error
}

func (e *SyncError) Error() string {
	if e.PrimaryID != "" {
		return fmt.Sprintf("%s %s in %s: %v", e.Op, e.PrimaryID, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

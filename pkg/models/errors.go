package models

// ErrorSource identifies where a normalized error was extracted from. The
// distinction matters to callers: a header fatal-error and a structural
// validation failure want different alerting even though both fail the
// submission.
type ErrorSource string

const (
	ErrorSourceHeader           ErrorSource = "header"
	ErrorSourceTaskOutput       ErrorSource = "task-output"
	ErrorSourceOperationOutcome ErrorSource = "operation-outcome"
	ErrorSourceStructure        ErrorSource = "structure"
	ErrorSourceTransport        ErrorSource = "transport"
	ErrorSourceGuard            ErrorSource = "guard"
)

// ErrorRecord is a normalized (code, message, field-path) triple attached to
// a submission. Records are kept as an ordered list and never collapsed.
type ErrorRecord struct {
	Source     ErrorSource `json:"source"`
	Severity   string      `json:"severity,omitempty"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Expression string      `json:"expression,omitempty"`
}

// Codes returns the ordered list of error codes, for logs and events.
func Codes(records []ErrorRecord) []string {
	if len(records) == 0 {
		return nil
	}
	codes := make([]string, 0, len(records))
	for _, r := range records {
		codes = append(codes, r.Code)
	}
	return codes
}

// ABOUTME: UnitResult is the outcome of dispatching one WorkUnit
// ABOUTME: Created when a unit's inference call settles, immutable afterwards
package models

// UnitStatus is the terminal state of a single unit.
type UnitStatus string

const (
	StatusComplete UnitStatus = "complete"
	StatusError    UnitStatus = "error"
)

// IsValid reports whether the status is a known terminal state.
func (s UnitStatus) IsValid() bool {
	return s == StatusComplete || s == StatusError
}

// UnitResult carries a settled unit's outcome. Index and TotalUnits
// always equal the originating WorkUnit's values.
type UnitResult struct {
	Index        int        `json:"index"`
	TotalUnits   int        `json:"total_units"`
	ResponseText string     `json:"response_text,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Status       UnitStatus `json:"status"`
}

// CompleteResult builds a successful result for the given unit.
func CompleteResult(unit WorkUnit, response string) UnitResult {
	return UnitResult{
		Index:        unit.Index,
		TotalUnits:   unit.TotalUnits,
		ResponseText: response,
		Status:       StatusComplete,
	}
}

// ErrorResult builds a contained-failure result for the given unit.
func ErrorResult(unit WorkUnit, message string) UnitResult {
	return UnitResult{
		Index:        unit.Index,
		TotalUnits:   unit.TotalUnits,
		ErrorMessage: message,
		Status:       StatusError,
	}
}

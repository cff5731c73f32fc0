package domain

import (
	"errors"
	"fmt"
)

// MissingDataError reports that a requested identifier or series has no
// underlying data. It is propagated to the caller, never retried here.
type MissingDataError struct {
	UID    string
	Detail string
}

func (e *MissingDataError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("missing data for %q", e.UID)
	}
	return fmt.Sprintf("missing data for %q: %s", e.UID, e.Detail)
}

// NewMissingData creates a MissingDataError for a uid
func NewMissingData(uid, detail string) *MissingDataError {
	return &MissingDataError{UID: uid, Detail: detail}
}

// IsMissingData reports whether err is (or wraps) a MissingDataError
func IsMissingData(err error) bool {
	var target *MissingDataError
	return errors.As(err, &target)
}

// IntegrityError reports a checkpoint mismatch during position replay.
// Continuing would silently corrupt the derived position history, so the
// reconstruction aborts immediately.
type IntegrityError struct {
	PositionUID string
	Date        string
	Expected    float64
	Replayed    float64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checkpoint mismatch for %s on %s: ledger has %v, replay produced %v",
		e.PositionUID, e.Date, e.Expected, e.Replayed)
}

// UnsupportedScenarioError marks a known, deliberate gap: the input
// describes a case the engine does not model (for example a portfolio
// inception predating the calendar start).
type UnsupportedScenarioError struct {
	Scenario string
}

func (e *UnsupportedScenarioError) Error() string {
	return "unsupported scenario: " + e.Scenario
}

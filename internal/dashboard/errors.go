package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrUnknownField      = errors.New("unknown ledger field")
	ErrConfidenceRange   = errors.New("confidence score must be between 1 and 5")
	ErrInvalidEnergy     = errors.New("unknown energy level")
	ErrTaskNotFound      = errors.New("task not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
)

// TransitionCode identifies why a stage change was rejected. Codes are part
// of the public surface: the UI renders them, so they must stay
// distinguishable and stable.
type TransitionCode string

const (
	TransitionConfidenceUnset  TransitionCode = "confidence_unset"
	TransitionConfidenceTooLow TransitionCode = "confidence_too_low"
	TransitionBuildingConflict TransitionCode = "building_conflict"
)

// TransitionError is a rejected stage change. No state is mutated when one
// is returned.
type TransitionError struct {
	Code      TransitionCode
	ProjectID string
	Requested Stage
	// Conflicts names the projects already in the building stage when
	// Code is TransitionBuildingConflict.
	Conflicts []string
}

func (e *TransitionError) Error() string {
	switch e.Code {
	case TransitionConfidenceUnset:
		return fmt.Sprintf("cannot move %s to %s: confidence score is unset", e.ProjectID, e.Requested)
	case TransitionConfidenceTooLow:
		return fmt.Sprintf("cannot move %s to %s: confidence score is below %d", e.ProjectID, e.Requested, MinBuildConfidence)
	case TransitionBuildingConflict:
		return fmt.Sprintf("cannot move %s to %s: %s already building", e.ProjectID, e.Requested, strings.Join(e.Conflicts, ", "))
	}
	return fmt.Sprintf("cannot move %s to %s", e.ProjectID, e.Requested)
}

// ExecutionLockedError is returned by content-generation actions when the
// selected project's execution lock is set.
type ExecutionLockedError struct {
	ProjectID string
	Lock      ExecutionLock
}

func (e *ExecutionLockedError) Error() string {
	codes := make([]string, 0, len(e.Lock.Reasons))
	for _, r := range e.Lock.Reasons {
		codes = append(codes, string(r.Code))
	}
	return fmt.Sprintf("execution locked for %s: %s", e.ProjectID, strings.Join(codes, ", "))
}

// ImportError is a rejected snapshot import. Nothing is applied when one is
// returned.
type ImportError struct {
	Detail string
}

func (e *ImportError) Error() string {
	return "invalid import document: " + e.Detail
}

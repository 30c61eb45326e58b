package dashboard

// MinBuildConfidence is the ledger confidence score required before a
// project may enter the building or shipping stage.
const MinBuildConfidence = 3

// LockReasonCode identifies one cause of an execution lock.
type LockReasonCode string

const (
	LockBuildingConflict LockReasonCode = "building_conflict"
	LockConfidenceUnset  LockReasonCode = "confidence_unset"
	LockConfidenceLow    LockReasonCode = "confidence_low"
)

// LockReason is one cause of an execution lock. Projects is populated for
// building conflicts with the names of every project in the building stage.
type LockReason struct {
	Code     LockReasonCode `json:"code"`
	Projects []string       `json:"projects,omitempty"`
}

// ExecutionLock is the derived gate consumed by every content-generation
// action. Reasons is empty exactly when Locked is false, and its order is a
// user-facing contract: a building conflict is always reported first,
// followed by the target project's confidence state.
type ExecutionLock struct {
	Locked  bool         `json:"locked"`
	Reasons []LockReason `json:"reasons"`
}

// ComputeExecutionLock derives the lock state for the target project. It is
// a pure function of the passed collections.
//
// More than one building project can only arise from an imported snapshot
// that bypassed the transition guard; the engine detects that state instead
// of assuming it cannot happen.
func ComputeExecutionLock(projects []Project, states map[string]ProjectState, ledgers map[string]ProjectLedger, targetID string) ExecutionLock {
	lock := ExecutionLock{Reasons: []LockReason{}}

	var building []string
	for _, p := range projects {
		if states[p.ID].Stage == StageBuilding {
			building = append(building, p.Name)
		}
	}
	if len(building) > 1 {
		lock.Reasons = append(lock.Reasons, LockReason{
			Code:     LockBuildingConflict,
			Projects: building,
		})
	}

	ledger := ledgers[targetID]
	switch {
	case ledger.ConfidenceScore == nil:
		lock.Reasons = append(lock.Reasons, LockReason{Code: LockConfidenceUnset})
	case *ledger.ConfidenceScore < MinBuildConfidence:
		lock.Reasons = append(lock.Reasons, LockReason{Code: LockConfidenceLow})
	}

	lock.Locked = len(lock.Reasons) > 0
	return lock
}

// checkStageChange evaluates the transition guards in order and returns the
// first violation, or nil when the change is allowed. Pure; callers mutate.
//
// Transition table:
//
//	any -> building               confidence >= 3 and no other project building
//	any -> shipping               confidence >= 3
//	any -> planning/maintenance/paused   unguarded
func checkStageChange(projects []Project, states map[string]ProjectState, ledgers map[string]ProjectLedger, projectID string, requested Stage) *TransitionError {
	if requested == StageBuilding || requested == StageShipping {
		ledger := ledgers[projectID]
		if ledger.ConfidenceScore == nil {
			return &TransitionError{Code: TransitionConfidenceUnset, ProjectID: projectID, Requested: requested}
		}
		if *ledger.ConfidenceScore < MinBuildConfidence {
			return &TransitionError{Code: TransitionConfidenceTooLow, ProjectID: projectID, Requested: requested}
		}
	}

	if requested == StageBuilding {
		var conflicts []string
		for _, p := range projects {
			if p.ID != projectID && states[p.ID].Stage == StageBuilding {
				conflicts = append(conflicts, p.Name)
			}
		}
		if len(conflicts) > 0 {
			return &TransitionError{
				Code:      TransitionBuildingConflict,
				ProjectID: projectID,
				Requested: requested,
				Conflicts: conflicts,
			}
		}
	}

	return nil
}

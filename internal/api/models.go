// Package api exposes the focusdeck dashboard over a local HTTP API.
package api

import (
	"github.com/p-blackswan/focusdeck/internal/dashboard"
)

// ProblemDetail is an RFC 7807 style error body. Type carries the engine's
// reason code when a guard rejected the request.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`

	// Conflicts names the projects already building when a stage change or
	// lock reports a building conflict.
	Conflicts []string `json:"conflicts,omitempty"`
}

// ProjectView is a project joined with its state, ledger and derived lock.
type ProjectView struct {
	dashboard.Project
	State  dashboard.ProjectState  `json:"state"`
	Ledger dashboard.ProjectLedger `json:"ledger"`
	Lock   dashboard.ExecutionLock `json:"lock"`
}

// StageChangeRequest is the payload for POST /projects/:id/stage.
type StageChangeRequest struct {
	Stage string `json:"stage"`
}

// StateUpdateRequest is the payload for PATCH /projects/:id/state.
type StateUpdateRequest struct {
	Blockers       *string `json:"blockers,omitempty"`
	NextCheckpoint *string `json:"next_checkpoint,omitempty"`
}

// LedgerUpdateRequest is the payload for PATCH /projects/:id/ledger. Fields
// maps narrative field names to new values; Confidence is applied when
// ConfidenceSet is true (null clears the score).
type LedgerUpdateRequest struct {
	Fields        map[string]string `json:"fields,omitempty"`
	Confidence    *int              `json:"confidence,omitempty"`
	ConfidenceSet bool              `json:"confidence_set,omitempty"`
}

// TaskCreateRequest is the payload for POST /projects/:id/tasks.
type TaskCreateRequest struct {
	Text string `json:"text"`
}

// TaskUpdateRequest is the payload for PATCH /tasks/:id.
type TaskUpdateRequest struct {
	Completed  *bool   `json:"completed,omitempty"`
	NextAction *string `json:"next_action,omitempty"`
}

// LogCreateRequest is the payload for POST /projects/:id/logs.
type LogCreateRequest struct {
	Energy string `json:"energy"`
	Text   string `json:"text"`
}

// MilestoneCreateRequest is the payload for POST /projects/:id/milestones.
type MilestoneCreateRequest struct {
	Text string `json:"text"`
}

// SettingsRequest is the payload for PUT /settings.
type SettingsRequest struct {
	SelectedProject string `json:"selected_project"`
	Energy          string `json:"energy"`
}

// WorkModeRequest is the payload for POST /workmode.
type WorkModeRequest struct {
	Mode string `json:"mode"`
}

// FocusPruneResponse reports how many tasks a prune removed.
type FocusPruneResponse struct {
	Removed int `json:"removed"`
}

// BriefResponse wraps generated brief text.
type BriefResponse struct {
	Brief string `json:"brief"`
}

// StreakResponse wraps the current streak.
type StreakResponse struct {
	Streak int `json:"streak"`
}

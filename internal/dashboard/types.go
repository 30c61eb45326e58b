// Package dashboard owns the project lifecycle and ledger engine plus the
// task, log and milestone collections behind the focusdeck API.
package dashboard

import (
	"fmt"
	"time"
)

// Stage is a project's lifecycle phase.
type Stage string

const (
	StagePlanning    Stage = "planning"
	StageBuilding    Stage = "building"
	StageShipping    Stage = "shipping"
	StageMaintenance Stage = "maintenance"
	StagePaused      Stage = "paused"
)

// Valid reports whether the stage is one of the five known phases.
func (s Stage) Valid() bool {
	switch s {
	case StagePlanning, StageBuilding, StageShipping, StageMaintenance, StagePaused:
		return true
	}
	return false
}

// ParseStage validates a raw stage string.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}

// Category classifies how much caution outbound-adjacent actions need:
// sacred projects get extra caution, commercial ones standard gating.
type Category string

const (
	CategorySacred     Category = "sacred"
	CategoryCommercial Category = "commercial"
)

// Valid reports whether the category is known.
func (c Category) Valid() bool {
	return c == CategorySacred || c == CategoryCommercial
}

// Energy is the self-reported energy level attached to logs and settings.
type Energy string

const (
	EnergyLow    Energy = "low"
	EnergyMedium Energy = "medium"
	EnergyHigh   Energy = "high"
)

// Valid reports whether the energy level is known.
func (e Energy) Valid() bool {
	return e == EnergyLow || e == EnergyMedium || e == EnergyHigh
}

// Project is a named workspace. Identity is immutable once created; projects
// come from the injected seed list and are never deleted in-session.
type Project struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Goal     string   `json:"goal"`
	Category Category `json:"category"`
}

// ProjectState holds the mutable lifecycle state for one project.
type ProjectState struct {
	Stage          Stage  `json:"stage"`
	Blockers       string `json:"blockers"`
	NextCheckpoint string `json:"next_checkpoint"`
}

// DefaultProjectState is the state every known project starts with.
func DefaultProjectState() ProjectState {
	return ProjectState{Stage: StagePlanning}
}

// ProjectLedger is the free-text status record supplementing a project's
// stage. ConfidenceScore is nil when the self-assessment has not been made.
type ProjectLedger struct {
	Mission          string `json:"mission"`
	OneSentenceGoal  string `json:"one_sentence_goal"`
	CurrentReality   string `json:"current_reality"`
	WhatIsDone       string `json:"what_is_done"`
	WhatIsWorking    string `json:"what_is_working"`
	WhatIsBroken     string `json:"what_is_broken"`
	WhatIsMissing    string `json:"what_is_missing"`
	Assets           string `json:"assets"`
	Constraints      string `json:"constraints"`
	NextFocus        string `json:"next_focus"`
	KillCriteria     string `json:"kill_criteria"`
	AutomationStatus string `json:"automation_status"`
	ConfidenceScore  *int   `json:"confidence_score"`
	LastUpdated      int64  `json:"last_updated"`
}

// LedgerField names one of the ledger's narrative text fields.
type LedgerField string

const (
	FieldMission          LedgerField = "mission"
	FieldOneSentenceGoal  LedgerField = "one_sentence_goal"
	FieldCurrentReality   LedgerField = "current_reality"
	FieldWhatIsDone       LedgerField = "what_is_done"
	FieldWhatIsWorking    LedgerField = "what_is_working"
	FieldWhatIsBroken     LedgerField = "what_is_broken"
	FieldWhatIsMissing    LedgerField = "what_is_missing"
	FieldAssets           LedgerField = "assets"
	FieldConstraints      LedgerField = "constraints"
	FieldNextFocus        LedgerField = "next_focus"
	FieldKillCriteria     LedgerField = "kill_criteria"
	FieldAutomationStatus LedgerField = "automation_status"
)

// Valid reports whether the field names a known narrative field.
func (f LedgerField) Valid() bool {
	switch f {
	case FieldMission, FieldOneSentenceGoal, FieldCurrentReality, FieldWhatIsDone,
		FieldWhatIsWorking, FieldWhatIsBroken, FieldWhatIsMissing, FieldAssets,
		FieldConstraints, FieldNextFocus, FieldKillCriteria, FieldAutomationStatus:
		return true
	}
	return false
}

// Task is a unit of work attached to a project.
type Task struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	Text       string `json:"text"`
	Completed  bool   `json:"completed"`
	NextAction string `json:"next_action,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// LogEntry is an append-only work log line.
type LogEntry struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
	Energy    Energy    `json:"energy"`
	Text      string    `json:"text"`
}

// Milestone is a checklist item for a project.
type Milestone struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	CreatedAt int64  `json:"created_at"`
}

// WorkModeOutput is a generated work-mode text block.
type WorkModeOutput struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Mode      string `json:"mode"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// Settings holds the dashboard's sticky selections.
type Settings struct {
	SelectedProject string `json:"selected_project"`
	Energy          Energy `json:"energy"`
}

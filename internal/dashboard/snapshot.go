package dashboard

import (
	"context"
	"encoding/json"
	"time"
)

// Snapshot is the export/import document: one JSON file holding every
// collection plus the sticky selections.
type Snapshot struct {
	ExportedAt      time.Time                `json:"exported_at"`
	SelectedProject string                   `json:"selected_project"`
	Energy          Energy                   `json:"energy"`
	Projects        []Project                `json:"projects"`
	Tasks           []Task                   `json:"tasks"`
	Logs            []LogEntry               `json:"logs"`
	States          map[string]ProjectState  `json:"project_state"`
	Ledgers         map[string]ProjectLedger `json:"project_ledger"`
	Milestones      []Milestone              `json:"milestones"`
	WorkModeOutputs []WorkModeOutput         `json:"work_mode_outputs"`
	Brief           string                   `json:"brief"`
	WorkMode        string                   `json:"work_mode"`
}

// Export builds a snapshot of the current in-memory state. Empty collections
// export as empty arrays, never null, so a fresh export always satisfies its
// own import's required-array checks.
func (s *Service) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make(map[string]ProjectState, len(s.states))
	for k, v := range s.states {
		states[k] = v
	}
	ledgers := make(map[string]ProjectLedger, len(s.ledgers))
	for k, v := range s.ledgers {
		ledgers[k] = v
	}

	return Snapshot{
		ExportedAt:      s.now().UTC(),
		SelectedProject: s.settings.SelectedProject,
		Energy:          s.settings.Energy,
		Projects:        append(make([]Project, 0, len(s.projects)), s.projects...),
		Tasks:           append(make([]Task, 0, len(s.tasks)), s.tasks...),
		Logs:            append(make([]LogEntry, 0, len(s.logs)), s.logs...),
		States:          states,
		Ledgers:         ledgers,
		Milestones:      append(make([]Milestone, 0, len(s.milestones)), s.milestones...),
		WorkModeOutputs: append(make([]WorkModeOutput, 0, len(s.outputs)), s.outputs...),
		Brief:           s.brief,
		WorkMode:        s.workMode,
	}
}

// rawSnapshot distinguishes absent fields from present-but-empty ones.
type rawSnapshot struct {
	SelectedProject *string          `json:"selected_project"`
	Energy          *Energy          `json:"energy"`
	Tasks           *json.RawMessage `json:"tasks"`
	Logs            *json.RawMessage `json:"logs"`
	States          *json.RawMessage `json:"project_state"`
	Ledgers         *json.RawMessage `json:"project_ledger"`
	Milestones      *json.RawMessage `json:"milestones"`
	WorkModeOutputs *json.RawMessage `json:"work_mode_outputs"`
	Brief           *string          `json:"brief"`
	WorkMode        *string          `json:"work_mode"`
}

// Import applies a snapshot document. Tasks and logs are required arrays;
// when either is missing or mis-typed the whole document is rejected with
// *ImportError and nothing is applied. Optional collections replace the
// current ones; project state and ledgers merge entry-by-entry onto defaults
// so projects absent from the document keep their default entries.
func (s *Service) Import(ctx context.Context, doc []byte) error {
	var raw rawSnapshot
	if err := json.Unmarshal(doc, &raw); err != nil {
		return &ImportError{Detail: "not a JSON object: " + err.Error()}
	}

	var tasks []Task
	if raw.Tasks == nil {
		return &ImportError{Detail: "missing required field tasks"}
	}
	if err := json.Unmarshal(*raw.Tasks, &tasks); err != nil {
		return &ImportError{Detail: "tasks is not an array"}
	}

	var logs []LogEntry
	if raw.Logs == nil {
		return &ImportError{Detail: "missing required field logs"}
	}
	if err := json.Unmarshal(*raw.Logs, &logs); err != nil {
		return &ImportError{Detail: "logs is not an array"}
	}

	// Decode every optional collection before touching anything so a bad
	// document cannot partially apply.
	var states map[string]ProjectState
	if raw.States != nil {
		if err := json.Unmarshal(*raw.States, &states); err != nil {
			return &ImportError{Detail: "project_state is not an object"}
		}
	}
	var ledgers map[string]ProjectLedger
	if raw.Ledgers != nil {
		if err := json.Unmarshal(*raw.Ledgers, &ledgers); err != nil {
			return &ImportError{Detail: "project_ledger is not an object"}
		}
	}
	var milestones []Milestone
	if raw.Milestones != nil {
		if err := json.Unmarshal(*raw.Milestones, &milestones); err != nil {
			return &ImportError{Detail: "milestones is not an array"}
		}
	}
	var outputs []WorkModeOutput
	if raw.WorkModeOutputs != nil {
		if err := json.Unmarshal(*raw.WorkModeOutputs, &outputs); err != nil {
			return &ImportError{Detail: "work_mode_outputs is not an array"}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tasks == nil {
		tasks = []Task{}
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	s.tasks = tasks
	s.logs = logs

	// Entries for ids outside the seed-owned project set are dropped; the
	// import cannot introduce projects.
	if raw.States != nil {
		merged := make(map[string]ProjectState, len(s.projects))
		for _, p := range s.projects {
			merged[p.ID] = DefaultProjectState()
		}
		for id, st := range states {
			if _, ok := merged[id]; ok {
				merged[id] = st
			}
		}
		s.states = merged
	}
	if raw.Ledgers != nil {
		merged := make(map[string]ProjectLedger, len(s.projects))
		for _, p := range s.projects {
			merged[p.ID] = ProjectLedger{}
		}
		for id, led := range ledgers {
			if _, ok := merged[id]; ok {
				merged[id] = led
			}
		}
		s.ledgers = merged
	}
	if raw.Milestones != nil {
		s.milestones = milestones
	}
	if raw.WorkModeOutputs != nil {
		s.outputs = outputs
	}
	if raw.SelectedProject != nil {
		if _, ok := s.findProject(*raw.SelectedProject); ok {
			s.settings.SelectedProject = *raw.SelectedProject
		}
	}
	if raw.Energy != nil && raw.Energy.Valid() {
		s.settings.Energy = *raw.Energy
	}
	if raw.Brief != nil {
		s.brief = *raw.Brief
	}
	if raw.WorkMode != nil && (*raw.WorkMode == "" || ValidWorkMode(*raw.WorkMode)) {
		s.workMode = *raw.WorkMode
	}

	s.normalizeLoaded()
	s.outputCache.purge()

	if err := savePairs(ctx, s.kv, map[string]any{
		keyTasks:           s.tasks,
		keyLogs:            s.logs,
		keyProjectState:    s.states,
		keyProjectLedger:   s.ledgers,
		keyMilestones:      s.milestones,
		keyWorkModeOutputs: s.outputs,
		keySettings:        s.settings,
		keyBrief:           s.brief,
		keyWorkMode:        s.workMode,
	}); err != nil {
		return err
	}

	s.logger.Info().
		Int("tasks", len(s.tasks)).
		Int("logs", len(s.logs)).
		Msg("snapshot imported")
	return nil
}

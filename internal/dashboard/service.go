package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/focusdeck/pkg/kvstore"
)

// Service owns all dashboard collections. Every mutation happens under one
// lock in direct response to a caller event; there is no background
// processing on the mutation path.
type Service struct {
	mu     sync.Mutex
	kv     kvstore.Store
	logger zerolog.Logger

	projects   []Project
	states     map[string]ProjectState
	ledgers    map[string]ProjectLedger
	tasks      []Task
	logs       []LogEntry
	milestones []Milestone
	outputs    []WorkModeOutput
	settings   Settings
	brief      string
	workMode   string

	outputCache *recentCache

	// now is swappable for tests.
	now func() time.Time
}

// New loads every collection from the store, initializes defaults for the
// seed projects, and persists the seeded collections on first run.
func New(ctx context.Context, kv kvstore.Store, seeds []SeedProject, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		kv:          kv,
		logger:      logger.With().Str("component", "dashboard").Logger(),
		outputCache: newRecentCache(32),
		now:         time.Now,
	}

	projects := make([]Project, 0, len(seeds))
	for _, seed := range seeds {
		projects = append(projects, Project{
			ID:       seed.ID,
			Name:     seed.Name,
			Goal:     seed.Goal,
			Category: seed.Category,
		})
	}
	s.projects = projects

	var err error
	if s.states, err = loadJSON(ctx, kv, s.logger, keyProjectState, map[string]ProjectState{}); err != nil {
		return nil, err
	}
	if s.ledgers, err = loadJSON(ctx, kv, s.logger, keyProjectLedger, map[string]ProjectLedger{}); err != nil {
		return nil, err
	}
	if s.tasks, err = loadJSON(ctx, kv, s.logger, keyTasks, []Task{}); err != nil {
		return nil, err
	}
	if s.logs, err = loadJSON(ctx, kv, s.logger, keyLogs, []LogEntry{}); err != nil {
		return nil, err
	}
	if s.milestones, err = loadJSON(ctx, kv, s.logger, keyMilestones, []Milestone{}); err != nil {
		return nil, err
	}
	if s.outputs, err = loadJSON(ctx, kv, s.logger, keyWorkModeOutputs, []WorkModeOutput{}); err != nil {
		return nil, err
	}
	if s.settings, err = loadJSON(ctx, kv, s.logger, keySettings, Settings{}); err != nil {
		return nil, err
	}
	if s.brief, err = loadJSON(ctx, kv, s.logger, keyBrief, ""); err != nil {
		return nil, err
	}
	if s.workMode, err = loadJSON(ctx, kv, s.logger, keyWorkMode, ""); err != nil {
		return nil, err
	}

	s.normalizeLoaded()
	s.ensureDefaults(seeds)
	if s.settings.SelectedProject == "" && len(projects) > 0 {
		s.settings.SelectedProject = projects[0].ID
	}
	if !s.settings.Energy.Valid() {
		s.settings.Energy = EnergyMedium
	}

	if err := savePairs(ctx, kv, map[string]any{
		keyProjects:      s.projects,
		keyProjectState:  s.states,
		keyProjectLedger: s.ledgers,
		keyMilestones:    s.milestones,
		keySettings:      s.settings,
	}); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("projects", len(s.projects)).
		Int("tasks", len(s.tasks)).
		Int("logs", len(s.logs)).
		Msg("dashboard loaded")
	return s, nil
}

// normalizeLoaded repairs enum values that arrived via hand-edited storage.
// The stage falls back to planning; unknown energies fall back to medium.
func (s *Service) normalizeLoaded() {
	for id, st := range s.states {
		if !st.Stage.Valid() {
			s.logger.Warn().Str("project", id).Str("stage", string(st.Stage)).
				Msg("unknown stage in persisted state, resetting to planning")
			st.Stage = StagePlanning
			s.states[id] = st
		}
	}
	for i, l := range s.logs {
		if !l.Energy.Valid() {
			s.logs[i].Energy = EnergyMedium
		}
	}
	for id, led := range s.ledgers {
		if led.ConfidenceScore != nil && (*led.ConfidenceScore < 1 || *led.ConfidenceScore > 5) {
			s.logger.Warn().Str("project", id).Int("score", *led.ConfidenceScore).
				Msg("out-of-range confidence in persisted ledger, resetting to unset")
			led.ConfidenceScore = nil
			s.ledgers[id] = led
		}
	}
}

// ensureDefaults guarantees a state and ledger entry per seed project and a
// starter milestone checklist when the collection is empty.
func (s *Service) ensureDefaults(seeds []SeedProject) {
	if s.states == nil {
		s.states = map[string]ProjectState{}
	}
	if s.ledgers == nil {
		s.ledgers = map[string]ProjectLedger{}
	}
	for _, seed := range seeds {
		if _, ok := s.states[seed.ID]; !ok {
			s.states[seed.ID] = DefaultProjectState()
		}
		if _, ok := s.ledgers[seed.ID]; !ok {
			s.ledgers[seed.ID] = ProjectLedger{}
		}
	}

	if len(s.milestones) == 0 {
		now := s.now().UnixMilli()
		for _, seed := range seeds {
			for _, text := range seed.Milestones {
				s.milestones = append(s.milestones, Milestone{
					ID:        uuid.New().String(),
					ProjectID: seed.ID,
					Text:      text,
					CreatedAt: now,
				})
			}
		}
	}
}

// Projects returns the project set in seed order.
func (s *Service) Projects() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// Project returns one project by id.
func (s *Service) Project(id string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findProject(id)
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *Service) findProject(id string) (Project, bool) {
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// State returns the lifecycle state for one project.
func (s *Service) State(id string) (ProjectState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findProject(id); !ok {
		return ProjectState{}, ErrProjectNotFound
	}
	return s.states[id], nil
}

// Ledger returns the ledger for one project.
func (s *Service) Ledger(id string) (ProjectLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findProject(id); !ok {
		return ProjectLedger{}, ErrProjectNotFound
	}
	return s.ledgers[id], nil
}

// RequestStageChange applies a stage transition. Guard violations come back
// as *TransitionError with nothing mutated; on success the new stage and the
// ledger timestamp touch persist as one atomic write.
func (s *Service) RequestStageChange(ctx context.Context, projectID string, requested Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProject(projectID); !ok {
		return ErrProjectNotFound
	}
	if terr := checkStageChange(s.projects, s.states, s.ledgers, projectID, requested); terr != nil {
		return terr
	}

	st := s.states[projectID]
	st.Stage = requested
	s.states[projectID] = st

	led := s.ledgers[projectID]
	led.LastUpdated = s.now().UnixMilli()
	s.ledgers[projectID] = led

	return savePairs(ctx, s.kv, map[string]any{
		keyProjectState:  s.states,
		keyProjectLedger: s.ledgers,
	})
}

// UpdateState sets the free-text lifecycle fields and touches the ledger.
func (s *Service) UpdateState(ctx context.Context, projectID string, blockers, nextCheckpoint *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProject(projectID); !ok {
		return ErrProjectNotFound
	}

	st := s.states[projectID]
	if blockers != nil {
		st.Blockers = *blockers
	}
	if nextCheckpoint != nil {
		st.NextCheckpoint = *nextCheckpoint
	}
	s.states[projectID] = st

	led := s.ledgers[projectID]
	led.LastUpdated = s.now().UnixMilli()
	s.ledgers[projectID] = led

	return savePairs(ctx, s.kv, map[string]any{
		keyProjectState:  s.states,
		keyProjectLedger: s.ledgers,
	})
}

// SetLedgerText sets one narrative ledger field. Free text is never
// validated; only the field name is.
func (s *Service) SetLedgerText(ctx context.Context, projectID string, field LedgerField, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProject(projectID); !ok {
		return ErrProjectNotFound
	}
	if !field.Valid() {
		return ErrUnknownField
	}

	led := s.ledgers[projectID]
	switch field {
	case FieldMission:
		led.Mission = value
	case FieldOneSentenceGoal:
		led.OneSentenceGoal = value
	case FieldCurrentReality:
		led.CurrentReality = value
	case FieldWhatIsDone:
		led.WhatIsDone = value
	case FieldWhatIsWorking:
		led.WhatIsWorking = value
	case FieldWhatIsBroken:
		led.WhatIsBroken = value
	case FieldWhatIsMissing:
		led.WhatIsMissing = value
	case FieldAssets:
		led.Assets = value
	case FieldConstraints:
		led.Constraints = value
	case FieldNextFocus:
		led.NextFocus = value
	case FieldKillCriteria:
		led.KillCriteria = value
	case FieldAutomationStatus:
		led.AutomationStatus = value
	}
	led.LastUpdated = s.now().UnixMilli()
	s.ledgers[projectID] = led

	return saveJSON(ctx, s.kv, keyProjectLedger, s.ledgers)
}

// SetConfidence sets the 1-5 self-assessment, or clears it with nil.
// Out-of-range scores are rejected rather than clamped so a caller bug
// cannot silently misrepresent confidence.
func (s *Service) SetConfidence(ctx context.Context, projectID string, score *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProject(projectID); !ok {
		return ErrProjectNotFound
	}
	if score != nil && (*score < 1 || *score > 5) {
		return ErrConfidenceRange
	}

	led := s.ledgers[projectID]
	led.ConfidenceScore = score
	led.LastUpdated = s.now().UnixMilli()
	s.ledgers[projectID] = led

	return saveJSON(ctx, s.kv, keyProjectLedger, s.ledgers)
}

// ExecutionLock computes the derived lock for one project.
func (s *Service) ExecutionLock(projectID string) (ExecutionLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findProject(projectID); !ok {
		return ExecutionLock{}, ErrProjectNotFound
	}
	return ComputeExecutionLock(s.projects, s.states, s.ledgers, projectID), nil
}

// Settings returns the sticky selections.
func (s *Service) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings sets the selected project and energy.
func (s *Service) UpdateSettings(ctx context.Context, selectedProject string, energy Energy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProject(selectedProject); !ok {
		return ErrProjectNotFound
	}
	if !energy.Valid() {
		return ErrInvalidEnergy
	}

	s.settings = Settings{SelectedProject: selectedProject, Energy: energy}
	return saveJSON(ctx, s.kv, keySettings, s.settings)
}

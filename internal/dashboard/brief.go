package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkMode names for generated text blocks.
const (
	ModeDeep  = "deep"
	ModeShip  = "ship"
	ModeAudit = "audit"
)

// ValidWorkMode reports whether mode names a known work mode.
func ValidWorkMode(mode string) bool {
	return mode == ModeDeep || mode == ModeShip || mode == ModeAudit
}

// truncateStr truncates a string to maxLen and appends "…" if truncated.
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-1] + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

// Brief returns the last generated daily brief text.
func (s *Service) Brief() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brief
}

// GenerateBrief renders the daily brief for the selected project. Generation
// refuses to run while the project's execution lock is set; the lock and its
// ordered reasons ride on the returned error so the caller can render them.
func (s *Service) GenerateBrief(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectID := s.settings.SelectedProject
	p, ok := s.findProject(projectID)
	if !ok {
		return "", ErrProjectNotFound
	}

	lock := ComputeExecutionLock(s.projects, s.states, s.ledgers, projectID)
	if lock.Locked {
		return "", &ExecutionLockedError{ProjectID: projectID, Lock: lock}
	}

	st := s.states[projectID]
	led := s.ledgers[projectID]

	var b strings.Builder
	fmt.Fprintf(&b, "☀️ Daily Brief — %s\n", s.now().UTC().Format("Mon Jan 2"))
	fmt.Fprintf(&b, "%s (%s) · stage: %s · confidence: %s\n", p.Name, p.Category, st.Stage, confidenceLabel(led.ConfidenceScore))
	fmt.Fprintf(&b, "Streak: %d days · Energy: %s\n\n", s.streakLocked(), s.settings.Energy)

	fmt.Fprintf(&b, "Next checkpoint: %s\n", orDash(st.NextCheckpoint))
	fmt.Fprintf(&b, "Blockers: %s\n\n", orDash(st.Blockers))

	open := 0
	b.WriteString("Top tasks:\n")
	for i := len(s.tasks) - 1; i >= 0 && open < focusKeep; i-- {
		t := s.tasks[i]
		if t.ProjectID != projectID || t.Completed {
			continue
		}
		fmt.Fprintf(&b, "  • %s\n", truncateStr(t.Text, 80))
		open++
	}
	if open == 0 {
		b.WriteString("  • nothing open — add a task or prune\n")
	}

	if led.NextFocus != "" {
		fmt.Fprintf(&b, "\nFocus: %s\n", truncateStr(led.NextFocus, 120))
	}

	s.brief = b.String()
	if err := saveJSON(ctx, s.kv, keyBrief, s.brief); err != nil {
		return "", err
	}
	return s.brief, nil
}

// WorkModeOutputs returns the persisted generated outputs, newest first.
func (s *Service) WorkModeOutputs() []WorkModeOutput {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WorkModeOutput, 0, len(s.outputs))
	for i := len(s.outputs) - 1; i >= 0; i-- {
		out = append(out, s.outputs[i])
	}
	return out
}

// GenerateWorkMode renders a work-mode text block for the selected project
// and persists it. Like the brief, it is gated on the execution lock.
func (s *Service) GenerateWorkMode(ctx context.Context, mode string) (WorkModeOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ValidWorkMode(mode) {
		return WorkModeOutput{}, fmt.Errorf("unknown work mode %q", mode)
	}

	projectID := s.settings.SelectedProject
	p, ok := s.findProject(projectID)
	if !ok {
		return WorkModeOutput{}, ErrProjectNotFound
	}

	lock := ComputeExecutionLock(s.projects, s.states, s.ledgers, projectID)
	if lock.Locked {
		return WorkModeOutput{}, &ExecutionLockedError{ProjectID: projectID, Lock: lock}
	}

	day := s.now().UTC().Format("2006-01-02")
	key := outputKey{ProjectID: projectID, Mode: mode, Day: day}
	text, cached := s.outputCache.get(key)
	if !cached {
		text = renderWorkMode(mode, p, s.states[projectID], s.ledgers[projectID])
		s.outputCache.put(key, text)
	}

	out := WorkModeOutput{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Mode:      mode,
		Text:      text,
		CreatedAt: s.now().UnixMilli(),
	}
	s.outputs = append(s.outputs, out)
	s.workMode = mode

	if err := savePairs(ctx, s.kv, map[string]any{
		keyWorkModeOutputs: s.outputs,
		keyWorkMode:        s.workMode,
	}); err != nil {
		return WorkModeOutput{}, err
	}
	return out, nil
}

func renderWorkMode(mode string, p Project, st ProjectState, led ProjectLedger) string {
	var b strings.Builder
	switch mode {
	case ModeDeep:
		fmt.Fprintf(&b, "🔒 Deep Work — %s\n\n", p.Name)
		fmt.Fprintf(&b, "Mission: %s\n", orDash(led.Mission))
		fmt.Fprintf(&b, "One sentence: %s\n", orDash(led.OneSentenceGoal))
		fmt.Fprintf(&b, "Focus now: %s\n", orDash(led.NextFocus))
		fmt.Fprintf(&b, "Ignore until done: %s\n", orDash(st.Blockers))
	case ModeShip:
		fmt.Fprintf(&b, "🚢 Ship Mode — %s\n\n", p.Name)
		fmt.Fprintf(&b, "Done so far: %s\n", orDash(led.WhatIsDone))
		fmt.Fprintf(&b, "Working: %s\n", orDash(led.WhatIsWorking))
		fmt.Fprintf(&b, "Next checkpoint: %s\n", orDash(st.NextCheckpoint))
		fmt.Fprintf(&b, "Cut scope before cutting quality.\n")
	case ModeAudit:
		fmt.Fprintf(&b, "🔍 Audit — %s\n\n", p.Name)
		fmt.Fprintf(&b, "Broken: %s\n", orDash(led.WhatIsBroken))
		fmt.Fprintf(&b, "Missing: %s\n", orDash(led.WhatIsMissing))
		fmt.Fprintf(&b, "Constraints: %s\n", orDash(led.Constraints))
		fmt.Fprintf(&b, "Kill criteria: %s\n", orDash(led.KillCriteria))
	}
	return b.String()
}

func confidenceLabel(score *int) string {
	if score == nil {
		return "unset"
	}
	return fmt.Sprintf("%d/5", *score)
}

// streakLocked is Streak without re-taking the service lock.
func (s *Service) streakLocked() int {
	days := make(map[string]bool, len(s.logs))
	for _, l := range s.logs {
		days[l.Timestamp.UTC().Format("2006-01-02")] = true
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today
	if !days[today.Format("2006-01-02")] {
		start = today.AddDate(0, 0, -1)
	}
	streak := 0
	for d := start; days[d.Format("2006-01-02")]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

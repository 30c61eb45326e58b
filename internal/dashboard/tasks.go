package dashboard

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// Tasks returns tasks for one project, newest first, or all tasks when
// projectID is empty.
func (s *Service) Tasks(projectID string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Task
	for _, t := range s.tasks {
		if projectID == "" || t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

// AddTask creates a task for a project.
func (s *Service) AddTask(ctx context.Context, projectID, text string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProject(projectID); !ok {
		return Task{}, ErrProjectNotFound
	}

	t := Task{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Text:      text,
		CreatedAt: s.now().UnixMilli(),
	}
	s.tasks = append(s.tasks, t)
	if err := saveJSON(ctx, s.kv, keyTasks, s.tasks); err != nil {
		return Task{}, err
	}
	return t, nil
}

// UpdateTask toggles completion and/or sets the next action.
func (s *Service) UpdateTask(ctx context.Context, taskID string, completed *bool, nextAction *string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != taskID {
			continue
		}
		if completed != nil {
			s.tasks[i].Completed = *completed
		}
		if nextAction != nil {
			s.tasks[i].NextAction = *nextAction
		}
		if err := saveJSON(ctx, s.kv, keyTasks, s.tasks); err != nil {
			return Task{}, err
		}
		return s.tasks[i], nil
	}
	return Task{}, ErrTaskNotFound
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return saveJSON(ctx, s.kv, keyTasks, s.tasks)
		}
	}
	return ErrTaskNotFound
}

// focusKeep is how many open tasks per project survive a focus prune.
const focusKeep = 3

// FocusPrune drops completed tasks and keeps only the newest focusKeep open
// tasks per project. Returns how many tasks were removed.
func (s *Service) FocusPrune(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := make(map[string][]Task)
	for _, t := range s.tasks {
		if !t.Completed {
			open[t.ProjectID] = append(open[t.ProjectID], t)
		}
	}

	keep := make(map[string]bool)
	for _, tasks := range open {
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt > tasks[j].CreatedAt })
		if len(tasks) > focusKeep {
			tasks = tasks[:focusKeep]
		}
		for _, t := range tasks {
			keep[t.ID] = true
		}
	}

	before := len(s.tasks)
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if keep[t.ID] {
			kept = append(kept, t)
		}
	}
	s.tasks = kept

	removed := before - len(s.tasks)
	if removed == 0 {
		return 0, nil
	}
	if err := saveJSON(ctx, s.kv, keyTasks, s.tasks); err != nil {
		return 0, err
	}
	s.logger.Info().Int("removed", removed).Msg("focus prune applied")
	return removed, nil
}

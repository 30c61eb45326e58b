package dashboard

import (
	"context"

	"github.com/google/uuid"
)

// Milestones returns milestones for one project in creation order, or all
// milestones when projectID is empty.
func (s *Service) Milestones(projectID string) []Milestone {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Milestone
	for _, m := range s.milestones {
		if projectID == "" || m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out
}

// AddMilestone appends a milestone to a project's checklist.
func (s *Service) AddMilestone(ctx context.Context, projectID, text string) (Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProject(projectID); !ok {
		return Milestone{}, ErrProjectNotFound
	}

	m := Milestone{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Text:      text,
		CreatedAt: s.now().UnixMilli(),
	}
	s.milestones = append(s.milestones, m)
	if err := saveJSON(ctx, s.kv, keyMilestones, s.milestones); err != nil {
		return Milestone{}, err
	}
	return m, nil
}

// ToggleMilestone flips a milestone's done flag.
func (s *Service) ToggleMilestone(ctx context.Context, milestoneID string) (Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.milestones {
		if s.milestones[i].ID != milestoneID {
			continue
		}
		s.milestones[i].Done = !s.milestones[i].Done
		if err := saveJSON(ctx, s.kv, keyMilestones, s.milestones); err != nil {
			return Milestone{}, err
		}
		return s.milestones[i], nil
	}
	return Milestone{}, ErrMilestoneNotFound
}

// DeleteMilestone removes a milestone.
func (s *Service) DeleteMilestone(ctx context.Context, milestoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.milestones {
		if s.milestones[i].ID == milestoneID {
			s.milestones = append(s.milestones[:i], s.milestones[i+1:]...)
			return saveJSON(ctx, s.kv, keyMilestones, s.milestones)
		}
	}
	return ErrMilestoneNotFound
}

package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logs returns log entries for one project, newest first, or all entries
// when projectID is empty.
func (s *Service) Logs(projectID string) []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []LogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if projectID == "" || l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	return out
}

// AppendLog records a log entry. Logs are append-only; they are never edited
// and only replaced wholesale by a snapshot import.
func (s *Service) AppendLog(ctx context.Context, projectID string, energy Energy, text string) (LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findProject(projectID); !ok {
		return LogEntry{}, ErrProjectNotFound
	}
	if !energy.Valid() {
		return LogEntry{}, ErrInvalidEnergy
	}

	entry := LogEntry{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Timestamp: s.now().UTC(),
		Energy:    energy,
		Text:      text,
	}
	s.logs = append(s.logs, entry)
	if err := saveJSON(ctx, s.kv, keyLogs, s.logs); err != nil {
		return LogEntry{}, err
	}
	return entry, nil
}

// HeatmapDay is one cell of the activity heatmap.
type HeatmapDay struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

// maxHeatmapDays caps the window; days arrives as a caller-supplied query
// parameter.
const maxHeatmapDays = 366

// Heatmap returns per-day log counts for the trailing window ending today.
// Days are UTC buckets.
func (s *Service) Heatmap(days int) []HeatmapDay {
	s.mu.Lock()
	defer s.mu.Unlock()

	if days <= 0 {
		days = 84 // twelve weeks
	}
	if days > maxHeatmapDays {
		days = maxHeatmapDays
	}

	counts := make(map[string]int, days)
	for _, l := range s.logs {
		counts[l.Timestamp.UTC().Format("2006-01-02")]++
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	out := make([]HeatmapDay, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		out = append(out, HeatmapDay{Date: day, Count: counts[day]})
	}
	return out
}

// Streak counts consecutive days with at least one log entry. A quiet today
// does not break a streak that ran through yesterday.
func (s *Service) Streak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streakLocked()
}

package dashboard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedProject describes one project plus its starter milestone checklist.
// Seeds are injected into the service instead of living as package globals so
// tests can construct an engine around any project set.
type SeedProject struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Goal       string   `yaml:"goal"`
	Category   Category `yaml:"category"`
	Milestones []string `yaml:"milestones"`
}

var starterChecklist = []string{
	"Write the one-sentence goal",
	"Capture current reality in the ledger",
	"Set kill criteria",
	"Ship the first usable slice",
}

// DefaultSeeds returns the built-in project set.
func DefaultSeeds() []SeedProject {
	return []SeedProject{
		{
			ID:         "signalcrypt",
			Name:       "SignalCrypt",
			Goal:       "First paying outreach batch",
			Category:   CategoryCommercial,
			Milestones: starterChecklist,
		},
		{
			ID:         "ledgerline",
			Name:       "Ledgerline",
			Goal:       "Monthly books closed in under an hour",
			Category:   CategoryCommercial,
			Milestones: starterChecklist,
		},
		{
			ID:         "atelier",
			Name:       "Atelier",
			Goal:       "One finished piece per month",
			Category:   CategorySacred,
			Milestones: starterChecklist,
		},
		{
			ID:         "field-notes",
			Name:       "Field Notes",
			Goal:       "Daily writing habit",
			Category:   CategorySacred,
			Milestones: starterChecklist,
		},
		{
			ID:         "homestead",
			Name:       "Homestead",
			Goal:       "House projects off the backlog",
			Category:   CategorySacred,
			Milestones: starterChecklist,
		},
	}
}

type seedFile struct {
	Projects []SeedProject `yaml:"projects"`
}

// LoadSeeds reads a YAML seed file, or returns the defaults when path is
// empty. A file with no valid projects is an error rather than a silent
// empty dashboard.
func LoadSeeds(path string) ([]SeedProject, error) {
	if path == "" {
		return DefaultSeeds(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	if len(f.Projects) == 0 {
		return nil, fmt.Errorf("seed file %s contains no projects", path)
	}

	seen := make(map[string]bool, len(f.Projects))
	for i, p := range f.Projects {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("seed project %d is missing id or name", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate seed project id %q", p.ID)
		}
		seen[p.ID] = true
		if !p.Category.Valid() {
			return nil, fmt.Errorf("seed project %q has unknown category %q", p.ID, p.Category)
		}
	}
	return f.Projects, nil
}

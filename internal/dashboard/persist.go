package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/focusdeck/pkg/kvstore"
)

// Versioned collection keys. One key per collection; the legacy unversioned
// project-status key is handled by the store migration, not here.
const (
	keyProjects        = "focusdeck.v1.projects"
	keyTasks           = "focusdeck.v1.tasks"
	keyLogs            = "focusdeck.v1.logs"
	keySettings        = "focusdeck.v1.settings"
	keyBrief           = "focusdeck.v1.brief"
	keyWorkMode        = "focusdeck.v1.work-mode"
	keyWorkModeOutputs = "focusdeck.v1.work-mode-outputs"
	keyProjectState    = "focusdeck.v1.project-state"
	keyMilestones      = "focusdeck.v1.milestones"
	keyProjectLedger   = "focusdeck.v1.project-ledger"
)

// loadJSON reads one collection from the store. A missing key yields the
// default silently; a corrupt value also yields the default but is logged so
// operators can detect data corruption instead of losing it silently.
func loadJSON[T any](ctx context.Context, kv kvstore.Store, logger zerolog.Logger, key string, def T) (T, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return def, fmt.Errorf("loading %s: %w", key, err)
	}
	if !ok || raw == "" {
		return def, nil
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		logger.Warn().Str("key", key).Err(err).
			Msg("persisted collection is corrupt, falling back to default")
		return def, nil
	}
	return v, nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling collection: %w", err)
	}
	return string(b), nil
}

// saveJSON persists one collection under its key.
func saveJSON(ctx context.Context, kv kvstore.Store, key string, v any) error {
	s, err := marshalJSON(v)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, s)
}

// savePairs persists several collections as one atomic unit so paired
// writes (a stage change and its ledger touch) cannot tear.
func savePairs(ctx context.Context, kv kvstore.Store, pairs map[string]any) error {
	encoded := make(map[string]string, len(pairs))
	for key, v := range pairs {
		s, err := marshalJSON(v)
		if err != nil {
			return err
		}
		encoded[key] = s
	}
	return kv.SetMulti(ctx, encoded)
}

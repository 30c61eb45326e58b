package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateLegacyStatus()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_kv_updated ON kv(updated_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("v1 schema: %w", err)
	}
	return nil
}

// Legacy key consulted once: early builds stored per-project stages under an
// unversioned "focusdeck.project-status" key. If the versioned project-state
// key is absent but the legacy one exists, carry the legacy payload over and
// drop the old key.
const (
	legacyStatusKey = "focusdeck.project-status"
	stateKey        = "focusdeck.v1.project-state"
)

func (s *Store) migrateLegacyStatus() error {
	var hasState int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM kv WHERE key = ?`, stateKey).Scan(&hasState); err != nil {
		return fmt.Errorf("legacy status check: %w", err)
	}
	if hasState > 0 {
		return nil
	}

	var legacy string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, legacyStatusKey).Scan(&legacy)
	if err != nil {
		// No legacy data is the normal case for fresh databases.
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("legacy status migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO kv (key, value, updated_at) SELECT ?, value, updated_at FROM kv WHERE key = ?`,
		stateKey, legacyStatusKey,
	); err != nil {
		return fmt.Errorf("legacy status migration: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, legacyStatusKey); err != nil {
		return fmt.Errorf("legacy status migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info().Msg("migrated legacy project-status key to versioned project-state")
	return nil
}

// Package config holds process-wide configuration helpers that sit
// outside the per-turn model/tool config already carried by
// internal/models.ResolvedProfile.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mfateev/codex-temporal-go/internal/statedb"
)

// PersonalityMigrationMarker is the zero-byte-or-versioned sentinel file
// that records a CODEX_HOME has already been considered for the
// one-time default-personality migration.
//
// Maps to: codex-rs/core/src/personality_migration.rs PERSONALITY_MIGRATION_FILENAME
const PersonalityMigrationMarker = ".personality_migration"

// PragmaticPersonality is the value backfilled for existing installs
// that never set one explicitly.
const PragmaticPersonality = "pragmatic"

// PersonalityMigrationStatus reports which branch MigratePersonality took.
type PersonalityMigrationStatus int

const (
	MigrationSkippedMarker PersonalityMigrationStatus = iota
	MigrationSkippedExplicitPersonality
	MigrationSkippedNoSessions
	MigrationApplied
)

// configToml is the subset of config.toml this migration reads and
// writes. Unknown keys round-trip untouched via the Rest map so running
// the migration never clobbers fields the rest of the config layer owns.
type configToml struct {
	Personality string                 `toml:"personality,omitempty"`
	ModelProvider string               `toml:"model_provider,omitempty"`
	Rest        map[string]interface{} `toml:"-"`
}

// MigratePersonality runs the one-shot default-personality backfill: a
// CODEX_HOME that has never set a personality, but already has at least
// one recorded session, gets "pragmatic" written into config.toml. Safe
// to call on every app-server startup — after the first run (whichever
// branch it takes) the marker file short-circuits all future calls.
//
// Maps to: codex-rs/core/src/personality_migration.rs maybe_migrate_personality
func MigratePersonality(codexHome string) (PersonalityMigrationStatus, error) {
	markerPath := filepath.Join(codexHome, PersonalityMigrationMarker)
	if _, err := os.Stat(markerPath); err == nil {
		return MigrationSkippedMarker, nil
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("personality migration: stat marker: %w", err)
	}

	configPath := filepath.Join(codexHome, "config.toml")
	cfg, err := readConfigToml(configPath)
	if err != nil {
		return 0, fmt.Errorf("personality migration: read config.toml: %w", err)
	}

	if cfg.Personality != "" {
		if err := createMarker(markerPath); err != nil {
			return 0, err
		}
		return MigrationSkippedExplicitPersonality, nil
	}

	provider := cfg.ModelProvider
	if provider == "" {
		provider = "openai"
	}

	hasSessions, err := hasRecordedSessions(codexHome, provider)
	if err != nil {
		return 0, fmt.Errorf("personality migration: check sessions: %w", err)
	}
	if !hasSessions {
		if err := createMarker(markerPath); err != nil {
			return 0, err
		}
		return MigrationSkippedNoSessions, nil
	}

	cfg.Personality = PragmaticPersonality
	if err := writeConfigToml(configPath, cfg); err != nil {
		return 0, fmt.Errorf("personality migration: persist: %w", err)
	}
	if err := createMarker(markerPath); err != nil {
		return 0, err
	}
	return MigrationApplied, nil
}

// hasRecordedSessions checks, in order, the state database's thread
// listing and then a bare scan of the sessions/ and archived_sessions/
// directories on disk — the database may not exist yet for an install
// migrating for the first time, so the on-disk fallback is load-bearing,
// not belt-and-suspenders.
func hasRecordedSessions(codexHome, provider string) (bool, error) {
	dbPath := filepath.Join(codexHome, "state.db")
	if _, err := os.Stat(dbPath); err == nil {
		db, err := statedb.Open(dbPath)
		if err != nil {
			return false, err
		}
		defer db.Close()

		threads, err := db.ListThreads(statedb.ThreadListFilter{Limit: 1, Provider: provider})
		if err != nil {
			return false, err
		}
		if len(threads) > 0 {
			return true, nil
		}
	}

	for _, subdir := range []string{"sessions", "archived_sessions"} {
		found, err := dirHasRolloutFile(filepath.Join(codexHome, subdir))
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// dirHasRolloutFile walks root looking for any rollout-*.jsonl file,
// stopping at the first match. root not existing is not an error — a
// fresh CODEX_HOME simply has no sessions yet.
func dirHasRolloutFile(root string) (bool, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return false, nil
	}

	found := false
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found {
			return filepath.SkipAll
		}
		if !d.IsDir() && matchesRolloutName(d.Name()) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func matchesRolloutName(name string) bool {
	return len(name) > len("rollout-") && name[:len("rollout-")] == "rollout-" &&
		filepath.Ext(name) == ".jsonl"
}

func readConfigToml(path string) (configToml, error) {
	var cfg configToml
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return configToml{Rest: map[string]interface{}{}}, nil
		}
		return configToml{}, err
	}

	raw := map[string]interface{}{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return configToml{}, err
	}
	if v, ok := raw["personality"].(string); ok {
		cfg.Personality = v
	}
	if v, ok := raw["model_provider"].(string); ok {
		cfg.ModelProvider = v
	}
	cfg.Rest = raw
	return cfg, nil
}

func writeConfigToml(path string, cfg configToml) error {
	if cfg.Rest == nil {
		cfg.Rest = map[string]interface{}{}
	}
	cfg.Rest["personality"] = cfg.Personality
	if cfg.ModelProvider != "" {
		cfg.Rest["model_provider"] = cfg.ModelProvider
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg.Rest); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// createMarker writes the marker file, tolerating a concurrent creator.
func createMarker(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("create personality migration marker: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString("v1\n")
	return err
}

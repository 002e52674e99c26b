package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsBeforeLoad(t *testing.T) {
	if got := TurnTimerSeconds(); got != 0 {
		t.Fatalf("TurnTimerSeconds() = %d, want 0 before any config is loaded", got)
	}
	if got := PersistRetryCap(); got != 5 {
		t.Fatalf("PersistRetryCap() = %d, want the default 5", got)
	}
}

func TestLoadGameConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game_config.json")
	content := `{"turn_timer_seconds": 45, "persist_retry_cap": 3}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := LoadGameConfig(path); err != nil {
		t.Fatalf("LoadGameConfig: %v", err)
	}
	// Subsequent loads are a no-op; values come from the first load.
	if err := LoadGameConfig(filepath.Join(t.TempDir(), "other.json")); err != nil {
		t.Fatalf("second LoadGameConfig: %v", err)
	}

	if got := TurnTimerSeconds(); got != 45 {
		t.Fatalf("TurnTimerSeconds() = %d, want 45", got)
	}
	if got := PersistRetryCap(); got != 3 {
		t.Fatalf("PersistRetryCap() = %d, want 3", got)
	}
}

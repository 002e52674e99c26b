package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// GameConfig carries server-side tunables for match handling.
type GameConfig struct {
	// TurnTimerSeconds is the default per-turn clock. Zero disables it.
	TurnTimerSeconds int `json:"turn_timer_seconds"`
	// PersistRetryCap bounds the read-recompute-retry loop on storage
	// version conflicts before a command is reported as failed.
	PersistRetryCap int `json:"persist_retry_cap"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// TurnTimerSeconds returns the configured turn clock, defaulting to no timer.
func TurnTimerSeconds() int {
	if cfg == nil {
		return 0
	}
	return cfg.TurnTimerSeconds
}

// PersistRetryCap returns the conflict retry bound with a safe default.
func PersistRetryCap() int {
	if cfg == nil || cfg.PersistRetryCap <= 0 {
		return 5
	}
	return cfg.PersistRetryCap
}

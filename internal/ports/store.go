package ports

import (
	"context"
	"errors"

	"qwirkle/internal/domain"
)

// ErrNotFound reports that no game exists at the given key.
var ErrNotFound = errors.New("game not found")

// ErrRetriesExhausted reports that a persist loop gave up after repeated
// version conflicts. Callers should surface a transient error, not corrupt
// state.
var ErrRetriesExhausted = errors.New("persist retries exhausted")

// PersistResult is the outcome of a Persist attempt. Committed=false means a
// concurrent writer won the race; the caller must re-read, recompute and
// retry.
type PersistResult struct {
	Committed  bool
	NewVersion int64
}

// GameStore is the persistence port for game aggregates. Persist is a
// compare-and-swap: it commits only when the store's current version matches
// the LastWrite the aggregate was read at, so at most one concurrent writer
// wins per version.
type GameStore interface {
	// Get loads the aggregate at gameKey, or ErrNotFound.
	Get(ctx context.Context, gameKey string) (domain.Game, error)

	// Persist writes the aggregate if its LastWrite still matches the
	// store. On commit the returned NewVersion is the stamp written into
	// the document.
	Persist(ctx context.Context, gameKey string, game domain.Game) (PersistResult, error)

	// HasGameStarted answers the started flag without decoding the full
	// document. Missing games report false.
	HasGameStarted(ctx context.Context, gameKey string) (bool, error)
}

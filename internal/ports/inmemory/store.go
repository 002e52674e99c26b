// Package inmemory provides a GameStore for single-process runs and tests.
// It shares the binary codec and version-compare semantics of the Nakama
// store, so concurrency tests exercise the same protocol.
package inmemory

import (
	"context"
	"sync"
	"time"

	"qwirkle/internal/codec"
	"qwirkle/internal/domain"
	"qwirkle/internal/ports"
)

// Store keeps encoded game documents in a map guarded by a mutex.
type Store struct {
	mu    sync.Mutex
	docs  map[string][]byte
	clock func() int64
}

// New returns an empty store. clock may be nil to use wall-clock millis.
func New(clock func() int64) *Store {
	if clock == nil {
		clock = func() int64 { return time.Now().UnixMilli() }
	}
	return &Store{docs: map[string][]byte{}, clock: clock}
}

// Get decodes the stored document for gameKey.
func (s *Store) Get(ctx context.Context, gameKey string) (domain.Game, error) {
	s.mu.Lock()
	doc, ok := s.docs[gameKey]
	s.mu.Unlock()
	if !ok {
		return domain.Game{}, ports.ErrNotFound
	}
	return codec.DecodeGame(doc)
}

// Persist commits the aggregate only when its LastWrite matches the stored
// version; a mismatch reports Committed=false without writing.
func (s *Store) Persist(ctx context.Context, gameKey string, game domain.Game) (ports.PersistResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := int64(0)
	if doc, ok := s.docs[gameKey]; ok {
		stored, err := codec.DecodeGame(doc)
		if err != nil {
			return ports.PersistResult{}, err
		}
		current = stored.LastWrite
	}
	if current != game.LastWrite {
		return ports.PersistResult{}, nil
	}

	stamp := s.clock()
	if stamp <= current {
		stamp = current + 1
	}
	game.LastWrite = stamp
	doc, err := codec.EncodeGame(game)
	if err != nil {
		return ports.PersistResult{}, err
	}
	s.docs[gameKey] = doc
	return ports.PersistResult{Committed: true, NewVersion: stamp}, nil
}

// HasGameStarted reads only the flag byte of the stored document.
func (s *Store) HasGameStarted(ctx context.Context, gameKey string) (bool, error) {
	s.mu.Lock()
	doc, ok := s.docs[gameKey]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return codec.HasStarted(doc)
}

var _ ports.GameStore = (*Store)(nil)

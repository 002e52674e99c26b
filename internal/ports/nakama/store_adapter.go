package nakama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qwirkle/internal/codec"
	"qwirkle/internal/domain"
	"qwirkle/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// storageClient is the slice of runtime.NakamaModule the store needs; tests
// substitute a fake.
type storageClient interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
}

// storedGame is the JSON envelope around the binary snapshot. Nakama storage
// values must be JSON objects, so the snapshot travels base64-encoded, with
// the started flag and version stamp duplicated for cheap reads.
type storedGame struct {
	Started  bool   `json:"started"`
	Version  int64  `json:"version"`
	Snapshot string `json:"snapshot"`
}

// GameStore persists game aggregates in Nakama storage using conditional
// writes: StorageWrite with the read version performs the compare-and-swap,
// and a rejected version means a concurrent writer won.
type GameStore struct {
	nk    storageClient
	clock func() int64
}

// NewGameStore builds a store on top of the Nakama runtime module. clock may
// be nil to use wall-clock millis.
func NewGameStore(nk storageClient, clock func() int64) *GameStore {
	if clock == nil {
		clock = func() int64 { return time.Now().UnixMilli() }
	}
	return &GameStore{nk: nk, clock: clock}
}

// Get loads and decodes the aggregate stored at gameKey.
func (s *GameStore) Get(ctx context.Context, gameKey string) (domain.Game, error) {
	obj, err := s.read(ctx, gameKey)
	if err != nil {
		return domain.Game{}, err
	}
	if obj == nil {
		return domain.Game{}, ports.ErrNotFound
	}

	envelope, snapshot, err := decodeEnvelope(obj.Value)
	if err != nil {
		return domain.Game{}, err
	}
	game, err := codec.DecodeGame(snapshot)
	if err != nil {
		return domain.Game{}, err
	}
	if game.LastWrite != envelope.Version {
		return domain.Game{}, fmt.Errorf("%w: envelope version %d, document version %d",
			codec.ErrIntegrity, envelope.Version, game.LastWrite)
	}
	return game, nil
}

// Persist commits the aggregate when its LastWrite matches the stored
// version. The conditional StorageWrite closes the race window between the
// version check and the write: if another writer lands in between, Nakama
// rejects the stale version and the result reports Committed=false.
func (s *GameStore) Persist(ctx context.Context, gameKey string, game domain.Game) (ports.PersistResult, error) {
	obj, err := s.read(ctx, gameKey)
	if err != nil {
		return ports.PersistResult{}, err
	}

	readVersion := "*" // conditional create
	current := int64(0)
	if obj != nil {
		envelope, _, err := decodeEnvelope(obj.Value)
		if err != nil {
			return ports.PersistResult{}, err
		}
		current = envelope.Version
		readVersion = obj.Version
	}
	if current != game.LastWrite {
		return ports.PersistResult{}, nil
	}

	stamp := s.clock()
	if stamp <= current {
		stamp = current + 1
	}
	game.LastWrite = stamp

	snapshot, err := codec.EncodeGame(game)
	if err != nil {
		return ports.PersistResult{}, err
	}
	value, err := json.Marshal(storedGame{
		Started:  game.Started,
		Version:  stamp,
		Snapshot: base64.StdEncoding.EncodeToString(snapshot),
	})
	if err != nil {
		return ports.PersistResult{}, fmt.Errorf("failed to marshal game envelope: %w", err)
	}

	writes := []*runtime.StorageWrite{
		{
			Collection:      storageCollection,
			Key:             gameKey,
			Value:           string(value),
			Version:         readVersion,
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}
	if _, err := s.nk.StorageWrite(ctx, writes); err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return ports.PersistResult{}, nil
		}
		return ports.PersistResult{}, fmt.Errorf("failed to persist game %s: %w", gameKey, err)
	}
	return ports.PersistResult{Committed: true, NewVersion: stamp}, nil
}

// HasGameStarted answers from the envelope flag without touching the binary
// snapshot.
func (s *GameStore) HasGameStarted(ctx context.Context, gameKey string) (bool, error) {
	obj, err := s.read(ctx, gameKey)
	if err != nil {
		return false, err
	}
	if obj == nil {
		return false, nil
	}
	var envelope storedGame
	if err := json.Unmarshal([]byte(obj.Value), &envelope); err != nil {
		return false, fmt.Errorf("failed to unmarshal game envelope: %w", err)
	}
	return envelope.Started, nil
}

func (s *GameStore) read(ctx context.Context, gameKey string) (*api.StorageObject, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: storageCollection, Key: gameKey},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read game %s: %w", gameKey, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}
	return objects[0], nil
}

func decodeEnvelope(value string) (storedGame, []byte, error) {
	var envelope storedGame
	if err := json.Unmarshal([]byte(value), &envelope); err != nil {
		return storedGame{}, nil, fmt.Errorf("failed to unmarshal game envelope: %w", err)
	}
	snapshot, err := base64.StdEncoding.DecodeString(envelope.Snapshot)
	if err != nil {
		return storedGame{}, nil, fmt.Errorf("failed to decode game snapshot: %w", err)
	}
	return envelope, snapshot, nil
}

var _ ports.GameStore = (*GameStore)(nil)

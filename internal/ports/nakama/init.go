package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs and the match handler into the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickGame, rpcQuickGame); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcHasGameStarted, rpcHasGameStarted); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameQwirkle, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(NewGameStore(nk, nil), nil, 0), nil
	}); err != nil {
		return err
	}

	logger.Info("Qwirkle Go module loaded.")
	return nil
}

package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickGameResponse is returned to clients looking for an open game.
type QuickGameResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// HasGameStartedRequest asks whether the game behind a key has started.
type HasGameStartedRequest struct {
	GameKey string `json:"game_key"`
}

// HasGameStartedResponse carries the started flag.
type HasGameStartedResponse struct {
	Started bool `json:"started"`
}

// rpcQuickGame finds an open lobby or creates a new match. Seat and role
// assignment happen server-side in MatchJoin.
func rpcQuickGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	query := "+label.open:T +label.game:qwirkle"

	limit := 10
	authoritative := true
	minSize := 1
	maxSize := 3 // leave at least one open seat

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickGameResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameQwirkle, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickGameResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

// rpcHasGameStarted answers the started flag from the storage envelope
// without decoding the snapshot.
func rpcHasGameStarted(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req HasGameStartedRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.GameKey == "" {
		return "", runtime.NewError("game_key is required", 3) // INVALID_ARGUMENT
	}

	store := NewGameStore(nk, nil)
	started, err := store.HasGameStarted(ctx, req.GameKey)
	if err != nil {
		logger.Error("HasGameStarted: %v", err)
		return "", runtime.NewError("internal error", 13) // INTERNAL
	}

	b, _ := json.Marshal(HasGameStartedResponse{Started: started})
	return string(b), nil
}

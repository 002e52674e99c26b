package nakama

// MatchNameQwirkle is the authoritative match handler name registered with
// Nakama. One match instance owns one game key.
const MatchNameQwirkle = "qwirkle_match"

// RpcQuickGame is the RPC id clients call to find or create an open game.
const RpcQuickGame = "quick_game"

// RpcHasGameStarted is the RPC id for the cheap started-flag check.
const RpcHasGameStarted = "has_game_started"

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame   int64 = 1
	OpSwapTiles   int64 = 2
	OpApplyTiles  int64 = 3
	OpSetUsername int64 = 4

	// Server -> Client events
	OpUserList      int64 = 101
	OpUserHand      int64 = 102 // sent privately
	OpGameStarted   int64 = 103
	OpGameTiles     int64 = 104
	OpUserInControl int64 = 105
	OpGameOver      int64 = 106
	OpMoveRejected  int64 = 107 // sent privately to the rejected client
)

const (
	// storageCollection holds one encoded game document per game key.
	storageCollection = "games"
)

package app

import "qwirkle/internal/domain"

// EventKind identifies the outbound notifications derived from a reducer
// transition. The names are the logical message names the messaging layer
// sends.
type EventKind string

const (
	EventUserList      EventKind = "user.list"
	EventUserHand      EventKind = "user.hand"
	EventGameStarted   EventKind = "game.started"
	EventGameOver      EventKind = "game.over"
	EventGameTiles     EventKind = "game.tiles"
	EventUserInControl EventKind = "user.incontrol"
)

// Event is an outbound notification with optional targeted recipients.
// Empty Recipients means broadcast to everyone in the game.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string
}

// UserListPayload carries the full user roster.
type UserListPayload struct {
	Users []domain.UserWithStatus
}

// UserHandPayload carries one user's hand and is sent only to that user.
type UserHandPayload struct {
	UserID string
	Hand   []domain.Tile
}

// GameStartedPayload announces a fresh game.
type GameStartedPayload struct{}

// GameOverPayload announces the end of the game.
type GameOverPayload struct{}

// GameTilesPayload carries the whole board plus the most recent move.
type GameTilesPayload struct {
	Tiles      []domain.PositionedTile
	LastPlaced []domain.PositionedTile
}

// UserInControlPayload announces whose turn it is and when it began.
type UserInControlPayload struct {
	UserID        string
	TurnStartTime int64
}

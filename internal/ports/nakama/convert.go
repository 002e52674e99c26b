package nakama

import (
	"fmt"

	"qwirkle/internal/app"
	"qwirkle/internal/domain"
)

// Wire payload shapes. Commands and events travel as JSON over the match
// dispatcher; colours and shapes are their lowercase names.

type wireTile struct {
	Colour string `json:"colour"`
	Shape  string `json:"shape"`
}

type wirePositionedTile struct {
	Colour string `json:"colour"`
	Shape  string `json:"shape"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type wireUser struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Type   string `json:"type"`
	Score  int    `json:"score"`
}

type startGameRequest struct {
	// TurnTimerSeconds overrides the configured turn clock; zero keeps it.
	TurnTimerSeconds int `json:"turn_timer_seconds"`
}

type swapTilesRequest struct {
	Tiles []wireTile `json:"tiles"`
}

type applyTilesRequest struct {
	Tiles []wirePositionedTile `json:"tiles"`
}

type setUsernameRequest struct {
	Username string `json:"username"`
}

type userListEvent struct {
	Users []wireUser `json:"users"`
}

type userHandEvent struct {
	Tiles []wireTile `json:"tiles"`
}

type gameStartedEvent struct{}

type gameOverEvent struct{}

type gameTilesEvent struct {
	Tiles      []wirePositionedTile `json:"tiles"`
	LastPlaced []wirePositionedTile `json:"last_placed"`
}

type userInControlEvent struct {
	UserID        string `json:"user_id"`
	TurnStartTime int64  `json:"turn_start_time"`
}

type moveRejectedEvent struct {
	Reason string                 `json:"reason"`
	Tiles  []wirePositionedTile   `json:"tiles,omitempty"`
	Lines  [][]wirePositionedTile `json:"lines,omitempty"`
}

var validColours = func() map[string]domain.Colour {
	m := make(map[string]domain.Colour, len(domain.Colours))
	for _, c := range domain.Colours {
		m[string(c)] = c
	}
	return m
}()

var validShapes = func() map[string]domain.Shape {
	m := make(map[string]domain.Shape, len(domain.Shapes))
	for _, s := range domain.Shapes {
		m[string(s)] = s
	}
	return m
}()

func toDomainTile(w wireTile) (domain.Tile, error) {
	colour, ok := validColours[w.Colour]
	if !ok {
		return domain.Tile{}, fmt.Errorf("unknown colour %q", w.Colour)
	}
	shape, ok := validShapes[w.Shape]
	if !ok {
		return domain.Tile{}, fmt.Errorf("unknown shape %q", w.Shape)
	}
	return domain.Tile{Colour: colour, Shape: shape}, nil
}

func toDomainTiles(ws []wireTile) ([]domain.Tile, error) {
	tiles := make([]domain.Tile, len(ws))
	for i, w := range ws {
		t, err := toDomainTile(w)
		if err != nil {
			return nil, err
		}
		tiles[i] = t
	}
	return tiles, nil
}

func toDomainPositionedTiles(ws []wirePositionedTile) ([]domain.PositionedTile, error) {
	tiles := make([]domain.PositionedTile, len(ws))
	for i, w := range ws {
		t, err := toDomainTile(wireTile{Colour: w.Colour, Shape: w.Shape})
		if err != nil {
			return nil, err
		}
		tiles[i] = domain.PositionedTile{Tile: t, Position: domain.Position{X: w.X, Y: w.Y}}
	}
	return tiles, nil
}

func toWireTiles(tiles []domain.Tile) []wireTile {
	out := make([]wireTile, len(tiles))
	for i, t := range tiles {
		out[i] = wireTile{Colour: string(t.Colour), Shape: string(t.Shape)}
	}
	return out
}

func toWirePositionedTiles(tiles []domain.PositionedTile) []wirePositionedTile {
	out := make([]wirePositionedTile, len(tiles))
	for i, pt := range tiles {
		out[i] = wirePositionedTile{
			Colour: string(pt.Tile.Colour),
			Shape:  string(pt.Tile.Shape),
			X:      pt.Position.X,
			Y:      pt.Position.Y,
		}
	}
	return out
}

func toWireUsers(users []domain.UserWithStatus) []wireUser {
	out := make([]wireUser, len(users))
	for i, u := range users {
		out[i] = wireUser{
			UserID: u.ID,
			Name:   u.Name,
			Status: string(u.Status),
			Type:   string(u.Type),
			Score:  u.Score,
		}
	}
	return out
}

// eventWire maps an app event to its opcode and JSON payload struct.
func eventWire(ev app.Event) (int64, any, bool) {
	switch ev.Kind {
	case app.EventUserList:
		p := ev.Payload.(app.UserListPayload)
		return OpUserList, userListEvent{Users: toWireUsers(p.Users)}, true
	case app.EventUserHand:
		p := ev.Payload.(app.UserHandPayload)
		return OpUserHand, userHandEvent{Tiles: toWireTiles(p.Hand)}, true
	case app.EventGameStarted:
		return OpGameStarted, gameStartedEvent{}, true
	case app.EventGameOver:
		return OpGameOver, gameOverEvent{}, true
	case app.EventGameTiles:
		p := ev.Payload.(app.GameTilesPayload)
		return OpGameTiles, gameTilesEvent{
			Tiles:      toWirePositionedTiles(p.Tiles),
			LastPlaced: toWirePositionedTiles(p.LastPlaced),
		}, true
	case app.EventUserInControl:
		p := ev.Payload.(app.UserInControlPayload)
		return OpUserInControl, userInControlEvent{
			UserID:        p.UserID,
			TurnStartTime: p.TurnStartTime,
		}, true
	}
	return 0, nil, false
}

// rejectionWire maps a placement rejection to the move-rejected payload.
func rejectionWire(result domain.PlacementResult) (moveRejectedEvent, bool) {
	switch r := result.(type) {
	case domain.PlacingOverCurrentlyPlacedTiles:
		return moveRejectedEvent{
			Reason: "placing_over_currently_placed_tiles",
			Tiles:  toWirePositionedTiles(r.Tiles),
		}, true
	case domain.PlacementOnEmptyGridMustBeAtOrigin:
		return moveRejectedEvent{Reason: "placement_on_empty_grid_must_be_at_origin"}, true
	case domain.DuplicatePlacement:
		return moveRejectedEvent{
			Reason: "duplicate_placement",
			Tiles:  toWirePositionedTiles(r.Tiles),
		}, true
	case domain.CreatesInvalidLines:
		lines := make([][]wirePositionedTile, len(r.Lines))
		for i, line := range r.Lines {
			lines[i] = toWirePositionedTiles(line)
		}
		return moveRejectedEvent{Reason: "creates_invalid_lines", Lines: lines}, true
	case domain.AllPlacedTilesMustBeInALine:
		return moveRejectedEvent{Reason: "all_placed_tiles_must_be_in_a_line"}, true
	}
	return moveRejectedEvent{}, false
}

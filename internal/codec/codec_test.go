package codec

import (
	"bytes"
	"errors"
	"testing"

	"qwirkle/internal/domain"
)

// allTiles returns the full tile set in table order, three copies each.
func allTiles() []domain.Tile {
	tiles := make([]domain.Tile, 0, domain.TotalTiles)
	for _, colour := range domain.Colours {
		for _, shape := range domain.Shapes {
			for i := 0; i < domain.CopiesPerTile; i++ {
				tiles = append(tiles, domain.Tile{Colour: colour, Shape: shape})
			}
		}
	}
	return tiles
}

// startedFixture builds a started game that satisfies tile conservation:
// two dealt hands, two board tiles and the rest in the bag.
func startedFixture() domain.Game {
	tiles := allTiles()

	g := domain.NewGame()
	g.Started = true
	g.Users["a"] = domain.UserWithStatus{ID: "a", Name: "Ann", Status: domain.Online, Type: domain.Player, Score: 14}
	g.Users["b"] = domain.UserWithStatus{ID: "b", Name: "Bob", Status: domain.Offline, Type: domain.Player, Score: 9}
	g.Users["watcher"] = domain.UserWithStatus{ID: "watcher", Name: "", Status: domain.Online, Type: domain.Spectator}
	g.Hands["a"] = tiles[:6]
	g.Hands["b"] = tiles[6:12]
	g.Tiles = []domain.PositionedTile{
		{Tile: tiles[12], Position: domain.Position{X: 0, Y: 0}},
		{Tile: tiles[13], Position: domain.Position{X: -1, Y: 0}},
	}
	g.LastPlaced = g.Tiles[1:]
	g.Bag = domain.BagFromTiles(tiles[14:])
	g.UserInControl = "b"
	g.TurnStartTime = 1700000000000
	g.TurnTimer = 30000
	g.LastWrite = 7
	return g
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	lobby := domain.NewGame()
	lobby.Users["a"] = domain.UserWithStatus{ID: "a", Name: "Ann", Status: domain.Online, Type: domain.Player}

	over := startedFixture()
	over.Over = true
	over.UserInControl = ""

	tests := []struct {
		name string
		game domain.Game
	}{
		{name: "empty game", game: domain.NewGame()},
		{name: "lobby game", game: lobby},
		{name: "started game", game: startedFixture()},
		{name: "finished game", game: over},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeGame(tt.game)
			if err != nil {
				t.Fatalf("EncodeGame: %v", err)
			}
			decoded, err := DecodeGame(data)
			if err != nil {
				t.Fatalf("DecodeGame: %v", err)
			}
			if !decoded.Equal(tt.game) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, tt.game)
			}
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	g := startedFixture()
	first, err := EncodeGame(g)
	if err != nil {
		t.Fatalf("EncodeGame: %v", err)
	}
	second, err := EncodeGame(g.Clone())
	if err != nil {
		t.Fatalf("EncodeGame: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("two encodings of the same game differ")
	}
}

func TestHasStarted(t *testing.T) {
	started, err := EncodeGame(startedFixture())
	if err != nil {
		t.Fatalf("EncodeGame: %v", err)
	}
	fresh, err := EncodeGame(domain.NewGame())
	if err != nil {
		t.Fatalf("EncodeGame: %v", err)
	}

	if got, err := HasStarted(started); err != nil || !got {
		t.Fatalf("HasStarted(started) = %v, %v; want true", got, err)
	}
	if got, err := HasStarted(fresh); err != nil || got {
		t.Fatalf("HasStarted(fresh) = %v, %v; want false", got, err)
	}
	if _, err := HasStarted(nil); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("HasStarted(nil) err = %v, want ErrCorrupt", err)
	}
	if _, err := HasStarted([]byte{9}); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("HasStarted(bad flag) err = %v, want ErrCorrupt", err)
	}
}

func TestDecodeCorruptDocuments(t *testing.T) {
	data, err := EncodeGame(startedFixture())
	if err != nil {
		t.Fatalf("EncodeGame: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated header", data: data[:1]},
		{name: "truncated body", data: data[:len(data)/2]},
		{name: "truncated version stamp", data: data[:len(data)-1]},
		{name: "trailing bytes", data: append(append([]byte(nil), data...), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeGame(tt.data); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("DecodeGame err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestDecodeRejectsTileLoss(t *testing.T) {
	g := startedFixture()
	g.Bag = domain.EmptyBag() // drops 94 tiles from the document

	data, err := EncodeGame(g)
	if err != nil {
		t.Fatalf("EncodeGame: %v", err)
	}
	if _, err := DecodeGame(data); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("DecodeGame err = %v, want ErrIntegrity", err)
	}
}

func TestEncodeRejectsOutOfRangeCoordinates(t *testing.T) {
	g := startedFixture()
	g.Tiles[0].Position.X = 200

	if _, err := EncodeGame(g); !errors.Is(err, ErrCoordinateRange) {
		t.Fatalf("EncodeGame err = %v, want ErrCoordinateRange", err)
	}

	_, err := AppendPositionedTiles(nil, []domain.PositionedTile{
		{Position: domain.Position{X: 0, Y: -129}},
	})
	if !errors.Is(err, ErrCoordinateRange) {
		t.Fatalf("AppendPositionedTiles err = %v, want ErrCoordinateRange", err)
	}
}

func TestTileListRoundTrip(t *testing.T) {
	tiles := []domain.Tile{
		{Colour: domain.Red, Shape: domain.Circle},
		{Colour: domain.Purple, Shape: domain.Clover},
	}
	buf := AppendTiles(nil, tiles)
	got, err := ReadTiles(bytes.NewReader(buf), len(tiles))
	if err != nil {
		t.Fatalf("ReadTiles: %v", err)
	}
	for i := range tiles {
		if got[i] != tiles[i] {
			t.Fatalf("tile %d = %v, want %v", i, got[i], tiles[i])
		}
	}

	positioned := []domain.PositionedTile{
		{Tile: tiles[0], Position: domain.Position{X: -128, Y: 127}},
		{Tile: tiles[1], Position: domain.Position{X: 3, Y: -4}},
	}
	buf, err = AppendPositionedTiles(nil, positioned)
	if err != nil {
		t.Fatalf("AppendPositionedTiles: %v", err)
	}
	gotPositioned, err := ReadPositionedTiles(bytes.NewReader(buf), len(positioned))
	if err != nil {
		t.Fatalf("ReadPositionedTiles: %v", err)
	}
	for i := range positioned {
		if gotPositioned[i] != positioned[i] {
			t.Fatalf("positioned tile %d = %v, want %v", i, gotPositioned[i], positioned[i])
		}
	}
}

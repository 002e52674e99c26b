package app

import (
	"math/rand"
	"testing"

	"qwirkle/internal/domain"
)

func newTestService(seed int64) (*Service, *int64) {
	now := new(int64)
	clock := func() int64 {
		*now++
		return *now
	}
	return NewService(rand.New(rand.NewSource(seed)), clock), now
}

func startedGame(t *testing.T, svc *Service, playerIDs ...string) domain.Game {
	t.Helper()
	g := domain.NewGame()
	for _, id := range playerIDs {
		g = svc.OnUserJoin(g, domain.User{ID: id, Name: id})
	}
	return svc.OnStart(g, 0)
}

func TestOnUserJoin(t *testing.T) {
	svc, _ := newTestService(1)

	t.Run("joiners before start become players", func(t *testing.T) {
		g := svc.OnUserJoin(domain.NewGame(), domain.User{ID: "a", Name: "Ann"})
		u := g.Users["a"]
		if u.Type != domain.Player || u.Status != domain.Online || u.Name != "Ann" {
			t.Fatalf("user = %+v, want online player Ann", u)
		}
	})

	t.Run("joiners after start spectate", func(t *testing.T) {
		g := startedGame(t, svc, "a", "b")
		g = svc.OnUserJoin(g, domain.User{ID: "late", Name: "Late"})
		if g.Users["late"].Type != domain.Spectator {
			t.Fatalf("late joiner type = %v, want spectator", g.Users["late"].Type)
		}
	})

	t.Run("fifth joiner spectates", func(t *testing.T) {
		g := domain.NewGame()
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			g = svc.OnUserJoin(g, domain.User{ID: id, Name: id})
		}
		if g.Users["e"].Type != domain.Spectator {
			t.Fatalf("fifth joiner type = %v, want spectator", g.Users["e"].Type)
		}
		if got := len(g.PlayerIDs()); got != domain.MaxPlayers {
			t.Fatalf("players = %d, want %d", got, domain.MaxPlayers)
		}
	})

	t.Run("rejoin keeps seat and score", func(t *testing.T) {
		g := startedGame(t, svc, "a", "b")
		u := g.Users["a"]
		u.Score = 11
		g.Users["a"] = u
		g = svc.OnDisconnect(g, "a")

		g = svc.OnUserJoin(g, domain.User{ID: "a", Name: "Ann"})
		got := g.Users["a"]
		if got.Type != domain.Player || got.Score != 11 || got.Status != domain.Online {
			t.Fatalf("rejoined user = %+v, want online player with score 11", got)
		}
	})

	t.Run("rejoin with empty name keeps the old one", func(t *testing.T) {
		g := svc.OnUserJoin(domain.NewGame(), domain.User{ID: "a", Name: "Ann"})
		g = svc.OnUserJoin(g, domain.User{ID: "a"})
		if g.Users["a"].Name != "Ann" {
			t.Fatalf("name = %q, want Ann", g.Users["a"].Name)
		}
	})
}

func TestOnStart(t *testing.T) {
	svc, _ := newTestService(2)

	g := domain.NewGame()
	for _, id := range []string{"b", "a", "c"} {
		g = svc.OnUserJoin(g, domain.User{ID: id, Name: id})
	}
	g = svc.OnUserJoin(g, domain.User{ID: "a", Name: "a"}) // rejoin is harmless
	started := svc.OnStart(g, 0)

	if !started.Started || started.Over {
		t.Fatalf("started=%v over=%v, want started and not over", started.Started, started.Over)
	}
	for _, id := range []string{"a", "b", "c"} {
		if len(started.Hands[id]) != HandSize {
			t.Fatalf("hand %q = %d tiles, want %d", id, len(started.Hands[id]), HandSize)
		}
	}
	if started.Bag.Size() != domain.TotalTiles-3*HandSize {
		t.Fatalf("bag = %d, want %d", started.Bag.Size(), domain.TotalTiles-3*HandSize)
	}
	if started.UserInControl != "a" {
		t.Fatalf("opening control = %q, want a", started.UserInControl)
	}
	if started.TileCount() != domain.TotalTiles {
		t.Fatalf("tile count = %d, want %d", started.TileCount(), domain.TotalTiles)
	}
	if started.TurnStartTime == 0 {
		t.Fatalf("turn start time not stamped")
	}
}

func TestOnStartResetsScores(t *testing.T) {
	svc, _ := newTestService(3)
	g := startedGame(t, svc, "a", "b")
	u := g.Users["a"]
	u.Score = 40
	g.Users["a"] = u

	restarted := svc.OnStart(g, 0)
	if restarted.Users["a"].Score != 0 {
		t.Fatalf("score after restart = %d, want 0", restarted.Users["a"].Score)
	}
}

func TestNextUserInControl(t *testing.T) {
	base := domain.NewGame()
	for _, id := range []string{"a", "b", "c"} {
		base.Users[id] = domain.UserWithStatus{ID: id, Type: domain.Player}
	}
	base.Users["watcher"] = domain.UserWithStatus{ID: "watcher", Type: domain.Spectator}

	tests := []struct {
		name    string
		control string
		want    string
	}{
		{name: "first to second", control: "a", want: "b"},
		{name: "middle to last", control: "b", want: "c"},
		{name: "last wraps to first", control: "c", want: "a"},
		{name: "missing holder wraps to first", control: "gone", want: "a"},
		{name: "spectators are skipped", control: "watcher", want: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base
			g.UserInControl = tt.control
			if got := NextUserInControl(g); got != tt.want {
				t.Fatalf("NextUserInControl() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOnSwap(t *testing.T) {
	svc, _ := newTestService(4)
	g := startedGame(t, svc, "a", "b")

	toSwap := append([]domain.Tile(nil), g.Hands["a"][:2]...)
	swapped := svc.OnSwap(g, "a", toSwap)

	if len(swapped.Hands["a"]) != HandSize {
		t.Fatalf("hand = %d tiles, want %d", len(swapped.Hands["a"]), HandSize)
	}
	if swapped.Bag.Size() != g.Bag.Size() {
		t.Fatalf("bag = %d, want %d after an even exchange", swapped.Bag.Size(), g.Bag.Size())
	}
	if swapped.TileCount() != domain.TotalTiles {
		t.Fatalf("tile count = %d, want %d", swapped.TileCount(), domain.TotalTiles)
	}
	if swapped.UserInControl != "b" {
		t.Fatalf("control = %q, want b", swapped.UserInControl)
	}
	if swapped.TurnStartTime <= g.TurnStartTime {
		t.Fatalf("turn start time not refreshed")
	}
}

func TestOnSwapWithoutHandIsNoop(t *testing.T) {
	svc, _ := newTestService(5)
	g := startedGame(t, svc, "a", "b")

	got := svc.OnSwap(g, "ghost", []domain.Tile{{Colour: domain.Red, Shape: domain.Circle}})
	if !got.Equal(g) {
		t.Fatalf("swap by a user without a hand changed the game")
	}
}

func TestOnApplyTilesFirstMove(t *testing.T) {
	svc, _ := newTestService(6)
	g := startedGame(t, svc, "a", "b")

	placement := domain.PositionedTile{Tile: g.Hands["a"][0], Position: domain.Position{}}
	after, result := svc.OnApplyTiles(g, "a", []domain.PositionedTile{placement})

	placed, ok := result.(domain.Placed)
	if !ok {
		t.Fatalf("result = %T, want Placed", result)
	}
	if placed.Score != 1 {
		t.Fatalf("score = %d, want 1 for the opening tile", placed.Score)
	}
	if after.Users["a"].Score != 1 {
		t.Fatalf("user score = %d, want 1", after.Users["a"].Score)
	}
	if len(after.Hands["a"]) != HandSize {
		t.Fatalf("hand = %d tiles, want topped back up to %d", len(after.Hands["a"]), HandSize)
	}
	if len(after.Tiles) != 1 || len(after.LastPlaced) != 1 {
		t.Fatalf("board = %d tiles, last placed = %d, want 1 and 1", len(after.Tiles), len(after.LastPlaced))
	}
	if after.UserInControl != "b" {
		t.Fatalf("control = %q, want b", after.UserInControl)
	}
	if after.TileCount() != domain.TotalTiles {
		t.Fatalf("tile count = %d, want %d", after.TileCount(), domain.TotalTiles)
	}
}

func TestOnApplyTilesRejections(t *testing.T) {
	svc, _ := newTestService(7)
	g := startedGame(t, svc, "a", "b")

	t.Run("tile not in hand", func(t *testing.T) {
		foreign := domain.PositionedTile{Tile: g.Hands["b"][0], Position: domain.Position{}}
		if domain.HandContains(g.Hands["a"], []domain.Tile{foreign.Tile}) {
			foreign.Tile = pickTileNotIn(t, g.Hands["a"])
		}
		after, result := svc.OnApplyTiles(g, "a", []domain.PositionedTile{foreign})
		if result != nil {
			t.Fatalf("result = %v, want nil", result)
		}
		if !after.Equal(g) {
			t.Fatalf("game changed on a hand mismatch")
		}
	})

	t.Run("invalid placement leaves the game unchanged", func(t *testing.T) {
		offOrigin := domain.PositionedTile{Tile: g.Hands["a"][0], Position: domain.Position{X: 3}}
		after, result := svc.OnApplyTiles(g, "a", []domain.PositionedTile{offOrigin})
		if _, bad := result.(domain.PlacementOnEmptyGridMustBeAtOrigin); !bad {
			t.Fatalf("result = %T, want PlacementOnEmptyGridMustBeAtOrigin", result)
		}
		if !after.Equal(g) {
			t.Fatalf("game changed on a rejected placement")
		}
	})

	t.Run("user without a hand", func(t *testing.T) {
		after, result := svc.OnApplyTiles(g, "ghost", nil)
		if result != nil || !after.Equal(g) {
			t.Fatalf("apply by a user without a hand changed the game")
		}
	})
}

// pickTileNotIn returns a tile the hand does not hold.
func pickTileNotIn(t *testing.T, hand []domain.Tile) domain.Tile {
	t.Helper()
	for _, colour := range domain.Colours {
		for _, shape := range domain.Shapes {
			candidate := domain.Tile{Colour: colour, Shape: shape}
			if !domain.HandContains(hand, []domain.Tile{candidate}) {
				return candidate
			}
		}
	}
	t.Fatal("hand holds a copy of every tile")
	return domain.Tile{}
}

func TestOnApplyTilesEmptyHandEndsGame(t *testing.T) {
	svc, _ := newTestService(8)

	g := domain.NewGame()
	g.Started = true
	g.Users["a"] = domain.UserWithStatus{ID: "a", Type: domain.Player, Status: domain.Online, Score: 20}
	g.Users["b"] = domain.UserWithStatus{ID: "b", Type: domain.Player, Status: domain.Online}
	g.Hands["a"] = []domain.Tile{{Colour: domain.Red, Shape: domain.Circle}}
	g.Hands["b"] = []domain.Tile{{Colour: domain.Green, Shape: domain.Star}}
	g.Tiles = []domain.PositionedTile{{Tile: domain.Tile{Colour: domain.Blue, Shape: domain.Circle}}}
	g.Bag = domain.EmptyBag()
	g.UserInControl = "a"

	placement := domain.PositionedTile{
		Tile:     domain.Tile{Colour: domain.Red, Shape: domain.Circle},
		Position: domain.Position{X: 1},
	}
	after, result := svc.OnApplyTiles(g, "a", []domain.PositionedTile{placement})

	if _, ok := result.(domain.Placed); !ok {
		t.Fatalf("result = %T, want Placed", result)
	}
	if !after.Over {
		t.Fatalf("game not over after the last tile left the hand")
	}
	// Line of two scores 2, plus the empty-hand bonus.
	if after.Users["a"].Score != 20+2+EmptyHandBonus {
		t.Fatalf("score = %d, want %d", after.Users["a"].Score, 20+2+EmptyHandBonus)
	}
	if len(after.Hands["a"]) != 0 {
		t.Fatalf("hand = %d tiles, want empty with the bag exhausted", len(after.Hands["a"]))
	}
}

func TestOnTurnTimeout(t *testing.T) {
	svc, now := newTestService(9)
	g := startedGame(t, svc, "a", "b")
	g.TurnTimer = 1000
	g.TurnStartTime = *now

	t.Run("before expiry", func(t *testing.T) {
		got := svc.OnTurnTimeout(g)
		if !got.Equal(g) {
			t.Fatalf("turn passed before the clock expired")
		}
	})

	t.Run("after expiry", func(t *testing.T) {
		*now += 2000
		got := svc.OnTurnTimeout(g)
		if got.UserInControl != "b" {
			t.Fatalf("control = %q, want b", got.UserInControl)
		}
		if got.TurnStartTime <= g.TurnStartTime {
			t.Fatalf("turn start time not refreshed")
		}
	})

	t.Run("no timer configured", func(t *testing.T) {
		untimed := g.Clone()
		untimed.TurnTimer = 0
		*now += 5000
		if got := svc.OnTurnTimeout(untimed); !got.Equal(untimed) {
			t.Fatalf("turn passed with no timer configured")
		}
	})
}

func TestTileConservationAcrossSequence(t *testing.T) {
	svc, _ := newTestService(10)
	g := startedGame(t, svc, "a", "b", "c")

	g = svc.OnSwap(g, "a", g.Hands["a"][:3])
	if g.TileCount() != domain.TotalTiles {
		t.Fatalf("tile count after swap = %d, want %d", g.TileCount(), domain.TotalTiles)
	}

	placement := domain.PositionedTile{Tile: g.Hands["b"][0], Position: domain.Position{}}
	g, result := svc.OnApplyTiles(g, "b", []domain.PositionedTile{placement})
	if _, ok := result.(domain.Placed); !ok {
		t.Fatalf("result = %T, want Placed", result)
	}
	if g.TileCount() != domain.TotalTiles {
		t.Fatalf("tile count after apply = %d, want %d", g.TileCount(), domain.TotalTiles)
	}

	g = svc.OnDisconnect(g, "c")
	if g.TileCount() != domain.TotalTiles {
		t.Fatalf("tile count after disconnect = %d, want %d", g.TileCount(), domain.TotalTiles)
	}
}

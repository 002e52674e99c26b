package domain

import "sort"

// OnlineStatus reflects whether a user currently has a live connection.
type OnlineStatus string

const (
	Online  OnlineStatus = "online"
	Offline OnlineStatus = "offline"
)

// UserType separates seated players from spectators.
type UserType string

const (
	Player    UserType = "player"
	Spectator UserType = "spectator"
)

// User is the identity a connection presents when joining a game.
type User struct {
	ID   string
	Name string
}

// UserWithStatus is a user as tracked inside a game aggregate.
type UserWithStatus struct {
	ID     string
	Name   string
	Status OnlineStatus
	Type   UserType
	Score  int
}

// MaxPlayers caps how many seated players one game supports.
const MaxPlayers = 4

// Game is the aggregate root for one game key. It is treated as a value:
// reducer transitions clone it and return a new aggregate, so a Game read
// from the store is never mutated by reference.
type Game struct {
	Users         map[string]UserWithStatus
	Started       bool
	Over          bool
	Bag           TileBag
	Hands         map[string][]Tile
	Tiles         []PositionedTile
	LastPlaced    []PositionedTile
	UserInControl string // empty when nobody holds the turn
	TurnStartTime int64  // unix millis, 0 when unset
	TurnTimer     int64  // millis, 0 when no timer
	LastWrite     int64  // version stamp the aggregate was read at
}

// NewGame returns the empty aggregate created at a game key's first use.
func NewGame() Game {
	return Game{
		Users: map[string]UserWithStatus{},
		Hands: map[string][]Tile{},
	}
}

// Clone deep-copies the aggregate so transitions can build a new value
// without touching the snapshot they were derived from.
func (g Game) Clone() Game {
	out := g
	out.Users = make(map[string]UserWithStatus, len(g.Users))
	for id, u := range g.Users {
		out.Users[id] = u
	}
	out.Hands = make(map[string][]Tile, len(g.Hands))
	for id, hand := range g.Hands {
		out.Hands[id] = append([]Tile(nil), hand...)
	}
	out.Tiles = append([]PositionedTile(nil), g.Tiles...)
	out.LastPlaced = append([]PositionedTile(nil), g.LastPlaced...)
	out.Bag = BagFromTiles(g.Bag.Tiles())
	return out
}

// PlayerIDs returns the seated players in ascending id order. This ordering
// is the turn order.
func (g Game) PlayerIDs() []string {
	ids := make([]string, 0, len(g.Users))
	for id, u := range g.Users {
		if u.Type == Player {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// TileCount sums tiles across the bag, all hands and the board. For a
// started game this is always TotalTiles.
func (g Game) TileCount() int {
	n := g.Bag.Size() + len(g.Tiles)
	for _, hand := range g.Hands {
		n += len(hand)
	}
	return n
}

// Equal compares aggregates field-for-field, with the bag compared as a
// multiset.
func (g Game) Equal(other Game) bool {
	if g.Started != other.Started || g.Over != other.Over ||
		g.UserInControl != other.UserInControl ||
		g.TurnStartTime != other.TurnStartTime || g.TurnTimer != other.TurnTimer ||
		g.LastWrite != other.LastWrite {
		return false
	}
	if len(g.Users) != len(other.Users) {
		return false
	}
	for id, u := range g.Users {
		if other.Users[id] != u {
			return false
		}
	}
	if len(g.Hands) != len(other.Hands) {
		return false
	}
	for id, hand := range g.Hands {
		if !tilesEqual(hand, other.Hands[id]) {
			return false
		}
	}
	if !positionedTilesEqual(g.Tiles, other.Tiles) ||
		!positionedTilesEqual(g.LastPlaced, other.LastPlaced) {
		return false
	}
	return g.Bag.Equal(other.Bag)
}

func tilesEqual(a, b []Tile) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func positionedTilesEqual(a, b []PositionedTile) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RemoveTiles removes the given tiles from a hand by colour+shape match,
// first occurrence wins. Tiles without a match are skipped. Copies of the
// same tile are indistinguishable, so which duplicate goes is arbitrary.
func RemoveTiles(hand []Tile, toRemove []Tile) []Tile {
	if len(toRemove) == 0 || len(hand) == 0 {
		return append([]Tile(nil), hand...)
	}
	removeCounts := make(map[Tile]int, len(toRemove))
	for _, t := range toRemove {
		removeCounts[t]++
	}
	updated := make([]Tile, 0, len(hand))
	for _, t := range hand {
		if count, ok := removeCounts[t]; ok && count > 0 {
			removeCounts[t] = count - 1
			continue
		}
		updated = append(updated, t)
	}
	return updated
}

// HandContains reports whether the hand holds at least the given multiset
// of tiles.
func HandContains(hand []Tile, tiles []Tile) bool {
	counts := make(map[Tile]int, len(hand))
	for _, t := range hand {
		counts[t]++
	}
	for _, t := range tiles {
		counts[t]--
		if counts[t] < 0 {
			return false
		}
	}
	return true
}

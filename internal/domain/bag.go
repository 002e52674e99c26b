package domain

import "math/rand"

// TileBag is the pool of undrawn tiles. Operations return a new bag; the
// receiver is never mutated. Draw order is only meaningful in that clients
// cannot predict it, so any fair shuffle will do.
type TileBag struct {
	tiles []Tile
}

// EmptyBag returns a bag with no tiles.
func EmptyBag() TileBag {
	return TileBag{}
}

// FullBag builds the complete 108-tile bag, pre-shuffled.
func FullBag(rng *rand.Rand) TileBag {
	tiles := make([]Tile, 0, TotalTiles)
	for _, colour := range Colours {
		for _, shape := range Shapes {
			for i := 0; i < CopiesPerTile; i++ {
				tiles = append(tiles, Tile{Colour: colour, Shape: shape})
			}
		}
	}
	rng.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
	return TileBag{tiles: tiles}
}

// BagFromTiles builds a bag holding exactly the given tiles, in the given
// order. Used when rehydrating a persisted game.
func BagFromTiles(tiles []Tile) TileBag {
	return TileBag{tiles: append([]Tile(nil), tiles...)}
}

// Take removes up to n tiles and returns them with the remaining bag.
func (b TileBag) Take(n int) ([]Tile, TileBag) {
	if n > len(b.tiles) {
		n = len(b.tiles)
	}
	taken := append([]Tile(nil), b.tiles[:n]...)
	rest := append([]Tile(nil), b.tiles[n:]...)
	return taken, TileBag{tiles: rest}
}

// Add returns the tiles to the bag and reshuffles so returned tiles cannot
// be drawn back in a predictable order.
func (b TileBag) Add(tiles []Tile, rng *rand.Rand) TileBag {
	merged := make([]Tile, 0, len(b.tiles)+len(tiles))
	merged = append(merged, b.tiles...)
	merged = append(merged, tiles...)
	rng.Shuffle(len(merged), func(i, j int) { merged[i], merged[j] = merged[j], merged[i] })
	return TileBag{tiles: merged}
}

// Count returns how many copies of the given tile remain.
func (b TileBag) Count(tile Tile) int {
	n := 0
	for _, t := range b.tiles {
		if t == tile {
			n++
		}
	}
	return n
}

// Size returns the number of tiles remaining.
func (b TileBag) Size() int { return len(b.tiles) }

// Tiles returns a copy of the remaining tiles in draw order.
func (b TileBag) Tiles() []Tile {
	return append([]Tile(nil), b.tiles...)
}

// Equal compares two bags as multisets. The persisted form is a histogram,
// so draw order is not part of bag identity.
func (b TileBag) Equal(other TileBag) bool {
	if len(b.tiles) != len(other.tiles) {
		return false
	}
	counts := map[Tile]int{}
	for _, t := range b.tiles {
		counts[t]++
	}
	for _, t := range other.tiles {
		counts[t]--
		if counts[t] < 0 {
			return false
		}
	}
	return true
}

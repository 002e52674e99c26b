package domain

import (
	"fmt"
	"sort"
	"strings"
)

// TileGrid is an immutable snapshot of the board. Place never mutates the
// receiver; it returns a new grid inside a Placed result.
type TileGrid struct {
	tiles map[Position]PositionedTile
}

// NewTileGrid returns an empty grid.
func NewTileGrid() TileGrid {
	return TileGrid{tiles: map[Position]PositionedTile{}}
}

// GridFromTiles builds a grid from already-validated placements, e.g. when
// rehydrating a persisted game. Placements are trusted as-is.
func GridFromTiles(tiles []PositionedTile) TileGrid {
	g := NewTileGrid()
	for _, pt := range tiles {
		g.tiles[pt.Position] = pt
	}
	return g
}

// Size returns the number of occupied positions.
func (g TileGrid) Size() int { return len(g.tiles) }

// At returns the tile at the given position, if any.
func (g TileGrid) At(pos Position) (PositionedTile, bool) {
	pt, ok := g.tiles[pos]
	return pt, ok
}

// Tiles returns the occupied positions in a stable (x, then y) order.
func (g TileGrid) Tiles() []PositionedTile {
	out := make([]PositionedTile, 0, len(g.tiles))
	for _, pt := range g.tiles {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position.X != out[j].Position.X {
			return out[i].Position.X < out[j].Position.X
		}
		return out[i].Position.Y < out[j].Position.Y
	})
	return out
}

// Line is a contiguous run of tiles along one axis, ordered by ascending
// coordinate. A line is worth its length, or 12 when it reaches the maximum
// of 6 tiles.
type Line []PositionedTile

// Valid reports whether the line obeys the one-colour-distinct-shapes or
// one-shape-distinct-colours rule.
func (l Line) Valid() bool {
	colours := map[Colour]struct{}{}
	shapes := map[Shape]struct{}{}
	for _, pt := range l {
		colours[pt.Tile.Colour] = struct{}{}
		shapes[pt.Tile.Shape] = struct{}{}
	}
	if len(colours) == 1 && len(shapes) == len(l) {
		return true
	}
	if len(shapes) == 1 && len(colours) == len(l) {
		return true
	}
	return false
}

// Score returns the points the line is worth.
func (l Line) Score() int {
	if len(l) == len(Colours) {
		return 12
	}
	return len(l)
}

// PlacementResult is the outcome of TileGrid.Place. Exactly one of the
// variants below is returned; callers switch on the concrete type.
type PlacementResult interface {
	placementResult()
}

// Placed is the success variant carrying the new grid, the move score and
// the lines the move formed.
type Placed struct {
	Grid  TileGrid
	Score int
	Lines []Line
}

// PlacingOverCurrentlyPlacedTiles rejects placements on occupied positions.
type PlacingOverCurrentlyPlacedTiles struct {
	Tiles []PositionedTile
}

// PlacementOnEmptyGridMustBeAtOrigin rejects an opening move that misses (0,0).
type PlacementOnEmptyGridMustBeAtOrigin struct{}

// DuplicatePlacement rejects two placements sharing a position.
type DuplicatePlacement struct {
	Tiles []PositionedTile
}

// CreatesInvalidLines rejects moves that form at least one illegal line.
type CreatesInvalidLines struct {
	Lines []Line
}

// AllPlacedTilesMustBeInALine rejects floating placements that do not extend
// or connect to a line on the board.
type AllPlacedTilesMustBeInALine struct{}

func (Placed) placementResult()                             {}
func (PlacingOverCurrentlyPlacedTiles) placementResult()    {}
func (PlacementOnEmptyGridMustBeAtOrigin) placementResult() {}
func (DuplicatePlacement) placementResult()                 {}
func (CreatesInvalidLines) placementResult()                {}
func (AllPlacedTilesMustBeInALine) placementResult()        {}

// Place validates a candidate move against the grid and scores it. On
// success the returned Placed carries a new grid; the receiver is unchanged
// in every case.
func (g TileGrid) Place(placements []PositionedTile) PlacementResult {
	if len(placements) == 0 {
		return AllPlacedTilesMustBeInALine{}
	}

	var overlaps []PositionedTile
	for _, pt := range placements {
		if _, occupied := g.tiles[pt.Position]; occupied {
			overlaps = append(overlaps, pt)
		}
	}
	if len(overlaps) > 0 {
		return PlacingOverCurrentlyPlacedTiles{Tiles: overlaps}
	}

	wasEmpty := len(g.tiles) == 0
	if wasEmpty {
		atOrigin := false
		for _, pt := range placements {
			if pt.Position == (Position{}) {
				atOrigin = true
				break
			}
		}
		if !atOrigin {
			return PlacementOnEmptyGridMustBeAtOrigin{}
		}
	}

	seen := map[Position]struct{}{}
	var duplicates []PositionedTile
	for _, pt := range placements {
		if _, dup := seen[pt.Position]; dup {
			duplicates = append(duplicates, pt)
		}
		seen[pt.Position] = struct{}{}
	}
	if len(duplicates) > 0 {
		return DuplicatePlacement{Tiles: duplicates}
	}

	candidate := TileGrid{tiles: make(map[Position]PositionedTile, len(g.tiles)+len(placements))}
	for pos, pt := range g.tiles {
		candidate.tiles[pos] = pt
	}
	for _, pt := range placements {
		candidate.tiles[pt.Position] = pt
	}

	lines := candidate.linesThrough(placements)

	var invalid []Line
	for _, line := range lines {
		if !line.Valid() {
			invalid = append(invalid, line)
		}
	}
	if len(invalid) > 0 {
		return CreatesInvalidLines{Lines: invalid}
	}

	// The opening tile of a game forms no line yet still scores a point.
	if wasEmpty && len(placements) == 1 {
		return Placed{Grid: candidate, Score: 1, Lines: lines}
	}

	for _, pt := range placements {
		if !inAnyLine(lines, pt) {
			return AllPlacedTilesMustBeInALine{}
		}
	}
	if !wasEmpty && !connectsToExisting(g, lines) {
		return AllPlacedTilesMustBeInALine{}
	}

	score := 0
	for _, line := range lines {
		score += line.Score()
	}
	return Placed{Grid: candidate, Score: score, Lines: lines}
}

// linesThrough collects the horizontal and vertical lines running through
// each placement, deduplicated by content. Lines of a single tile are
// discarded.
func (g TileGrid) linesThrough(placements []PositionedTile) []Line {
	var lines []Line
	keys := map[string]struct{}{}
	for _, pt := range placements {
		for _, line := range []Line{
			g.walk(pt, Position.Left, Position.Right),
			g.walk(pt, Position.Above, Position.Below),
		} {
			if len(line) < 2 {
				continue
			}
			key := lineKey(line)
			if _, dup := keys[key]; dup {
				continue
			}
			keys[key] = struct{}{}
			lines = append(lines, line)
		}
	}
	return lines
}

// walk gathers the contiguous run through pt along one axis, using an
// iterative scan in each direction.
func (g TileGrid) walk(pt PositionedTile, back, forward func(Position) Position) Line {
	var before Line
	for pos := back(pt.Position); ; pos = back(pos) {
		neighbour, ok := g.tiles[pos]
		if !ok {
			break
		}
		before = append(Line{neighbour}, before...)
	}
	line := append(before, pt)
	for pos := forward(pt.Position); ; pos = forward(pos) {
		neighbour, ok := g.tiles[pos]
		if !ok {
			break
		}
		line = append(line, neighbour)
	}
	return line
}

func lineKey(line Line) string {
	var b strings.Builder
	for _, pt := range line {
		fmt.Fprintf(&b, "%d,%d;", pt.Position.X, pt.Position.Y)
	}
	return b.String()
}

func inAnyLine(lines []Line, pt PositionedTile) bool {
	for _, line := range lines {
		for _, member := range line {
			if member.Position == pt.Position {
				return true
			}
		}
	}
	return false
}

// connectsToExisting reports whether any formed line touches a tile that was
// already on the board, which is what anchors a move to the grid.
func connectsToExisting(prev TileGrid, lines []Line) bool {
	for _, line := range lines {
		for _, member := range line {
			if _, ok := prev.tiles[member.Position]; ok {
				return true
			}
		}
	}
	return false
}

package domain

// Colour is one of the six tile colours.
type Colour string

const (
	Red    Colour = "red"
	Orange Colour = "orange"
	Yellow Colour = "yellow"
	Green  Colour = "green"
	Blue   Colour = "blue"
	Purple Colour = "purple"
)

// Shape is one of the six tile shapes.
type Shape string

const (
	Circle  Shape = "circle"
	Cross   Shape = "cross"
	Diamond Shape = "diamond"
	Square  Shape = "square"
	Star    Shape = "star"
	Clover  Shape = "clover"
)

// Colours lists every colour in its canonical order. The codec relies on
// this order staying fixed.
var Colours = [6]Colour{Red, Orange, Yellow, Green, Blue, Purple}

// Shapes lists every shape in its canonical order. The codec relies on
// this order staying fixed.
var Shapes = [6]Shape{Circle, Cross, Diamond, Square, Star, Clover}

// Tile is a coloured shape. Tiles are immutable values; two tiles with the
// same colour and shape are interchangeable.
type Tile struct {
	Colour Colour
	Shape  Shape
}

// CopiesPerTile is how many copies of each colour/shape combination exist.
const CopiesPerTile = 3

// TotalTiles is the number of tiles in a full bag: 6 colours x 6 shapes x 3.
const TotalTiles = len(Colours) * len(Shapes) * CopiesPerTile

// Position is an integer grid coordinate. The origin (0,0) is where the
// first tile of every game must be placed.
type Position struct {
	X int
	Y int
}

// Left returns the position one column to the left.
func (p Position) Left() Position { return Position{X: p.X - 1, Y: p.Y} }

// Right returns the position one column to the right.
func (p Position) Right() Position { return Position{X: p.X + 1, Y: p.Y} }

// Above returns the position one row up.
func (p Position) Above() Position { return Position{X: p.X, Y: p.Y - 1} }

// Below returns the position one row down.
func (p Position) Below() Position { return Position{X: p.X, Y: p.Y + 1} }

// PositionedTile is a tile at a fixed grid position.
type PositionedTile struct {
	Tile     Tile
	Position Position
}

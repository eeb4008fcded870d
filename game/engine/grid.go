package engine

// Lane indexes
const (
	BottomLane = 0
	TopLane    = 1
)

// Lane is one of the two ownership slots of a path cell
type Lane struct {
	Owner AgentID   `json:"owner"`
	Shape PathShape `json:"shape"`
}

func emptyLane() Lane {
	return Lane{Owner: NoAgent, Shape: ShapeEmpty}
}

// Cell is a single grid cell. Entity fields point into the level registry
// and are NoX when the cell does not host that entity.
type Cell struct {
	Pos         Position
	Kind        CellKind
	Lanes       [2]Lane
	Agent       AgentID
	Item        ItemID
	Barrel      BarrelID
	Entrance    EntranceID
	Highlighted bool
	Bordered    bool

	neighbors [4]*Cell
}

func newCell(pos Position, kind CellKind) *Cell {
	return &Cell{
		Pos:      pos,
		Kind:     kind,
		Lanes:    [2]Lane{emptyLane(), emptyLane()},
		Agent:    NoAgent,
		Item:     NoItem,
		Barrel:   NoBarrel,
		Entrance: NoEntrance,
	}
}

// Neighbor returns the adjacent cell in direction d, or nil at the border
func (c *Cell) Neighbor(d Direction) *Cell {
	if d < Up || d > Right {
		return nil
	}
	return c.neighbors[d]
}

// Neighbors returns the adjacent cells in direction order
func (c *Cell) Neighbors() []*Cell {
	out := make([]*Cell, 0, 4)
	for _, n := range c.neighbors {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// IsNeighbor reports whether other is one of the four adjacent cells
func (c *Cell) IsNeighbor(other *Cell) bool {
	if other == nil {
		return false
	}
	for _, n := range c.neighbors {
		if n == other {
			return true
		}
	}
	return false
}

// IsPathFamily reports whether agents can walk on the cell
func (c *Cell) IsPathFamily() bool {
	return c.Kind == PathCell || c.Kind == EntranceCell
}

// Grid is a rectangular array of cells linked to their neighbors
type Grid struct {
	Width  int
	Height int
	cells  []*Cell
}

// NewGrid creates a grid of block cells with neighbor links in place
func NewGrid(width, height int) *Grid {
	g := &Grid{Width: width, Height: height, cells: make([]*Cell, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.cells[y*width+x] = newCell(Position{X: x, Y: y}, BlockCell)
		}
	}
	for _, c := range g.cells {
		for _, d := range AllDirections {
			c.neighbors[d] = g.At(c.Pos.Add(d.Delta()))
		}
	}
	return g
}

// InBounds reports whether pos lies on the grid
func (g *Grid) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < g.Width && pos.Y >= 0 && pos.Y < g.Height
}

// At returns the cell at pos, or nil when out of bounds
func (g *Grid) At(pos Position) *Cell {
	if !g.InBounds(pos) {
		return nil
	}
	return g.cells[pos.Y*g.Width+pos.X]
}

// Cells returns every cell in row-major order
func (g *Grid) Cells() []*Cell {
	return g.cells
}

// ClearHighlights turns off every highlight and border
func (g *Grid) ClearHighlights() {
	for _, c := range g.cells {
		c.Highlighted = false
		c.Bordered = false
	}
}

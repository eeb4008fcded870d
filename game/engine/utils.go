package engine

import (
	"fmt"
	"sort"
	"strings"
)

// CountCellKind counts the cells of a specific kind in the grid
func CountCellKind(grid *Grid, kind CellKind) int {
	count := 0
	for _, c := range grid.Cells() {
		if c.Kind == kind {
			count++
		}
	}
	return count
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// LevelAnalysis summarises whether a level can be completed
type LevelAnalysis struct {
	Name          string         `json:"name"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	Agents        int            `json:"agents"`
	Entrances     int            `json:"entrances"`
	OpenEntrances int            `json:"open_entrances"`
	Barrels       int            `json:"barrels"`
	PathCells     int            `json:"path_cells"`
	Animals       map[string]int `json:"animals"`
	Pairs         int            `json:"pairs"`
	Issues        []string       `json:"issues,omitempty"`
}

// AnalyzeLevel computes counts and obvious blockers for a built level
func AnalyzeLevel(level *Level) LevelAnalysis {
	a := LevelAnalysis{
		Name:      level.Name,
		Width:     level.Grid.Width,
		Height:    level.Grid.Height,
		Agents:    len(level.Agents),
		Entrances: len(level.Entrances),
		Barrels:   len(level.Barrels),
		PathCells: CountCellKind(level.Grid, PathCell),
		Animals:   map[string]int{},
	}
	for _, ent := range level.Entrances {
		if ent.StartState == EntranceOpened {
			a.OpenEntrances++
		}
	}
	for _, it := range level.Items {
		a.Animals[it.Kind]++
	}
	for _, n := range a.Animals {
		a.Pairs += n / 2
	}

	if a.OpenEntrances < a.Agents {
		a.Issues = append(a.Issues, fmt.Sprintf("%d shepherds but only %d open entrances", a.Agents, a.OpenEntrances))
	}
	if a.Pairs < a.Agents {
		a.Issues = append(a.Issues, fmt.Sprintf("%d shepherds but only %d animal pairs", a.Agents, a.Pairs))
	}
	for _, kind := range sortedKinds(a.Animals) {
		if a.Animals[kind]%2 != 0 {
			a.Issues = append(a.Issues, fmt.Sprintf("odd number of %s (%d)", kind, a.Animals[kind]))
		}
	}
	for _, agent := range level.Agents {
		nearest := -1
		for _, ent := range level.Entrances {
			if ent.StartState != EntranceOpened {
				continue
			}
			if d := ManhattanDistance(agent.Home, ent.Pos); nearest < 0 || d < nearest {
				nearest = d
			}
		}
		if nearest < 0 {
			a.Issues = append(a.Issues, fmt.Sprintf("%s cannot reach any open entrance", agent.Name))
		}
	}
	return a
}

func sortedKinds(m map[string]int) []string {
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

var shapeGlyphs = map[PathShape]string{
	ShapeEmpty:             ".",
	ShapeHorizontal:        "─",
	ShapeVertical:          "│",
	ShapeTopLeftCorner:     "┌",
	ShapeTopRightCorner:    "┐",
	ShapeBottomLeftCorner:  "└",
	ShapeBottomRightCorner: "┘",
	ShapeCross:             "┼",
}

// CellGlyph returns the board character for a cell of a snapshot
func CellGlyph(state *GameState, c CellView) string {
	switch c.Kind {
	case BlockCell:
		return "#"
	case PathCell:
		bottom, top := ShapeEmpty, ShapeEmpty
		if len(c.Lanes) == 2 {
			bottom, top = c.Lanes[BottomLane].Shape, c.Lanes[TopLane].Shape
		}
		if bottom != ShapeEmpty && top != ShapeEmpty {
			return "┼"
		}
		if bottom == ShapeEmpty {
			return shapeGlyphs[top]
		}
		return shapeGlyphs[bottom]
	case EntranceCell:
		for _, ent := range state.Entrances {
			if ent.Pos.X == c.X && ent.Pos.Y == c.Y && ent.State == EntranceClosed {
				return "X"
			}
		}
		return "E"
	case BarrelCell:
		for _, b := range state.Barrels {
			if b.Pos.X == c.X && b.Pos.Y == c.Y && b.Item != NoItem {
				return "b"
			}
		}
		return "B"
	case ShepherdCell:
		for _, a := range state.Agents {
			if a.Home.X == c.X && a.Home.Y == c.Y {
				if a.Priority >= 0 && a.Priority <= 9 {
					return fmt.Sprintf("%d", a.Priority)
				}
				return "S"
			}
		}
		return "S"
	case AnimalCell:
		for _, it := range state.Items {
			if it.Origin.X == c.X && it.Origin.Y == c.Y {
				if it.PickedUp {
					return "_"
				}
				return strings.ToLower(it.Kind[:1])
			}
		}
		return "_"
	}
	return "?"
}

// RenderBoard draws a snapshot as text rows. Agents away from home are drawn as '@'.
func RenderBoard(state *GameState) []string {
	if state == nil || state.Width == 0 {
		return nil
	}
	rows := make([][]string, state.Height)
	for y := range rows {
		rows[y] = make([]string, state.Width)
	}
	for _, c := range state.Cells {
		if c.Y < state.Height && c.X < state.Width {
			rows[c.Y][c.X] = CellGlyph(state, c)
		}
	}
	for _, a := range state.Agents {
		if a.Hidden {
			continue
		}
		pos := a.Position.Cell()
		if pos == a.Home || pos.Y < 0 || pos.Y >= state.Height || pos.X < 0 || pos.X >= state.Width {
			continue
		}
		rows[pos.Y][pos.X] = "@"
	}

	out := make([]string, state.Height)
	for y, row := range rows {
		out[y] = strings.Join(row, "")
	}
	return out
}

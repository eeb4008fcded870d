package engine

import (
	"fmt"
	"math"
	"strings"
)

// CellKind represents the fixed type of a grid cell
type CellKind string

const (
	PathCell     CellKind = "path"
	EntranceCell CellKind = "entrance"
	BarrelCell   CellKind = "barrel"
	ShepherdCell CellKind = "shepherd"
	AnimalCell   CellKind = "animal"
	BlockCell    CellKind = "block"

	// Validation constants
	MinGridSize     = 2
	MaxGridSize     = 32
	DefaultMaxItems = 2
	MaxItemsLimit   = 8
	MaxPriority     = 99
	MaxAdvanceTicks = 100000

	// Timing constants (seconds)
	DefaultActionTime     = 0.4
	DefaultRotationTime   = 0.2
	DefaultDoorCloseDelay = 0.5
	DefaultTickInterval   = 1.0 / 30
	FastForwardFactor     = 2
	ArrivalEpsilon        = 0.01
)

// Direction is one of the four cardinal directions. Up is toward row 0.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// AllDirections lists directions in their declaration order
var AllDirections = [4]Direction{Up, Down, Left, Right}

// DefaultPriorityDirections is the scan order used for pickups and drop-offs
var DefaultPriorityDirections = [4]Direction{Up, Down, Left, Right}

var directionNames = [4]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if d < Up || d > Right {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// Delta returns the unit grid offset for the direction
func (d Direction) Delta() Position {
	switch d {
	case Up:
		return Position{X: 0, Y: -1}
	case Down:
		return Position{X: 0, Y: 1}
	case Left:
		return Position{X: -1, Y: 0}
	case Right:
		return Position{X: 1, Y: 0}
	}
	return Position{}
}

// Opposite returns the reverse direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// ParseDirection converts a direction name into a Direction
func ParseDirection(name string) (Direction, error) {
	for i, n := range directionNames {
		if strings.EqualFold(name, n) {
			return Direction(i), nil
		}
	}
	return Up, fmt.Errorf("unknown direction %q", name)
}

// DirectionBetween returns the direction of a unit step from one position to another
func DirectionBetween(from, to Position) (Direction, bool) {
	delta := to.Sub(from)
	for _, d := range AllDirections {
		if d.Delta() == delta {
			return d, true
		}
	}
	return Up, false
}

// Position represents x,y grid coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p+o
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p-o
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Vec converts the grid position to world coordinates
func (p Position) Vec() Vec {
	return Vec{X: float32(p.X), Y: float32(p.Y)}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Vec is a world-space position. One grid cell is one unit.
type Vec struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Lerp interpolates between v and o by t in [0,1]
func (v Vec) Lerp(o Vec, t float32) Vec {
	return Vec{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

// Distance returns the euclidean distance between two world positions
func (v Vec) Distance(o Vec) float32 {
	dx := float64(o.X - v.X)
	dy := float64(o.Y - v.Y)
	return float32(math.Hypot(dx, dy))
}

// Cell returns the grid position closest to v
func (v Vec) Cell() Position {
	return Position{X: int(math.Round(float64(v.X))), Y: int(math.Round(float64(v.Y)))}
}

// PathShape is the segment shape an agent owns on a lane
type PathShape int

const (
	ShapeEmpty PathShape = iota
	ShapeHorizontal
	ShapeVertical
	ShapeTopLeftCorner
	ShapeBottomLeftCorner
	ShapeTopRightCorner
	ShapeBottomRightCorner
	ShapeCross
)

var shapeNames = [...]string{
	"empty",
	"horizontal",
	"vertical",
	"top_left_corner",
	"bottom_left_corner",
	"top_right_corner",
	"bottom_right_corner",
	"cross",
}

func (s PathShape) String() string {
	if s < ShapeEmpty || int(s) >= len(shapeNames) {
		return fmt.Sprintf("shape(%d)", int(s))
	}
	return shapeNames[s]
}

// MarshalText renders the shape by name
func (s PathShape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a shape name
func (s *PathShape) UnmarshalText(text []byte) error {
	for i, n := range shapeNames {
		if n == string(text) {
			*s = PathShape(i)
			return nil
		}
	}
	return fmt.Errorf("unknown path shape %q", string(text))
}

// IsStraight reports whether the shape is a horizontal or vertical segment
func (s PathShape) IsStraight() bool {
	return s == ShapeHorizontal || s == ShapeVertical
}

// LevelMode is the editing/simulation mode of a level
type LevelMode int

const (
	ModeEdit LevelMode = iota
	ModeDrawing
	ModePlaying
)

var modeNames = [...]string{"edit", "drawing", "playing"}

func (m LevelMode) String() string {
	if m < ModeEdit || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// MarshalText renders the mode by name
func (m LevelMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name
func (m *LevelMode) UnmarshalText(text []byte) error {
	for i, n := range modeNames {
		if n == string(text) {
			*m = LevelMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown level mode %q", string(text))
}

// EntranceState is the door state of an ark entrance
type EntranceState string

const (
	EntranceOpened EntranceState = "opened"
	EntranceClosed EntranceState = "closed"
)

// MatchState is the indicator shown on an entrance after its agent arrives
type MatchState string

const (
	MatchNone     MatchState = ""
	MatchPair     MatchState = "pair"
	MatchMismatch MatchState = "mismatch"
)

// Outcome is the result of the last simulation run
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
)

package engine

import (
	"fmt"
	"unicode"
)

// CellExtra carries per-kind attributes of a cell descriptor
type CellExtra struct {
	Name     string        `json:"name,omitempty"`
	Priority int           `json:"priority,omitempty"`
	Animal   string        `json:"animal,omitempty"`
	State    EntranceState `json:"state,omitempty"`
	Heading  float32       `json:"heading,omitempty"`
}

// CellSpec describes a single cell of a level
type CellSpec struct {
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Type  CellKind  `json:"type"`
	Extra CellExtra `json:"extra,omitempty"`
}

// LevelConfig is the structured level definition loaded from disk.
//
// Layout rows are optional. Legend:
//
//	.  path          #  block
//	E  open entrance X  closed entrance
//	B  barrel        1-9 shepherd with that priority
//	a-z animal, kind looked up in Animals (defaults to the letter)
//
// Cells add to or override the layout.
type LevelConfig struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Width              int               `json:"width"`
	Height             int               `json:"height"`
	MaxItemsPerAgent   int               `json:"max_items_per_agent,omitempty"`
	PriorityDirections []string          `json:"priority_directions,omitempty"`
	ActionTime         float32           `json:"action_time,omitempty"`
	RotationTime       float32           `json:"rotation_time,omitempty"`
	DoorCloseDelay     float32           `json:"door_close_delay,omitempty"`
	Layout             []string          `json:"layout,omitempty"`
	Animals            map[string]string `json:"animals,omitempty"`
	Cells              []CellSpec        `json:"cells,omitempty"`
}

// ApplyDefaults fills unset optional fields
func (c *LevelConfig) ApplyDefaults() {
	if c.MaxItemsPerAgent == 0 {
		c.MaxItemsPerAgent = DefaultMaxItems
	}
	if len(c.PriorityDirections) == 0 {
		for _, d := range DefaultPriorityDirections {
			c.PriorityDirections = append(c.PriorityDirections, d.String())
		}
	}
	if c.ActionTime == 0 {
		c.ActionTime = DefaultActionTime
	}
	if c.RotationTime == 0 {
		c.RotationTime = DefaultRotationTime
	}
	if c.DoorCloseDelay == 0 {
		c.DoorCloseDelay = DefaultDoorCloseDelay
	}
}

// Priorities parses PriorityDirections, falling back to the default order
func (c *LevelConfig) Priorities() ([4]Direction, error) {
	if len(c.PriorityDirections) == 0 {
		return DefaultPriorityDirections, nil
	}
	var out [4]Direction
	if len(c.PriorityDirections) != 4 {
		return out, fmt.Errorf("priority_directions must list 4 directions, got %d", len(c.PriorityDirections))
	}
	seen := map[Direction]bool{}
	for i, name := range c.PriorityDirections {
		d, err := ParseDirection(name)
		if err != nil {
			return out, err
		}
		if seen[d] {
			return out, fmt.Errorf("priority_directions repeats %q", name)
		}
		seen[d] = true
		out[i] = d
	}
	return out, nil
}

type resolvedCell struct {
	pos   Position
	kind  CellKind
	extra CellExtra
}

// resolveCells merges layout rows and cell descriptors into a row-major list
func resolveCells(config *LevelConfig) ([]resolvedCell, error) {
	cells := make([]resolvedCell, config.Width*config.Height)
	for y := 0; y < config.Height; y++ {
		for x := 0; x < config.Width; x++ {
			cells[y*config.Width+x] = resolvedCell{pos: Position{X: x, Y: y}, kind: BlockCell}
		}
	}

	if len(config.Layout) > 0 {
		if len(config.Layout) != config.Height {
			return nil, fmt.Errorf("layout must have %d rows to match height, got %d", config.Height, len(config.Layout))
		}
		for y, row := range config.Layout {
			if len([]rune(row)) != config.Width {
				return nil, fmt.Errorf("row %d must have %d characters to match width, got %d", y+1, config.Width, len([]rune(row)))
			}
			for x, char := range []rune(row) {
				rc := &cells[y*config.Width+x]
				switch {
				case char == '.':
					rc.kind = PathCell
				case char == '#':
					rc.kind = BlockCell
				case char == 'E':
					rc.kind = EntranceCell
					rc.extra.State = EntranceOpened
				case char == 'X':
					rc.kind = EntranceCell
					rc.extra.State = EntranceClosed
				case char == 'B':
					rc.kind = BarrelCell
				case char >= '1' && char <= '9':
					rc.kind = ShepherdCell
					rc.extra.Priority = int(char - '0')
				case unicode.IsLower(char):
					rc.kind = AnimalCell
					rc.extra.Animal = string(char)
					if kind, ok := config.Animals[string(char)]; ok {
						rc.extra.Animal = kind
					}
				default:
					return nil, fmt.Errorf("invalid character '%c' at row %d, col %d", char, y+1, x+1)
				}
			}
		}
	}

	for i, spec := range config.Cells {
		pos := Position{X: spec.X, Y: spec.Y}
		if spec.X < 0 || spec.X >= config.Width || spec.Y < 0 || spec.Y >= config.Height {
			return nil, fmt.Errorf("cells[%d] at %v is outside the %dx%d grid", i, pos, config.Width, config.Height)
		}
		switch spec.Type {
		case PathCell, EntranceCell, BarrelCell, ShepherdCell, AnimalCell, BlockCell:
		default:
			return nil, fmt.Errorf("cells[%d] has unknown type %q", i, spec.Type)
		}
		cells[spec.Y*config.Width+spec.X] = resolvedCell{pos: pos, kind: spec.Type, extra: spec.Extra}
	}

	return cells, nil
}

// ValidateLevelConfig validates a level definition for correctness and playability
func ValidateLevelConfig(config *LevelConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Width < MinGridSize || config.Width > MaxGridSize {
		return fmt.Errorf("config validation: width must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Width)
	}
	if config.Height < MinGridSize || config.Height > MaxGridSize {
		return fmt.Errorf("config validation: height must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Height)
	}
	if config.MaxItemsPerAgent != 0 && (config.MaxItemsPerAgent < 1 || config.MaxItemsPerAgent > MaxItemsLimit) {
		return fmt.Errorf("config validation: max_items_per_agent must be between 1 and %d, got %d", MaxItemsLimit, config.MaxItemsPerAgent)
	}
	if _, err := config.Priorities(); err != nil {
		return fmt.Errorf("config validation: %v", err)
	}
	if config.ActionTime < 0 || config.RotationTime < 0 || config.DoorCloseDelay < 0 {
		return fmt.Errorf("config validation: timings must not be negative")
	}

	cells, err := resolveCells(config)
	if err != nil {
		return fmt.Errorf("config validation: %v", err)
	}

	grid := NewGrid(config.Width, config.Height)
	for _, rc := range cells {
		grid.At(rc.pos).Kind = rc.kind
	}

	shepherds, entrances := 0, 0
	names := map[string]bool{}
	for _, rc := range cells {
		switch rc.kind {
		case ShepherdCell:
			shepherds++
			if rc.extra.Priority < 0 || rc.extra.Priority > MaxPriority {
				return fmt.Errorf("config validation: shepherd at %v has priority %d outside 0-%d", rc.pos, rc.extra.Priority, MaxPriority)
			}
			if rc.extra.Name != "" {
				if names[rc.extra.Name] {
					return fmt.Errorf("config validation: shepherd name %q is used twice", rc.extra.Name)
				}
				names[rc.extra.Name] = true
			}
			walkable := false
			for _, n := range grid.At(rc.pos).Neighbors() {
				if n.IsPathFamily() {
					walkable = true
				}
			}
			if !walkable {
				return fmt.Errorf("config validation: shepherd at %v has no path or entrance next to it", rc.pos)
			}
		case AnimalCell:
			if rc.extra.Animal == "" {
				return fmt.Errorf("config validation: animal at %v needs extra.animal", rc.pos)
			}
		case EntranceCell:
			entrances++
			switch rc.extra.State {
			case "", EntranceOpened, EntranceClosed:
			default:
				return fmt.Errorf("config validation: entrance at %v has unknown state %q", rc.pos, rc.extra.State)
			}
		}
	}

	if shepherds == 0 {
		return fmt.Errorf("config validation: level must contain at least one shepherd")
	}
	if entrances == 0 {
		return fmt.Errorf("config validation: level must contain at least one entrance")
	}

	return nil
}

// BuildLevel creates the grid and entity registry for a validated config
func BuildLevel(config *LevelConfig) (*Level, error) {
	if err := ValidateLevelConfig(config); err != nil {
		return nil, err
	}
	cells, err := resolveCells(config)
	if err != nil {
		return nil, err
	}
	priorities, err := config.Priorities()
	if err != nil {
		return nil, err
	}

	maxItems := config.MaxItemsPerAgent
	if maxItems == 0 {
		maxItems = DefaultMaxItems
	}

	level := &Level{
		Name:       config.Name,
		Grid:       NewGrid(config.Width, config.Height),
		MaxItems:   maxItems,
		Priorities: priorities,
	}

	for _, rc := range cells {
		cell := level.Grid.At(rc.pos)
		cell.Kind = rc.kind

		switch rc.kind {
		case ShepherdCell:
			id := AgentID(len(level.Agents))
			name := rc.extra.Name
			if name == "" {
				name = fmt.Sprintf("shepherd_%d", id+1)
			}
			level.Agents = append(level.Agents, &Agent{
				ID:           id,
				Name:         name,
				Priority:     rc.extra.Priority,
				Home:         rc.pos,
				WorldPos:     rc.pos.Vec(),
				Heading:      rc.extra.Heading,
				StartHeading: rc.extra.Heading,
			})
			cell.Agent = id
		case AnimalCell:
			id := ItemID(len(level.Items))
			level.Items = append(level.Items, &Item{
				ID:       id,
				Kind:     rc.extra.Animal,
				Origin:   rc.pos,
				Holder:   noHolder,
				WorldPos: rc.pos.Vec(),
			})
			cell.Item = id
		case BarrelCell:
			id := BarrelID(len(level.Barrels))
			level.Barrels = append(level.Barrels, &Barrel{ID: id, Pos: rc.pos, Item: NoItem, Available: true})
			cell.Barrel = id
		case EntranceCell:
			id := EntranceID(len(level.Entrances))
			state := rc.extra.State
			if state == "" {
				state = EntranceOpened
			}
			level.Entrances = append(level.Entrances, &Entrance{
				ID:         id,
				Pos:        rc.pos,
				State:      state,
				StartState: state,
				Agent:      NoAgent,
			})
			cell.Entrance = id
		}
	}

	return level, nil
}

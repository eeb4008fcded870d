package engine

import (
	"strings"
	"testing"
)

func createValidLevel() *LevelConfig {
	return &LevelConfig{
		Name:        "Test Level",
		Description: "A valid test level",
		Width:       5,
		Height:      5,
		Layout: []string{
			"#ss##",
			"1..E#",
			"#####",
			"2..E#",
			"#gg##",
		},
		Animals: map[string]string{"s": "sheep", "g": "goat"},
	}
}

func TestValidateLevelConfig_ValidConfig(t *testing.T) {
	if err := ValidateLevelConfig(createValidLevel()); err != nil {
		t.Errorf("Expected valid config, got error: %v", err)
	}
}

func TestValidateLevelConfig_SingleItemCapacity(t *testing.T) {
	config := createValidLevel()
	config.MaxItemsPerAgent = 1
	if err := ValidateLevelConfig(config); err != nil {
		t.Fatalf("Expected capacity 1 to be valid, got %v", err)
	}
	level, err := BuildLevel(config)
	if err != nil {
		t.Fatalf("Failed to build level: %v", err)
	}
	if level.MaxItems != 1 {
		t.Errorf("Expected capacity 1, got %d", level.MaxItems)
	}
}

func TestValidateLevelConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *LevelConfig)
		want   string
	}{
		{"missing name", func(c *LevelConfig) { c.Name = "" }, "name is required"},
		{"width too small", func(c *LevelConfig) { c.Width = 1 }, "width must be between"},
		{"height too large", func(c *LevelConfig) { c.Height = MaxGridSize + 1 }, "height must be between"},
		{"capacity negative", func(c *LevelConfig) { c.MaxItemsPerAgent = -1 }, "max_items_per_agent"},
		{"capacity too large", func(c *LevelConfig) { c.MaxItemsPerAgent = MaxItemsLimit + 1 }, "max_items_per_agent"},
		{"bad direction", func(c *LevelConfig) { c.PriorityDirections = []string{"up", "down", "left", "north"} }, "unknown direction"},
		{"repeated direction", func(c *LevelConfig) { c.PriorityDirections = []string{"up", "up", "left", "right"} }, "repeats"},
		{"short direction list", func(c *LevelConfig) { c.PriorityDirections = []string{"up"} }, "must list 4"},
		{"negative timing", func(c *LevelConfig) { c.ActionTime = -1 }, "timings"},
		{"row count", func(c *LevelConfig) { c.Layout = c.Layout[:4] }, "layout must have 5 rows"},
		{"row width", func(c *LevelConfig) { c.Layout[0] = "#ss#" }, "row 1 must have 5 characters"},
		{"bad character", func(c *LevelConfig) { c.Layout[2] = "##?##" }, "invalid character '?'"},
		{"no shepherd", func(c *LevelConfig) { c.Layout[1] = "#..E#"; c.Layout[3] = "#..E#" }, "at least one shepherd"},
		{"no entrance", func(c *LevelConfig) { c.Layout[1] = "1...#"; c.Layout[3] = "2...#" }, "at least one entrance"},
		{"isolated shepherd", func(c *LevelConfig) { c.Layout[1] = "1#.E#" }, "has no path or entrance"},
		{"cell out of bounds", func(c *LevelConfig) { c.Cells = []CellSpec{{X: 9, Y: 0, Type: PathCell}} }, "outside the 5x5 grid"},
		{"unknown cell type", func(c *LevelConfig) { c.Cells = []CellSpec{{X: 0, Y: 0, Type: "lava"}} }, "unknown type"},
		{"animal without kind", func(c *LevelConfig) { c.Cells = []CellSpec{{X: 4, Y: 0, Type: AnimalCell}} }, "needs extra.animal"},
		{"bad entrance state", func(c *LevelConfig) {
			c.Cells = []CellSpec{{X: 3, Y: 1, Type: EntranceCell, Extra: CellExtra{State: "ajar"}}}
		}, "unknown state"},
		{"duplicate names", func(c *LevelConfig) {
			c.Cells = []CellSpec{
				{X: 0, Y: 1, Type: ShepherdCell, Extra: CellExtra{Name: "noah", Priority: 1}},
				{X: 0, Y: 3, Type: ShepherdCell, Extra: CellExtra{Name: "noah", Priority: 2}},
			}
		}, "used twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidLevel()
			tt.mutate(config)
			err := ValidateLevelConfig(config)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, err.Error())
			}
			if !strings.HasPrefix(err.Error(), "config validation:") {
				t.Errorf("Expected 'config validation:' prefix, got %q", err.Error())
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	config := createValidLevel()
	config.ApplyDefaults()

	if config.MaxItemsPerAgent != DefaultMaxItems {
		t.Errorf("Expected max items %d, got %d", DefaultMaxItems, config.MaxItemsPerAgent)
	}
	if config.ActionTime != DefaultActionTime {
		t.Errorf("Expected action time %v, got %v", DefaultActionTime, config.ActionTime)
	}
	if config.DoorCloseDelay != DefaultDoorCloseDelay {
		t.Errorf("Expected door delay %v, got %v", DefaultDoorCloseDelay, config.DoorCloseDelay)
	}
	if strings.Join(config.PriorityDirections, ",") != "up,down,left,right" {
		t.Errorf("Expected default priority order, got %v", config.PriorityDirections)
	}
}

func TestBuildLevel(t *testing.T) {
	level, err := BuildLevel(createValidLevel())
	if err != nil {
		t.Fatalf("Failed to build level: %v", err)
	}

	if len(level.Agents) != 2 {
		t.Fatalf("Expected 2 agents, got %d", len(level.Agents))
	}
	if level.Agents[0].Home != (Position{X: 0, Y: 1}) || level.Agents[0].Priority != 1 {
		t.Errorf("Expected first agent at (0,1) priority 1, got %v priority %d", level.Agents[0].Home, level.Agents[0].Priority)
	}
	if level.Agents[1].Name != "shepherd_2" {
		t.Errorf("Expected default name shepherd_2, got %q", level.Agents[1].Name)
	}
	if len(level.Items) != 4 {
		t.Fatalf("Expected 4 items, got %d", len(level.Items))
	}
	if level.Items[0].Kind != "sheep" || level.Items[3].Kind != "goat" {
		t.Errorf("Expected sheep first and goat last, got %s and %s", level.Items[0].Kind, level.Items[3].Kind)
	}
	if len(level.Entrances) != 2 || level.Entrances[0].State != EntranceOpened {
		t.Errorf("Expected 2 open entrances, got %d", len(level.Entrances))
	}
	if level.MaxItems != DefaultMaxItems {
		t.Errorf("Expected default capacity, got %d", level.MaxItems)
	}

	cell := level.Grid.At(Position{X: 0, Y: 1})
	if cell.Kind != ShepherdCell || cell.Agent != 0 {
		t.Errorf("Expected shepherd cell hosting agent 0, got %s/%d", cell.Kind, cell.Agent)
	}
	if cell.Neighbor(Right) != level.Grid.At(Position{X: 1, Y: 1}) {
		t.Error("Expected right neighbor link")
	}
	if cell.Neighbor(Left) != nil {
		t.Error("Expected no neighbor past the border")
	}
}

func TestBuildLevel_CellOverrides(t *testing.T) {
	config := createValidLevel()
	config.PriorityDirections = []string{"right", "left", "down", "up"}
	config.Cells = []CellSpec{
		{X: 3, Y: 3, Type: EntranceCell, Extra: CellExtra{State: EntranceClosed}},
		{X: 0, Y: 1, Type: ShepherdCell, Extra: CellExtra{Name: "noah", Priority: 7, Heading: 90}},
		{X: 4, Y: 1, Type: BarrelCell},
	}

	level, err := BuildLevel(config)
	if err != nil {
		t.Fatalf("Failed to build level: %v", err)
	}

	if level.Priorities != [4]Direction{Right, Left, Down, Up} {
		t.Errorf("Expected custom priority order, got %v", level.Priorities)
	}
	noah := level.AgentByName("noah")
	if noah == nil || noah.Priority != 7 || noah.Heading != 90 {
		t.Fatalf("Expected overridden shepherd noah, got %+v", noah)
	}
	ent := level.EntranceAt(Position{X: 3, Y: 3})
	if ent == nil || ent.StartState != EntranceClosed {
		t.Errorf("Expected closed entrance at (3,3), got %+v", ent)
	}
	if len(level.Barrels) != 1 || !level.Barrels[0].IsEmpty() {
		t.Errorf("Expected one empty barrel, got %d", len(level.Barrels))
	}
}

package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
	"github.com/wricardo/mcp-training/arkshepherds/game/service"
)

func createValidConfig() *engine.LevelConfig {
	return &engine.LevelConfig{
		Name:        "Test Level",
		Description: "Test level",
		Width:       4,
		Height:      3,
		Layout: []string{
			"#ss#",
			"1..E",
			"##g#",
		},
		Animals: map[string]string{"s": "sheep", "g": "goat"},
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.LevelConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func writeRawFile(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", filename, err)
	}
}

const yamlLevel = `name: YAML Level
description: loaded from yaml
width: 4
height: 3
priority_directions: [left, right, up, down]
layout:
  - "#ss#"
  - "1..E"
  - "####"
animals:
  s: sheep
cells:
  - x: 0
    y: 1
    type: shepherd
    extra:
      name: noah
      priority: 1
`

const tomlLevel = `name = "TOML Level"
description = "loaded from toml"
width = 4
height = 3
max_items_per_agent = 3
door_close_delay = 0.25
layout = ["#gg#", "1..E", "####"]

[animals]
g = "goat"
`

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "01_first", createValidConfig())

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Test Level" {
			t.Errorf("Expected first level as default, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to a minimal level", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without level files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil || def.Name != "default" {
			t.Fatalf("Expected minimal default level, got %+v", def)
		}
		if err := engine.ValidateLevelConfig(def); err != nil {
			t.Errorf("Expected minimal level to be valid, got %v", err)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "meadow", createValidConfig())
	writeRawFile(t, dir, "hills.yaml", yamlLevel)
	writeRawFile(t, dir, "coast.toml", tomlLevel)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load json", func(t *testing.T) {
		config, err := manager.LoadConfig("meadow")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Test Level" {
			t.Errorf("Expected 'Test Level', got %q", config.Name)
		}
	})

	t.Run("load with extension", func(t *testing.T) {
		config, err := manager.LoadConfig("meadow.json")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Width != 4 {
			t.Errorf("Expected width 4, got %d", config.Width)
		}
	})

	t.Run("load yaml", func(t *testing.T) {
		config, err := manager.LoadConfig("hills")
		if err != nil {
			t.Fatalf("Failed to load yaml level: %v", err)
		}
		if strings.Join(config.PriorityDirections, ",") != "left,right,up,down" {
			t.Errorf("Expected yaml priority order, got %v", config.PriorityDirections)
		}
		if len(config.Cells) != 1 || config.Cells[0].Extra.Name != "noah" {
			t.Errorf("Expected a named shepherd cell, got %+v", config.Cells)
		}
	})

	t.Run("load toml", func(t *testing.T) {
		config, err := manager.LoadConfig("coast")
		if err != nil {
			t.Fatalf("Failed to load toml level: %v", err)
		}
		if config.MaxItemsPerAgent != 3 || config.DoorCloseDelay != 0.25 {
			t.Errorf("Expected capacity 3 and delay 0.25, got %d and %v", config.MaxItemsPerAgent, config.DoorCloseDelay)
		}
		if config.Animals["g"] != "goat" {
			t.Errorf("Expected goat legend, got %v", config.Animals)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadConfig("meadow")
		second, _ := manager.LoadConfig("meadow")
		if first != second {
			t.Error("Expected cached config pointer")
		}
	})

	t.Run("not found with suggestion", func(t *testing.T) {
		_, err := manager.LoadConfig("medow")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("Expected ErrConfigNotFound, got %v", err)
		}
		if !strings.Contains(err.Error(), `did you mean "meadow"`) {
			t.Errorf("Expected suggestion in error, got %q", err.Error())
		}
	})

	t.Run("not found without suggestion", func(t *testing.T) {
		_, err := manager.LoadConfig("volcano-fortress")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("Expected ErrConfigNotFound, got %v", err)
		}
		if !errors.Is(err, service.ErrLevelNotFound) {
			t.Errorf("Expected the service sentinel to match, got %v", err)
		}
		if strings.Contains(err.Error(), "did you mean") {
			t.Errorf("Expected no suggestion, got %q", err.Error())
		}
	})
}

func TestManager_InvalidLevels(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"malformed json", "broken.json", `{"name": "broken",`},
		{"unknown field", "extra.json", `{"name": "x", "width": 4, "height": 3, "battery": 10}`},
		{"bad layout character", "chars.json", `{"name": "x", "width": 2, "height": 2, "layout": ["1?", "E."]}`},
		{"no shepherd", "empty.json", `{"name": "x", "width": 2, "height": 2, "layout": ["..", ".E"]}`},
		{"malformed yaml", "broken.yaml", "name: [unclosed"},
		{"wrong toml type", "typed.toml", "name = \"x\"\nwidth = \"wide\"\nheight = 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeRawFile(t, dir, tt.filename, tt.content)
			if _, err := manager.LoadConfig(tt.filename); err == nil {
				t.Error("Expected error loading invalid level")
			}
		})
	}

	t.Run("schema and validation errors wrap ErrInvalidConfig", func(t *testing.T) {
		for _, name := range []string{"extra.json", "empty.json"} {
			_, err := manager.LoadConfig(name)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig for %s, got %v", name, err)
			}
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	second := createValidConfig()
	second.Name = "Second"
	writeConfigFile(t, dir, "02_second", second)
	writeConfigFile(t, dir, "01_first", createValidConfig())
	writeRawFile(t, dir, "03_third.toml", tomlLevel)
	writeRawFile(t, dir, "zz_broken.json", `{"name": ""}`)
	writeRawFile(t, dir, "notes.txt", "not a level")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	levels, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("Expected 3 valid levels, got %d", len(levels))
	}

	want := []string{"01_first", "02_second", "03_third"}
	for i, level := range levels {
		if level.LevelID != want[i] {
			t.Errorf("Expected level %d to be %s, got %s", i, want[i], level.LevelID)
		}
	}
	if levels[0].Shepherds != 1 || levels[0].Entrances != 1 || levels[0].Animals != 3 {
		t.Errorf("Expected 1 shepherd, 1 entrance, 3 animals, got %+v", levels[0])
	}
	if levels[2].Format != "toml" {
		t.Errorf("Expected toml format, got %q", levels[2].Format)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("save valid level", func(t *testing.T) {
		config := createValidConfig()
		config.Cells = []engine.CellSpec{{X: 3, Y: 2, Type: engine.BarrelCell}}
		if err := manager.SaveConfig("saved", config); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Fatalf("Expected saved.json on disk: %v", err)
		}

		reloaded, err := LoadFile(filepath.Join(dir, "saved.json"))
		if err != nil {
			t.Fatalf("Failed to reload saved level: %v", err)
		}
		if reloaded.Name != config.Name || len(reloaded.Cells) != 1 {
			t.Errorf("Expected saved level to round-trip, got %+v", reloaded)
		}
	})

	t.Run("reject invalid level", func(t *testing.T) {
		config := createValidConfig()
		config.Name = ""
		err := manager.SaveConfig("invalid", config)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if _, statErr := os.Stat(filepath.Join(dir, "invalid.json")); !os.IsNotExist(statErr) {
			t.Error("Expected invalid level not to be written")
		}
	})
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "level", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	before, _ := manager.LoadConfig("level")

	updated := createValidConfig()
	updated.Name = "Updated"
	writeConfigFile(t, dir, "level", updated)

	cached, _ := manager.LoadConfig("level")
	if cached.Name != before.Name {
		t.Error("Expected cached level before refresh")
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh cache: %v", err)
	}
	fresh, _ := manager.LoadConfig("level")
	if fresh.Name != "Updated" {
		t.Errorf("Expected reloaded level, got %q", fresh.Name)
	}
}

func TestManager_Suggest(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "01_meadow", createValidConfig())
	writeConfigFile(t, dir, "02_flood_plain", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"01_medow", "01_meadow"},
		{"02_flod_plan", "02_flood_plain"},
		{"01_MEADOW", "01_meadow"},
		{"desert", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := manager.Suggest(tt.input); got != tt.want {
				t.Errorf("Expected suggestion %q, got %q", tt.want, got)
			}
		})
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "level", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadConfig("level"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent load failed: %v", err)
	}
}

func TestLevelFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "b_level", createValidConfig())
	writeRawFile(t, dir, "a_level.yaml", yamlLevel)
	writeRawFile(t, dir, "notes.txt", "not a level")
	if err := os.Mkdir(filepath.Join(dir, "c.json"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	files, err := LevelFiles(dir)
	if err != nil {
		t.Fatalf("Failed to list level files: %v", err)
	}
	want := []string{filepath.Join(dir, "a_level.yaml"), filepath.Join(dir, "b_level.json")}
	if len(files) != len(want) {
		t.Fatalf("Expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, files[i])
		}
	}

	if _, err := LevelFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

// Package config provides level management for the Ark Shepherds puzzle.
//
// The config package handles:
//   - Loading levels from JSON, YAML and TOML files
//   - Schema checks against the embedded level.schema.json
//   - Level validation through the engine rules
//   - Level discovery, ordering and name suggestions
//
// Level Format:
//
// Levels are stored in the levels directory, one file per level. The file
// name without its extension is the level ID and IDs sort into campaign
// order (01_meadow, 02_river, ...). Each level defines:
//   - Grid size and layout rows (. path, # block, E entrance, B barrel,
//     digits for shepherds, lowercase letters for animals)
//   - Optional cell descriptors for names, priorities and closed doors
//   - Shepherd capacity, pickup direction order and animation timings
//
// Usage:
//
//	manager, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	level, err := manager.LoadConfig("01_meadow")
//	if errors.Is(err, config.ErrConfigNotFound) {
//		// the error text carries a "did you mean" hint when one is close
//	}
//
//	levels, err := manager.ListConfigs()
package config

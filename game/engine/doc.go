// Package engine provides the core level logic for the Ark Shepherds puzzle.
//
// The engine package implements the level mechanics including:
//   - A grid of typed cells where every path cell carries two lanes
//   - Path drawing with crossings, self-crossings and retraction
//   - A turn scheduler that moves every shepherd one cell per turn
//   - Pickup and drop-off resolution in priority order
//   - Ark entrances that close once a shepherd brings a matching pair
//   - Configuration loading, validation and board rendering
//
// Core Types:
//
// The Engine interface defines the contract used by the session and service
// layers, implemented by GameEngine. Level is the entity registry for a loaded
// level, GameState is the render snapshot, and LevelConfig is the level
// definition loaded from JSON, YAML or TOML files.
//
// Usage:
//
//	e, err := engine.NewEngine(config, engine.Services{Events: sink})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// draw a path for the first shepherd
//	e.ClickAgent(0)
//	e.ClickCell(engine.Position{X: 1, Y: 1})
//	e.ClickCell(engine.Position{X: 2, Y: 1})
//	e.PointerUp()
//
//	e.StartPlay()
//	e.RunUntilSettled(engine.DefaultTickInterval, 10000)
//	state := e.GetState()
//
// Level Rules:
//
// Players draw a path from each shepherd to an ark entrance. During play all
// shepherds step together; after each step they drop surplus animals into
// neighboring barrels and pick up neighboring animals. A shepherd that reaches
// its entrance with exactly two animals of one kind enters the ark and the door
// closes behind it. The level is won when every shepherd has done so.
package engine

// Package service provides the business logic layer for the Ark Shepherds
// puzzle.
//
// The service package implements:
//   - Multi-session management with one engine per session
//   - Path editing through cell and shepherd clicks or whole-path drawing
//   - Synchronous playback (Advance, RunToCompletion) and a realtime runner
//   - Campaign progress with optional auto-advance to the next level
//   - Paginated event history
//
// Core Interfaces:
//
// GameService is the main service interface used by the HTTP, WebSocket and
// MCP transports. SessionManager stores sessions and ConfigManager loads
// levels. Broadcaster pushes state updates to live viewers.
//
// Concurrency:
//
// Every engine call happens under its session's lock, so a realtime runner
// and API requests on the same session never interleave. Synchronous
// playback is refused while a realtime runner is active.
//
// Usage:
//
//	sessions := session.NewManager()
//	levels, _ := config.NewManager("levels")
//	svc := service.NewGameService(sessions, levels, service.Options{Broadcaster: hub})
//
//	info, err := svc.CreateSession(ctx, "01_meadow", service.SessionOptions{AutoAdvance: true})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc.DrawPath(ctx, info.ID, 0, []engine.Position{{X: 1, Y: 1}, {X: 2, Y: 1}})
//	result, err := svc.RunToCompletion(ctx, info.ID)
package service

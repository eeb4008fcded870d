// Package websocket pushes live Ark Shepherds state to browser viewers.
//
// A central Hub owns every connection. Clients pick a session with the
// session query parameter when they connect to /ws and from then on
// receive JSON messages for that session only:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "run_settled", "data": {"outcome": "won"}}
//
// Viewers are read-only. Edits and playback go through the REST API or MCP
// tools, and the game service broadcasts the resulting state.
//
// Concurrency:
//
// The Hub's Run goroutine is the only owner of the client registry.
// BroadcastToSession and BroadcastEvent queue onto a buffered channel and
// never block; when the queue is full the message is dropped and logged.
// A client whose send queue fills up is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	svc := service.NewGameService(sessions, levels, service.Options{Broadcaster: hub})
package websocket

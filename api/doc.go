// Package api provides the HTTP REST API for Ark Shepherds.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({level_id, auto_advance})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Several sessions at once (?sessionIds=a,b or ?levelId=01_meadow)
//   - GET /api/sessions/{id} - Session info with state and level
//   - DELETE /api/sessions/{id} - Delete a session
//
// Editing:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/click - Click a cell ({x, y})
//   - POST /api/sessions/{id}/agents/{agent}/click - Select a shepherd
//   - POST /api/sessions/{id}/pointer-up - End the current stroke
//   - POST /api/sessions/{id}/path - Replace a shepherd's path ({agent, cells})
//   - POST /api/sessions/{id}/reset-paths - Clear every path
//
// Simulation:
//   - POST /api/sessions/{id}/play - Start playback ({realtime})
//   - POST /api/sessions/{id}/stop - Stop playback
//   - POST /api/sessions/{id}/fast-forward - Toggle fast forward
//   - POST /api/sessions/{id}/advance - Tick a playing level ({ticks}, default 1)
//   - POST /api/sessions/{id}/run - Play until the level settles
//   - POST /api/sessions/{id}/reset - Reload the level
//   - GET /api/sessions/{id}/events - Event history (?page&limit&order&type)
//
// Levels:
//   - GET /api/configs - List levels
//   - GET /api/configs/{name} - Load a level
//   - POST /api/configs - Save a level ({level_id, level})
//
// The /ws endpoint upgrades to a WebSocket stream of one session's state
// (?session=ab12). Everything else is served from ./static.
//
// Errors:
//
// Errors are returned as JSON with an HTTP status derived from the service
// error: 400 for bad input, 404 for unknown sessions or levels, 409 when the
// level is in the wrong mode or a realtime run owns the session.
//
//	{"error": "session not found"}
//
// Rejected edits are not errors. They return 200 with success=false and the
// engine's reason in message.
package api

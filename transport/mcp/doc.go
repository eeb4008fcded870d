// Package mcp exposes Ark Shepherds to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool calls the REST API and formats the
// JSON answer as text. Boards are drawn with engine.RenderBoard plus a
// column ruler so agents can read coordinates straight off the output.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state, describe_cell
//   - draw_path, click_cell, reset_paths
//   - start_play, stop_play, advance, run_level, reset_level
//   - event_history, list_configs, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// or answering single JSON-RPC messages next to the REST API:
//
//	resp := client.GetMCPServer().HandleMessage(r.Context(), body)
package mcp

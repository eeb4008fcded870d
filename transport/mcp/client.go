package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
	"github.com/wricardo/mcp-training/arkshepherds/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	log        *log.Entry
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// a full run of a large level can take a while
			Timeout: 30 * time.Second,
		},
		log: log.WithField("component", "mcp"),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Ark Shepherds",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Ark Shepherds - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Draw a path for every shepherd so that each one walks past two animals of the
same kind, picks them up and ends its path on an open ark entrance.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage sessions
- game_state: board, shepherds, paths and entrances
- draw_path: replace one shepherd's whole path (preferred way to edit)
- click_cell: single editing click, like tapping the board
- reset_paths: clear every path
- start_play / stop_play: start or stop playback
- advance: tick a playing level
- run_level: play until the level is won or every shepherd has stopped
- reset_level: reload the level from its definition
- event_history: past pickups, drop-offs and matches
- list_configs: available levels
- game_instructions: full rules
- describe_cell: everything known about one cell

NOTE: the 'intent' parameter on draw_path serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionOnly() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{"session_id": sessionProperty()},
		Required:   []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally on a specific level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level_id": map[string]interface{}{
					"type":        "string",
					"description": "Level to load, e.g. 01_meadow (optional, defaults to the first level)",
				},
				"auto_advance": map[string]interface{}{
					"type":        "boolean",
					"description": "Load the next level automatically after a win",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnly(),
	}, c.handleGetSession)

	// Editing
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board, every shepherd's path and cargo, and the entrances",
		InputSchema: sessionOnly(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw_path",
		Description: "Replace a shepherd's path with the given cells, in walking order. The first cell must be next to the shepherd and each following cell next to the previous one. End on an open entrance to finish the path.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"agent": map[string]interface{}{
					"type":        "integer",
					"description": "Shepherd id (see game_state)",
				},
				"cells": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"x": map[string]interface{}{"type": "integer"},
							"y": map[string]interface{}{"type": "integer"},
						},
						"required": []string{"x", "y"},
					},
					"description": "Cells to walk, as {x, y} objects (0-based, y grows downward)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the plan behind this path (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "agent", "cells"},
		},
	}, c.handleDrawPath)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "click_cell",
		Description: "Click one cell as a player would: a shepherd selects it, a path cell extends or retracts the selected path, an entrance ends it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column, 0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row, 0-based)",
				},
				"release": map[string]interface{}{
					"type":        "boolean",
					"description": "Release the pointer after the click",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleClickCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_paths",
		Description: "Clear every shepherd's path",
		InputSchema: sessionOnly(),
	}, c.handleResetPaths)

	// Simulation
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_play",
		Description: "Start playback. With realtime the server ticks the level itself and streams it to viewers; otherwise use advance or run_level.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"realtime": map[string]interface{}{
					"type":        "boolean",
					"description": "Tick on the server clock",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleStartPlay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stop_play",
		Description: "Stop playback and put every shepherd and animal back where it started. Paths are kept.",
		InputSchema: sessionOnly(),
	}, c.handleStopPlay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "advance",
		Description: "Advance a playing level by a number of ticks (30 ticks = 1 second)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"ticks": map[string]interface{}{
					"type":        "integer",
					"description": "Ticks to run (default 1)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleAdvance)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_level",
		Description: "Start playback if needed and run until the level is won or every shepherd has stopped. Returns the outcome and a turn-by-turn log.",
		InputSchema: sessionOnly(),
	}, c.handleRunLevel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_level",
		Description: "Reload the level from its definition, clearing paths and playback",
		InputSchema: sessionOnly(),
	}, c.handleResetLevel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_history",
		Description: "Get the event history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Only events of this type, e.g. pickup, match_made, mismatch",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEventHistory)

	// Reference
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about one cell: its kind, the lanes drawn on it and any shepherd, animal, barrel or entrance there",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column) of the cell to describe (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row) of the cell to describe (0-based)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.WithFields(log.Fields{"method": method, "path": path, "status": resp.StatusCode}).Debug("API call")

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Argument helpers. Numbers arrive as float64 from JSON.

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

func positionsArg(args map[string]interface{}, key string) ([]engine.Position, error) {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array of {x, y} objects", key)
	}
	cells := make([]engine.Position, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be an {x, y} object", key, i)
		}
		x, okX := intArg(obj, "x")
		y, okY := intArg(obj, "y")
		if !okX || !okY {
			return nil, fmt.Errorf("%s[%d] needs integer x and y", key, i)
		}
		cells = append(cells, engine.Position{X: x, Y: y})
	}
	return cells, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if levelID := stringArg(args, "level_id"); levelID != "" {
		body["level_id"] = levelID
	}
	if boolArg(args, "auto_advance") {
		body["auto_advance"] = true
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLevel: %s (%d/%d)\n\n%s",
		session.ID, session.LevelID, session.CurrentLevel, session.TotalLevels, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		outcome := engine.OutcomePending
		if s.GameState != nil {
			outcome = s.GameState.Outcome
		}
		fmt.Fprintf(&result, "- %s (Level: %s, Outcome: %s, Created: %s)\n",
			s.ID, s.LevelID, outcome, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleDrawPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	agent, ok := intArg(args, "agent")
	if !ok {
		return mcp.NewToolResultError("agent is required"), nil
	}
	cells, err := positionsArg(args, "cells")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = stringArg(args, "intent")

	body := map[string]interface{}{"agent": agent, "cells": cells}
	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/path"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDrawResult(engine.AgentID(agent), cells, &result)), nil
}

func (c *Client) handleClickCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/click"), map[string]int{"x": x, "y": y}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if boolArg(args, "release") {
		var released service.ActionResult
		if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/pointer-up"), nil, &released); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result.GameState = released.GameState
		result.Events = append(result.Events, released.Events...)
	}

	return mcp.NewToolResultText(formatActionResult(fmt.Sprintf("Click (%d,%d)", x, y), &result)), nil
}

func (c *Client) handleResetPaths(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.simpleAction(ctx, request, "/reset-paths", "Reset paths", nil)
}

func (c *Client) handleStartPlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]bool{"realtime": boolArg(arguments(request), "realtime")}
	return c.simpleAction(ctx, request, "/play", "Start play", body)
}

func (c *Client) handleStopPlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.simpleAction(ctx, request, "/stop", "Stop play", nil)
}

func (c *Client) simpleAction(ctx context.Context, request mcp.CallToolRequest, suffix, label string, body interface{}) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, suffix), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(label, &result)), nil
}

func (c *Client) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	ticks, ok := intArg(args, "ticks")
	if !ok {
		ticks = 1
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/advance"), map[string]int{"ticks": ticks}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleRunLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/run"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleResetLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleEventHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if eventType := stringArg(args, "type"); eventType != "" {
		params.Set("type", eventType)
	}

	path := sessionPath(sessionID, "/events")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Levels:\n\n")
	for _, level := range levels {
		fmt.Fprintf(&result, "• %s - %s\n  %s\n  Grid: %dx%d, Shepherds: %d, Entrances: %d, Animals: %d\n\n",
			level.LevelID, level.Name, level.Description, level.Width, level.Height,
			level.Shepherds, level.Entrances, level.Animals)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Ark Shepherds - Complete Instructions

GAME OBJECTIVE:
Every shepherd must walk a path you draw, collect exactly two animals of the
same kind on the way and finish on an open ark entrance. The level is won
when every shepherd has entered the ark with a matching pair.

GRID LEGEND:
  #   block (not walkable)
  .   empty path cell
  ─ │ ┌ ┐ └ ┘   a drawn path segment
  ┼   two paths crossing on one cell
  E   open ark entrance        X   closed entrance
  B   empty barrel             b   barrel holding an animal
  1-9 shepherd home (digit = priority, lower moves first)
  a-z animal waiting on its spot (first letter of its kind)
  _   spot whose animal was picked up
  @   shepherd away from home
Coordinates are (x, y) with x the column and y the row; y grows downward.

DRAWING PATHS:
• A path starts next to the shepherd and every cell must touch the previous one.
• Paths may only use path cells and end on an entrance. After an entrance nothing can be added.
• Each path cell has two lanes, so at most two shepherds can share it.
• You may cross another shepherd's path only where it runs straight, not on a corner,
  not on its last cell and not where two paths already cross.
• Inside a crossing you must keep going straight.
• Drawing onto an earlier cell of your own path cuts the path back to that cell.
• draw_path replaces a shepherd's whole path and reports the first cell it refused.

PLAYBACK:
• All shepherds step one cell at a time together. After everyone arrives,
  shepherds act in priority order.
• Drop-off first: a shepherd carrying animals puts its most recent ones into empty
  barrels next to it.
• Pickup next: a shepherd with room first takes an animal matching the one it
  already carries, then scans up, down, left, right for anything else next to it.
• A shepherd carries at most 2 animals (levels may change this).
• A shepherd that ends on an entrance with a pair enters the ark and the door closes.
  Without a pair the entrance shows a mismatch and the level is lost.
• stop_play puts everything back at the start and keeps your paths.

STRATEGY:
• Check describe_cell for barrels and animals next to the cells you plan to walk.
• Pass an unwanted animal's barrel only after you already carry two animals.
• Use barrels to drop an unwanted animal, then pick up the right one.
• Higher priority shepherds claim shared animals first.

TOOLS:
create_session → game_state → draw_path (one per shepherd) → run_level.
If the run is lost, read the turn log, adjust a path with draw_path and run again.

Good luck getting every pair into the ark!`

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if x < 0 || x >= state.Width || y < 0 || y >= state.Height {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid is %dx%d (x 0-%d, y 0-%d)",
			x, y, state.Width, state.Height, state.Width-1, state.Height-1)), nil
	}

	return mcp.NewToolResultText(describeCell(&state, engine.Position{X: x, Y: y})), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %s (%d/%d)\nAuto advance: %v\nRealtime run: %v\nCreated: %s\n\n%s",
		session.ID, session.LevelID, session.CurrentLevel, session.TotalLevels,
		session.AutoAdvance, session.Realtime,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Level: %s", state.Level)
	if state.TotalLevels > 0 {
		fmt.Fprintf(&result, " (%d/%d)", state.CurrentLevel, state.TotalLevels)
	}
	fmt.Fprintf(&result, "\nMode: %s", state.Mode)
	if state.FastForward {
		result.WriteString(" (fast forward)")
	}
	fmt.Fprintf(&result, "\nTick: %d, Turn: %d\n", state.Tick, state.Turn)

	switch state.Outcome {
	case engine.OutcomeWon:
		result.WriteString("🎉 LEVEL COMPLETE!\n")
	case engine.OutcomeLost:
		result.WriteString("💀 LEVEL FAILED - stop_play to edit the paths again\n")
	}

	result.WriteString("\n")
	result.WriteString(formatBoard(state))

	kinds := itemKinds(state)
	result.WriteString("\nShepherds:\n")
	for _, a := range state.Agents {
		fmt.Fprintf(&result, "  #%d %s (priority %d) home (%d,%d)", a.ID, a.Name, a.Priority, a.Home.X, a.Home.Y)
		switch {
		case a.Retired:
			result.WriteString(" - in the ark")
		case a.Hidden:
			result.WriteString(" - hidden")
		}
		result.WriteString("\n")
		fmt.Fprintf(&result, "     path (%d): %s\n", len(a.Path), formatPositions(a.Path))
		if len(a.Carried) > 0 {
			names := make([]string, 0, len(a.Carried))
			for _, id := range a.Carried {
				names = append(names, kinds[id])
			}
			fmt.Fprintf(&result, "     carrying: %s", strings.Join(names, ", "))
			if a.HasPair {
				result.WriteString(" (pair)")
			}
			result.WriteString("\n")
		}
	}

	if len(state.Entrances) > 0 {
		result.WriteString("\nEntrances:\n")
		for _, ent := range state.Entrances {
			fmt.Fprintf(&result, "  (%d,%d) %s", ent.Pos.X, ent.Pos.Y, ent.State)
			if ent.Agent != engine.NoAgent {
				fmt.Fprintf(&result, ", assigned to #%d", ent.Agent)
			}
			if ent.Match != engine.MatchNone {
				fmt.Fprintf(&result, ", %s", ent.Match)
			}
			result.WriteString("\n")
		}
	}

	waiting := 0
	for _, it := range state.Items {
		if !it.PickedUp {
			waiting++
		}
	}
	fmt.Fprintf(&result, "\nAnimals waiting: %d of %d\n", waiting, len(state.Items))

	return result.String()
}

// formatBoard renders the board with a column ruler and row numbers
func formatBoard(state *engine.GameState) string {
	rows := engine.RenderBoard(state)
	if len(rows) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString("    ")
	for x := 0; x < state.Width; x++ {
		fmt.Fprintf(&result, "%d", x%10)
	}
	result.WriteString("\n")
	for y, row := range rows {
		fmt.Fprintf(&result, "%3d %s\n", y, row)
	}
	return result.String()
}

func formatPositions(cells []engine.Position) string {
	if len(cells) == 0 {
		return "(none)"
	}
	parts := make([]string, len(cells))
	for i, p := range cells {
		parts[i] = fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

func itemKinds(state *engine.GameState) map[engine.ItemID]string {
	kinds := make(map[engine.ItemID]string, len(state.Items))
	for _, it := range state.Items {
		kinds[it.ID] = it.Kind
	}
	return kinds
}

func formatActionResult(label string, result *service.ActionResult) string {
	var out strings.Builder
	if result.Success {
		fmt.Fprintf(&out, "✓ %s: %s\n", label, result.Message)
	} else {
		fmt.Fprintf(&out, "✗ %s rejected: %s\n", label, result.Message)
	}
	if summary := summarizeEvents(result.Events); summary != "" {
		fmt.Fprintf(&out, "Events: %s\n", summary)
	}
	out.WriteString("\n")
	out.WriteString(formatGameState(result.GameState))
	return out.String()
}

func formatDrawResult(agent engine.AgentID, cells []engine.Position, result *service.ActionResult) string {
	var out strings.Builder
	if result.Rejected != nil && *result.Rejected < len(cells) {
		bad := cells[*result.Rejected]
		fmt.Fprintf(&out, "✗ Path for #%d stopped at cell %d (%d,%d): %s\n",
			agent, *result.Rejected, bad.X, bad.Y, result.Message)
		fmt.Fprintf(&out, "  %d of %d cells placed\n", *result.Rejected, len(cells))
	} else if result.Success {
		fmt.Fprintf(&out, "✓ Path for #%d drawn: %d cells\n", agent, len(cells))
	} else {
		fmt.Fprintf(&out, "✗ Path for #%d rejected: %s\n", agent, result.Message)
	}
	out.WriteString("\n")
	out.WriteString(formatGameState(result.GameState))
	return out.String()
}

func formatRunResult(result *service.RunResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Ran %d ticks, %d turns. Outcome: %s", result.TicksRun, result.Turns, result.Outcome)
	if result.Settled {
		out.WriteString(" (settled)")
	}
	out.WriteString("\n")
	if result.Message != "" {
		fmt.Fprintf(&out, "%s\n", result.Message)
	}
	if result.NextLevel != "" {
		fmt.Fprintf(&out, "➡ Advanced to level %s\n", result.NextLevel)
	}

	if len(result.TurnLog) > 0 {
		kinds := map[engine.ItemID]string{}
		if result.GameState != nil {
			kinds = itemKinds(result.GameState)
		}
		out.WriteString("\nTurn log:\n")
		for _, turn := range result.TurnLog {
			fmt.Fprintf(&out, "  Turn %d:", turn.Turn)
			for _, a := range turn.Agents {
				fmt.Fprintf(&out, " #%d@(%d,%d)", a.Agent, a.Cell.X, a.Cell.Y)
				if len(a.Carried) > 0 {
					names := make([]string, 0, len(a.Carried))
					for _, id := range a.Carried {
						names = append(names, kinds[id])
					}
					fmt.Fprintf(&out, "[%s]", strings.Join(names, ","))
				}
			}
			if summary := summarizeEvents(turn.Events); summary != "" {
				fmt.Fprintf(&out, " - %s", summary)
			}
			out.WriteString("\n")
		}
	} else if summary := summarizeEvents(result.Events); summary != "" {
		fmt.Fprintf(&out, "Events: %s\n", summary)
	}

	out.WriteString("\n")
	out.WriteString(formatGameState(result.GameState))
	return out.String()
}

// summarizeEvents counts events by type, skipping per-step noise
func summarizeEvents(events []engine.Event) string {
	counts := map[engine.EventType]int{}
	for _, ev := range events {
		if ev.Type == engine.EventSteps {
			continue
		}
		counts[ev.Type]++
	}
	if len(counts) == 0 {
		return ""
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	parts := make([]string, len(types))
	for i, t := range types {
		n := counts[engine.EventType(t)]
		if n == 1 {
			parts[i] = t
		} else {
			parts[i] = fmt.Sprintf("%s x%d", t, n)
		}
	}
	return strings.Join(parts, ", ")
}

func formatHistory(history *service.HistoryResponse) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Events (page %d/%d, %d total):\n\n", history.Page, history.TotalPages, history.TotalEvents)
	for _, ev := range history.Events {
		fmt.Fprintf(&out, "  [turn %d, tick %d] %s", ev.Turn, ev.Tick, ev.Type)
		if ev.Agent != engine.NoAgent {
			fmt.Fprintf(&out, " shepherd #%d", ev.Agent)
		}
		if ev.Item != engine.NoItem {
			fmt.Fprintf(&out, " animal #%d", ev.Item)
		}
		if ev.Position != nil {
			fmt.Fprintf(&out, " at (%d,%d)", ev.Position.X, ev.Position.Y)
		}
		if ev.Message != "" {
			fmt.Fprintf(&out, " - %s", ev.Message)
		}
		out.WriteString("\n")
	}
	if history.HasNext {
		fmt.Fprintf(&out, "\nMore events on page %d\n", history.Page+1)
	}
	return out.String()
}

func describeCell(state *engine.GameState, pos engine.Position) string {
	var cell *engine.CellView
	for i := range state.Cells {
		if state.Cells[i].X == pos.X && state.Cells[i].Y == pos.Y {
			cell = &state.Cells[i]
			break
		}
	}
	if cell == nil {
		return fmt.Sprintf("No cell at (%d, %d)", pos.X, pos.Y)
	}

	var details []string
	switch cell.Kind {
	case engine.PathCell:
		for i, lane := range cell.Lanes {
			name := "bottom"
			if i == engine.TopLane {
				name = "top"
			}
			if lane.Owner == engine.NoAgent {
				details = append(details, fmt.Sprintf("%s lane: free", name))
				continue
			}
			details = append(details, fmt.Sprintf("%s lane: shepherd #%d, %s", name, lane.Owner, lane.Shape))
		}
	case engine.EntranceCell:
		for _, ent := range state.Entrances {
			if ent.Pos == pos {
				details = append(details, fmt.Sprintf("door: %s", ent.State))
				if ent.Agent != engine.NoAgent {
					details = append(details, fmt.Sprintf("assigned to shepherd #%d", ent.Agent))
				} else if ent.State == engine.EntranceOpened {
					details = append(details, "free: a path may end here")
				}
				if ent.Match != engine.MatchNone {
					details = append(details, fmt.Sprintf("indicator: %s", ent.Match))
				}
			}
		}
	case engine.BarrelCell:
		kinds := itemKinds(state)
		for _, b := range state.Barrels {
			if b.Pos == pos {
				if b.Item == engine.NoItem {
					details = append(details, "barrel is empty: a shepherd walking past can drop an animal here")
				} else {
					details = append(details, fmt.Sprintf("barrel holds %s (animal #%d)", kinds[b.Item], b.Item))
				}
			}
		}
	case engine.ShepherdCell:
		for _, a := range state.Agents {
			if a.Home == pos {
				details = append(details, fmt.Sprintf("home of shepherd #%d %s (priority %d), path of %d cells", a.ID, a.Name, a.Priority, len(a.Path)))
			}
		}
	case engine.AnimalCell:
		for _, it := range state.Items {
			if it.Origin == pos {
				if it.PickedUp {
					details = append(details, fmt.Sprintf("%s (animal #%d) was picked up", it.Kind, it.ID))
				} else {
					details = append(details, fmt.Sprintf("%s (animal #%d) waiting; shepherds on a neighboring path cell can pick it up", it.Kind, it.ID))
				}
			}
		}
	case engine.BlockCell:
		details = append(details, "not walkable")
	}

	if cell.Highlighted {
		details = append(details, "highlighted: the selected shepherd can draw here next")
	}

	var neighbors []string
	for _, d := range []engine.Direction{engine.Up, engine.Down, engine.Left, engine.Right} {
		delta := d.Delta()
		n := engine.Position{X: pos.X + delta.X, Y: pos.Y + delta.Y}
		for _, c := range state.Cells {
			if c.X == n.X && c.Y == n.Y {
				neighbors = append(neighbors, fmt.Sprintf("%s (%d,%d) %s", d, n.X, n.Y, c.Kind))
			}
		}
	}

	return fmt.Sprintf(`Cell at position (%d, %d):
━━━━━━━━━━━━━━━━━━━━━━━━
Character: %s
Kind: %s
%s

Neighbors:
  %s`,
		pos.X, pos.Y,
		engine.CellGlyph(state, *cell),
		cell.Kind,
		"- "+strings.Join(details, "\n- "),
		strings.Join(neighbors, "\n  "))
}

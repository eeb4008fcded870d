package service

import (
	"time"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string              `json:"id"`
	LevelID        string              `json:"level_id"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	CurrentLevel   int                 `json:"current_level"`
	TotalLevels    int                 `json:"total_levels"`
	AutoAdvance    bool                `json:"auto_advance"`
	Realtime       bool                `json:"realtime"`
	GameState      *engine.GameState   `json:"game_state"`
	LevelConfig    *engine.LevelConfig `json:"level_config"`
}

// SessionOptions configures a new session
type SessionOptions struct {
	// AutoAdvance loads the next campaign level when the current one is won
	AutoAdvance bool `json:"auto_advance"`
}

// ActionResult contains the result of an editing or playback operation
type ActionResult struct {
	Success   bool              `json:"success"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []engine.Event    `json:"events,omitempty"`
	// Rejected is the 0-based index of the first cell DrawPath could not place
	Rejected *int `json:"rejected,omitempty"`
}

// RunResult contains the result of ticking the simulation
type RunResult struct {
	TicksRun  int                 `json:"ticks_run"`
	Settled   bool                `json:"settled"`
	Outcome   engine.Outcome      `json:"outcome"`
	Turns     int                 `json:"turns"`
	GameState *engine.GameState   `json:"game_state"`
	Events    []engine.Event      `json:"events,omitempty"`
	TurnLog   []engine.TurnRecord `json:"turn_log,omitempty"`
	// NextLevel is set when a win advanced the session to another level
	NextLevel string `json:"next_level,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Type  string `json:"type,omitempty"`
}

// HistoryResponse contains paginated event history
type HistoryResponse struct {
	Events      []engine.Event `json:"events"`
	TotalEvents int            `json:"total_events"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// LevelInfo provides information about a level file
type LevelInfo struct {
	Filename    string `json:"filename"`
	LevelID     string `json:"level_id"` // The identifier to use for session creation
	Name        string `json:"name"`     // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Shepherds   int    `json:"shepherds"`
	Entrances   int    `json:"entrances"`
	Animals     int    `json:"animals"`
	Format      string `json:"format"`
}

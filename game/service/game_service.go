package service

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
)

var (
	ErrNotPlaying  = errors.New("level is not playing")
	ErrInvalidTick = errors.New("invalid tick count")

	// ErrLevelNotFound is returned by ConfigManager.LoadConfig for unknown level IDs
	ErrLevelNotFound = errors.New("configuration not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelID string, opts SessionOptions) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Editing
	ClickCell(ctx context.Context, sessionID string, pos engine.Position) (*ActionResult, error)
	ClickAgent(ctx context.Context, sessionID string, agent engine.AgentID) (*ActionResult, error)
	PointerUp(ctx context.Context, sessionID string) (*ActionResult, error)
	DrawPath(ctx context.Context, sessionID string, agent engine.AgentID, cells []engine.Position) (*ActionResult, error)
	ResetPaths(ctx context.Context, sessionID string) (*ActionResult, error)

	// Simulation
	StartPlay(ctx context.Context, sessionID string, realtime bool) (*ActionResult, error)
	StopPlay(ctx context.Context, sessionID string) (*ActionResult, error)
	ToggleFastForward(ctx context.Context, sessionID string) (*ActionResult, error)
	Advance(ctx context.Context, sessionID string, ticks int) (*RunResult, error)
	RunToCompletion(ctx context.Context, sessionID string) (*RunResult, error)
	ResetLevel(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*LevelInfo, error)
	LoadConfig(ctx context.Context, levelID string) (*engine.LevelConfig, error)
	SaveConfig(ctx context.Context, levelID string, config *engine.LevelConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, build func(id string) (*Session, error)) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles level configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.LevelConfig, error)
	ListConfigs() ([]*LevelInfo, error)
	GetDefault() *engine.LevelConfig
	SaveConfig(name string, config *engine.LevelConfig) error
}

// Broadcaster publishes session updates to live viewers
type Broadcaster interface {
	BroadcastToSession(sessionID string, state *engine.GameState)
	BroadcastEvent(sessionID string, event string, data interface{})
}

// Options configures a game service
type Options struct {
	Broadcaster Broadcaster
	Logger      *log.Entry
	// TickInterval is the wall-clock period of the realtime runner
	TickInterval time.Duration
}

// Session represents an active game session
type Session struct {
	ID             string
	LevelID        string
	Engine         *engine.GameEngine
	Config         *engine.LevelConfig
	Events         *engine.EventLog
	Campaign       *Campaign
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu     sync.Mutex
	runner context.CancelFunc
}

// NewSession builds a session and its engine for the given level
func NewSession(id, levelID string, config *engine.LevelConfig, campaign *Campaign, logger *log.Entry) (*Session, error) {
	if campaign == nil {
		campaign = NewCampaign([]string{levelID}, levelID, false)
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	s := &Session{
		ID:             id,
		LevelID:        levelID,
		Config:         config,
		Events:         &engine.EventLog{},
		Campaign:       campaign,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	eng, err := engine.NewEngine(config, s.services(logger))
	if err != nil {
		return nil, err
	}
	s.Engine = eng
	return s, nil
}

func (s *Session) services(logger *log.Entry) engine.Services {
	return engine.Services{
		Events:    s.Events,
		Lifecycle: s.Campaign,
		Logger:    logger.WithField("session", s.ID),
	}
}

// Realtime reports whether the session is driven by the realtime runner
func (s *Session) Realtime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner != nil
}

// Campaign tracks a session's progress through the ordered level list and
// receives the engine's level lifecycle callbacks
type Campaign struct {
	Levels      []string
	Index       int
	AutoAdvance bool

	completed bool
	resets    int
}

// NewCampaign starts a campaign at levelID. A level missing from levels is
// played as a single-level campaign.
func NewCampaign(levels []string, levelID string, autoAdvance bool) *Campaign {
	c := &Campaign{Levels: levels, AutoAdvance: autoAdvance}
	for i, id := range levels {
		if id == levelID {
			c.Index = i
			return c
		}
	}
	c.Levels = []string{levelID}
	return c
}

func (c *Campaign) OnLevelStart()    { c.completed = false }
func (c *Campaign) OnLevelComplete() { c.completed = true }
func (c *Campaign) OnLevelReset()    { c.resets++ }

// TotalLevels returns the campaign length
func (c *Campaign) TotalLevels() int {
	if len(c.Levels) == 0 {
		return 1
	}
	return len(c.Levels)
}

// CurrentLevel returns the 1-based position of the current level
func (c *Campaign) CurrentLevel() int {
	return c.Index + 1
}

// Completed reports whether the current level has been won
func (c *Campaign) Completed() bool {
	return c.completed
}

// Resets returns how many times playback was stopped on this campaign
func (c *Campaign) Resets() int {
	return c.resets
}

// Next returns the level after the current one
func (c *Campaign) Next() (string, bool) {
	if c.Index+1 >= len(c.Levels) {
		return "", false
	}
	return c.Levels[c.Index+1], true
}

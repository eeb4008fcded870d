package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
)

// DefaultTickInterval is the wall-clock period of the realtime runner
const DefaultTickInterval = time.Second / 30

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions     SessionManager
	configs      ConfigManager
	broadcaster  Broadcaster
	log          *log.Entry
	tickInterval time.Duration
	mu           sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts Options) GameService {
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	return &gameServiceImpl{
		sessions:     sessions,
		configs:      configs,
		broadcaster:  opts.Broadcaster,
		log:          opts.Logger,
		tickInterval: opts.TickInterval,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string, opts SessionOptions) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.LevelConfig
	var err error
	if levelID != "" {
		config, err = s.configs.LoadConfig(levelID)
		if err != nil {
			if errors.Is(err, ErrLevelNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
		}
	} else {
		config = s.configs.GetDefault()
		levelID = s.levelIDFor(config)
	}

	campaign := NewCampaign(s.campaignLevels(), levelID, opts.AutoAdvance)
	session, err := s.sessions.Create("", func(id string) (*Session, error) {
		return NewSession(id, levelID, config, campaign, s.log)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.WithFields(log.Fields{"session": session.ID, "level": levelID}).Info("Session created")
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		result = append(result, s.sessionInfo(sess))
		sess.mu.Unlock()
	}
	return result, nil
}

// DeleteSession removes a session, stopping its realtime runner first
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	sess.mu.Lock()
	s.stopRunner(sess)
	sess.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.log.WithField("session", sessionID).Info("Session deleted")
	return nil
}

// ClickCell forwards a pointer press on a grid cell
func (s *gameServiceImpl) ClickCell(ctx context.Context, sessionID string, pos engine.Position) (*ActionResult, error) {
	return s.act(sessionID, func(sess *Session) (bool, string) {
		ok := sess.Engine.ClickCell(pos)
		return ok, s.editMessage(sess, ok, fmt.Sprintf("clicked (%d,%d)", pos.X, pos.Y))
	})
}

// ClickAgent forwards a pointer press on a shepherd
func (s *gameServiceImpl) ClickAgent(ctx context.Context, sessionID string, agent engine.AgentID) (*ActionResult, error) {
	return s.act(sessionID, func(sess *Session) (bool, string) {
		ok := sess.Engine.ClickAgent(agent)
		return ok, s.editMessage(sess, ok, fmt.Sprintf("selected shepherd %d", agent))
	})
}

// PointerUp ends the current drawing gesture
func (s *gameServiceImpl) PointerUp(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, func(sess *Session) (bool, string) {
		sess.Engine.PointerUp()
		return true, "gesture ended"
	})
}

// DrawPath replaces a shepherd's path with the given cells, clicking them in
// order. Cells after the first rejected one are not attempted.
func (s *gameServiceImpl) DrawPath(ctx context.Context, sessionID string, agent engine.AgentID, cells []engine.Position) (*ActionResult, error) {
	var rejected *int
	result, err := s.act(sessionID, func(sess *Session) (bool, string) {
		if sess.Engine.GetLevel().Agent(agent) == nil {
			return false, fmt.Sprintf("unknown shepherd %d", agent)
		}
		placed, ok := sess.Engine.ApplyPath(agent, cells)
		if !ok {
			return false, s.editMessage(sess, false, "")
		}
		if placed < len(cells) {
			rejected = &placed
			return false, fmt.Sprintf("placed %d of %d cells, (%d,%d) rejected", placed, len(cells), cells[placed].X, cells[placed].Y)
		}
		return true, fmt.Sprintf("placed %d cells for shepherd %d", placed, agent)
	})
	if result != nil {
		result.Rejected = rejected
	}
	return result, err
}

// ResetPaths clears every shepherd's path
func (s *gameServiceImpl) ResetPaths(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, func(sess *Session) (bool, string) {
		s.stopRunner(sess)
		ok := sess.Engine.ResetPaths()
		if !ok {
			return false, "paths cannot be reset after the level is won"
		}
		return true, "paths cleared"
	})
}

// StartPlay begins the simulation. A realtime start hands ticking to a
// background runner; otherwise the caller drives it with Advance.
func (s *gameServiceImpl) StartPlay(ctx context.Context, sessionID string, realtime bool) (*ActionResult, error) {
	return s.act(sessionID, func(sess *Session) (bool, string) {
		e := sess.Engine
		if !e.StartPlay() {
			switch {
			case e.IsGameOver():
				return false, "level already won"
			case e.Mode() == engine.ModePlaying:
				return false, "level is already playing"
			default:
				return false, "draw at least one path before playing"
			}
		}
		if realtime {
			s.startRunner(sess)
			return true, "playback started in realtime"
		}
		return true, "playback started"
	})
}

// StopPlay abandons playback and restores the level for editing
func (s *gameServiceImpl) StopPlay(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, func(sess *Session) (bool, string) {
		s.stopRunner(sess)
		if !sess.Engine.StopPlay() {
			return false, "level is not playing"
		}
		return true, "playback stopped"
	})
}

// ToggleFastForward flips the playback speed
func (s *gameServiceImpl) ToggleFastForward(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(sessionID, func(sess *Session) (bool, string) {
		if !sess.Engine.ToggleFastForward() {
			return false, "level is not playing"
		}
		if sess.Engine.IsFastForward() {
			return true, "fast forward on"
		}
		return true, "fast forward off"
	})
}

// Advance runs up to ticks fixed simulation steps, stopping early once the
// run settles
func (s *gameServiceImpl) Advance(ctx context.Context, sessionID string, ticks int) (*RunResult, error) {
	if ticks < 1 || ticks > engine.MaxAdvanceTicks {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidTick, ticks, engine.MaxAdvanceTicks)
	}
	return s.run(sessionID, false, func(e *engine.GameEngine) int {
		n := 0
		for n < ticks && !e.IsSettled() {
			if ctx.Err() != nil {
				break
			}
			e.Tick(engine.DefaultTickInterval)
			n++
		}
		return n
	})
}

// RunToCompletion starts playback when needed and ticks until the run
// settles
func (s *gameServiceImpl) RunToCompletion(ctx context.Context, sessionID string) (*RunResult, error) {
	return s.run(sessionID, true, func(e *engine.GameEngine) int {
		return e.RunUntilSettled(engine.DefaultTickInterval, engine.MaxAdvanceTicks)
	})
}

// ResetLevel rebuilds the current level from its configuration
func (s *gameServiceImpl) ResetLevel(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	s.stopRunner(sess)
	if err := sess.Engine.Reset(); err != nil {
		sess.mu.Unlock()
		return nil, fmt.Errorf("failed to reset level: %w", err)
	}
	state := sess.Engine.GetState()
	sess.mu.Unlock()

	s.broadcast(sess.ID, state)
	return state, nil
}

// GetGameState returns the current render snapshot
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.Engine.GetState(), nil
}

// GetEventHistory returns a page of the session's event log
func (s *gameServiceImpl) GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	all := sess.Events.Events()
	history := all
	if opts.Type != "" {
		history = make([]engine.Event, 0, len(all))
		for _, ev := range all {
			if string(ev.Type) == opts.Type {
				history = append(history, ev)
			}
		}
	}

	total := len(history)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var events []engine.Event
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = history[start:end]
	}
	if events == nil {
		events = []engine.Event{}
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns the available levels
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*LevelInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a level configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, levelID string) (*engine.LevelConfig, error) {
	return s.configs.LoadConfig(levelID)
}

// SaveConfig saves a level configuration
func (s *gameServiceImpl) SaveConfig(ctx context.Context, levelID string, config *engine.LevelConfig) error {
	return s.configs.SaveConfig(levelID, config)
}

// session looks a session up and marks it accessed
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// act runs one engine operation under the session lock and collects the
// events it emitted
func (s *gameServiceImpl) act(sessionID string, op func(sess *Session) (bool, string)) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	before := sess.Events.Len()
	ok, msg := op(sess)
	result := &ActionResult{
		Success:   ok,
		GameState: sess.Engine.GetState(),
		Message:   msg,
		Events:    sess.Events.Since(before),
	}
	sess.mu.Unlock()

	s.broadcast(sess.ID, result.GameState)
	return result, nil
}

// run drives the simulation synchronously. autoStart enters Playing first
// when the level is still being edited.
func (s *gameServiceImpl) run(sessionID string, autoStart bool, drive func(e *engine.GameEngine) int) (*RunResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.runner != nil {
		sess.mu.Unlock()
		return nil, fmt.Errorf("session %s is running in realtime", sessionID)
	}

	e := sess.Engine
	before := sess.Events.Len()
	if e.Mode() != engine.ModePlaying {
		if !autoStart || !e.StartPlay() {
			sess.mu.Unlock()
			if e.IsGameOver() {
				return nil, fmt.Errorf("%w: level already won", ErrNotPlaying)
			}
			return nil, ErrNotPlaying
		}
	}

	n := drive(e)
	result := &RunResult{
		TicksRun: n,
		Settled:  e.IsSettled(),
		Outcome:  e.Outcome(),
		TurnLog:  e.TurnLog(),
		Events:   sess.Events.Since(before),
	}
	state := e.GetState()
	result.Turns = state.Turn

	switch result.Outcome {
	case engine.OutcomeWon:
		result.Message = "level complete"
	case engine.OutcomeLost:
		result.Message = "not every shepherd reached an entrance with a pair"
	default:
		result.Message = fmt.Sprintf("ran %d ticks", n)
	}

	if next, ok := s.advanceCampaign(sess); ok {
		result.NextLevel = next
		result.Message += fmt.Sprintf(", advanced to %s", next)
		state = sess.Engine.GetState()
	}
	result.GameState = state
	sess.mu.Unlock()

	s.broadcast(sess.ID, state)
	if result.NextLevel != "" {
		s.broadcastEvent(sess.ID, "level_advanced", map[string]string{"level_id": result.NextLevel})
	}
	return result, nil
}

// advanceCampaign loads the next campaign level after a win. The caller holds
// the session lock.
func (s *gameServiceImpl) advanceCampaign(sess *Session) (string, bool) {
	c := sess.Campaign
	if !c.Completed() || !c.AutoAdvance {
		return "", false
	}
	next, ok := c.Next()
	if !ok {
		return "", false
	}

	config, err := s.configs.LoadConfig(next)
	if err != nil {
		s.log.WithError(err).WithField("level", next).Warn("Failed to load next campaign level")
		return "", false
	}

	c.Index++
	eng, err := engine.NewEngine(config, sess.services(s.log))
	if err != nil {
		c.Index--
		s.log.WithError(err).WithField("level", next).Warn("Failed to build next campaign level")
		return "", false
	}
	sess.Engine = eng
	sess.Config = config
	sess.LevelID = next
	s.log.WithFields(log.Fields{"session": sess.ID, "level": next}).Info("Advanced to next level")
	return next, true
}

// editMessage explains a rejected edit
func (s *gameServiceImpl) editMessage(sess *Session, ok bool, success string) string {
	if ok {
		return success
	}
	switch {
	case sess.Engine.IsGameOver():
		return "level already won"
	case sess.Engine.Mode() == engine.ModePlaying:
		return "cannot edit while the level is playing"
	default:
		return "move not allowed"
	}
}

// sessionInfo builds the public view of a session. The caller holds the
// session lock.
func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.LevelID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		CurrentLevel:   sess.Campaign.CurrentLevel(),
		TotalLevels:    sess.Campaign.TotalLevels(),
		AutoAdvance:    sess.Campaign.AutoAdvance,
		Realtime:       sess.runner != nil,
		GameState:      sess.Engine.GetState(),
		LevelConfig:    sess.Config,
	}
}

// campaignLevels returns the ordered level IDs
func (s *gameServiceImpl) campaignLevels() []string {
	infos, err := s.configs.ListConfigs()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.LevelID)
	}
	return ids
}

// levelIDFor finds the ID of a loaded config by display name
func (s *gameServiceImpl) levelIDFor(config *engine.LevelConfig) string {
	infos, err := s.configs.ListConfigs()
	if err == nil {
		for _, info := range infos {
			if info.Name == config.Name {
				return info.LevelID
			}
		}
	}
	if config.Name == "" {
		return "default"
	}
	return config.Name
}

func (s *gameServiceImpl) broadcast(sessionID string, state *engine.GameState) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSession(sessionID, state)
	}
}

func (s *gameServiceImpl) broadcastEvent(sessionID, event string, data interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(sessionID, event, data)
	}
}

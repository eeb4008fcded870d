package engine

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Engine provides the main interface for level operations
type Engine interface {
	// State
	GetState() *GameState
	GetLevel() *Level
	GetConfig() *LevelConfig
	Mode() LevelMode
	CurrentAgent() AgentID
	Outcome() Outcome
	IsGameOver() bool
	IsFastForward() bool
	IsSettled() bool
	TurnLog() []TurnRecord
	Reset() error

	// Editing
	ClickCell(pos Position) bool
	ClickAgent(id AgentID) bool
	PointerUp()
	ClearPath(id AgentID) bool
	ApplyPath(id AgentID, cells []Position) (int, bool)
	ResetPaths() bool

	// Simulation
	StartPlay() bool
	StopPlay() bool
	ToggleFastForward() bool
	Tick(dt float32)
	RunUntilSettled(dt float32, maxTicks int) int
}

// GameEngine implements the Engine interface
type GameEngine struct {
	config   *LevelConfig
	level    *Level
	services Services
	log      *log.Entry

	mode        LevelMode
	current     AgentID
	fastForward bool
	gameOver    bool
	outcome     Outcome

	sched     *scheduler
	ticks     int
	turns     int
	turnLog   []TurnRecord
	recording *TurnRecord
}

// NewEngine creates an engine for the provided level configuration
func NewEngine(config *LevelConfig, services Services) (*GameEngine, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	cfg := *config
	cfg.ApplyDefaults()

	level, err := BuildLevel(&cfg)
	if err != nil {
		return nil, err
	}

	services = services.withDefaults()
	e := &GameEngine{
		config:   &cfg,
		level:    level,
		services: services,
		log:      services.Logger.WithField("level", cfg.Name),
		mode:     ModeEdit,
		current:  NoAgent,
		outcome:  OutcomePending,
	}
	e.services.Lifecycle.OnLevelStart()
	return e, nil
}

// GetState returns a render snapshot of the level
func (e *GameEngine) GetState() *GameState {
	return snapshot(e)
}

// GetLevel returns the live entity registry
func (e *GameEngine) GetLevel() *Level {
	return e.level
}

// GetConfig returns the level configuration with defaults applied
func (e *GameEngine) GetConfig() *LevelConfig {
	return e.config
}

// Mode returns the current level mode
func (e *GameEngine) Mode() LevelMode {
	return e.mode
}

// CurrentAgent returns the agent whose path is being edited
func (e *GameEngine) CurrentAgent() AgentID {
	return e.current
}

// Outcome returns the result of the last simulation run
func (e *GameEngine) Outcome() Outcome {
	return e.outcome
}

// IsGameOver returns whether the level has been won
func (e *GameEngine) IsGameOver() bool {
	return e.gameOver
}

// IsFastForward returns whether playback runs at double speed
func (e *GameEngine) IsFastForward() bool {
	return e.fastForward
}

// TurnLog returns the records of every completed turn of the current run
func (e *GameEngine) TurnLog() []TurnRecord {
	out := make([]TurnRecord, len(e.turnLog))
	copy(out, e.turnLog)
	return out
}

// Reset reloads the level from its configuration, dropping every path
func (e *GameEngine) Reset() error {
	level, err := BuildLevel(e.config)
	if err != nil {
		return err
	}
	e.level = level
	e.mode = ModeEdit
	e.current = NoAgent
	e.fastForward = false
	e.gameOver = false
	e.outcome = OutcomePending
	e.sched = nil
	e.ticks = 0
	e.turns = 0
	e.turnLog = nil
	e.recording = nil
	e.emit(EventLevelReset, NoAgent, NoItem, nil)
	e.services.Lifecycle.OnLevelStart()
	return nil
}

func (e *GameEngine) setMode(mode LevelMode) {
	if e.mode == mode {
		return
	}
	e.mode = mode
	e.emit(EventModeChanged, NoAgent, NoItem, nil)
}

func (e *GameEngine) emit(t EventType, agent AgentID, item ItemID, pos *Position) {
	ev := Event{
		Type:     t,
		Agent:    agent,
		Item:     item,
		Position: pos,
		Tick:     e.ticks,
		Turn:     e.turns,
	}
	ev.Message = describeEvent(e, ev)
	if e.recording != nil {
		e.recording.Events = append(e.recording.Events, ev)
	}
	e.services.Events.Emit(ev)
}

func describeEvent(e *GameEngine, ev Event) string {
	name := ""
	if a := e.level.Agent(ev.Agent); a != nil {
		name = a.Name
	}
	kind := ""
	if it := e.level.Item(ev.Item); it != nil {
		kind = it.Kind
	}
	at := ""
	if ev.Position != nil {
		at = " at " + ev.Position.String()
	}

	switch ev.Type {
	case EventPathPlaced:
		return fmt.Sprintf("%s extended path%s", name, at)
	case EventPathRemoved:
		return fmt.Sprintf("%s removed path cells%s", name, at)
	case EventEntranceAssigned:
		return fmt.Sprintf("%s will enter the ark%s", name, at)
	case EventSteps:
		return fmt.Sprintf("turn %d: shepherds step forward", ev.Turn)
	case EventPickup:
		return fmt.Sprintf("%s picked up %s%s", name, kind, at)
	case EventDropOff:
		return fmt.Sprintf("%s dropped %s%s", name, kind, at)
	case EventArkEnter:
		return fmt.Sprintf("%s entered the ark%s", name, at)
	case EventDoorClosed:
		return fmt.Sprintf("ark door closed%s", at)
	case EventMatchMade:
		return fmt.Sprintf("%s brought a pair%s", name, at)
	case EventMismatch:
		return fmt.Sprintf("%s arrived without a pair%s", name, at)
	case EventModeChanged:
		return fmt.Sprintf("mode changed to %s", e.mode)
	case EventLevelComplete:
		return "level complete"
	case EventLevelFailed:
		return "not every shepherd brought a pair"
	case EventLevelReset:
		return "level reset"
	}
	return string(ev.Type)
}

func posPtr(p Position) *Position {
	return &p
}

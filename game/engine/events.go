package engine

import (
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType names a discrete notification emitted by the engine
type EventType string

const (
	EventPathPlaced       EventType = "path_placed"
	EventPathRemoved      EventType = "path_removed"
	EventEntranceAssigned EventType = "entrance_assigned"
	EventSteps            EventType = "steps"
	EventPickup           EventType = "pickup"
	EventDropOff          EventType = "drop_off"
	EventArkEnter         EventType = "ark_enter"
	EventDoorClosed       EventType = "door_closed"
	EventMatchMade        EventType = "match_made"
	EventMismatch         EventType = "mismatch"
	EventModeChanged      EventType = "mode_changed"
	EventLevelComplete    EventType = "level_complete"
	EventLevelFailed      EventType = "level_failed"
	EventLevelReset       EventType = "level_reset"
)

// Event is a notification for audio or UI layers. Agent and Item are -1 when unset.
type Event struct {
	Type     EventType `json:"type"`
	Agent    AgentID   `json:"agent"`
	Item     ItemID    `json:"item"`
	Position *Position `json:"position,omitempty"`
	Tick     int       `json:"tick"`
	Turn     int       `json:"turn"`
	Message  string    `json:"message,omitempty"`
}

// EventSink receives engine events. Emit must not call back into the engine.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

// Emit calls f(ev)
func (f EventSinkFunc) Emit(ev Event) { f(ev) }

// LevelLifecycle is notified of level transitions
type LevelLifecycle interface {
	OnLevelStart()
	OnLevelComplete()
	OnLevelReset()
	TotalLevels() int
	CurrentLevel() int
}

// Services are the collaborators handed to an engine at construction
type Services struct {
	Events    EventSink
	Lifecycle LevelLifecycle
	Logger    *log.Entry
}

func (s Services) withDefaults() Services {
	if s.Events == nil {
		s.Events = EventSinkFunc(func(Event) {})
	}
	if s.Lifecycle == nil {
		s.Lifecycle = noopLifecycle{}
	}
	if s.Logger == nil {
		l := log.New()
		l.SetOutput(io.Discard)
		s.Logger = log.NewEntry(l)
	}
	return s
}

type noopLifecycle struct{}

func (noopLifecycle) OnLevelStart()     {}
func (noopLifecycle) OnLevelComplete()  {}
func (noopLifecycle) OnLevelReset()     {}
func (noopLifecycle) TotalLevels() int  { return 1 }
func (noopLifecycle) CurrentLevel() int { return 1 }

// EventLog is an EventSink that keeps every event in memory
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends ev to the log
func (l *EventLog) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Events returns a copy of the recorded events
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Since returns a copy of the events recorded after the first n
func (l *EventLog) Since(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.events) {
		return nil
	}
	out := make([]Event, len(l.events)-n)
	copy(out, l.events[n:])
	return out
}

// Count returns the number of recorded events of type t
func (l *EventLog) Count(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// Reset drops every recorded event
func (l *EventLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

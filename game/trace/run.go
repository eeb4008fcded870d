package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
)

var ErrDiverged = errors.New("replay diverged from trace")

// Run draws the header's paths on a fresh engine and plays the level until
// it settles
func Run(h Header, logger *log.Entry) (*engine.GameEngine, *engine.EventLog, error) {
	if h.Level == nil {
		return nil, nil, fmt.Errorf("trace header has no level")
	}
	events := &engine.EventLog{}
	e, err := engine.NewEngine(h.Level, engine.Services{Events: events, Logger: logger})
	if err != nil {
		return nil, nil, err
	}

	agents := make([]engine.AgentID, 0, len(h.Paths))
	for id := range h.Paths {
		agents = append(agents, id)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i] < agents[j] })

	for _, id := range agents {
		cells := h.Paths[id]
		placed, ok := e.ApplyPath(id, cells)
		if !ok {
			return nil, nil, fmt.Errorf("shepherd %d cannot be edited", id)
		}
		if placed < len(cells) {
			c := cells[placed]
			return nil, nil, fmt.Errorf("shepherd %d: cell %d (%d,%d) rejected", id, placed, c.X, c.Y)
		}
	}

	if !e.StartPlay() {
		return nil, nil, fmt.Errorf("level cannot start: no paths drawn")
	}
	e.RunUntilSettled(engine.DefaultTickInterval, engine.MaxAdvanceTicks)
	return e, events, nil
}

// Record runs the header and writes the complete trace to w
func Record(w *Writer, h Header, logger *log.Entry) (*Result, error) {
	e, events, err := Run(h, logger)
	if err != nil {
		return nil, err
	}
	if err := w.WriteHeader(h); err != nil {
		return nil, err
	}
	for _, t := range e.TurnLog() {
		if err := w.WriteTurn(t); err != nil {
			return nil, err
		}
	}
	state := e.GetState()
	result := Result{
		Outcome: e.Outcome(),
		Turns:   state.Turn,
		Ticks:   state.Tick,
		Events:  events.Len(),
	}
	if err := w.WriteResult(result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Verify replays the trace from its header and checks every turn record and
// the outcome match
func Verify(t *Trace, logger *log.Entry) error {
	e, _, err := Run(t.Header, logger)
	if err != nil {
		return err
	}

	got := e.TurnLog()
	if len(got) != len(t.Turns) {
		return fmt.Errorf("%w: %d turns replayed, %d recorded", ErrDiverged, len(got), len(t.Turns))
	}
	for i := range got {
		a, err := json.Marshal(got[i])
		if err != nil {
			return err
		}
		b, err := json.Marshal(t.Turns[i])
		if err != nil {
			return err
		}
		if !bytes.Equal(a, b) {
			return fmt.Errorf("%w at turn %d", ErrDiverged, t.Turns[i].Turn)
		}
	}
	if t.Result != nil && t.Result.Outcome != e.Outcome() {
		return fmt.Errorf("%w: outcome %s, recorded %s", ErrDiverged, e.Outcome(), t.Result.Outcome)
	}
	return nil
}

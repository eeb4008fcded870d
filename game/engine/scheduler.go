package engine

import log "github.com/sirupsen/logrus"

// phase is a step of the turn state machine. Each waiting phase is a
// barrier that holds until its pending set is empty.
type phase int

const (
	phaseTurnStart phase = iota
	phaseMoving
	phaseDrain
	phaseDrainSettle
	phaseFinalWait
	phaseDone
)

type scheduler struct {
	phase    phase
	active   []*Agent
	walks    []*walk
	transits []*transit
	doors    []*doorClose

	pendingTransits map[AgentID]int
	terminus        []AgentID
	entering        map[AgentID]bool
}

func newScheduler(active []*Agent) *scheduler {
	return &scheduler{
		phase:           phaseTurnStart,
		active:          active,
		pendingTransits: map[AgentID]int{},
		entering:        map[AgentID]bool{},
	}
}

// waiting reports whether the agent is blocked on a pending action
func (s *scheduler) waiting(id AgentID) bool {
	if s.pendingTransits[id] > 0 || s.entering[id] {
		return true
	}
	for _, t := range s.terminus {
		if t == id {
			return true
		}
	}
	return false
}

func (s *scheduler) anyWaiting() bool {
	return len(s.transits) > 0 || len(s.doors) > 0 || len(s.terminus) > 0 || len(s.entering) > 0
}

// StartPlay enters Playing and starts the turn scheduler
func (e *GameEngine) StartPlay() bool {
	if e.mode == ModePlaying || e.gameOver || !e.level.HasAvailablePath() {
		return false
	}

	e.fastForward = false
	e.setMode(ModePlaying)
	e.level.ResetEntities()
	e.level.Grid.ClearHighlights()
	e.outcome = OutcomePending
	e.turns = 0
	e.turnLog = nil

	var active []*Agent
	for _, a := range e.level.AgentsByPriority() {
		if len(a.Path) > 0 {
			active = append(active, a)
		}
	}
	e.sched = newScheduler(active)
	e.log.WithField("agents", len(active)).Debug("Playback started")
	return true
}

// StopPlay abandons playback. In-flight motion is dropped without being
// committed and every resettable entity is restored before returning to Edit.
func (e *GameEngine) StopPlay() bool {
	if e.gameOver || e.mode != ModePlaying {
		return false
	}
	e.sched = nil
	e.recording = nil
	e.fastForward = false
	e.level.ResetEntities()
	e.outcome = OutcomePending
	e.setMode(ModeEdit)
	e.emit(EventLevelReset, NoAgent, NoItem, nil)
	e.services.Lifecycle.OnLevelReset()
	return true
}

// ToggleFastForward flips the playback speed multiplier while Playing
func (e *GameEngine) ToggleFastForward() bool {
	if e.mode != ModePlaying {
		return false
	}
	e.fastForward = !e.fastForward
	return true
}

// IsSettled reports whether no simulation work remains
func (e *GameEngine) IsSettled() bool {
	return e.mode != ModePlaying || e.sched == nil || e.sched.phase == phaseDone
}

// RunUntilSettled ticks the simulation with a fixed step until it settles or
// maxTicks is reached. It returns the number of ticks run.
func (e *GameEngine) RunUntilSettled(dt float32, maxTicks int) int {
	n := 0
	for n < maxTicks && !e.IsSettled() {
		e.Tick(dt)
		n++
	}
	return n
}

// Tick advances every in-flight motion by dt seconds and then runs the turn
// state machine until it reaches a barrier that is not yet satisfied.
func (e *GameEngine) Tick(dt float32) {
	if e.mode != ModePlaying || e.sched == nil || e.sched.phase == phaseDone {
		return
	}
	e.ticks++

	scaled := dt
	if e.fastForward {
		scaled *= FastForwardFactor
	}
	e.advanceMotion(scaled, dt)
	e.runControl()
}

func (e *GameEngine) advanceMotion(dt, realDt float32) {
	s := e.sched
	l := e.level

	walks := s.walks[:0]
	for _, w := range s.walks {
		a := l.Agent(w.agent)
		pos, arrived := w.mover.step(dt)
		a.WorldPos = pos
		if w.turn != nil {
			heading, done := w.turn.step(dt)
			a.Heading = heading
			if done {
				w.turn = nil
			}
		}
		if arrived {
			a.Heading = w.facing
			continue
		}
		walks = append(walks, w)
	}
	s.walks = walks

	inTransit := map[ItemID]bool{}
	transits := s.transits[:0]
	for _, t := range s.transits {
		it := l.Item(t.item)
		pos, arrived := t.mover.step(dt)
		it.WorldPos = pos
		if arrived {
			s.pendingTransits[t.agent]--
			if s.pendingTransits[t.agent] <= 0 {
				delete(s.pendingTransits, t.agent)
			}
			continue
		}
		inTransit[t.item] = true
		transits = append(transits, t)
	}
	s.transits = transits

	// carried items follow their agent
	for _, it := range l.Items {
		if it.Holder.Kind == HolderAgent && !inTransit[it.ID] {
			if a := l.Agent(AgentID(it.Holder.ID)); a != nil {
				it.WorldPos = a.WorldPos
			}
		}
	}

	doors := s.doors[:0]
	for _, d := range s.doors {
		if !d.timer.step(realDt) {
			doors = append(doors, d)
			continue
		}
		ent := l.Entrance(d.entrance)
		ent.State = EntranceClosed
		l.Agent(d.agent).Retired = true
		delete(s.entering, d.agent)
		e.emit(EventDoorClosed, d.agent, NoItem, posPtr(ent.Pos))
	}
	s.doors = doors
}

func (e *GameEngine) runControl() {
	s := e.sched
	e.processTerminus()

	for {
		switch s.phase {
		case phaseTurnStart:
			if len(s.active) == 0 {
				e.finishRun()
				return
			}
			ready := s.active[:0]
			for _, a := range s.active {
				if !s.waiting(a.ID) {
					ready = append(ready, a)
				}
			}
			s.active = ready
			if len(s.active) == 0 {
				s.phase = phaseDrain
				continue
			}
			e.startTurn()
			s.phase = phaseMoving
			return

		case phaseMoving:
			if len(s.walks) > 0 {
				return
			}
			e.recording = &TurnRecord{Turn: e.turns, Tick: e.ticks}
			e.resolveTurn(s.active)
			for _, a := range s.active {
				if !a.HasNextCell() {
					s.terminus = append(s.terminus, a.ID)
				}
			}
			e.processTerminus()
			e.closeTurnRecord(s.active)

			s.active = e.agentsWithNextCell()
			if len(s.active) == 0 && s.anyWaiting() {
				s.phase = phaseFinalWait
				return
			}
			s.phase = phaseTurnStart

		case phaseDrain:
			if s.anyWaiting() {
				return
			}
			// one more tick so finished actions settle
			s.phase = phaseDrainSettle
			return

		case phaseDrainSettle:
			s.active = e.agentsWithNextCell()
			s.phase = phaseTurnStart

		case phaseFinalWait:
			if s.anyWaiting() {
				return
			}
			s.phase = phaseTurnStart

		default:
			return
		}
	}
}

// startTurn moves every active agent one path cell
func (e *GameEngine) startTurn() {
	s := e.sched
	e.turns++
	for _, a := range s.active {
		pos, ok := a.takeNextCell()
		if !ok {
			continue
		}
		target := pos.Vec()
		facing := a.Heading
		if a.WorldPos.Distance(target) > ArrivalEpsilon {
			facing = headingTowards(a.WorldPos, target)
		}
		s.walks = append(s.walks, &walk{
			agent:  a.ID,
			mover:  newMover(a.WorldPos, target, e.config.ActionTime),
			turn:   newRotator(a.Heading, facing, e.config.RotationTime),
			facing: normalizeAngle(facing),
		})
	}
	e.emit(EventSteps, NoAgent, NoItem, nil)
}

// processTerminus runs the arrival check for queued agents whose own item
// transits have finished
func (e *GameEngine) processTerminus() {
	s := e.sched
	if s == nil || len(s.terminus) == 0 {
		return
	}
	remaining := s.terminus[:0]
	for _, id := range s.terminus {
		if s.pendingTransits[id] > 0 {
			remaining = append(remaining, id)
			continue
		}
		e.checkTerminus(e.level.Agent(id))
	}
	s.terminus = remaining
}

func (e *GameEngine) checkTerminus(a *Agent) {
	l := e.level
	if !l.EndsAtEntrance(a) {
		return
	}
	tail, _ := a.Tail()
	ent := l.EntranceAt(tail)

	if !l.HasPair(a) {
		ent.Match = MatchMismatch
		e.emit(EventMismatch, a.ID, NoItem, posPtr(ent.Pos))
		return
	}

	ent.Match = MatchPair
	e.emit(EventMatchMade, a.ID, NoItem, posPtr(ent.Pos))
	a.Hidden = true
	ent.ShowAgentIcon = false
	e.emit(EventArkEnter, a.ID, NoItem, posPtr(ent.Pos))

	e.sched.entering[a.ID] = true
	e.sched.doors = append(e.sched.doors, &doorClose{
		agent:    a.ID,
		entrance: ent.ID,
		timer:    newTimer(e.config.DoorCloseDelay),
	})
}

func (e *GameEngine) agentsWithNextCell() []*Agent {
	var out []*Agent
	for _, a := range e.level.AgentsByPriority() {
		if a.HasNextCell() {
			out = append(out, a)
		}
	}
	return out
}

// finishRun decides the outcome once no agent has cells left to walk
func (e *GameEngine) finishRun() {
	l := e.level
	e.sched.phase = phaseDone

	won := len(l.Agents) > 0
	for _, a := range l.Agents {
		if !l.EndsAtEntrance(a) || !l.HasPair(a) {
			won = false
			break
		}
	}

	if !won {
		e.outcome = OutcomeLost
		e.emit(EventLevelFailed, NoAgent, NoItem, nil)
		e.log.WithField("turns", e.turns).Info("Playback finished without every pair delivered")
		return
	}

	for _, ent := range l.Entrances {
		ent.Match = MatchNone
	}
	e.outcome = OutcomeWon
	e.gameOver = true
	e.emit(EventLevelComplete, NoAgent, NoItem, nil)
	e.log.WithFields(log.Fields{"turns": e.turns, "ticks": e.ticks}).Info("Level complete")
	e.services.Lifecycle.OnLevelComplete()
}

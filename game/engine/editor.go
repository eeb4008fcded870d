package engine

import log "github.com/sirupsen/logrus"

// ClickCell handles a pointer-down on the cell at pos
func (e *GameEngine) ClickCell(pos Position) bool {
	cell := e.level.Grid.At(pos)
	if cell == nil {
		return false
	}
	switch cell.Kind {
	case ShepherdCell:
		return e.ClickAgent(cell.Agent)
	case PathCell:
		return e.clickPathCell(cell)
	case EntranceCell:
		return e.clickEntrance(cell)
	}
	return false
}

// ClickAgent selects an agent for drawing
func (e *GameEngine) ClickAgent(id AgentID) bool {
	if e.mode == ModePlaying || e.gameOver {
		return false
	}
	a := e.level.Agent(id)
	if a == nil {
		return false
	}

	if prev := e.level.Agent(e.current); prev != nil {
		e.disableHighlights(prev)
	}
	e.current = id

	switch len(a.Path) {
	case 0:
		e.highlightFrom(e.level.Grid.At(a.Home))
	case 1:
		e.resetPath(a)
	default:
		tail := e.tailCell(a)
		if tail.Kind != EntranceCell {
			tail.Bordered = true
			e.highlightFrom(tail)
		}
	}

	e.setMode(ModeDrawing)
	return true
}

// PointerUp ends a drawing gesture
func (e *GameEngine) PointerUp() {
	if e.mode == ModeDrawing {
		e.setMode(ModeEdit)
	}
}

// ClearPath removes one agent's whole path
func (e *GameEngine) ClearPath(id AgentID) bool {
	if e.mode == ModePlaying || e.gameOver {
		return false
	}
	a := e.level.Agent(id)
	if a == nil {
		return false
	}
	e.disableHighlights(a)
	e.resetPath(a)
	return true
}

// ApplyPath replaces an agent's path by clicking cells in order and ending
// the gesture. placed is the number of cells accepted; clicking stops at the
// first rejected cell. ok is false when the agent's path cannot be edited.
func (e *GameEngine) ApplyPath(id AgentID, cells []Position) (placed int, ok bool) {
	if !e.ClearPath(id) || !e.ClickAgent(id) {
		return 0, false
	}
	defer e.PointerUp()
	for _, c := range cells {
		if !e.ClickCell(c) {
			break
		}
		placed++
	}
	return placed, true
}

// ResetPaths stops playback if needed and clears every agent's path
func (e *GameEngine) ResetPaths() bool {
	if e.gameOver {
		return false
	}
	if e.mode == ModePlaying {
		e.StopPlay()
	}
	for _, a := range e.level.Agents {
		e.disableHighlights(a)
		e.resetPath(a)
	}
	e.setMode(ModeEdit)
	return true
}

func (e *GameEngine) clickPathCell(cell *Cell) bool {
	if e.mode == ModePlaying {
		return false
	}

	owner := cell.OwnerOf(e.current)
	if e.current == NoAgent {
		e.current = owner
	}
	a := e.level.Agent(e.current)
	tail := e.tailCell(a)

	if owner != NoAgent && owner != e.current {
		if e.mode == ModeEdit && tail != nil && !tail.IsNeighbor(cell) {
			// far from the tail: switch to the other agent
			e.disableHighlights(a)
			e.current = owner
			a = e.level.Agent(owner)
			tail = e.tailCell(a)
		} else if !e.canCrossOnto(a, tail, cell, owner) {
			return false
		}
	}

	if a == nil {
		return false
	}
	if tail == cell {
		e.setMode(ModeDrawing)
		return true
	}

	if !a.Contains(cell.Pos) {
		home := e.level.Grid.At(a.Home)
		if tail == nil && !home.IsNeighbor(cell) {
			return false
		}
		if tail != nil && !tail.IsNeighbor(cell) {
			if !home.IsNeighbor(cell) {
				return false
			}
			// restart from the agent
			e.resetPath(a)
			tail = nil
		}
		if tail != nil && tail.Kind == EntranceCell {
			return false
		}
		if tail != nil && !e.continuesStraight(a, cell) {
			return false
		}
		a.Path = append(a.Path, cell.Pos)
		e.emit(EventPathPlaced, a.ID, NoItem, posPtr(cell.Pos))
	} else {
		lastIndex := len(a.Path) - 1
		index := a.LastIndexOf(cell.Pos)

		switch {
		case index == lastIndex-1:
			e.truncate(a, index+1)
		case !tail.IsNeighbor(cell):
			// only remove from the middle when not dragging
			if e.mode != ModeEdit {
				return false
			}
			e.truncate(a, index+1)
		default:
			if !e.canSelfCross(a, tail, cell) {
				return false
			}
			a.Path = append(a.Path, cell.Pos)
			e.emit(EventPathPlaced, a.ID, NoItem, posPtr(cell.Pos))
		}
	}

	if len(a.Path) > 0 {
		e.disableHighlights(a)
	}
	e.setMode(ModeDrawing)
	e.refreshShapes(a)
	return true
}

func (e *GameEngine) clickEntrance(cell *Cell) bool {
	if e.mode == ModePlaying {
		return false
	}
	ent := e.level.Entrance(cell.Entrance)
	if ent == nil || ent.State == EntranceClosed || ent.Agent != NoAgent {
		return false
	}
	a := e.level.Agent(e.current)
	if a == nil {
		return false
	}
	tail := e.tailCell(a)
	if tail == nil || tail.Kind == EntranceCell || !tail.IsNeighbor(cell) {
		return false
	}
	if !e.continuesStraight(a, cell) {
		return false
	}

	e.setMode(ModeEdit)
	a.Path = append(a.Path, cell.Pos)
	ent.Agent = a.ID
	ent.ShowAgentIcon = true
	e.emit(EventPathPlaced, a.ID, NoItem, posPtr(cell.Pos))
	e.emit(EventEntranceAssigned, a.ID, NoItem, posPtr(cell.Pos))
	e.refreshShapes(a)
	return true
}

// canCrossOnto checks whether a may place a lane on a cell owned by another agent
func (e *GameEngine) canCrossOnto(a *Agent, tail, cell *Cell, owner AgentID) bool {
	other := e.level.Agent(owner)
	if other == nil {
		return false
	}
	if end, ok := other.Tail(); ok && end == cell.Pos {
		return false
	}
	if cell.IsDoubleBooked() {
		return false
	}
	if !cell.IsStraight(owner) {
		return false
	}
	if a != nil && tail != nil {
		if !tail.IsNeighbor(cell) {
			return false
		}
		if !e.continuesStraight(a, cell) {
			return false
		}
	}
	return true
}

// canSelfCross checks whether a may cross over its own earlier path at cell
func (e *GameEngine) canSelfCross(a *Agent, tail, cell *Cell) bool {
	if tail.Kind == EntranceCell || cell.IsDoubleBooked() {
		return false
	}
	shape := cell.ShapeOf(a.ID)
	if shape != ShapeEmpty && !shape.IsStraight() {
		return false
	}
	return e.continuesStraight(a, cell)
}

// continuesStraight requires a step out of a crossing tail to keep the
// direction it was entered with. Tails that are not crossings pass.
func (e *GameEngine) continuesStraight(a *Agent, next *Cell) bool {
	tail, ok := a.Tail()
	if !ok {
		return true
	}
	tailCell := e.level.Grid.At(tail)
	if !tailCell.IsDoubleBooked() && a.CountOf(tail) < 2 {
		return true
	}
	before := a.Home
	if len(a.Path) > 1 {
		before = a.Path[len(a.Path)-2]
	}
	return tail.Sub(before) == next.Pos.Sub(tail)
}

func (e *GameEngine) tailCell(a *Agent) *Cell {
	if a == nil {
		return nil
	}
	tail, ok := a.Tail()
	if !ok {
		return nil
	}
	return e.level.Grid.At(tail)
}

// resetPath clears the agent's whole path
func (e *GameEngine) resetPath(a *Agent) {
	if len(a.Path) == 0 {
		return
	}
	e.truncate(a, 0)
}

// truncate removes path cells from index on and clears their lanes
func (e *GameEngine) truncate(a *Agent, index int) {
	if index < 0 || index >= len(a.Path) {
		return
	}
	for _, pos := range a.Path[index:] {
		cell := e.level.Grid.At(pos)
		e.removeHighlightsAround(cell)
		cell.Bordered = false
		if cell.Kind == EntranceCell {
			e.releaseEntrance(cell)
			continue
		}
		cell.ClearLane(a.ID)
	}
	removed := a.Path[index]
	a.Path = a.Path[:index]
	e.emit(EventPathRemoved, a.ID, NoItem, posPtr(removed))
}

func (e *GameEngine) releaseEntrance(cell *Cell) {
	ent := e.level.Entrance(cell.Entrance)
	if ent == nil || ent.StartState == EntranceClosed {
		return
	}
	ent.Agent = NoAgent
	ent.ShowAgentIcon = false
}

// refreshShapes recomputes the agent's lane shapes from the tail back to the
// first cell and highlights the next legal cells
func (e *GameEngine) refreshShapes(a *Agent) {
	for i := len(a.Path) - 1; i >= 0; i-- {
		pos := a.Path[i]
		cell := e.level.Grid.At(pos)
		e.removeHighlightsAround(cell)
		cell.Bordered = false
		if cell.Kind == EntranceCell {
			continue
		}
		if a.CountOf(pos) > 1 {
			cell.AssignLane(a.ID, ShapeCross)
			continue
		}

		prev := a.Home.Sub(pos)
		if i > 0 {
			prev = a.Path[i-1].Sub(pos)
		}
		var next Position
		if i+1 < len(a.Path) {
			next = a.Path[i+1].Sub(pos)
		}

		shape, err := InferShape(prev, next)
		if err != nil {
			e.log.WithFields(log.Fields{"agent": a.Name, "cell": pos.String()}).Warnf("Leaving lane empty: %v", err)
			cell.ClearLane(a.ID)
			continue
		}
		cell.AssignLane(a.ID, shape)
	}

	tail := e.tailCell(a)
	if tail == nil {
		e.highlightFrom(e.level.Grid.At(a.Home))
		return
	}
	if tail.Kind != EntranceCell {
		tail.Bordered = true
		e.highlightFrom(tail)
	}
}

// highlightFrom marks the walkable neighbors of cell that can still take a lane
func (e *GameEngine) highlightFrom(cell *Cell) {
	for _, n := range cell.Neighbors() {
		if !n.IsPathFamily() {
			continue
		}
		if n.Kind == EntranceCell {
			if ent := e.level.Entrance(n.Entrance); ent == nil || !ent.IsAvailable() {
				continue
			}
		}
		n.Highlighted = n.IsStraightOrEmpty() && !n.IsDoubleBooked()
	}
}

func (e *GameEngine) removeHighlightsAround(cell *Cell) {
	for _, n := range cell.Neighbors() {
		if n.IsPathFamily() {
			n.Highlighted = false
		}
	}
}

func (e *GameEngine) disableHighlights(a *Agent) {
	if a == nil {
		return
	}
	for _, pos := range a.Path {
		cell := e.level.Grid.At(pos)
		e.removeHighlightsAround(cell)
		cell.Bordered = false
	}
	e.removeHighlightsAround(e.level.Grid.At(a.Home))
}

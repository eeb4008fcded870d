package engine

import (
	"reflect"
	"testing"
)

func crossLevel() *LevelConfig {
	return createTestLevel("cross",
		"##2##",
		"1...E",
		"##.##",
		"##E##",
		"#####",
	)
}

// In crossLevel agent 0 starts at (2,0) with priority 2 and agent 1 at (0,1)
// with priority 1.
const (
	crossVertical   AgentID = 0
	crossHorizontal AgentID = 1
)

func selfCrossLevel() *LevelConfig {
	return createTestLevel("self-cross",
		"....",
		"1...",
		"....",
		"...E",
	)
}

func pos(x, y int) Position { return Position{X: x, Y: y} }

func TestClickAgent(t *testing.T) {
	e, events, _ := newTestEngine(t, pairsLevel())

	t.Run("empty path highlights from home", func(t *testing.T) {
		if !e.ClickAgent(0) {
			t.Fatal("Expected ClickAgent to succeed")
		}
		if e.Mode() != ModeDrawing {
			t.Errorf("Expected Drawing mode, got %v", e.Mode())
		}
		if !e.level.Grid.At(pos(1, 1)).Highlighted {
			t.Error("Expected cell right of home to be highlighted")
		}
		if events.Count(EventModeChanged) != 1 {
			t.Errorf("Expected one mode_changed event, got %d", events.Count(EventModeChanged))
		}
	})

	t.Run("single cell path is reset", func(t *testing.T) {
		e.ClickCell(pos(1, 1))
		e.PointerUp()
		e.ClickAgent(0)
		if len(e.level.Agent(0).Path) != 0 {
			t.Errorf("Expected path cleared, got %v", e.level.Agent(0).Path)
		}
		if !e.level.Grid.At(pos(1, 1)).IsEmpty() {
			t.Error("Expected lane cleared")
		}
	})

	t.Run("longer path borders the tail", func(t *testing.T) {
		e.ClickCell(pos(1, 1))
		e.ClickCell(pos(2, 1))
		e.PointerUp()
		e.ClickAgent(1)
		e.ClickAgent(0)
		if !e.level.Grid.At(pos(2, 1)).Bordered {
			t.Error("Expected tail to be bordered")
		}
		if !e.level.Grid.At(pos(3, 1)).Highlighted {
			t.Error("Expected entrance next to tail to be highlighted")
		}
	})

	t.Run("unknown agent", func(t *testing.T) {
		if e.ClickAgent(7) {
			t.Error("Expected unknown agent to be rejected")
		}
	})
}

func TestDrawPath_Basic(t *testing.T) {
	e, events, _ := newTestEngine(t, pairsLevel())
	drawPairs(t, e)

	a := e.level.Agent(0)
	want := []Position{pos(1, 1), pos(2, 1), pos(3, 1)}
	if !reflect.DeepEqual(a.Path, want) {
		t.Errorf("Expected path %v, got %v", want, a.Path)
	}
	ent := e.level.EntranceAt(pos(3, 1))
	if ent.Agent != 0 || !ent.ShowAgentIcon {
		t.Errorf("Expected entrance assigned to agent 0, got %+v", ent)
	}
	if events.Count(EventEntranceAssigned) != 2 {
		t.Errorf("Expected 2 entrance_assigned events, got %d", events.Count(EventEntranceAssigned))
	}
	if events.Count(EventPathPlaced) != 6 {
		t.Errorf("Expected 6 path_placed events, got %d", events.Count(EventPathPlaced))
	}
	if e.Mode() != ModeEdit {
		t.Errorf("Expected Edit mode after reaching the entrance, got %v", e.Mode())
	}
	for _, p := range want[:2] {
		if s := e.level.Grid.At(p).ShapeOf(0); s != ShapeHorizontal {
			t.Errorf("Expected horizontal at %v, got %v", p, s)
		}
	}
}

func TestDrawPath_Rejections(t *testing.T) {
	t.Run("not adjacent to home", func(t *testing.T) {
		e, _, _ := newTestEngine(t, pairsLevel())
		e.ClickAgent(0)
		if e.ClickCell(pos(2, 1)) {
			t.Error("Expected first cell away from home to be rejected")
		}
	})

	t.Run("no extension past entrance", func(t *testing.T) {
		e, _, _ := newTestEngine(t, selfCrossLevel())
		drawPath(t, e, 0, pos(1, 1), pos(2, 1), pos(3, 1), pos(3, 2), pos(3, 3))
		e.ClickAgent(0)
		if e.ClickCell(pos(2, 3)) {
			t.Error("Expected extension past an entrance to be rejected")
		}
	})

	t.Run("block cell", func(t *testing.T) {
		e, _, _ := newTestEngine(t, pairsLevel())
		e.ClickAgent(0)
		if e.ClickCell(pos(0, 0)) {
			t.Error("Expected block cell click to be rejected")
		}
	})

	t.Run("taken entrance", func(t *testing.T) {
		e, _, _ := newTestEngine(t, createTestLevel("shared",
			"#1#",
			".E.",
			"2##",
		))
		drawPath(t, e, 1, pos(0, 1), pos(1, 1))
		e.ClickAgent(0)
		if e.ClickCell(pos(1, 1)) {
			t.Error("Expected taken entrance to be rejected")
		}
	})

	t.Run("closed entrance", func(t *testing.T) {
		config := pairsLevel()
		config.Cells = []CellSpec{{X: 3, Y: 1, Type: EntranceCell, Extra: CellExtra{State: EntranceClosed}}}
		e, _, _ := newTestEngine(t, config)
		drawPath(t, e, 0, pos(1, 1), pos(2, 1))
		e.ClickAgent(0)
		if e.ClickCell(pos(3, 1)) {
			t.Error("Expected closed entrance to be rejected")
		}
	})

	t.Run("edits while playing", func(t *testing.T) {
		e, _, _ := newTestEngine(t, pairsLevel())
		drawPairs(t, e)
		e.StartPlay()
		if e.ClickAgent(0) || e.ClickCell(pos(2, 1)) {
			t.Error("Expected edits to be rejected while playing")
		}
	})
}

func TestDrawPath_RestartFromHome(t *testing.T) {
	e, _, _ := newTestEngine(t, createTestLevel("restart",
		"....",
		"1...",
		"....",
		"...E",
	))
	drawPath(t, e, 0, pos(1, 1), pos(2, 1), pos(3, 1))
	e.ClickAgent(0)
	if !e.ClickCell(pos(0, 2)) {
		t.Fatal("Expected click next to home to restart the path")
	}
	if !reflect.DeepEqual(e.level.Agent(0).Path, []Position{pos(0, 2)}) {
		t.Errorf("Expected restarted path, got %v", e.level.Agent(0).Path)
	}
	if !e.level.Grid.At(pos(2, 1)).IsEmpty() {
		t.Error("Expected old path lanes to be cleared")
	}
}

func TestRetractAndTruncate(t *testing.T) {
	e, events, _ := newTestEngine(t, pairsLevel())
	e.ClickAgent(0)
	e.ClickCell(pos(1, 1))
	e.ClickCell(pos(2, 1))

	t.Run("step back retracts the tail", func(t *testing.T) {
		if !e.ClickCell(pos(1, 1)) {
			t.Fatal("Expected retraction to succeed")
		}
		if len(e.level.Agent(0).Path) != 1 {
			t.Errorf("Expected path of 1, got %v", e.level.Agent(0).Path)
		}
		if events.Count(EventPathRemoved) != 1 {
			t.Errorf("Expected one path_removed event, got %d", events.Count(EventPathRemoved))
		}
		if !e.level.Grid.At(pos(2, 1)).IsEmpty() {
			t.Error("Expected retracted cell to lose its lane")
		}
	})

	e.ClickCell(pos(2, 1))
	e.ClickCell(pos(3, 1))

	t.Run("middle truncation rejected while drawing", func(t *testing.T) {
		e.ClickAgent(0)
		if e.Mode() != ModeDrawing {
			t.Fatalf("Expected Drawing mode, got %v", e.Mode())
		}
		if e.ClickCell(pos(1, 1)) {
			t.Error("Expected middle truncation to be rejected while drawing")
		}
	})

	t.Run("middle truncation in edit", func(t *testing.T) {
		e.PointerUp()
		if !e.ClickCell(pos(1, 1)) {
			t.Fatal("Expected middle truncation to succeed in Edit")
		}
		if !reflect.DeepEqual(e.level.Agent(0).Path, []Position{pos(1, 1)}) {
			t.Errorf("Expected path truncated to first cell, got %v", e.level.Agent(0).Path)
		}
		if ent := e.level.EntranceAt(pos(3, 1)); ent.Agent != NoAgent || ent.ShowAgentIcon {
			t.Errorf("Expected entrance released, got %+v", ent)
		}
	})

	t.Run("clicking the tail resumes drawing", func(t *testing.T) {
		e.PointerUp()
		if !e.ClickCell(pos(1, 1)) {
			t.Fatal("Expected tail click to succeed")
		}
		if e.Mode() != ModeDrawing {
			t.Errorf("Expected Drawing mode, got %v", e.Mode())
		}
	})
}

func TestEntranceClickInEdit(t *testing.T) {
	e, _, _ := newTestEngine(t, pairsLevel())
	drawPath(t, e, 0, pos(1, 1), pos(2, 1))
	if e.Mode() != ModeEdit {
		t.Fatalf("Expected Edit mode, got %v", e.Mode())
	}
	if !e.ClickCell(pos(3, 1)) {
		t.Error("Expected entrance click to be accepted in Edit")
	}
}

func TestCrossing(t *testing.T) {
	horizontal := []Position{pos(1, 1), pos(2, 1), pos(3, 1), pos(4, 1)}

	t.Run("straight crossing", func(t *testing.T) {
		e, _, _ := newTestEngine(t, crossLevel())
		drawPath(t, e, crossHorizontal, horizontal...)
		drawPath(t, e, crossVertical, pos(2, 1), pos(2, 2), pos(2, 3))

		cell := e.level.Grid.At(pos(2, 1))
		if !cell.IsDoubleBooked() {
			t.Fatal("Expected crossing cell to be double-booked")
		}
		if cell.ShapeOf(crossHorizontal) != ShapeHorizontal || cell.ShapeOf(crossVertical) != ShapeVertical {
			t.Errorf("Expected horizontal and vertical lanes, got %+v", cell.Lanes)
		}
		if cell.Lanes[BottomLane].Owner != crossHorizontal {
			t.Errorf("Expected first owner on the bottom lane, got %d", cell.Lanes[BottomLane].Owner)
		}
		if e.level.EntranceAt(pos(2, 3)).Agent != crossVertical {
			t.Error("Expected lower entrance assigned to the vertical agent")
		}
	})

	t.Run("no turn out of a crossing", func(t *testing.T) {
		e, _, _ := newTestEngine(t, crossLevel())
		drawPath(t, e, crossHorizontal, horizontal...)
		e.ClickAgent(crossVertical)
		if !e.ClickCell(pos(2, 1)) {
			t.Fatal("Expected crossing onto a straight lane")
		}
		if e.ClickCell(pos(1, 1)) || e.ClickCell(pos(3, 1)) {
			t.Error("Expected turning out of a crossing to be rejected")
		}
		if e.level.Grid.At(pos(1, 1)).IsDoubleBooked() {
			t.Error("Expected no lane placed on rejection")
		}
	})

	t.Run("no crossing a corner", func(t *testing.T) {
		e, _, _ := newTestEngine(t, crossLevel())
		drawPath(t, e, crossHorizontal, pos(1, 1), pos(2, 1), pos(2, 2))
		if s := e.level.Grid.At(pos(2, 1)).ShapeOf(crossHorizontal); s != ShapeTopRightCorner {
			t.Fatalf("Expected top right corner, got %v", s)
		}
		e.ClickAgent(crossVertical)
		if e.ClickCell(pos(2, 1)) {
			t.Error("Expected crossing a corner to be rejected")
		}
	})

	t.Run("no crossing another path's end", func(t *testing.T) {
		e, _, _ := newTestEngine(t, crossLevel())
		drawPath(t, e, crossHorizontal, pos(1, 1), pos(2, 1))
		e.ClickAgent(crossVertical)
		if e.ClickCell(pos(2, 1)) {
			t.Error("Expected crossing onto a path end to be rejected")
		}
	})

	t.Run("click far from tail switches agent", func(t *testing.T) {
		e, _, _ := newTestEngine(t, crossLevel())
		drawPath(t, e, crossHorizontal, horizontal...)
		drawPath(t, e, crossVertical, pos(2, 1), pos(2, 2), pos(2, 3))

		if !e.ClickCell(pos(1, 1)) {
			t.Fatal("Expected click on the other agent's path to succeed")
		}
		if e.CurrentAgent() != crossHorizontal {
			t.Errorf("Expected current agent %d, got %d", crossHorizontal, e.CurrentAgent())
		}
		if !reflect.DeepEqual(e.level.Agent(crossHorizontal).Path, []Position{pos(1, 1)}) {
			t.Errorf("Expected switched agent path truncated, got %v", e.level.Agent(crossHorizontal).Path)
		}
		if e.level.EntranceAt(pos(4, 1)).Agent != NoAgent {
			t.Error("Expected right entrance released")
		}
		cell := e.level.Grid.At(pos(2, 1))
		if cell.IsDoubleBooked() || !cell.OwnsLane(crossVertical) {
			t.Errorf("Expected only the vertical lane left at the crossing, got %+v", cell.Lanes)
		}
	})
}

func TestSelfCross(t *testing.T) {
	loop := []Position{pos(1, 1), pos(2, 1), pos(3, 1), pos(3, 0), pos(2, 0), pos(2, 1)}

	t.Run("crossing own straight lane", func(t *testing.T) {
		e, _, _ := newTestEngine(t, selfCrossLevel())
		drawPath(t, e, 0, append(loop, pos(2, 2))...)

		cell := e.level.Grid.At(pos(2, 1))
		if cell.ShapeOf(0) != ShapeCross {
			t.Errorf("Expected cross shape, got %v", cell.ShapeOf(0))
		}
		if cell.IsDoubleBooked() {
			t.Error("Expected a self-cross to use a single lane")
		}
		if s := e.level.Grid.At(pos(2, 0)).ShapeOf(0); s != ShapeTopLeftCorner {
			t.Errorf("Expected top left corner at (2,0), got %v", s)
		}
	})

	t.Run("no turn out of a self-cross", func(t *testing.T) {
		e, _, _ := newTestEngine(t, selfCrossLevel())
		drawPath(t, e, 0, loop...)
		e.ClickAgent(0)
		if e.ClickCell(pos(1, 1)) || e.ClickCell(pos(3, 1)) {
			t.Error("Expected turning out of a self-cross to be rejected")
		}
	})

	t.Run("retract restores the straight shape", func(t *testing.T) {
		e, _, _ := newTestEngine(t, selfCrossLevel())
		drawPath(t, e, 0, loop...)
		e.ClickAgent(0)
		if !e.ClickCell(pos(2, 0)) {
			t.Fatal("Expected retraction off the self-cross")
		}
		if s := e.level.Grid.At(pos(2, 1)).ShapeOf(0); s != ShapeHorizontal {
			t.Errorf("Expected horizontal after retraction, got %v", s)
		}
	})

	t.Run("no self-cross on a corner", func(t *testing.T) {
		e, _, _ := newTestEngine(t, selfCrossLevel())
		drawPath(t, e, 0, pos(1, 1), pos(2, 1), pos(2, 0), pos(3, 0), pos(3, 1))
		e.ClickAgent(0)
		if e.ClickCell(pos(2, 1)) {
			t.Error("Expected crossing own corner to be rejected")
		}
	})
}

func TestHighlights(t *testing.T) {
	e, _, _ := newTestEngine(t, crossLevel())
	drawPath(t, e, crossHorizontal, pos(1, 1), pos(2, 1), pos(2, 2))

	e.ClickAgent(crossVertical)
	if e.level.Grid.At(pos(2, 1)).Highlighted {
		t.Error("Expected corner cell not to be highlighted")
	}

	e2, _, _ := newTestEngine(t, crossLevel())
	e2.ClickAgent(crossHorizontal)
	e2.ClickCell(pos(1, 1))
	e2.ClickCell(pos(2, 1))
	e2.ClickCell(pos(3, 1))
	if !e2.level.Grid.At(pos(4, 1)).Highlighted {
		t.Error("Expected free entrance to be highlighted")
	}
	e2.ClickCell(pos(4, 1))
	e2.PointerUp()

	e2.ClickAgent(crossVertical)
	if !e2.level.Grid.At(pos(2, 1)).Highlighted {
		t.Error("Expected straight lane to be highlighted for crossing")
	}
}

func TestResetPaths(t *testing.T) {
	e, events, _ := newTestEngine(t, crossLevel())
	drawPath(t, e, crossHorizontal, pos(1, 1), pos(2, 1), pos(3, 1), pos(4, 1))
	drawPath(t, e, crossVertical, pos(2, 1), pos(2, 2), pos(2, 3))

	if !e.ResetPaths() {
		t.Fatal("Expected ResetPaths to succeed")
	}
	for _, a := range e.level.Agents {
		if len(a.Path) != 0 {
			t.Errorf("Expected agent %d path cleared, got %v", a.ID, a.Path)
		}
	}
	for _, c := range e.level.Grid.Cells() {
		if c.Kind == PathCell && !c.IsEmpty() {
			t.Errorf("Expected no lanes left at %v", c.Pos)
		}
		if c.Highlighted || c.Bordered {
			t.Errorf("Expected no highlight left at %v", c.Pos)
		}
	}
	for _, ent := range e.level.Entrances {
		if ent.Agent != NoAgent {
			t.Errorf("Expected entrance %d released", ent.ID)
		}
	}
	if events.Count(EventPathRemoved) != 2 {
		t.Errorf("Expected 2 path_removed events, got %d", events.Count(EventPathRemoved))
	}
	if e.Mode() != ModeEdit {
		t.Errorf("Expected Edit mode, got %v", e.Mode())
	}
}

func TestClearPath(t *testing.T) {
	e, _, _ := newTestEngine(t, pairsLevel())
	drawPairs(t, e)

	if !e.ClearPath(0) {
		t.Fatal("Expected ClearPath to succeed")
	}
	if len(e.level.Agent(0).Path) != 0 {
		t.Errorf("Expected agent 0 path cleared, got %v", e.level.Agent(0).Path)
	}
	if len(e.level.Agent(1).Path) != 3 {
		t.Errorf("Expected agent 1 path kept, got %v", e.level.Agent(1).Path)
	}
	if e.level.EntranceAt(pos(3, 1)).Agent != NoAgent {
		t.Error("Expected entrance released")
	}
	if e.ClearPath(9) {
		t.Error("Expected unknown agent to be rejected")
	}

	e.StartPlay()
	if e.ClearPath(1) {
		t.Error("Expected ClearPath to be rejected while playing")
	}
}

func TestApplyPath(t *testing.T) {
	e, _, _ := newTestEngine(t, pairsLevel())

	placed, ok := e.ApplyPath(0, []Position{pos(1, 1), pos(2, 1), pos(3, 1)})
	if !ok || placed != 3 {
		t.Fatalf("Expected 3 cells placed, got %d ok %v", placed, ok)
	}
	if e.Mode() != ModeEdit {
		t.Errorf("Expected gesture ended in Edit, got %v", e.Mode())
	}

	placed, ok = e.ApplyPath(1, []Position{pos(1, 3), pos(1, 2), pos(2, 3)})
	if !ok || placed != 1 {
		t.Errorf("Expected stop at the block cell after 1 placed, got %d ok %v", placed, ok)
	}

	placed, ok = e.ApplyPath(0, []Position{pos(1, 1)})
	if !ok || placed != 1 || len(e.level.Agent(0).Path) != 1 {
		t.Errorf("Expected the old path replaced, got %v", e.level.Agent(0).Path)
	}

	if _, ok := e.ApplyPath(5, nil); ok {
		t.Error("Expected unknown agent to be rejected")
	}
}

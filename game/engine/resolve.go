package engine

import log "github.com/sirupsen/logrus"

// resolveTurn runs drop-offs then pickups for each agent that moved this
// turn, in ascending priority order. Claims made by an earlier agent are
// invisible to later ones for the rest of the pass.
func (e *GameEngine) resolveTurn(active []*Agent) {
	l := e.level
	for _, b := range l.Barrels {
		b.Available = true
	}

	for _, a := range active {
		cell := l.Grid.At(a.WorldPos.Cell())
		if cell == nil || !cell.IsPathFamily() {
			e.log.WithFields(log.Fields{"agent": a.Name, "x": a.WorldPos.X, "y": a.WorldPos.Y}).Error("No path cell under agent, skipping its actions")
			continue
		}
		e.dropOff(a, cell)
		e.pickUp(a, cell)
	}
}

// dropOff moves the most recently picked up items into empty neighbor barrels
func (e *GameEngine) dropOff(a *Agent, cell *Cell) {
	l := e.level
	for _, d := range l.Priorities {
		if len(a.Carried) == 0 {
			return
		}
		b := e.barrelToward(cell, d)
		if b == nil || !b.IsEmpty() {
			continue
		}

		last := len(a.Carried) - 1
		it := l.Item(a.Carried[last])
		a.Carried = a.Carried[:last]

		b.Item = it.ID
		b.Available = false
		it.Holder = Holder{Kind: HolderBarrel, ID: int(b.ID)}
		e.startTransit(a, it, b.Pos.Vec())
		e.emit(EventDropOff, a.ID, it.ID, posPtr(b.Pos))
	}
}

// pickUp claims neighbor items up to the agent's free capacity. An item
// matching the first carried item is claimed before the directional scan.
func (e *GameEngine) pickUp(a *Agent, cell *Cell) {
	l := e.level
	if !a.CanCarryMore(l.MaxItems) {
		return
	}
	capacity := l.MaxItems - len(a.Carried)
	claimed := 0

	if len(a.Carried) > 0 {
		want := l.Item(a.Carried[0]).Kind
		for _, d := range l.Priorities {
			if it := e.animalToward(cell, d); it != nil && it.Kind == want {
				e.claim(a, it, nil)
				claimed++
				break
			}
		}
		if claimed < capacity {
			for _, d := range l.Priorities {
				b := e.barrelToward(cell, d)
				if b != nil && !b.IsEmpty() && l.Item(b.Item).Kind == want {
					e.claim(a, l.Item(b.Item), b)
					claimed++
					break
				}
			}
		}
	}

	for _, d := range l.Priorities {
		if claimed >= capacity {
			return
		}
		if it := e.animalToward(cell, d); it != nil {
			e.claim(a, it, nil)
			claimed++
			continue
		}
		if b := e.barrelToward(cell, d); b != nil && !b.IsEmpty() {
			e.claim(a, l.Item(b.Item), b)
			claimed++
		}
	}
}

// claim commits a pickup immediately; only the visual transit is deferred
func (e *GameEngine) claim(a *Agent, it *Item, from *Barrel) {
	pos := it.Origin
	if from != nil {
		pos = from.Pos
		from.Item = NoItem
		from.Available = false
	}
	it.PickedUp = true
	it.Holder = Holder{Kind: HolderAgent, ID: int(a.ID)}
	a.Carried = append(a.Carried, it.ID)
	e.startTransit(a, it, a.WorldPos)
	e.emit(EventPickup, a.ID, it.ID, posPtr(pos))
}

func (e *GameEngine) startTransit(a *Agent, it *Item, to Vec) {
	s := e.sched
	s.transits = append(s.transits, &transit{
		item:  it.ID,
		agent: a.ID,
		mover: newMover(it.WorldPos, to, e.config.ActionTime),
	})
	s.pendingTransits[a.ID]++
}

// barrelToward returns the barrel next to cell in direction d if it can
// still be claimed this pass
func (e *GameEngine) barrelToward(cell *Cell, d Direction) *Barrel {
	n := cell.Neighbor(d)
	if n == nil || n.Kind != BarrelCell {
		return nil
	}
	b := e.level.Barrel(n.Barrel)
	if b == nil || !b.Available {
		return nil
	}
	return b
}

// animalToward returns the item still standing on the animal cell next to
// cell in direction d
func (e *GameEngine) animalToward(cell *Cell, d Direction) *Item {
	n := cell.Neighbor(d)
	if n == nil || n.Kind != AnimalCell {
		return nil
	}
	it := e.level.Item(n.Item)
	if it == nil || it.PickedUp {
		return nil
	}
	return it
}

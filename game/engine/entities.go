package engine

import "sort"

// Typed registry IDs. Each is an index into the matching Level slice.
type (
	AgentID    int
	ItemID     int
	BarrelID   int
	EntranceID int
)

const (
	NoAgent    AgentID    = -1
	NoItem     ItemID     = -1
	NoBarrel   BarrelID   = -1
	NoEntrance EntranceID = -1
)

// HolderKind identifies what currently holds an item
type HolderKind string

const (
	HolderNone   HolderKind = "none"
	HolderAgent  HolderKind = "agent"
	HolderBarrel HolderKind = "barrel"
)

// Holder is the current owner of an item
type Holder struct {
	Kind HolderKind `json:"kind"`
	ID   int        `json:"id"`
}

var noHolder = Holder{Kind: HolderNone, ID: -1}

// Agent is a shepherd with a drawn path and the items it carries
type Agent struct {
	ID           AgentID
	Name         string
	Priority     int
	Home         Position
	Path         []Position
	Cursor       int
	Carried      []ItemID
	WorldPos     Vec
	Heading      float32
	StartHeading float32
	Hidden       bool
	Retired      bool
}

// Tail returns the last cell of the path
func (a *Agent) Tail() (Position, bool) {
	if len(a.Path) == 0 {
		return Position{}, false
	}
	return a.Path[len(a.Path)-1], true
}

// HasNextCell reports whether the cursor has cells left to walk
func (a *Agent) HasNextCell() bool {
	return a.Cursor < len(a.Path)
}

// takeNextCell returns the cell under the cursor and advances it
func (a *Agent) takeNextCell() (Position, bool) {
	if !a.HasNextCell() {
		return Position{}, false
	}
	pos := a.Path[a.Cursor]
	a.Cursor++
	return pos, true
}

// LastIndexOf returns the last path index of pos, or -1
func (a *Agent) LastIndexOf(pos Position) int {
	for i := len(a.Path) - 1; i >= 0; i-- {
		if a.Path[i] == pos {
			return i
		}
	}
	return -1
}

// CountOf returns how many times pos appears on the path
func (a *Agent) CountOf(pos Position) int {
	n := 0
	for _, p := range a.Path {
		if p == pos {
			n++
		}
	}
	return n
}

// Contains reports whether pos is on the path
func (a *Agent) Contains(pos Position) bool {
	return a.LastIndexOf(pos) >= 0
}

// CanCarryMore reports whether the agent has free capacity
func (a *Agent) CanCarryMore(max int) bool {
	return len(a.Carried) < max
}

// Item is an animal that can be carried to an entrance
type Item struct {
	ID       ItemID
	Kind     string
	Origin   Position
	PickedUp bool
	Holder   Holder
	WorldPos Vec
}

// Barrel holds at most one item
type Barrel struct {
	ID        BarrelID
	Pos       Position
	Item      ItemID
	Available bool
}

// IsEmpty reports whether the barrel holds no item
func (b *Barrel) IsEmpty() bool {
	return b.Item == NoItem
}

// Entrance is an ark door at the end of an agent's path
type Entrance struct {
	ID            EntranceID
	Pos           Position
	State         EntranceState
	StartState    EntranceState
	Agent         AgentID
	Match         MatchState
	ShowAgentIcon bool
}

// IsAvailable reports whether a path can still be routed into the entrance
func (e *Entrance) IsAvailable() bool {
	return e.State == EntranceOpened && e.Agent == NoAgent
}

// Level is the entity registry for a loaded level
type Level struct {
	Name       string
	Grid       *Grid
	Agents     []*Agent
	Items      []*Item
	Barrels    []*Barrel
	Entrances  []*Entrance
	MaxItems   int
	Priorities [4]Direction
}

// Agent returns the agent with the given ID, or nil
func (l *Level) Agent(id AgentID) *Agent {
	if id < 0 || int(id) >= len(l.Agents) {
		return nil
	}
	return l.Agents[id]
}

// Item returns the item with the given ID, or nil
func (l *Level) Item(id ItemID) *Item {
	if id < 0 || int(id) >= len(l.Items) {
		return nil
	}
	return l.Items[id]
}

// Barrel returns the barrel with the given ID, or nil
func (l *Level) Barrel(id BarrelID) *Barrel {
	if id < 0 || int(id) >= len(l.Barrels) {
		return nil
	}
	return l.Barrels[id]
}

// Entrance returns the entrance with the given ID, or nil
func (l *Level) Entrance(id EntranceID) *Entrance {
	if id < 0 || int(id) >= len(l.Entrances) {
		return nil
	}
	return l.Entrances[id]
}

// AgentByName finds an agent by its configured name
func (l *Level) AgentByName(name string) *Agent {
	for _, a := range l.Agents {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// EntranceAt returns the entrance hosted by the cell at pos, or nil
func (l *Level) EntranceAt(pos Position) *Entrance {
	c := l.Grid.At(pos)
	if c == nil {
		return nil
	}
	return l.Entrance(c.Entrance)
}

// HasPair reports whether the agent carries exactly two items of one kind
func (l *Level) HasPair(a *Agent) bool {
	if len(a.Carried) != 2 {
		return false
	}
	first, last := l.Item(a.Carried[0]), l.Item(a.Carried[1])
	return first != nil && last != nil && first.Kind == last.Kind
}

// EndsAtEntrance reports whether the agent's path terminates at an entrance
func (l *Level) EndsAtEntrance(a *Agent) bool {
	tail, ok := a.Tail()
	return ok && l.EntranceAt(tail) != nil
}

// AgentsByPriority returns agents sorted by ascending priority, ties kept in ID order
func (l *Level) AgentsByPriority() []*Agent {
	agents := make([]*Agent, len(l.Agents))
	copy(agents, l.Agents)
	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].Priority < agents[j].Priority
	})
	return agents
}

// HasAvailablePath reports whether any agent has a drawn path
func (l *Level) HasAvailablePath() bool {
	for _, a := range l.Agents {
		if len(a.Path) > 0 {
			return true
		}
	}
	return false
}

// ResetEntities restores agents, items, barrels and entrances to their
// starting state. Paths are kept.
func (l *Level) ResetEntities() {
	for _, a := range l.Agents {
		a.WorldPos = a.Home.Vec()
		a.Heading = a.StartHeading
		a.Hidden = false
		a.Retired = false
		a.Carried = nil
		a.Cursor = 0
	}
	for _, it := range l.Items {
		it.PickedUp = false
		it.Holder = noHolder
		it.WorldPos = it.Origin.Vec()
	}
	for _, b := range l.Barrels {
		b.Item = NoItem
		b.Available = true
	}
	for _, e := range l.Entrances {
		// a door that starts closed never reopens
		if e.StartState == EntranceClosed {
			continue
		}
		e.State = e.StartState
		e.Match = MatchNone
		e.ShowAgentIcon = e.Agent != NoAgent
	}
}

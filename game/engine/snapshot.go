package engine

// GameState is the render snapshot handed to presentation layers
type GameState struct {
	Level            string         `json:"level"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	Mode             LevelMode      `json:"mode"`
	FastForward      bool           `json:"fast_forward"`
	Outcome          Outcome        `json:"outcome"`
	GameOver         bool           `json:"game_over"`
	Tick             int            `json:"tick"`
	Turn             int            `json:"turn"`
	CurrentAgent     AgentID        `json:"current_agent"`
	CurrentLevel     int            `json:"current_level"`
	TotalLevels      int            `json:"total_levels"`
	HasAvailablePath bool           `json:"has_available_path"`
	MaxItems         int            `json:"max_items"`
	Cells            []CellView     `json:"cells"`
	Agents           []AgentView    `json:"agents"`
	Items            []ItemView     `json:"items"`
	Barrels          []BarrelView   `json:"barrels"`
	Entrances        []EntranceView `json:"entrances"`
}

// CellView is a cell as seen by the renderer
type CellView struct {
	X           int      `json:"x"`
	Y           int      `json:"y"`
	Kind        CellKind `json:"kind"`
	Lanes       []Lane   `json:"lanes,omitempty"`
	Highlighted bool     `json:"highlighted,omitempty"`
	Bordered    bool     `json:"bordered,omitempty"`
}

// AgentView is an agent as seen by the renderer
type AgentView struct {
	ID       AgentID    `json:"id"`
	Name     string     `json:"name"`
	Priority int        `json:"priority"`
	Home     Position   `json:"home"`
	Position Vec        `json:"position"`
	Heading  float32    `json:"heading"`
	Path     []Position `json:"path"`
	Cursor   int        `json:"cursor"`
	Carried  []ItemID   `json:"carried"`
	HasPair  bool       `json:"has_pair"`
	Hidden   bool       `json:"hidden,omitempty"`
	Retired  bool       `json:"retired,omitempty"`
}

// ItemView is an item as seen by the renderer. Order is the stacking index
// within the carrying agent's list, -1 when not carried.
type ItemView struct {
	ID       ItemID   `json:"id"`
	Kind     string   `json:"kind"`
	Origin   Position `json:"origin"`
	Position Vec      `json:"position"`
	PickedUp bool     `json:"picked_up"`
	Holder   Holder   `json:"holder"`
	Order    int      `json:"order"`
}

// BarrelView is a barrel as seen by the renderer
type BarrelView struct {
	ID   BarrelID `json:"id"`
	Pos  Position `json:"pos"`
	Item ItemID   `json:"item"`
}

// EntranceView is an ark entrance as seen by the renderer
type EntranceView struct {
	ID            EntranceID    `json:"id"`
	Pos           Position      `json:"pos"`
	State         EntranceState `json:"state"`
	Agent         AgentID       `json:"agent"`
	Match         MatchState    `json:"match,omitempty"`
	ShowAgentIcon bool          `json:"show_agent_icon"`
}

// TurnRecord captures agent positions and resolution events for one turn
type TurnRecord struct {
	Turn   int           `json:"turn"`
	Tick   int           `json:"tick"`
	Agents []AgentRecord `json:"agents"`
	Events []Event       `json:"events,omitempty"`
}

// AgentRecord is an agent's state at the end of a turn's resolution pass
type AgentRecord struct {
	Agent   AgentID  `json:"agent"`
	Name    string   `json:"name"`
	Cell    Position `json:"cell"`
	Carried []ItemID `json:"carried"`
}

func (e *GameEngine) closeTurnRecord(active []*Agent) {
	rec := e.recording
	e.recording = nil
	if rec == nil {
		return
	}
	for _, a := range active {
		carried := make([]ItemID, len(a.Carried))
		copy(carried, a.Carried)
		rec.Agents = append(rec.Agents, AgentRecord{
			Agent:   a.ID,
			Name:    a.Name,
			Cell:    a.WorldPos.Cell(),
			Carried: carried,
		})
	}
	e.turnLog = append(e.turnLog, *rec)
}

func snapshot(e *GameEngine) *GameState {
	l := e.level
	state := &GameState{
		Level:            l.Name,
		Width:            l.Grid.Width,
		Height:           l.Grid.Height,
		Mode:             e.mode,
		FastForward:      e.fastForward,
		Outcome:          e.outcome,
		GameOver:         e.gameOver,
		Tick:             e.ticks,
		Turn:             e.turns,
		CurrentAgent:     e.current,
		CurrentLevel:     e.services.Lifecycle.CurrentLevel(),
		TotalLevels:      e.services.Lifecycle.TotalLevels(),
		HasAvailablePath: l.HasAvailablePath(),
		MaxItems:         l.MaxItems,
	}

	for _, c := range l.Grid.Cells() {
		view := CellView{X: c.Pos.X, Y: c.Pos.Y, Kind: c.Kind, Highlighted: c.Highlighted, Bordered: c.Bordered}
		if c.Kind == PathCell {
			view.Lanes = []Lane{c.Lanes[BottomLane], c.Lanes[TopLane]}
		}
		state.Cells = append(state.Cells, view)
	}

	order := map[ItemID]int{}
	for _, a := range l.Agents {
		path := make([]Position, len(a.Path))
		copy(path, a.Path)
		carried := make([]ItemID, len(a.Carried))
		copy(carried, a.Carried)
		for i, id := range a.Carried {
			order[id] = i
		}
		state.Agents = append(state.Agents, AgentView{
			ID:       a.ID,
			Name:     a.Name,
			Priority: a.Priority,
			Home:     a.Home,
			Position: a.WorldPos,
			Heading:  a.Heading,
			Path:     path,
			Cursor:   a.Cursor,
			Carried:  carried,
			HasPair:  l.HasPair(a),
			Hidden:   a.Hidden,
			Retired:  a.Retired,
		})
	}

	for _, it := range l.Items {
		idx, ok := order[it.ID]
		if !ok {
			idx = -1
		}
		state.Items = append(state.Items, ItemView{
			ID:       it.ID,
			Kind:     it.Kind,
			Origin:   it.Origin,
			Position: it.WorldPos,
			PickedUp: it.PickedUp,
			Holder:   it.Holder,
			Order:    idx,
		})
	}

	for _, b := range l.Barrels {
		state.Barrels = append(state.Barrels, BarrelView{ID: b.ID, Pos: b.Pos, Item: b.Item})
	}
	for _, ent := range l.Entrances {
		state.Entrances = append(state.Entrances, EntranceView{
			ID:            ent.ID,
			Pos:           ent.Pos,
			State:         ent.State,
			Agent:         ent.Agent,
			Match:         ent.Match,
			ShowAgentIcon: ent.ShowAgentIcon,
		})
	}

	return state
}

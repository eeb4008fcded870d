package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownShape is returned when no segment shape matches the prev/next directions
var ErrUnknownShape = errors.New("unknown path shape")

// AssignLane places shape on the lane owned by agent. An Empty shape clears
// every lane the agent holds. Otherwise the agent's existing lane is updated
// in place (bottom checked first), or the first free lane is taken. When both
// lanes belong to other agents nothing changes and false is returned.
func (c *Cell) AssignLane(agent AgentID, shape PathShape) bool {
	if agent == NoAgent {
		return false
	}
	if shape == ShapeEmpty {
		c.ClearLane(agent)
		return true
	}

	for i := range c.Lanes {
		if c.Lanes[i].Owner == agent {
			c.Lanes[i].Shape = shape
			return true
		}
	}
	for i := range c.Lanes {
		if c.Lanes[i].Owner == NoAgent {
			c.Lanes[i] = Lane{Owner: agent, Shape: shape}
			return true
		}
	}
	return false
}

// ClearLane empties every lane owned by agent
func (c *Cell) ClearLane(agent AgentID) {
	for i := range c.Lanes {
		if c.Lanes[i].Owner == agent {
			c.Lanes[i] = emptyLane()
		}
	}
}

// OwnerOf returns preferred if it owns a lane, else the bottom owner, else the top owner
func (c *Cell) OwnerOf(preferred AgentID) AgentID {
	if preferred != NoAgent && c.OwnsLane(preferred) {
		return preferred
	}
	if c.Lanes[BottomLane].Owner != NoAgent {
		return c.Lanes[BottomLane].Owner
	}
	return c.Lanes[TopLane].Owner
}

// OwnsLane reports whether agent holds either lane
func (c *Cell) OwnsLane(agent AgentID) bool {
	return c.Lanes[BottomLane].Owner == agent || c.Lanes[TopLane].Owner == agent
}

// ShapeOf returns the shape of agent's lane, or Empty
func (c *Cell) ShapeOf(agent AgentID) PathShape {
	for _, l := range c.Lanes {
		if l.Owner == agent {
			return l.Shape
		}
	}
	return ShapeEmpty
}

// IsDoubleBooked reports whether both lanes carry a shape
func (c *Cell) IsDoubleBooked() bool {
	return c.Lanes[BottomLane].Shape != ShapeEmpty && c.Lanes[TopLane].Shape != ShapeEmpty
}

// IsEmpty reports whether neither lane carries a shape
func (c *Cell) IsEmpty() bool {
	return c.Lanes[BottomLane].Shape == ShapeEmpty && c.Lanes[TopLane].Shape == ShapeEmpty
}

// IsStraight reports whether agent's lane is horizontal or vertical
func (c *Cell) IsStraight(agent AgentID) bool {
	return c.ShapeOf(agent).IsStraight()
}

// IsStraightOrEmpty reports whether another agent could still cross the cell
func (c *Cell) IsStraightOrEmpty() bool {
	return c.IsEmpty() || c.Lanes[BottomLane].Shape.IsStraight() || c.Lanes[TopLane].Shape.IsStraight()
}

// InferShape returns the segment shape for a cell given the offsets to the
// previous and next cells of a path. A zero offset means there is no cell on
// that side.
func InferShape(prev, next Position) (PathShape, error) {
	up := prev == Up.Delta() || next == Up.Delta()
	down := prev == Down.Delta() || next == Down.Delta()
	left := prev == Left.Delta() || next == Left.Delta()
	right := prev == Right.Delta() || next == Right.Delta()

	switch {
	case !up && !left && down && right:
		return ShapeTopLeftCorner, nil
	case up && !left && !down && right:
		return ShapeBottomLeftCorner, nil
	case up && left && !down && !right:
		return ShapeBottomRightCorner, nil
	case !up && left && down && !right:
		return ShapeTopRightCorner, nil
	case !up && !down && (left || right):
		return ShapeHorizontal, nil
	case !left && !right && (up || down):
		return ShapeVertical, nil
	}
	return ShapeEmpty, fmt.Errorf("%w: prev %v next %v", ErrUnknownShape, prev, next)
}

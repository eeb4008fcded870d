package engine

import (
	"errors"
	"testing"
)

func TestAssignLane(t *testing.T) {
	t.Run("bottom lane first", func(t *testing.T) {
		c := newCell(Position{X: 1, Y: 1}, PathCell)
		if !c.AssignLane(0, ShapeHorizontal) {
			t.Fatal("Expected assignment to succeed")
		}
		if c.Lanes[BottomLane].Owner != 0 || c.Lanes[BottomLane].Shape != ShapeHorizontal {
			t.Errorf("Expected bottom lane owned by 0 with horizontal, got %+v", c.Lanes[BottomLane])
		}
		if c.Lanes[TopLane].Owner != NoAgent {
			t.Errorf("Expected top lane free, got owner %d", c.Lanes[TopLane].Owner)
		}
	})

	t.Run("update in place", func(t *testing.T) {
		c := newCell(Position{}, PathCell)
		c.AssignLane(0, ShapeHorizontal)
		c.AssignLane(1, ShapeVertical)
		c.AssignLane(1, ShapeCross)
		if c.Lanes[TopLane].Shape != ShapeCross {
			t.Errorf("Expected top lane updated to cross, got %v", c.Lanes[TopLane].Shape)
		}
		if c.Lanes[BottomLane].Shape != ShapeHorizontal {
			t.Errorf("Expected bottom lane untouched, got %v", c.Lanes[BottomLane].Shape)
		}
	})

	t.Run("third owner is a no-op", func(t *testing.T) {
		c := newCell(Position{}, PathCell)
		c.AssignLane(0, ShapeHorizontal)
		c.AssignLane(1, ShapeVertical)
		before := c.Lanes
		if c.AssignLane(2, ShapeVertical) {
			t.Error("Expected assignment for a third agent to fail")
		}
		if c.Lanes != before {
			t.Errorf("Expected lanes unchanged, got %+v", c.Lanes)
		}
	})

	t.Run("empty shape clears", func(t *testing.T) {
		c := newCell(Position{}, PathCell)
		c.AssignLane(0, ShapeHorizontal)
		c.AssignLane(1, ShapeVertical)
		c.AssignLane(0, ShapeEmpty)
		if c.OwnsLane(0) {
			t.Error("Expected agent 0 to no longer own a lane")
		}
		if c.ShapeOf(1) != ShapeVertical {
			t.Errorf("Expected agent 1 lane kept, got %v", c.ShapeOf(1))
		}
		// a freed bottom lane is reused first
		c.AssignLane(2, ShapeHorizontal)
		if c.Lanes[BottomLane].Owner != 2 {
			t.Errorf("Expected agent 2 on bottom lane, got %d", c.Lanes[BottomLane].Owner)
		}
	})
}

func TestDoubleBookedInvariant(t *testing.T) {
	shapes := []PathShape{ShapeEmpty, ShapeHorizontal, ShapeVertical, ShapeTopLeftCorner, ShapeCross}
	for _, bottom := range shapes {
		for _, top := range shapes {
			c := newCell(Position{}, PathCell)
			c.Lanes[BottomLane] = Lane{Owner: 0, Shape: bottom}
			c.Lanes[TopLane] = Lane{Owner: 1, Shape: top}
			want := bottom != ShapeEmpty && top != ShapeEmpty
			if c.IsDoubleBooked() != want {
				t.Errorf("Expected IsDoubleBooked %v for %v/%v, got %v", want, bottom, top, c.IsDoubleBooked())
			}
			wantEmpty := bottom == ShapeEmpty && top == ShapeEmpty
			if c.IsEmpty() != wantEmpty {
				t.Errorf("Expected IsEmpty %v for %v/%v, got %v", wantEmpty, bottom, top, c.IsEmpty())
			}
		}
	}
}

func TestOwnerOf(t *testing.T) {
	c := newCell(Position{}, PathCell)
	if c.OwnerOf(3) != NoAgent {
		t.Errorf("Expected no owner on empty cell, got %d", c.OwnerOf(3))
	}

	c.AssignLane(4, ShapeHorizontal)
	c.AssignLane(5, ShapeVertical)

	if got := c.OwnerOf(5); got != 5 {
		t.Errorf("Expected preferred owner 5, got %d", got)
	}
	if got := c.OwnerOf(9); got != 4 {
		t.Errorf("Expected bottom owner 4, got %d", got)
	}
	if got := c.OwnerOf(NoAgent); got != 4 {
		t.Errorf("Expected bottom owner 4 without preference, got %d", got)
	}

	c.ClearLane(4)
	if got := c.OwnerOf(NoAgent); got != 5 {
		t.Errorf("Expected top owner 5 once bottom is cleared, got %d", got)
	}
}

func TestIsStraightOrEmpty(t *testing.T) {
	c := newCell(Position{}, PathCell)
	if !c.IsStraightOrEmpty() {
		t.Error("Expected empty cell to be straight-or-empty")
	}
	c.AssignLane(0, ShapeTopLeftCorner)
	if c.IsStraightOrEmpty() {
		t.Error("Expected corner cell not to be straight-or-empty")
	}
	c.AssignLane(0, ShapeVertical)
	if !c.IsStraightOrEmpty() || !c.IsStraight(0) {
		t.Error("Expected vertical cell to be straight")
	}
}

func TestInferShape(t *testing.T) {
	up, down, left, right := Up.Delta(), Down.Delta(), Left.Delta(), Right.Delta()
	var none Position

	tests := []struct {
		name       string
		prev, next Position
		want       PathShape
	}{
		{"top left corner", down, right, ShapeTopLeftCorner},
		{"top left corner reversed", right, down, ShapeTopLeftCorner},
		{"bottom left corner", up, right, ShapeBottomLeftCorner},
		{"bottom right corner", left, up, ShapeBottomRightCorner},
		{"top right corner", left, down, ShapeTopRightCorner},
		{"horizontal", left, right, ShapeHorizontal},
		{"horizontal endpoint", left, none, ShapeHorizontal},
		{"vertical", up, down, ShapeVertical},
		{"vertical endpoint", down, none, ShapeVertical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InferShape(tt.prev, tt.next)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("no neighbors", func(t *testing.T) {
		got, err := InferShape(none, none)
		if !errors.Is(err, ErrUnknownShape) {
			t.Errorf("Expected ErrUnknownShape, got %v", err)
		}
		if got != ShapeEmpty {
			t.Errorf("Expected empty shape on error, got %v", got)
		}
	})
}

func TestDirections(t *testing.T) {
	for _, d := range AllDirections {
		if d.Delta().Add(d.Opposite().Delta()) != (Position{}) {
			t.Errorf("Expected %v and its opposite to cancel", d)
		}
		parsed, err := ParseDirection(d.String())
		if err != nil || parsed != d {
			t.Errorf("Expected to parse %q back to %v, got %v (%v)", d.String(), d, parsed, err)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("Expected error for unknown direction")
	}
	d, ok := DirectionBetween(Position{X: 2, Y: 2}, Position{X: 2, Y: 1})
	if !ok || d != Up {
		t.Errorf("Expected up, got %v (%v)", d, ok)
	}
	if _, ok := DirectionBetween(Position{}, Position{X: 1, Y: 1}); ok {
		t.Error("Expected diagonal step to have no direction")
	}
}

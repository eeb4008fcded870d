package engine

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// mover interpolates a world position between two points
type mover struct {
	from, to Vec
	progress *gween.Tween
}

func newMover(from, to Vec, duration float32) *mover {
	return &mover{from: from, to: to, progress: gween.New(0, 1, duration, ease.Linear)}
}

// step advances the mover by dt and reports the new position and whether it arrived
func (m *mover) step(dt float32) (Vec, bool) {
	t, finished := m.progress.Update(dt)
	pos := m.from.Lerp(m.to, t)
	if finished || pos.Distance(m.to) <= ArrivalEpsilon {
		return m.to, true
	}
	return pos, false
}

// rotator turns a heading toward a target angle along the shortest arc
type rotator struct {
	target float32
	tween  *gween.Tween
}

func newRotator(from, to, duration float32) *rotator {
	delta := normalizeAngle(to - from)
	return &rotator{target: from + delta, tween: gween.New(from, from+delta, duration, ease.OutQuad)}
}

func (r *rotator) step(dt float32) (float32, bool) {
	heading, finished := r.tween.Update(dt)
	if finished || float32(math.Abs(float64(r.target-heading))) <= ArrivalEpsilon {
		return normalizeAngle(r.target), true
	}
	return heading, false
}

// timer completes after a fixed duration
type timer struct {
	tween *gween.Tween
}

func newTimer(duration float32) *timer {
	return &timer{tween: gween.New(0, 1, duration, ease.Linear)}
}

func (t *timer) step(dt float32) bool {
	_, finished := t.tween.Update(dt)
	return finished
}

// headingTowards returns the angle in degrees of the vector from -> to
func headingTowards(from, to Vec) float32 {
	return float32(math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X)) * 180 / math.Pi)
}

// normalizeAngle maps a into (-180, 180]
func normalizeAngle(a float32) float32 {
	for a > 180 {
		a -= 360
	}
	for a <= -180 {
		a += 360
	}
	return a
}

// walk is an agent stepping onto its next path cell
type walk struct {
	agent  AgentID
	mover  *mover
	turn   *rotator
	facing float32
}

// transit is an item travelling to an agent or a barrel
type transit struct {
	item  ItemID
	agent AgentID
	mover *mover
}

// doorClose delays closing an entrance after its agent entered
type doorClose struct {
	agent    AgentID
	entrance EntranceID
	timer    *timer
}

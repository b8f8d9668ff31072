// Package action implements component E: applies an AntOutput to ant
// state — turning, movement with wall-collision recovery, pheromone
// deposits, food pickup/delivery, and attack-intent bookkeeping.
package action

import (
	"math"

	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/grid"
	"github.com/Obeeron/pherowar/internal/pheromone"
)

const (
	// MaxTurnAngle bounds how far an ant may turn in a single think tick.
	MaxTurnAngle = math.Pi / 4
	// Speed is how many cells per second an ant travels at full speed.
	Speed = 4.0
	// SlownessWithFood scales Speed while carrying food.
	SlownessWithFood = 0.9
	// MaxLongevity is the longevity an ant is restored to on pickup/delivery.
	MaxLongevity = 300.0
)

func normalizeAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Resolver applies AntOutput values against the shared grid, pheromone
// field, and ant spatial index.
type Resolver struct {
	Map   *grid.Map
	Field *pheromone.Field
	Pool  *ant.Pool
}

// Result reports side effects of Apply that other components must react to.
type Result struct {
	// Delivered is true when this tick's action dropped carried food at the
	// ant's own nest; the Colony Manager increments its food stock in
	// response.
	Delivered bool
}

// Apply turns, (attempts to) move, deposits pheromones, and resolves food
// pickup/delivery for a single ant's think-tick output.
func (r *Resolver) Apply(id ant.ID, a *ant.Ant, out *abi.AntOutput, dt float32) Result {
	turn := clamp(out.TurnAngle, -MaxTurnAngle, MaxTurnAngle)
	newOrientation := normalizeAngle(a.Orientation + turn)

	beforeX, beforeY := a.Cell()

	if !a.IsFighting() {
		a.Orientation = newOrientation
		r.move(a, dt)
		r.Pool.SyncCell(id)
	}

	for ch := 0; ch < abi.PheromoneChannelCount; ch++ {
		amount := clamp(out.PheromoneAmounts[ch], 0, pheromone.MaxAmount)
		if amount > 0 {
			cx, cy := a.Cell()
			r.Field.Deposit(a.ColonyID, cx, cy, ch, amount)
		}
	}

	delivered := r.resolveFood(a)
	r.forceThinkOnEntry(a, beforeX, beforeY)

	a.PendingAttack = out.TryAttack

	return Result{Delivered: delivered}
}

// forceThinkOnEntry forces the ant's think timer ready the moment it steps
// onto a Food or Nest cell it wasn't already standing on, matching the
// original's check_food/check_colony -> think_timer.force_ready() behavior
// instead of waiting out the rest of the regular think interval.
func (r *Resolver) forceThinkOnEntry(a *ant.Ant, prevX, prevY int) {
	cx, cy := a.Cell()
	if cx == prevX && cy == prevY {
		return
	}
	cell, ok := r.Map.CellAt(cx, cy)
	if !ok {
		return
	}
	if cell.Kind == grid.Food || cell.Kind == grid.Nest {
		a.ThinkTimer = 0
	}
}

// move steps the ant forward by Speed*dt along its orientation. A step that
// would enter a Wall cell is rejected; per SPEC_FULL.md §6.1 the ant instead
// rotates 45 degrees toward whichever side is open (or 180 degrees if both
// are blocked), matching the original implementation's collision recovery
// rather than a bare reject-and-stay.
func (r *Resolver) move(a *ant.Ant, dt float32) {
	speed := float32(Speed)
	if a.IsCarryingFood {
		speed *= SlownessWithFood
	}
	dx := float32(math.Cos(float64(a.Orientation))) * speed * dt
	dy := float32(math.Sin(float64(a.Orientation))) * speed * dt
	if isNaN(dx) || isNaN(dy) {
		return
	}

	nx, ny := a.X+dx, a.Y+dy
	if r.passable(nx, ny) {
		a.X, a.Y = nx, ny
		return
	}

	// A blocked step only rotates the ant toward whichever side is open (or
	// 180 degrees if both are blocked); it never also translates this tick,
	// matching the original's update_position, which keeps the ant in place
	// on a blocked step rather than sliding it along the new heading.
	for _, delta := range []float32{math.Pi / 4, -math.Pi / 4} {
		alt := normalizeAngle(a.Orientation + delta)
		ax := float32(math.Cos(float64(alt))) * speed * dt
		ay := float32(math.Sin(float64(alt))) * speed * dt
		if r.passable(a.X+ax, a.Y+ay) {
			a.Orientation = alt
			return
		}
	}

	a.Orientation = normalizeAngle(a.Orientation + math.Pi)
}

func (r *Resolver) passable(x, y float32) bool {
	cell, ok := r.Map.CellAt(int(math.Floor(float64(x))), int(math.Floor(float64(y))))
	return ok && grid.IsPassable(cell.Kind)
}

func isNaN(v float32) bool { return v != v }

// resolveFood handles pickup (on Food cell, not carrying) and delivery (on
// own Nest cell, carrying), restoring longevity to MaxLongevity on either
// transition.
func (r *Resolver) resolveFood(a *ant.Ant) bool {
	cx, cy := a.Cell()
	cell, ok := r.Map.CellAt(cx, cy)
	if !ok {
		return false
	}

	if cell.Kind == grid.Food && !a.IsCarryingFood && cell.FoodLeft > 0 {
		taken := r.Map.ConsumeFood(cx, cy, 1)
		if taken > 0 {
			a.IsCarryingFood = true
			a.Longevity = MaxLongevity
		}
	}

	if cell.Kind == grid.Nest && cell.NestOwner == a.ColonyID && a.IsCarryingFood {
		a.IsCarryingFood = false
		a.Longevity = MaxLongevity
		return true
	}
	return false
}

// Package sensing implements component D: builds the AntInput handed to a
// colony's AI, including forward-arc occluded ray queries and the direct
// (non-arc-restricted) colony sense.
package sensing

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/grid"
	"github.com/Obeeron/pherowar/internal/pheromone"
)

const (
	// MaxAngle is the half-width of the forward sensing cone (each side).
	MaxAngle = math.Pi / 4
	// MaxDistance is the longest range any arc or direct sense reports.
	MaxDistance = 10.0
	// NumSamples is how many random (angle, distance) rays are cast per
	// sensing call. The arc-sampling geometry is not fixed-ray in this
	// engine: it mirrors the original's per-tick Monte Carlo sampling
	// rather than a small fixed ray count, see SPEC_FULL.md §6.2.
	NumSamples = 32
	// antLength is the range within which a same-cell-range enemy is
	// reported, matching the original's melee contact radius.
	antLength = 1.0
)

// Perception bundles the AntInput with engine-internal bookkeeping the
// AI protocol has no room for: the nearest attackable enemy, used by the
// combat engagement phase to resolve a same-tick try_attack into a fight.
type Perception struct {
	Input        abi.AntInput
	AttackTarget ant.ID
}

// Sensor builds per-ant perception snapshots against a fixed tick-start
// view of the grid, pheromone field, and ant pool.
type Sensor struct {
	Map   *grid.Map
	Field *pheromone.Field
	Pool  *ant.Pool
}

func normalizeAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Build computes the AntInput for a, using rng for the arc's random sample
// placement (seeded per colony so a fixed simulation seed reproduces
// identical sensing results).
func (s *Sensor) Build(self ant.ID, a *ant.Ant, rng *rand.Rand) Perception {
	cx, cy := a.Cell()
	cell, _ := s.Map.CellAt(cx, cy)

	in := abi.AntInput{
		IsCarryingFood: a.IsCarryingFood,
		IsOnColony:     cell.Kind == grid.Nest && cell.NestOwner == a.ColonyID,
		IsOnFood:       cell.Kind == grid.Food && cell.FoodLeft > 0,
		Longevity:      a.Longevity,
		IsFighting:     a.IsFighting(),
	}
	in.CellSense = s.Field.SampleCell(a.ColonyID, cx, cy)
	in.WallSense = [2]float32{0, -1}
	in.FoodSense = [2]float32{0, -1}
	in.ColonySense = [2]float32{0, -1}
	in.EnemySense = [2]float32{0, -1}

	perception := Perception{Input: in}

	// Same-cell enemy takes priority over arc sampling, per spec.
	for _, other := range s.Pool.AntsInCell(cx, cy) {
		if other == self {
			continue
		}
		oa := s.Pool.Get(other)
		if oa == nil || oa.ColonyID == a.ColonyID {
			continue
		}
		perception.Input.EnemySense = [2]float32{0, 0}
		perception.AttackTarget = other
		break
	}

	// Direct colony sense: not arc-restricted, but still wall-occluded.
	if bearing, dist, ok := s.nearestNest(a); ok {
		perception.Input.ColonySense = [2]float32{bearing, dist}
	}

	s.sampleArc(self, a, rng, &perception)

	return perception
}

// nearestNest finds the closest own-nest cell within MaxDistance with clear
// line of sight, breaking ties by smallest absolute bearing then by
// coordinate order for determinism.
func (s *Sensor) nearestNest(a *ant.Ant) (bearing, dist float32, ok bool) {
	nests := s.Map.NestsOf(a.ColonyID)
	sort.Slice(nests, func(i, j int) bool {
		if nests[i].X != nests[j].X {
			return nests[i].X < nests[j].X
		}
		return nests[i].Y < nests[j].Y
	})
	bestDist := float32(MaxDistance + 1)
	bestBearing := float32(0)
	found := false
	for _, n := range nests {
		dx := float32(n.X) + 0.5 - a.X
		dy := float32(n.Y) + 0.5 - a.Y
		d := float32(math.Hypot(float64(dx), float64(dy)))
		if d > MaxDistance {
			continue
		}
		if s.occluded(a.X, a.Y, float32(n.X)+0.5, float32(n.Y)+0.5) {
			continue
		}
		bear := normalizeAngle(float32(math.Atan2(float64(dy), float64(dx))) - a.Orientation)
		if !found ||
			d < bestDist-1e-6 ||
			(math.Abs(float64(d-bestDist)) <= 1e-6 && math.Abs(float64(bear)) < math.Abs(float64(bestBearing))) {
			found = true
			bestDist = d
			bestBearing = bear
		}
	}
	return bestBearing, bestDist, found
}

// occluded walks a straight line from (x0,y0) to (x1,y1) in small steps and
// reports whether a Wall cell blocks the path before reaching the target.
func (s *Sensor) occluded(x0, y0, x1, y1 float32) bool {
	steps := int(math.Hypot(float64(x1-x0), float64(y1-y0))*4) + 1
	for i := 1; i < steps; i++ {
		t := float32(i) / float32(steps)
		x := x0 + (x1-x0)*t
		y := y0 + (y1-y0)*t
		cell, ok := s.Map.CellAt(int(math.Floor(float64(x))), int(math.Floor(float64(y))))
		if ok && cell.Kind == grid.Wall {
			return true
		}
	}
	return false
}

// sampleArc draws NumSamples random (angle, distance) pairs within the
// forward cone and updates wall/food/enemy/pheromone senses from whichever
// samples land closest and unoccluded, mirroring the original's Monte Carlo
// perception rather than a fixed ray grid.
func (s *Sensor) sampleArc(self ant.ID, a *ant.Ant, rng *rand.Rand, p *Perception) {
	origin := r2.Vec{X: float64(a.X), Y: float64(a.Y)}

	bestWallDist := float32(MaxDistance + 1)
	bestFoodDist := float32(MaxDistance + 1)
	bestFoodBearing := float32(0)
	bestWallBearing := float32(0)
	havePendingEnemy := !p.AttackTarget.IsZero()
	bestEnemyDist := float32(MaxDistance + 1)
	bestEnemyBearing := float32(0)
	bestPheromone := [abi.PheromoneChannelCount]float32{}
	bestPheroBearing := [abi.PheromoneChannelCount]float32{}
	havePhero := [abi.PheromoneChannelCount]bool{}

	for i := 0; i < NumSamples; i++ {
		angle := (rng.Float32()*2 - 1) * MaxAngle
		dist := 1.0 + rng.Float32()*(MaxDistance-1.0)
		worldAngle := a.Orientation + angle

		dir := r2.Vec{X: math.Cos(float64(worldAngle)), Y: math.Sin(float64(worldAngle))}
		// Walk toward the sample point in quarter-cell steps; the first Wall
		// cell on the way ends the ray there, so nothing past it is read.
		for k, n := 1, int(dist*4)+1; k < n; k++ {
			step := dist * float32(k) / float32(n)
			pt := r2.Add(origin, r2.Scale(float64(step), dir))
			if c, ok := s.Map.CellAt(int(math.Floor(pt.X)), int(math.Floor(pt.Y))); ok && c.Kind == grid.Wall {
				dist = step
				break
			}
		}
		target := r2.Add(origin, r2.Scale(float64(dist), dir))

		sx := int(math.Floor(target.X))
		sy := int(math.Floor(target.Y))
		cell, ok := s.Map.CellAt(sx, sy)
		if !ok {
			continue
		}

		if cell.Kind == grid.Wall {
			if dist < bestWallDist {
				bestWallDist = dist
				bestWallBearing = angle
			}
			continue // occluded sample: no pheromone/food/enemy read past a wall
		}

		// Pheromones: strongest raw value wins, independent of distance.
		cellPhero := s.Field.SampleCell(a.ColonyID, sx, sy)
		for ch := 0; ch < abi.PheromoneChannelCount; ch++ {
			if !havePhero[ch] || cellPhero[ch] > bestPheromone[ch] {
				havePhero[ch] = true
				bestPheromone[ch] = cellPhero[ch]
				bestPheroBearing[ch] = angle
			}
		}

		if cell.Kind == grid.Food && cell.FoodLeft > 0 && dist < bestFoodDist {
			bestFoodDist = dist
			bestFoodBearing = angle
		}

		if !havePendingEnemy {
			for _, other := range s.Pool.AntsInCell(sx, sy) {
				if other == self {
					continue
				}
				oa := s.Pool.Get(other)
				if oa == nil || oa.ColonyID == a.ColonyID {
					continue
				}
				if dist < bestEnemyDist {
					bestEnemyDist = dist
					bestEnemyBearing = angle
					if dist <= antLength {
						p.AttackTarget = other
					}
				}
			}
		}
	}

	if bestWallDist <= MaxDistance {
		p.Input.WallSense = [2]float32{bestWallBearing, bestWallDist}
	}
	if bestFoodDist <= MaxDistance {
		p.Input.FoodSense = [2]float32{bestFoodBearing, bestFoodDist}
	}
	if !havePendingEnemy && bestEnemyDist <= MaxDistance {
		p.Input.EnemySense = [2]float32{bestEnemyBearing, bestEnemyDist}
	}
	for ch := 0; ch < abi.PheromoneChannelCount; ch++ {
		if havePhero[ch] {
			p.Input.PheromoneSense[ch] = [2]float32{bestPheroBearing[ch], bestPheromone[ch]}
		}
	}
}

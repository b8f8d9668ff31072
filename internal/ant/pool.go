// Package ant implements component C: storage and lifecycle of ants with
// stable identities, backed by an ECS world so the pool can scale to a
// large, dense population without per-ant heap churn.
package ant

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/Obeeron/pherowar/internal/abi"
)

// ID is a stable ant identity. It wraps the underlying ECS entity handle so
// the rest of the engine never has to import the ecs package directly.
type ID struct{ entity ecs.Entity }

// IsZero reports whether id is the zero value (no ant).
func (id ID) IsZero() bool { return id.entity == ecs.Entity{} }

// Ant is the full per-ant simulation state, stored as a single aggregate ECS
// component rather than fragmented across many components: everything here
// changes together on every think/action tick, so splitting it would only
// add indirection without buying parallel-system independence.
type Ant struct {
	ColonyID       int32
	X, Y           float32
	Orientation    float32
	Longevity      float32
	IsCarryingFood bool
	Memory         [abi.MemorySize]byte
	ThinkTimer     float32

	// FightList holds the ants currently engaged with this one, head first.
	FightList []ID
	// PendingAttack carries try_attack from the previous think tick into
	// this tick's combat engagement phase.
	PendingAttack bool
}

// IsFighting reports whether this ant is currently engaged in combat.
func (a *Ant) IsFighting() bool { return len(a.FightList) > 0 }

// Cell returns the ant's current cell coordinate (position truncated).
func (a *Ant) Cell() (int, int) {
	return int(math.Floor(float64(a.X))), int(math.Floor(float64(a.Y)))
}

// cellCoord is a spatial-index key, matching the grid's integer coordinates.
type cellCoord struct{ x, y int }

// Pool owns the live ant population for the whole simulation. Alongside the
// ECS storage it keeps a cell-bucketed spatial index (grounded on the
// original's per-cell `ants_in_cell` grid) so same-cell and near-cell
// queries used by sensing and combat don't require scanning every ant.
type Pool struct {
	world  *ecs.World
	mapper ecs.Map1[Ant]

	cellIndex map[cellCoord][]ID
	antCell   map[ID]cellCoord
}

// NewPool creates an empty ant pool.
func NewPool() *Pool {
	world := ecs.NewWorld()
	return &Pool{
		world:     world,
		mapper:    *ecs.NewMap1[Ant](world),
		cellIndex: make(map[cellCoord][]ID),
		antCell:   make(map[ID]cellCoord),
	}
}

func (p *Pool) indexInsert(id ID, c cellCoord) {
	p.cellIndex[c] = append(p.cellIndex[c], id)
	p.antCell[id] = c
}

func (p *Pool) indexRemove(id ID) {
	c, ok := p.antCell[id]
	if !ok {
		return
	}
	bucket := p.cellIndex[c]
	for i, v := range bucket {
		if v == id {
			bucket[i] = bucket[len(bucket)-1]
			p.cellIndex[c] = bucket[:len(bucket)-1]
			break
		}
	}
	delete(p.antCell, id)
}

// SyncCell refreshes id's spatial bucket after its position changed. The
// Action Resolver calls this once per moved ant per tick; it is a no-op
// when the ant hasn't crossed a cell boundary.
func (p *Pool) SyncCell(id ID) {
	a := p.Get(id)
	if a == nil {
		return
	}
	x, y := a.Cell()
	cur := cellCoord{x, y}
	if p.antCell[id] == cur {
		return
	}
	p.indexRemove(id)
	p.indexInsert(id, cur)
}

// AntsInCell returns every live ant currently indexed at (x, y).
func (p *Pool) AntsInCell(x, y int) []ID {
	return p.cellIndex[cellCoord{x, y}]
}

// Spawn creates a new ant at (x, y) for colonyID with full longevity, a
// random orientation/think-timer phase drawn from rng, and zeroed memory.
func (p *Pool) Spawn(rng func() float32, colonyID int32, x, y float32, maxLongevity, thinkInterval float32) ID {
	a := Ant{
		ColonyID:    colonyID,
		X:           x,
		Y:           y,
		Orientation: rng() * 2 * math.Pi,
		Longevity:   maxLongevity,
		// Random initial think-timer phase so a freshly spawned population
		// doesn't all think on the same tick.
		ThinkTimer: rng() * thinkInterval,
	}
	e := p.mapper.NewEntity(&a)
	id := ID{entity: e}
	p.indexInsert(id, cellCoord{int(math.Floor(float64(x))), int(math.Floor(float64(y)))})
	return id
}

// Get returns the mutable ant state for id, or nil if id is dead.
func (p *Pool) Get(id ID) *Ant {
	if !p.world.Alive(id.entity) {
		return nil
	}
	return p.mapper.Get(id.entity)
}

// Alive reports whether id still refers to a live ant.
func (p *Pool) Alive(id ID) bool {
	return p.world.Alive(id.entity)
}

// Remove destroys an ant, invalidating its ID.
func (p *Pool) Remove(id ID) {
	if p.world.Alive(id.entity) {
		p.world.RemoveEntity(id.entity)
	}
	p.indexRemove(id)
}

// Len returns the number of live ants across all colonies.
func (p *Pool) Len() int {
	n := 0
	filter := ecs.NewFilter1[Ant](p.world)
	query := filter.Query()
	for query.Next() {
		n++
	}
	return n
}

// ForEach calls fn for every live ant. fn must not spawn or remove ants
// while iterating.
func (p *Pool) ForEach(fn func(id ID, a *Ant)) {
	filter := ecs.NewFilter1[Ant](p.world)
	query := filter.Query()
	for query.Next() {
		a := query.Get()
		fn(ID{entity: query.Entity()}, a)
	}
}

// ForEachInColony calls fn for every live ant owned by colonyID.
func (p *Pool) ForEachInColony(colonyID int32, fn func(id ID, a *Ant)) {
	filter := ecs.NewFilter1[Ant](p.world)
	query := filter.Query()
	for query.Next() {
		a := query.Get()
		if a.ColonyID == colonyID {
			fn(ID{entity: query.Entity()}, a)
		}
	}
}

// CountInColony returns the number of live ants owned by colonyID.
func (p *Pool) CountInColony(colonyID int32) int {
	n := 0
	p.ForEachInColony(colonyID, func(ID, *Ant) { n++ })
	return n
}

// RemoveColony destroys every ant owned by colonyID.
func (p *Pool) RemoveColony(colonyID int32) {
	var toRemove []ID
	p.ForEachInColony(colonyID, func(id ID, _ *Ant) {
		toRemove = append(toRemove, id)
	})
	for _, id := range toRemove {
		p.Remove(id)
	}
}

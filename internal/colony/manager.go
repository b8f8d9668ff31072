package colony

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/grid"
	"github.com/Obeeron/pherowar/internal/pheromone"
	"github.com/Obeeron/pherowar/internal/pwlog"
)

// Manager owns every colony's lifecycle, id allocation, spawning cadence,
// food accounting, and victory detection.
type Manager struct {
	Map   *grid.Map
	Field *pheromone.Field
	Pool  *ant.Pool

	colonies map[int32]*Colony
	rngs     map[int32]*rand.Rand
	nestIdx  map[int32]int

	evaluateMode bool
}

// NewManager creates an empty colony manager over the given shared state.
func NewManager(m *grid.Map, f *pheromone.Field, p *ant.Pool, evaluateMode bool) *Manager {
	return &Manager{
		Map:          m,
		Field:        f,
		Pool:         p,
		colonies:     make(map[int32]*Colony),
		rngs:         make(map[int32]*rand.Rand),
		nestIdx:      make(map[int32]int),
		evaluateMode: evaluateMode,
	}
}

// nextID returns the lowest nonnegative integer not currently in use,
// matching the original's linear scan allocator.
func (m *Manager) nextID() (int32, error) {
	for i := int32(0); i < MaxColonies; i++ {
		if _, taken := m.colonies[i]; !taken {
			return i, nil
		}
	}
	return 0, fmt.Errorf("colony: max colonies (%d) reached", MaxColonies)
}

// Spawn registers a new colony at a placeholder/nest position already
// claimed on the map, seeds its pheromone layer, and spawns its initial
// population. seed derives the colony's private RNG stream so arc sensing
// and spawn placement reproduce deterministically for a fixed simulation
// seed.
func (m *Manager) Spawn(x, y int, decayRates [8]float32, initialPopulation int, seed int64) (*Colony, error) {
	id, err := m.nextID()
	if err != nil {
		return nil, err
	}

	m.Map.RemovePlaceholderColony(x, y)
	m.Map.PlaceColonyAt(x, y, id)

	c := &Colony{ID: id, DecayRates: decayRates, Alive: true}
	m.colonies[id] = c
	m.rngs[id] = rand.New(rand.NewSource(seed))
	m.nestIdx[id] = 0

	var decayArr [8]float32 = decayRates
	m.Field.AddLayer(id, decayArr)

	rng := m.rngs[id]
	for i := 0; i < initialPopulation; i++ {
		nx, ny := m.roundRobinNest(id)
		m.Pool.Spawn(rng.Float32, id, float32(nx)+0.5, float32(ny)+0.5, 300.0, 0.375)
	}

	pwlog.Log.WithFields(logrus.Fields{"colony_id": id, "population": initialPopulation}).Info("colony: spawned")
	return c, nil
}

// roundRobinNest cycles through a colony's nest cells deterministically.
func (m *Manager) roundRobinNest(id int32) (int, int) {
	nests := m.Map.NestsOf(id)
	sort.Slice(nests, func(i, j int) bool {
		if nests[i].X != nests[j].X {
			return nests[i].X < nests[j].X
		}
		return nests[i].Y < nests[j].Y
	})
	if len(nests) == 0 {
		return 0, 0
	}
	idx := m.nestIdx[id] % len(nests)
	m.nestIdx[id]++
	return nests[idx].X, nests[idx].Y
}

// RNG returns a colony's private deterministic random stream.
func (m *Manager) RNG(id int32) *rand.Rand {
	r, ok := m.rngs[id]
	if !ok {
		r = rand.New(rand.NewSource(0))
		m.rngs[id] = r
	}
	return r
}

// Get returns a colony by id, or nil.
func (m *Manager) Get(id int32) *Colony { return m.colonies[id] }

// All returns every registered colony.
func (m *Manager) All() map[int32]*Colony { return m.colonies }

// Remove fully removes a colony: clears its pheromone layer, removes every
// ant it owns, and clears its nest terrain, leaving no dangling references.
func (m *Manager) Remove(id int32) {
	m.Pool.RemoveColony(id)
	m.Field.RemoveLayer(id)
	m.Map.RemoveColonyTerrain(id)
	delete(m.colonies, id)
	delete(m.rngs, id)
	delete(m.nestIdx, id)
	pwlog.Log.WithFields(logrus.Fields{"colony_id": id}).Info("colony: removed")
}

// AdvanceSpawning runs the spawn cadence for every alive colony: every
// SpawnInterval seconds, while affordable, decrement stock and spawn one
// ant — a while loop, not a single attempt, so accumulated time/food can
// produce multiple spawns in one tick exactly as the original does.
func (m *Manager) AdvanceSpawning(dt float32) {
	for id, c := range m.colonies {
		if !c.Alive {
			continue
		}
		c.SpawnTimer += dt
		for c.SpawnTimer >= SpawnInterval && c.TryConsumeSpawnCost() {
			c.SpawnTimer -= SpawnInterval
			nx, ny := m.roundRobinNest(id)
			rng := m.RNG(id)
			m.Pool.Spawn(rng.Float32, id, float32(nx)+0.5, float32(ny)+0.5, 300.0, 0.375)
		}
		if c.SpawnTimer < SpawnInterval {
			// The timer was consumed below one interval. When the loop
			// stopped for lack of food instead, the timer stays accumulated
			// so a later deposit can resume spawning without losing the
			// elapsed time.
			continue
		}
	}
}

// Winner reports the single colony with a registered player that is still in
// contention, if exactly one such colony remains. A colony stays in
// contention while it has any living ants, or any viable spawning
// capability (food stock enough to spawn at least once even with zero ants
// left), since either can still recover; only a colony with neither is truly
// eliminated. In evaluate mode the scheduler uses this to exit on the first
// winner.
func (m *Manager) Winner() (int32, bool) {
	var candidates []int32
	for id, c := range m.colonies {
		if !c.Alive || c.Player == nil {
			continue
		}
		if m.Pool.CountInColony(id) > 0 || c.FoodStock >= SpawnFoodCost {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}
	return 0, false
}

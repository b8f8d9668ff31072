// Package scheduler implements component H: the fixed-dt tick loop that
// drives decay, think, action, combat, spawn, reap, and victory sub-phases
// in order, every simulation tick.
package scheduler

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/action"
	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/colony"
	"github.com/Obeeron/pherowar/internal/combat"
	"github.com/Obeeron/pherowar/internal/grid"
	"github.com/Obeeron/pherowar/internal/pheromone"
	"github.com/Obeeron/pherowar/internal/playerhost"
	"github.com/Obeeron/pherowar/internal/pwlog"
	"github.com/Obeeron/pherowar/internal/sensing"
	"github.com/Obeeron/pherowar/internal/simerr"
)

// ThinkInterval is the wall-clock period between an ant's think ticks.
const ThinkInterval = 0.375

// Scheduler owns every component and drives one tick at a time. No world
// state is ever mutated by more than one goroutine concurrently: the think
// phase's only concurrent step is the Player Host round trip itself, which
// touches nothing but that colony's own worker connection.
type Scheduler struct {
	Map      *grid.Map
	Field    *pheromone.Field
	Pool     *ant.Pool
	Colonies *colony.Manager
	Sensor   *sensing.Sensor
	Actions  *action.Resolver
	Combat   *combat.Resolver

	// Workers holds the live sandboxed AI process per colony. A missing or
	// nil entry is treated as an AI-less colony: ants still think, but every
	// output is the neutral zero-value AntOutput.
	Workers map[int32]*playerhost.Worker

	// lastEnemy records, per ant, the most recently sensed attackable enemy
	// still worth engaging; populated after every think call and consumed by
	// the combat engagement phase on ticks where the ant didn't re-sense.
	lastEnemy map[ant.ID]ant.ID

	// EvaluateMode stops the loop as soon as Colonies.Winner() reports a
	// single survivor, instead of running until externally halted.
	EvaluateMode bool

	TickCount uint64
}

// New creates a scheduler wired to already-constructed component instances.
func New(m *grid.Map, f *pheromone.Field, p *ant.Pool, colonies *colony.Manager, evaluateMode bool) *Scheduler {
	return &Scheduler{
		Map:          m,
		Field:        f,
		Pool:         p,
		Colonies:     colonies,
		Sensor:       &sensing.Sensor{Map: m, Field: f, Pool: p},
		Actions:      &action.Resolver{Map: m, Field: f, Pool: p},
		Combat:       &combat.Resolver{Pool: p, Map: m},
		Workers:      make(map[int32]*playerhost.Worker),
		lastEnemy:    make(map[ant.ID]ant.ID),
		EvaluateMode: evaluateMode,
	}
}

// Paused reports whether the scheduler must stay paused because an
// unresolved colony placeholder remains on the map, mirroring the original's
// refusal to run with an unbound player slot.
func (s *Scheduler) Paused() bool {
	return s.Map.HasPendingPlaceholders()
}

type thinkJob struct {
	id         ant.ID
	colonyID   int32
	perception sensing.Perception
	output     *abi.AntOutput
	memory     [abi.MemorySize]byte
	err        error
}

// Tick advances the simulation by dt seconds through every sub-phase in
// order: decay, think, action, combat, spawn, reap, victory. Returns the
// winning colony id and true if the simulation has concluded.
func (s *Scheduler) Tick(dt float32) (int32, bool) {
	if s.Paused() {
		return 0, false
	}

	s.Field.AdvanceDecay(float64(dt))
	jobs := s.gatherThinkJobs(dt)
	s.dispatch(jobs)
	s.applyThink(jobs, dt)

	s.Combat.Engage(s.lastEnemy)
	combatDead := s.Combat.Resolve()
	for _, id := range combatDead {
		delete(s.lastEnemy, id)
		s.Pool.Remove(id)
	}

	s.Colonies.AdvanceSpawning(dt)

	// reap only now, so an ant combat already killed this tick (and already
	// removed) is never decremented or double-counted for its food drop.
	for _, id := range s.reap(dt) {
		delete(s.lastEnemy, id)
		s.Pool.Remove(id)
	}

	s.TickCount++

	if s.EvaluateMode {
		if winner, ok := s.Colonies.Winner(); ok {
			return winner, true
		}
	}
	return 0, false
}

// gatherThinkJobs advances every ant's think_timer by dt and builds a
// Perception snapshot (against the tick-start state) for any ant now due.
func (s *Scheduler) gatherThinkJobs(dt float32) []*thinkJob {
	var jobs []*thinkJob
	s.Pool.ForEach(func(id ant.ID, a *ant.Ant) {
		a.ThinkTimer -= dt
		if a.ThinkTimer > 0 {
			return
		}
		rng := s.Colonies.RNG(a.ColonyID)
		perception := s.Sensor.Build(id, a, rng)
		jobs = append(jobs, &thinkJob{id: id, colonyID: a.ColonyID, perception: perception})
	})
	return jobs
}

// dispatch round-trips every due ant's think request to its colony's
// worker. Different colonies run concurrently; within a colony, calls
// serialize on the worker's own lock, matching the single-threaded-per-
// colony requirement without any extra bookkeeping here.
func (s *Scheduler) dispatch(jobs []*thinkJob) {
	var wg sync.WaitGroup
	for _, j := range jobs {
		j := j
		a := s.Pool.Get(j.id)
		if a == nil {
			j.err = simerr.ErrInvariantViolation
			continue
		}
		worker := s.Workers[j.colonyID]
		if worker == nil {
			// No worker registered at all (e.g. an unoccupied colony slot):
			// treated identically to a crashed AI, so applyThink's single
			// neutral-output path covers both and memory is left untouched.
			j.err = simerr.ErrWorkerCrashed
			continue
		}
		memory := a.Memory
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, mem, err := worker.Update(&j.perception.Input, memory)
			j.output, j.memory, j.err = out, mem, err
		}()
	}
	wg.Wait()
}

// applyThink consumes every job's result: a clean output is applied through
// the Action Resolver and credited to the colony's food stock on delivery; a
// crashed/AI-less worker gets a neutral (zero-value) output instead of being
// dropped; a timeout drops the tick silently, leaving the ant's state and
// memory untouched, per the worker-timeout policy.
func (s *Scheduler) applyThink(jobs []*thinkJob, dt float32) {
	for _, j := range jobs {
		a := s.Pool.Get(j.id)
		if a == nil {
			continue
		}

		if j.err != nil {
			if errors.Is(j.err, simerr.ErrWorkerCrashed) {
				j.output = &abi.AntOutput{}
			} else {
				a.ThinkTimer += ThinkInterval
				pwlog.Log.WithFields(logrus.Fields{"colony_id": j.colonyID, "err": j.err}).Debug("scheduler: think tick dropped")
				continue
			}
		} else {
			a.Memory = j.memory
		}

		if j.output == nil {
			j.output = &abi.AntOutput{}
		}
		j.output.SanitizeOutput(1e6)

		// The interval is added before Apply so that Apply's forced think on
		// entering a Food or Nest cell (timer set to zero) is not overwritten.
		a.ThinkTimer += ThinkInterval
		result := s.Actions.Apply(j.id, a, j.output, dt)
		if result.Delivered {
			if c := s.Colonies.Get(j.colonyID); c != nil {
				c.DeliverFood()
			}
		}
		if perception := j.perception; !perception.AttackTarget.IsZero() {
			s.lastEnemy[j.id] = perception.AttackTarget
		}
	}
}

// reap decrements longevity by dt for every live ant and collects the ids of
// those that die from old age this tick, dropping any carried food onto
// their current cell.
func (s *Scheduler) reap(dt float32) []ant.ID {
	var dead []ant.ID
	s.Pool.ForEach(func(id ant.ID, a *ant.Ant) {
		a.Longevity -= dt
		if a.Longevity <= 0 {
			dead = append(dead, id)
			if a.IsCarryingFood {
				cx, cy := a.Cell()
				s.Map.DropFood(cx, cy)
			}
		}
	})
	return dead
}

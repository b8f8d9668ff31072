package colony

import (
	"testing"

	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/grid"
	"github.com/Obeeron/pherowar/internal/pheromone"
)

func newFixture(w, h int) (*Manager, *grid.Map) {
	m := grid.New(w, h)
	f := pheromone.NewField(w, h)
	p := ant.NewPool()
	return NewManager(m, f, p, false), m
}

func TestSpawnAllocatesLowestFreeID(t *testing.T) {
	mgr, m := newFixture(5, 5)
	m.PlaceNestPlaceholder(0, 0)
	m.PlaceNestPlaceholder(4, 4)

	var rates [abi.PheromoneChannelCount]float32
	c1, err := mgr.Spawn(0, 0, rates, 2, 1)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if c1.ID != 0 {
		t.Fatalf("first colony should get id 0, got %d", c1.ID)
	}

	c2, err := mgr.Spawn(4, 4, rates, 2, 2)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if c2.ID != 1 {
		t.Fatalf("second colony should get id 1, got %d", c2.ID)
	}

	mgr.Remove(c1.ID)
	m.PlaceNestPlaceholder(0, 0)
	c3, err := mgr.Spawn(0, 0, rates, 1, 3)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if c3.ID != 0 {
		t.Fatalf("freed id 0 should be reused, got %d", c3.ID)
	}
}

func TestSpawnSeedsInitialPopulationAndPheromoneLayer(t *testing.T) {
	mgr, m := newFixture(5, 5)
	m.PlaceNestPlaceholder(2, 2)

	var rates [abi.PheromoneChannelCount]float32
	rates[0] = 0.9
	c, err := mgr.Spawn(2, 2, rates, 3, 42)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if got := mgr.Pool.CountInColony(c.ID); got != 3 {
		t.Fatalf("expected 3 initial ants, got %d", got)
	}
	if !mgr.Field.HasLayer(c.ID) {
		t.Fatal("Spawn should add a pheromone layer for the new colony")
	}
}

func TestRemovePurgesEverything(t *testing.T) {
	mgr, m := newFixture(5, 5)
	m.PlaceNestPlaceholder(1, 1)
	var rates [abi.PheromoneChannelCount]float32
	c, _ := mgr.Spawn(1, 1, rates, 2, 1)

	mgr.Remove(c.ID)

	if mgr.Get(c.ID) != nil {
		t.Fatal("removed colony should no longer be registered")
	}
	if mgr.Pool.CountInColony(c.ID) != 0 {
		t.Fatal("removed colony's ants should be gone")
	}
	if mgr.Field.HasLayer(c.ID) {
		t.Fatal("removed colony's pheromone layer should be gone")
	}
	if len(m.NestsOf(c.ID)) != 0 {
		t.Fatal("removed colony's nest terrain should be cleared")
	}
}

func TestAdvanceSpawningConsumesFoodWhileAffordable(t *testing.T) {
	mgr, m := newFixture(5, 5)
	m.PlaceNestPlaceholder(0, 0)
	var rates [abi.PheromoneChannelCount]float32
	c, _ := mgr.Spawn(0, 0, rates, 0, 1)
	c.FoodStock = SpawnFoodCost * 2

	mgr.AdvanceSpawning(SpawnInterval * 2.5)

	if mgr.Pool.CountInColony(c.ID) != 2 {
		t.Fatalf("expected 2 spawns from 2 affordable intervals, got %d", mgr.Pool.CountInColony(c.ID))
	}
	if c.FoodStock != 0 {
		t.Fatalf("food stock should be fully consumed, got %d", c.FoodStock)
	}
}

func TestWinnerRequiresExactlyOneSurvivingPlayerColony(t *testing.T) {
	mgr, m := newFixture(5, 5)
	m.PlaceNestPlaceholder(0, 0)
	m.PlaceNestPlaceholder(4, 4)
	var rates [abi.PheromoneChannelCount]float32
	c1, _ := mgr.Spawn(0, 0, rates, 1, 1)
	c2, _ := mgr.Spawn(4, 4, rates, 1, 2)
	c1.Player = stubPlayer{id: c1.ID}
	c2.Player = stubPlayer{id: c2.ID}

	if _, ok := mgr.Winner(); ok {
		t.Fatal("two living colonies should have no winner yet")
	}

	mgr.Pool.RemoveColony(c2.ID)
	winner, ok := mgr.Winner()
	if !ok || winner != c1.ID {
		t.Fatalf("expected colony %d to win, got %d, ok=%v", c1.ID, winner, ok)
	}
}

type stubPlayer struct{ id int32 }

func (s stubPlayer) Colony() int32 { return s.id }
func (s stubPlayer) Alive() bool   { return true }

package sensing

import (
	"math/rand"
	"testing"

	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/grid"
	"github.com/Obeeron/pherowar/internal/pheromone"
)

func newFixture(w, h int) (*Sensor, *ant.Pool) {
	m := grid.New(w, h)
	f := pheromone.NewField(w, h)
	var rates [abi.PheromoneChannelCount]float32
	f.AddLayer(1, rates)
	f.AddLayer(2, rates)
	p := ant.NewPool()
	return &Sensor{Map: m, Field: f, Pool: p}, p
}

func TestBuildReportsSameCellEnemyAsAttackTarget(t *testing.T) {
	s, p := newFixture(5, 5)
	rng := func() float32 { return 0 }
	self := p.Spawn(rng, 1, 2.5, 2.5, 300, 0.375)
	enemy := p.Spawn(rng, 2, 2.5, 2.5, 300, 0.375)

	perc := s.Build(self, p.Get(self), rand.New(rand.NewSource(1)))

	if perc.AttackTarget != enemy {
		t.Fatalf("same-cell enemy should be the attack target, got %v want %v", perc.AttackTarget, enemy)
	}
	if perc.Input.EnemySense != ([2]float32{0, 0}) {
		t.Fatalf("same-cell enemy sense should be (0,0), got %v", perc.Input.EnemySense)
	}
}

func TestBuildIgnoresSameColonyInCell(t *testing.T) {
	s, p := newFixture(5, 5)
	rng := func() float32 { return 0 }
	self := p.Spawn(rng, 1, 2.5, 2.5, 300, 0.375)
	p.Spawn(rng, 1, 2.5, 2.5, 300, 0.375)

	perc := s.Build(self, p.Get(self), rand.New(rand.NewSource(1)))

	if !perc.AttackTarget.IsZero() {
		t.Fatal("a same-colony ant sharing a cell must never become an attack target")
	}
}

func TestBuildColonySenseFindsNearestOwnNest(t *testing.T) {
	s, p := newFixture(20, 20)
	s.Map.PlaceColonyAt(0, 0, 1)

	self := p.Spawn(func() float32 { return 0 }, 1, 3.5, 0.5, 300, 0.375)
	a := p.Get(self)
	a.Orientation = 0

	perc := s.Build(self, a, rand.New(rand.NewSource(1)))

	if perc.Input.ColonySense[1] < 0 {
		t.Fatalf("expected a valid colony-sense distance, got %v", perc.Input.ColonySense)
	}
}

func TestBuildColonySenseBlockedByWall(t *testing.T) {
	s, p := newFixture(20, 20)
	s.Map.PlaceColonyAt(0, 0, 1)
	s.Map.PlaceWallAt(2, 0)

	self := p.Spawn(func() float32 { return 0 }, 1, 3.5, 0.5, 300, 0.375)
	a := p.Get(self)

	perc := s.Build(self, a, rand.New(rand.NewSource(1)))

	if perc.Input.ColonySense[1] >= 0 {
		t.Fatalf("a wall between the ant and its nest should occlude the direct colony sense, got %v", perc.Input.ColonySense)
	}
}

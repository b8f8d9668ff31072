package ant

import (
	"math/rand"
	"testing"
)

func TestSpawnAndRemove(t *testing.T) {
	p := NewPool()
	rng := rand.New(rand.NewSource(1))

	id := p.Spawn(rng.Float32, 1, 2.5, 3.5, 300, 0.375)
	if !p.Alive(id) {
		t.Fatal("freshly spawned ant should be alive")
	}
	a := p.Get(id)
	if a == nil || a.ColonyID != 1 || a.Longevity != 300 {
		t.Fatalf("unexpected ant state: %+v", a)
	}

	p.Remove(id)
	if p.Alive(id) {
		t.Fatal("ant should not be alive after Remove")
	}
	if p.Get(id) != nil {
		t.Fatal("Get should return nil for a removed ant")
	}
}

func TestAntsInCellTracksMovement(t *testing.T) {
	p := NewPool()
	rng := rand.New(rand.NewSource(1))
	id := p.Spawn(rng.Float32, 1, 0.5, 0.5, 300, 0.375)

	if got := p.AntsInCell(0, 0); len(got) != 1 || got[0] != id {
		t.Fatalf("AntsInCell(0,0) = %v, want [id]", got)
	}

	a := p.Get(id)
	a.X, a.Y = 3.5, 3.5
	p.SyncCell(id)

	if got := p.AntsInCell(0, 0); len(got) != 0 {
		t.Fatalf("old cell bucket should be empty after move, got %v", got)
	}
	if got := p.AntsInCell(3, 3); len(got) != 1 || got[0] != id {
		t.Fatalf("AntsInCell(3,3) = %v, want [id]", got)
	}
}

func TestRemoveColonyClearsAllItsAnts(t *testing.T) {
	p := NewPool()
	rng := rand.New(rand.NewSource(1))
	p.Spawn(rng.Float32, 1, 0.5, 0.5, 300, 0.375)
	p.Spawn(rng.Float32, 1, 1.5, 1.5, 300, 0.375)
	other := p.Spawn(rng.Float32, 2, 2.5, 2.5, 300, 0.375)

	p.RemoveColony(1)

	if p.CountInColony(1) != 0 {
		t.Fatalf("colony 1 should have no ants left, got %d", p.CountInColony(1))
	}
	if !p.Alive(other) {
		t.Fatal("colony 2's ant should be untouched")
	}
	if p.Len() != 1 {
		t.Fatalf("pool should have exactly 1 ant left, got %d", p.Len())
	}
}

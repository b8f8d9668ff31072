package combat

import (
	"testing"

	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/grid"
)

func newFixture() (*Resolver, *ant.Pool) {
	m := grid.New(5, 5)
	p := ant.NewPool()
	return &Resolver{Pool: p, Map: m}, p
}

func TestEngageStartsMutualFight(t *testing.T) {
	r, p := newFixture()
	rng := func() float32 { return 0 }
	a1 := p.Spawn(rng, 1, 1.5, 1.5, 300, 0.375)
	a2 := p.Spawn(rng, 2, 1.5, 1.5, 300, 0.375)

	p.Get(a1).PendingAttack = true
	lastEnemy := map[ant.ID]ant.ID{a1: a2}

	r.Engage(lastEnemy)

	if !p.Get(a1).IsFighting() || !p.Get(a2).IsFighting() {
		t.Fatal("engaging should make both ants mutually fighting")
	}
}

func TestEngageIgnoresSameColony(t *testing.T) {
	r, p := newFixture()
	rng := func() float32 { return 0 }
	a1 := p.Spawn(rng, 1, 1.5, 1.5, 300, 0.375)
	a2 := p.Spawn(rng, 1, 1.5, 1.5, 300, 0.375)

	p.Get(a1).PendingAttack = true
	r.Engage(map[ant.ID]ant.ID{a1: a2})

	if p.Get(a1).IsFighting() {
		t.Fatal("an ant should never engage a same-colony target")
	}
}

func TestResolveMutualKillRejuvenatesSurvivorNone(t *testing.T) {
	r, p := newFixture()
	rng := func() float32 { return 0 }
	a1 := p.Spawn(rng, 1, 1.5, 1.5, AttackDamage, 0.375)
	a2 := p.Spawn(rng, 2, 1.5, 1.5, AttackDamage, 0.375)

	p.Get(a1).FightList = []ant.ID{a2}
	p.Get(a2).FightList = []ant.ID{a1}

	dead := r.Resolve()

	if len(dead) != 2 {
		t.Fatalf("both ants should die simultaneously, got %d dead", len(dead))
	}
}

func TestResolveRewardsKillerWithHalfLostLongevity(t *testing.T) {
	r, p := newFixture()
	rng := func() float32 { return 0 }
	killer := p.Spawn(rng, 1, 1.5, 1.5, 100, 0.375)
	victim := p.Spawn(rng, 2, 1.5, 1.5, AttackDamage, 0.375)

	p.Get(killer).FightList = []ant.ID{victim}

	dead := r.Resolve()
	if len(dead) != 1 || dead[0] != victim {
		t.Fatalf("expected only the victim to die, got %v", dead)
	}

	ka := p.Get(killer)
	want := float32(100) + (MaxLongevity-100)/2
	if ka.Longevity != want {
		t.Fatalf("killer longevity = %v, want %v", ka.Longevity, want)
	}
	if ka.IsFighting() {
		t.Fatal("killer should be disengaged once its target dies")
	}
}

func TestResolveDroppedFoodOnDeath(t *testing.T) {
	r, p := newFixture()
	rng := func() float32 { return 0 }
	killer := p.Spawn(rng, 1, 1.5, 1.5, 300, 0.375)
	victim := p.Spawn(rng, 2, 1.5, 1.5, AttackDamage, 0.375)
	p.Get(victim).IsCarryingFood = true
	p.Get(killer).FightList = []ant.ID{victim}

	r.Resolve()

	cell, _ := r.Map.CellAt(1, 1)
	if cell.Kind != grid.Food || cell.FoodLeft != 1 {
		t.Fatalf("a carrying ant's death should drop food on its cell, got %+v", cell)
	}
}

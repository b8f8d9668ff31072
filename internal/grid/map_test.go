package grid

import "testing"

func TestConsumeFoodRevertsToEmptyAtZero(t *testing.T) {
	m := New(4, 4)
	m.PlaceFoodAt(1, 1, 2)

	taken := m.ConsumeFood(1, 1, 1)
	if taken != 1 {
		t.Fatalf("ConsumeFood first call: got %d, want 1", taken)
	}
	cell, _ := m.CellAt(1, 1)
	if cell.Kind != Food {
		t.Fatalf("cell should still be Food with 1 left, got kind %v", cell.Kind)
	}

	taken = m.ConsumeFood(1, 1, 5)
	if taken != 1 {
		t.Fatalf("ConsumeFood second call: got %d, want 1 (capped at remaining stock)", taken)
	}
	cell, _ = m.CellAt(1, 1)
	if cell.Kind != Empty {
		t.Fatalf("cell should revert to Empty once depleted, got kind %v", cell.Kind)
	}
}

func TestPlaceColonyClearsPlaceholderAndTracksNest(t *testing.T) {
	m := New(4, 4)
	if !m.PlaceNestPlaceholder(2, 2) {
		t.Fatal("PlaceNestPlaceholder should succeed on an Empty cell")
	}
	if !m.HasPendingPlaceholders() {
		t.Fatal("HasPendingPlaceholders should be true after placing one")
	}

	m.PlaceColonyAt(2, 2, 7)

	if m.HasPendingPlaceholders() {
		t.Fatal("placeholder should be resolved once bound to a colony")
	}
	nests := m.NestsOf(7)
	if len(nests) != 1 || nests[0] != (Coord{2, 2}) {
		t.Fatalf("NestsOf(7) = %v, want [{2 2}]", nests)
	}
}

func TestRemoveColonyTerrainClearsNests(t *testing.T) {
	m := New(4, 4)
	m.PlaceColonyAt(0, 0, 3)
	m.PlaceColonyAt(1, 0, 3)

	m.RemoveColonyTerrain(3)

	if len(m.NestsOf(3)) != 0 {
		t.Fatalf("expected no nests left for colony 3, got %v", m.NestsOf(3))
	}
	cell, _ := m.CellAt(0, 0)
	if cell.Kind != Empty {
		t.Fatalf("vacated nest cell should be Empty, got %v", cell.Kind)
	}
}

func TestDropFoodOnEmptyThenAccumulates(t *testing.T) {
	m := New(2, 2)
	if !m.DropFood(0, 0) {
		t.Fatal("DropFood on Empty should succeed")
	}
	cell, _ := m.CellAt(0, 0)
	if cell.Kind != Food || cell.FoodLeft != 1 {
		t.Fatalf("got %+v, want Food with 1 unit", cell)
	}

	m.DropFood(0, 0)
	cell, _ = m.CellAt(0, 0)
	if cell.FoodLeft != 2 {
		t.Fatalf("second drop should accumulate to 2, got %d", cell.FoodLeft)
	}
}

func TestDropFoodRefusesWall(t *testing.T) {
	m := New(2, 2)
	m.PlaceWallAt(0, 0)
	if m.DropFood(0, 0) {
		t.Fatal("DropFood on a Wall cell should fail")
	}
}

func TestPendingPlaceholdersDeterministicOrder(t *testing.T) {
	m := New(3, 2)
	m.PlaceNestPlaceholder(2, 1)
	m.PlaceNestPlaceholder(0, 0)
	m.PlaceNestPlaceholder(1, 0)

	got := m.PendingPlaceholders()
	want := []Coord{{0, 0}, {1, 0}, {2, 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

package grid

import "testing"

func TestIngestRoundTripsThroughSave(t *testing.T) {
	doc := `{
		"width": 2, "height": 2,
		"cells": ["nest", "food", "wall", "empty"],
		"food": {"1,0": 12},
		"nests": {"0,0": 4}
	}`

	m, err := Ingest([]byte(doc))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if cell, _ := m.CellAt(0, 0); cell.Kind != Nest || cell.NestOwner != 4 {
		t.Fatalf("expected nest owned by 4 at (0,0), got %+v", cell)
	}
	if cell, _ := m.CellAt(1, 0); cell.Kind != Food || cell.FoodLeft != 12 {
		t.Fatalf("expected food(12) at (1,0), got %+v", cell)
	}

	saved, err := m.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(saved)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cell, _ := reloaded.CellAt(0, 0); cell.Kind != PlaceholderColony {
		t.Fatalf("saved map should demote nests to placeholders, got %+v", cell)
	}
	if cell, _ := reloaded.CellAt(1, 0); cell.Kind != Food || cell.FoodLeft != DefaultFoodAmount {
		t.Fatalf("saved map should normalize food to DefaultFoodAmount, got %+v", cell)
	}
}

func TestIngestRejectsInvalidCellKind(t *testing.T) {
	doc := `{"width": 1, "height": 1, "cells": ["lava"]}`
	if _, err := Ingest([]byte(doc)); err == nil {
		t.Fatal("expected an error for an unrecognized cell kind")
	}
}

func TestIngestRejectsMismatchedCellCount(t *testing.T) {
	doc := `{"width": 2, "height": 2, "cells": ["empty"]}`
	if _, err := Ingest([]byte(doc)); err == nil {
		t.Fatal("expected an error when cells length does not match width*height")
	}
}

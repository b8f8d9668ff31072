package grid

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Obeeron/pherowar/internal/simerr"
)

// ingestSchemaDoc describes the JSON map-ingest document: a flat row-major
// grid of cell-kind strings plus food amounts for the Food cells. Mirrors
// the schema-validate-then-convert ingestion pattern used for JSON-borne
// world documents elsewhere in the example pack.
const ingestSchemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["width", "height", "cells"],
  "properties": {
    "width":  { "type": "integer", "minimum": 1 },
    "height": { "type": "integer", "minimum": 1 },
    "cells": {
      "type": "array",
      "items": { "type": "string", "enum": ["empty", "wall", "food", "nest", "placeholder"] }
    },
    "food": {
      "type": "object",
      "additionalProperties": { "type": "integer", "minimum": 0 }
    },
    "nests": {
      "type": "object",
      "additionalProperties": { "type": "integer", "minimum": 0 }
    }
  }
}`

var ingestSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("pherowar://map-ingest.schema.json", bytes.NewReader([]byte(ingestSchemaDoc))); err != nil {
		panic(fmt.Errorf("grid: compiling map-ingest schema: %w", err))
	}
	sch, err := compiler.Compile("pherowar://map-ingest.schema.json")
	if err != nil {
		panic(fmt.Errorf("grid: compiling map-ingest schema: %w", err))
	}
	ingestSchema = sch
}

// ingestDoc is the wire shape of a map-ingest document. Keys in Food/Nests
// are "x,y" coordinate strings, matching how the map editor's JSON export
// addresses sparse per-cell data.
type ingestDoc struct {
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Cells  []string       `json:"cells"`
	Food   map[string]int `json:"food"`
	Nests  map[string]int `json:"nests"`
}

func coordKey(x, y int) string { return fmt.Sprintf("%d,%d", x, y) }

// Ingest validates raw JSON against the map-ingest schema and converts it
// into a Map. Returns simerr.ErrMapInvalid (wrapped) on any structural or
// semantic problem, matching the MapInvalid error policy: refuse load,
// leave the engine runnable.
func Ingest(raw []byte) (*Map, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", simerr.ErrMapInvalid, err)
	}
	if err := ingestSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: schema: %v", simerr.ErrMapInvalid, err)
	}

	var doc ingestDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", simerr.ErrMapInvalid, err)
	}
	if len(doc.Cells) != doc.Width*doc.Height {
		return nil, fmt.Errorf("%w: cells length %d != width*height %d",
			simerr.ErrMapInvalid, len(doc.Cells), doc.Width*doc.Height)
	}

	m := New(doc.Width, doc.Height)
	for y := 0; y < doc.Height; y++ {
		for x := 0; x < doc.Width; x++ {
			kindStr := doc.Cells[y*doc.Width+x]
			var cell Cell
			cell.NestOwner = -1
			switch kindStr {
			case "empty":
				cell.Kind = Empty
			case "wall":
				cell.Kind = Wall
			case "food":
				cell.Kind = Food
				amount := DefaultFoodAmount
				if v, ok := doc.Food[coordKey(x, y)]; ok {
					amount = v
				}
				cell.FoodLeft = uint16(amount)
			case "nest":
				cell.Kind = Nest
				owner := -1
				if v, ok := doc.Nests[coordKey(x, y)]; ok {
					owner = v
				}
				cell.NestOwner = int32(owner)
			case "placeholder":
				cell.Kind = PlaceholderColony
			default:
				return nil, fmt.Errorf("%w: unknown cell kind %q", simerr.ErrMapInvalid, kindStr)
			}
			m.SetCell(x, y, cell)
			if cell.Kind == PlaceholderColony {
				m.placeholders[Coord{x, y}] = true
			}
		}
	}
	return m, nil
}

// Save serializes the map, normalizing it for reuse: every Food cell is
// reset to DefaultFoodAmount and every Nest cell is demoted to a
// colony-agnostic placeholder slot. This mirrors the original
// implementation's save-time normalization so a saved map never encodes a
// single session's depletion or a colony's transient ownership.
func (m *Map) Save() ([]byte, error) {
	doc := ingestDoc{
		Width:  m.Width,
		Height: m.Height,
		Cells:  make([]string, m.Width*m.Height),
		Food:   make(map[string]int),
		Nests:  make(map[string]int),
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			cell, _ := m.CellAt(x, y)
			idx := y*m.Width + x
			switch cell.Kind {
			case Empty:
				doc.Cells[idx] = "empty"
			case Wall:
				doc.Cells[idx] = "wall"
			case Food:
				doc.Cells[idx] = "food"
				doc.Food[coordKey(x, y)] = DefaultFoodAmount
			case Nest, PlaceholderColony:
				doc.Cells[idx] = "placeholder"
			}
		}
	}
	return json.Marshal(doc)
}

// Load reads a saved map back via Ingest. A map written by Save encodes no
// Nest cells (Save already demoted them to "placeholder"), so loading one
// yields zero Nest cells and every exported placeholder as a pending slot;
// Load adds no processing of its own beyond Ingest.
func Load(raw []byte) (*Map, error) {
	return Ingest(raw)
}

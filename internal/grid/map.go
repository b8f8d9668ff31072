// Package grid implements component A: static terrain, mutable food stock,
// and the nest/placeholder registry ants and colonies live on.
package grid

import (
	"fmt"
	"sort"

	"github.com/Obeeron/pherowar/internal/pwlog"
	"github.com/sirupsen/logrus"
)

// DefaultFoodAmount is restored to a Food cell whenever a map is saved, so
// round-tripping a map never leaks a session's food depletion into the
// persisted file.
const DefaultFoodAmount = 50

// Kind enumerates the static terrain a cell can hold.
type Kind uint8

const (
	Empty Kind = iota
	Wall
	Food
	Nest
	// PlaceholderColony marks a cell reserved for a colony that has not yet
	// been bound to a player; the scheduler refuses to run while any
	// placeholder remains on the map.
	PlaceholderColony
)

// Cell is one grid tile: static terrain plus the dynamic state it carries.
type Cell struct {
	Kind      Kind
	FoodLeft  uint16
	NestOwner int32 // valid when Kind == Nest; -1 otherwise
}

// Coord is an integer cell coordinate.
type Coord struct{ X, Y int }

// Map is the static+dynamic grid terrain shared by every colony.
type Map struct {
	Width, Height int
	cells         []Cell

	placeholders map[Coord]bool
	nestsByOwner map[int32]map[Coord]bool

	// LoadedName is a free-form label for the map file this grid came from.
	// Neither Ingest nor Load sets it, and nothing in the engine reads it.
	LoadedName string
}

// New builds an all-Empty map of the given dimensions.
func New(width, height int) *Map {
	m := &Map{
		Width:        width,
		Height:       height,
		cells:        make([]Cell, width*height),
		placeholders: make(map[Coord]bool),
		nestsByOwner: make(map[int32]map[Coord]bool),
	}
	for i := range m.cells {
		m.cells[i].NestOwner = -1
	}
	return m
}

func (m *Map) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0, false
	}
	return y*m.Width + x, true
}

// InBounds reports whether (x, y) is a valid cell coordinate.
func (m *Map) InBounds(x, y int) bool {
	_, ok := m.index(x, y)
	return ok
}

// CellAt returns the cell at (x, y) and whether the coordinate was valid.
func (m *Map) CellAt(x, y int) (Cell, bool) {
	i, ok := m.index(x, y)
	if !ok {
		return Cell{}, false
	}
	return m.cells[i], true
}

// SetCell overwrites the cell at (x, y). Returns false if out of bounds.
func (m *Map) SetCell(x, y int, c Cell) bool {
	i, ok := m.index(x, y)
	if !ok {
		return false
	}
	old := m.cells[i]
	if old.Kind == Nest && old.NestOwner >= 0 {
		m.forgetNest(old.NestOwner, Coord{x, y})
	}
	m.cells[i] = c
	if c.Kind == Nest && c.NestOwner >= 0 {
		m.rememberNest(c.NestOwner, Coord{x, y})
	}
	return true
}

// IsPassable reports whether ants may occupy a cell of this kind.
func IsPassable(k Kind) bool {
	return k != Wall
}

// ConsumeFood takes up to `amount` food units from (x, y), transitioning the
// cell to Empty the instant it reaches zero so the same-tick observer sees
// is_on_food=false. Returns the amount actually taken.
func (m *Map) ConsumeFood(x, y int, amount uint16) uint16 {
	i, ok := m.index(x, y)
	if !ok || m.cells[i].Kind != Food {
		return 0
	}
	cell := &m.cells[i]
	taken := amount
	if taken > cell.FoodLeft {
		taken = cell.FoodLeft
	}
	cell.FoodLeft -= taken
	if cell.FoodLeft == 0 {
		cell.Kind = Empty
	}
	return taken
}

// NestsOf returns every nest cell owned by colonyID.
func (m *Map) NestsOf(colonyID int32) []Coord {
	set, ok := m.nestsByOwner[colonyID]
	if !ok {
		return nil
	}
	out := make([]Coord, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (m *Map) rememberNest(owner int32, c Coord) {
	set, ok := m.nestsByOwner[owner]
	if !ok {
		set = make(map[Coord]bool)
		m.nestsByOwner[owner] = set
	}
	set[c] = true
}

func (m *Map) forgetNest(owner int32, c Coord) {
	if set, ok := m.nestsByOwner[owner]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(m.nestsByOwner, owner)
		}
	}
}

// PlaceNestPlaceholder marks an Empty cell as reserved for a future colony.
// Returns false if the cell is not Empty or is already a placeholder.
func (m *Map) PlaceNestPlaceholder(x, y int) bool {
	i, ok := m.index(x, y)
	if !ok || m.cells[i].Kind != Empty {
		return false
	}
	c := Coord{x, y}
	if m.placeholders[c] {
		return false
	}
	m.cells[i].Kind = PlaceholderColony
	m.placeholders[c] = true
	return true
}

// RemovePlaceholderColony clears a placeholder reservation at (x, y).
func (m *Map) RemovePlaceholderColony(x, y int) {
	c := Coord{x, y}
	if !m.placeholders[c] {
		return
	}
	delete(m.placeholders, c)
	if i, ok := m.index(x, y); ok && m.cells[i].Kind == PlaceholderColony {
		m.cells[i].Kind = Empty
	}
}

// HasPendingPlaceholders reports whether any unresolved placeholder slot
// remains; the Tick Scheduler uses this to stay paused.
func (m *Map) HasPendingPlaceholders() bool {
	return len(m.placeholders) > 0
}

// PendingPlaceholders returns every unresolved placeholder slot in a stable,
// deterministic order so callers can bind AI libraries to slots
// reproducibly across runs of the same map.
func (m *Map) PendingPlaceholders() []Coord {
	out := make([]Coord, 0, len(m.placeholders))
	for c := range m.placeholders {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// PlaceColonyAt binds a nest cell to colonyID, clearing any placeholder at
// the same coordinate.
func (m *Map) PlaceColonyAt(x, y int, colonyID int32) bool {
	m.RemovePlaceholderColony(x, y)
	return m.SetCell(x, y, Cell{Kind: Nest, NestOwner: colonyID})
}

// PlaceWallAt converts a cell to Wall. Returns false if out of bounds or it
// was already a Wall.
func (m *Map) PlaceWallAt(x, y int) bool {
	i, ok := m.index(x, y)
	if !ok || m.cells[i].Kind == Wall {
		return false
	}
	old := m.cells[i]
	if old.Kind == Nest && old.NestOwner >= 0 {
		m.forgetNest(old.NestOwner, Coord{x, y})
	}
	m.cells[i] = Cell{Kind: Wall, NestOwner: -1}
	return true
}

// PlaceFoodAt sets a cell to Food with the given stock.
func (m *Map) PlaceFoodAt(x, y int, amount uint16) bool {
	return m.SetCell(x, y, Cell{Kind: Food, FoodLeft: amount, NestOwner: -1})
}

// RemoveTerrainAt resets a cell to Empty.
func (m *Map) RemoveTerrainAt(x, y int) bool {
	return m.SetCell(x, y, Cell{Kind: Empty, NestOwner: -1})
}

// DropFood places one food unit at (x, y): an Empty cell becomes Food with
// a single unit, an existing Food cell's stock increments. Wall cells
// refuse the drop (returns false), matching a dead ant's carried food being
// lost if it happened to die on a wall.
func (m *Map) DropFood(x, y int) bool {
	i, ok := m.index(x, y)
	if !ok {
		return false
	}
	switch m.cells[i].Kind {
	case Empty:
		m.cells[i] = Cell{Kind: Food, FoodLeft: 1, NestOwner: -1}
		return true
	case Food:
		m.cells[i].FoodLeft++
		return true
	default:
		return false
	}
}

// RemoveColonyTerrain clears every Nest cell owned by colonyID back to
// Empty, used when a colony is fully removed.
func (m *Map) RemoveColonyTerrain(colonyID int32) {
	for _, c := range m.NestsOf(colonyID) {
		m.RemoveTerrainAt(c.X, c.Y)
	}
}

// SoftReset clears dynamic per-session state (placeholders and nest
// ownership revert to Empty) while leaving Wall/Food terrain untouched.
func (m *Map) SoftReset() {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i, _ := m.index(x, y)
			if m.cells[i].Kind == Nest || m.cells[i].Kind == PlaceholderColony {
				m.cells[i] = Cell{Kind: Empty, NestOwner: -1}
			}
		}
	}
	m.placeholders = make(map[Coord]bool)
	m.nestsByOwner = make(map[int32]map[Coord]bool)
	pwlog.Log.WithFields(logrus.Fields{"width": m.Width, "height": m.Height}).Debug("grid: soft reset")
}

// CellCount returns the total number of cells, used by sensing/action code
// that needs to preallocate per-cell buffers.
func (m *Map) CellCount() int { return len(m.cells) }

func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d)", m.Width, m.Height)
}

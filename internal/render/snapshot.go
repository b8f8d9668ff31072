package render

import (
	"bytes"
	"encoding/json"

	"github.com/klauspost/compress/flate"

	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/colony"
	"github.com/Obeeron/pherowar/internal/grid"
)

// AntSnapshot is the wire-facing view of one ant, stripped of anything a
// spectator client has no use for (memory, fight list internals).
type AntSnapshot struct {
	ColonyID       int32   `json:"colony_id"`
	X              float32 `json:"x"`
	Y              float32 `json:"y"`
	Orientation    float32 `json:"orientation"`
	Longevity      float32 `json:"longevity"`
	IsCarryingFood bool    `json:"is_carrying_food"`
	IsFighting     bool    `json:"is_fighting"`
}

// ColonySnapshot is the wire-facing view of one colony's standing.
type ColonySnapshot struct {
	ID        int32  `json:"id"`
	FoodStock uint32 `json:"food_stock"`
	Alive     bool   `json:"alive"`
	AntCount  int    `json:"ant_count"`
}

// CellSnapshot is the wire-facing view of one non-Empty terrain cell.
// WorldSnapshot has no cell list and BuildSnapshot produces none, so
// spectators receive no terrain in the per-tick payload.
type CellSnapshot struct {
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Kind     grid.Kind `json:"kind"`
	FoodLeft uint16    `json:"food_left,omitempty"`
}

// WorldSnapshot is the full per-tick payload broadcast to spectators.
type WorldSnapshot struct {
	Tick     uint64           `json:"tick"`
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Ants     []AntSnapshot    `json:"ants"`
	Colonies []ColonySnapshot `json:"colonies"`
}

// BuildSnapshot assembles one tick's WorldSnapshot from the live simulation
// state. Called from the scheduler loop after Tick returns, against the
// post-tick state (spectators see the result of the tick that just ran).
func BuildSnapshot(tick uint64, m *grid.Map, pool *ant.Pool, colonies *colony.Manager) WorldSnapshot {
	snap := WorldSnapshot{Tick: tick, Width: m.Width, Height: m.Height}

	pool.ForEach(func(_ ant.ID, a *ant.Ant) {
		snap.Ants = append(snap.Ants, AntSnapshot{
			ColonyID:       a.ColonyID,
			X:              a.X,
			Y:              a.Y,
			Orientation:    a.Orientation,
			Longevity:      a.Longevity,
			IsCarryingFood: a.IsCarryingFood,
			IsFighting:     a.IsFighting(),
		})
	})

	for id, c := range colonies.All() {
		snap.Colonies = append(snap.Colonies, ColonySnapshot{
			ID:        id,
			FoodStock: c.FoodStock,
			Alive:     c.Alive,
			AntCount:  pool.CountInColony(id),
		})
	}

	return snap
}

// Encode marshals a WorldSnapshot to JSON and DEFLATE-compresses it, so a
// busy tick's full ant roster doesn't dominate websocket bandwidth to every
// connected spectator.
func Encode(snap WorldSnapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package pheromone implements component B: an 8-channel scalar field per
// colony over the shared grid, with saturating deposits and periodic decay.
package pheromone

import (
	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/pwlog"
	"github.com/sirupsen/logrus"
)

const (
	// MaxAmount is the saturation ceiling for any single pheromone scalar.
	MaxAmount = 255.0
	// DecayInterval is the wall-clock period between decay applications.
	DecayInterval = 1.0
	// decayEpsilon: values below this after decay are snapped to zero.
	decayEpsilon = 0.01
)

type layer struct {
	decayRates [abi.PheromoneChannelCount]float32
	cells      [][abi.PheromoneChannelCount]float32
}

// Field is the dense per-colony pheromone layers over one shared grid.
// Represented as a map from colony id to a dense `[cells][channels]` layer:
// each colony's layer is reclaimed (dropped) atomically on removal so a
// later colony reusing the same id never inherits ghost references.
type Field struct {
	width, height int
	layers        map[int32]*layer
	decayAccum    float64
}

// NewField creates an empty field over a width x height grid.
func NewField(width, height int) *Field {
	return &Field{
		width:  width,
		height: height,
		layers: make(map[int32]*layer),
	}
}

// AddLayer creates a zeroed pheromone layer for colonyID with the given
// per-channel decay rates.
func (f *Field) AddLayer(colonyID int32, decayRates [abi.PheromoneChannelCount]float32) {
	f.layers[colonyID] = &layer{
		decayRates: decayRates,
		cells:      make([][abi.PheromoneChannelCount]float32, f.width*f.height),
	}
}

// RemoveLayer atomically drops colonyID's layer. Any later colony that
// reuses the id gets a fresh zeroed layer from AddLayer, never this one's
// leftover values.
func (f *Field) RemoveLayer(colonyID int32) {
	delete(f.layers, colonyID)
}

func (f *Field) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return 0, false
	}
	return y*f.width + x, true
}

// Deposit adds amount (clamped to [0, 255]) to channel ch at (x, y) for
// colonyID, saturating at MaxAmount.
func (f *Field) Deposit(colonyID int32, x, y, ch int, amount float32) {
	l, ok := f.layers[colonyID]
	if !ok {
		return
	}
	i, ok := f.index(x, y)
	if !ok {
		return
	}
	if amount < 0 {
		amount = 0
	}
	if amount > MaxAmount {
		amount = MaxAmount
	}
	v := l.cells[i][ch] + amount
	if v > MaxAmount {
		v = MaxAmount
	}
	l.cells[i][ch] = v
}

// SampleCell reads the raw per-channel values at (x, y) for colonyID.
func (f *Field) SampleCell(colonyID int32, x, y int) [abi.PheromoneChannelCount]float32 {
	l, ok := f.layers[colonyID]
	if !ok {
		return [abi.PheromoneChannelCount]float32{}
	}
	i, ok := f.index(x, y)
	if !ok {
		return [abi.PheromoneChannelCount]float32{}
	}
	return l.cells[i]
}

// AdvanceDecay accumulates dt and applies one decay pass per colony for
// every full DecayInterval elapsed. Decay is global per tick, not per-cell
// lazy: `v <- v * decay_rate`, snapping to zero below decayEpsilon.
func (f *Field) AdvanceDecay(dt float64) {
	f.decayAccum += dt
	for f.decayAccum >= DecayInterval {
		f.decayAccum -= DecayInterval
		for id, l := range f.layers {
			decayLayer(l)
			pwlog.Log.WithFields(logrus.Fields{"colony_id": id}).Trace("pheromone: decay applied")
		}
	}
}

func decayLayer(l *layer) {
	for i := range l.cells {
		for ch := 0; ch < abi.PheromoneChannelCount; ch++ {
			v := l.cells[i][ch] * l.decayRates[ch]
			if v < decayEpsilon {
				v = 0
			}
			l.cells[i][ch] = v
		}
	}
}

// HasLayer reports whether colonyID currently owns a layer.
func (f *Field) HasLayer(colonyID int32) bool {
	_, ok := f.layers[colonyID]
	return ok
}

// VerifyPurged reports whether every cell of colonyID's former layer reads
// zero; used by tests validating the colony-removal purge invariant. Once
// RemoveLayer has run there is no layer to query, so this simply confirms
// the id is unregistered.
func (f *Field) VerifyPurged(colonyID int32) bool {
	return !f.HasLayer(colonyID)
}

// Width and Height expose the field's grid dimensions.
func (f *Field) Width() int  { return f.width }
func (f *Field) Height() int { return f.height }

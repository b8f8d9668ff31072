// Package abi defines the wire-compatible structs exchanged with the
// sandboxed AI worker and their binary encoding. The layout mirrors the
// documented C ABI exactly: fixed offsets, native (little-endian) byte
// order, IEEE-754 f32 fields, so that a worker built against the published
// C headers can read and write these frames without any Go-specific
// knowledge.
package abi

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// PheromoneChannelCount is the number of independent pheromone scalars
	// carried per cell, per colony.
	PheromoneChannelCount = 8
	// MemorySize is the number of opaque bytes an ant's AI may persist
	// between think ticks.
	MemorySize = 32
)

// AntInput is the per-think-tick snapshot handed to a colony's AI.
//
// C layout:
//
//	bool  is_carrying_food;
//	bool  is_on_colony;
//	bool  is_on_food;
//	f32   pheromone_senses[8][2]; // (angle, strength) per channel
//	f32   cell_sense[8];
//	f32   wall_sense[2];
//	f32   food_sense[2];
//	f32   colony_sense[2];
//	f32   enemy_sense[2];
//	f32   longevity;
//	bool  is_fighting;
type AntInput struct {
	IsCarryingFood bool
	IsOnColony     bool
	IsOnFood       bool
	PheromoneSense [PheromoneChannelCount][2]float32 // [angle, strength]
	CellSense      [PheromoneChannelCount]float32
	WallSense      [2]float32 // [angle, distance] or [_, -1.0]
	FoodSense      [2]float32
	ColonySense    [2]float32
	EnemySense     [2]float32
	Longevity      float32
	IsFighting     bool
}

// AntOutput is the per-think-tick response produced by a colony's AI.
//
// C layout:
//
//	f32  turn_angle;
//	f32  pheromone_amounts[8];
//	bool try_attack;
type AntOutput struct {
	TurnAngle        float32
	PheromoneAmounts [PheromoneChannelCount]float32
	TryAttack        bool
}

// PlayerSetup is returned once by a worker's setup() entry point.
//
// C layout:
//
//	f32 decay_rates[8];
type PlayerSetup struct {
	DecayRates [PheromoneChannelCount]float32
}

// AntInputSize is the wire size of AntInput, including C struct padding.
const AntInputSize = 140

// AntOutputSize is the wire size of AntOutput, including C struct padding.
const AntOutputSize = 40

// PlayerSetupSize is the wire size of PlayerSetup.
const PlayerSetupSize = 4 * PheromoneChannelCount

func putBool(buf []byte, off int, v bool) {
	if v {
		buf[off] = 1
	} else {
		buf[off] = 0
	}
}

func getBool(buf []byte, off int) bool {
	return buf[off] != 0
}

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
}

func getF32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

// MarshalBinary encodes the AntInput into AntInputSize bytes matching the
// C struct's natural alignment (the 3 leading bools are followed by one
// padding byte so the f32 arrays start 4-byte aligned).
func (a *AntInput) MarshalBinary() []byte {
	buf := make([]byte, AntInputSize)
	putBool(buf, 0, a.IsCarryingFood)
	putBool(buf, 1, a.IsOnColony)
	putBool(buf, 2, a.IsOnFood)
	// buf[3] is alignment padding, left zeroed.
	off := 4
	for ch := 0; ch < PheromoneChannelCount; ch++ {
		putF32(buf, off, a.PheromoneSense[ch][0])
		putF32(buf, off+4, a.PheromoneSense[ch][1])
		off += 8
	}
	for ch := 0; ch < PheromoneChannelCount; ch++ {
		putF32(buf, off, a.CellSense[ch])
		off += 4
	}
	for _, pair := range [][2]float32{a.WallSense, a.FoodSense, a.ColonySense, a.EnemySense} {
		putF32(buf, off, pair[0])
		putF32(buf, off+4, pair[1])
		off += 8
	}
	putF32(buf, off, a.Longevity)
	off += 4
	putBool(buf, off, a.IsFighting)
	return buf
}

// UnmarshalAntInput decodes a wire frame previously produced by
// AntInput.MarshalBinary.
func UnmarshalAntInput(buf []byte) (*AntInput, error) {
	if len(buf) != AntInputSize {
		return nil, fmt.Errorf("abi: AntInput frame has %d bytes, want %d", len(buf), AntInputSize)
	}
	a := &AntInput{
		IsCarryingFood: getBool(buf, 0),
		IsOnColony:     getBool(buf, 1),
		IsOnFood:       getBool(buf, 2),
	}
	off := 4
	for ch := 0; ch < PheromoneChannelCount; ch++ {
		a.PheromoneSense[ch][0] = getF32(buf, off)
		a.PheromoneSense[ch][1] = getF32(buf, off+4)
		off += 8
	}
	for ch := 0; ch < PheromoneChannelCount; ch++ {
		a.CellSense[ch] = getF32(buf, off)
		off += 4
	}
	for _, dst := range []*[2]float32{&a.WallSense, &a.FoodSense, &a.ColonySense, &a.EnemySense} {
		dst[0] = getF32(buf, off)
		dst[1] = getF32(buf, off+4)
		off += 8
	}
	a.Longevity = getF32(buf, off)
	off += 4
	a.IsFighting = getBool(buf, off)
	return a, nil
}

// MarshalBinary encodes the AntOutput into AntOutputSize bytes.
func (o *AntOutput) MarshalBinary() []byte {
	buf := make([]byte, AntOutputSize)
	putF32(buf, 0, o.TurnAngle)
	off := 4
	for ch := 0; ch < PheromoneChannelCount; ch++ {
		putF32(buf, off, o.PheromoneAmounts[ch])
		off += 4
	}
	putBool(buf, off, o.TryAttack)
	return buf
}

// UnmarshalAntOutput decodes a wire frame previously produced by
// AntOutput.MarshalBinary.
func UnmarshalAntOutput(buf []byte) (*AntOutput, error) {
	if len(buf) != AntOutputSize {
		return nil, fmt.Errorf("abi: AntOutput frame has %d bytes, want %d", len(buf), AntOutputSize)
	}
	o := &AntOutput{}
	o.TurnAngle = getF32(buf, 0)
	off := 4
	for ch := 0; ch < PheromoneChannelCount; ch++ {
		o.PheromoneAmounts[ch] = getF32(buf, off)
		off += 4
	}
	o.TryAttack = getBool(buf, off)
	return o, nil
}

// MarshalBinary encodes the PlayerSetup into PlayerSetupSize bytes.
func (p *PlayerSetup) MarshalBinary() []byte {
	buf := make([]byte, PlayerSetupSize)
	for ch := 0; ch < PheromoneChannelCount; ch++ {
		putF32(buf, ch*4, p.DecayRates[ch])
	}
	return buf
}

// UnmarshalPlayerSetup decodes a wire frame previously produced by
// PlayerSetup.MarshalBinary.
func UnmarshalPlayerSetup(buf []byte) (*PlayerSetup, error) {
	if len(buf) != PlayerSetupSize {
		return nil, fmt.Errorf("abi: PlayerSetup frame has %d bytes, want %d", len(buf), PlayerSetupSize)
	}
	p := &PlayerSetup{}
	for ch := 0; ch < PheromoneChannelCount; ch++ {
		p.DecayRates[ch] = getF32(buf, ch*4)
	}
	return p, nil
}

// SanitizeOutput clamps NaN to 0 and Inf to +/-bound, matching the engine's
// InvalidOutput error policy. Returns true if any value required clamping.
func (o *AntOutput) SanitizeOutput(bound float32) bool {
	dirty := false
	clamp := func(v float32) float32 {
		if math.IsNaN(float64(v)) {
			dirty = true
			return 0
		}
		if math.IsInf(float64(v), 1) {
			dirty = true
			return bound
		}
		if math.IsInf(float64(v), -1) {
			dirty = true
			return -bound
		}
		return v
	}
	o.TurnAngle = clamp(o.TurnAngle)
	for i := range o.PheromoneAmounts {
		v := clamp(o.PheromoneAmounts[i])
		if v < 0 {
			v = 0
			dirty = true
		}
		if v > 255 {
			v = 255
			dirty = true
		}
		o.PheromoneAmounts[i] = v
	}
	return dirty
}

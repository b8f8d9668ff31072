// Package colony implements component G: spawning cadence, food accounting,
// colony lifecycle, and victory detection.
package colony

import (
	"github.com/Obeeron/pherowar/internal/abi"
)

const (
	// SpawnInterval is the wall-clock period between spawn attempts.
	SpawnInterval = 0.3
	// SpawnFoodCost is the food stock consumed per spawned ant.
	SpawnFoodCost = 5
	// MaxColonies bounds how many colonies may exist at once.
	MaxColonies = 5
)

// PlayerHandle is satisfied by internal/playerhost.Worker; kept as a small
// interface here so this package never imports the sandboxing machinery it
// has no business depending on.
type PlayerHandle interface {
	Colony() int32
	Alive() bool
}

// Colony is one player's registered presence in the simulation.
type Colony struct {
	ID         int32
	DecayRates [abi.PheromoneChannelCount]float32
	FoodStock  uint32
	SpawnTimer float32
	Player     PlayerHandle
	Alive      bool
}

// DeliverFood credits one unit of food to the colony's stock, called when
// the Action Resolver reports a carrying ant reached its nest.
func (c *Colony) DeliverFood() {
	c.FoodStock++
}

// TryConsumeSpawnCost decrements the stock by SpawnFoodCost if affordable.
func (c *Colony) TryConsumeSpawnCost() bool {
	if c.FoodStock < SpawnFoodCost {
		return false
	}
	c.FoodStock -= SpawnFoodCost
	return true
}

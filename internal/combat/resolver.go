// Package combat implements component F: the pair/brawl engagement state
// machine, simultaneous damage application, and rejuvenation-on-kill.
package combat

import (
	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/grid"
	"github.com/sirupsen/logrus"

	"github.com/Obeeron/pherowar/internal/pwlog"
)

const (
	// AttackDamage is applied to an engaged ant's longevity each combat
	// sub-tick.
	AttackDamage = 5.0
	// ContactRange is the distance within which a sensed enemy may be
	// engaged; mirrors the original's melee contact radius (ANT_LENGTH).
	ContactRange = 1.0
	// MaxLongevity bounds rejuvenation.
	MaxLongevity = 300.0
)

// Resolver runs the engagement and damage sub-phases against the shared
// ant pool.
type Resolver struct {
	Pool *ant.Pool
	Map  *grid.Map
}

func dist(a, b *ant.Ant) float32 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

func contains(list []ant.ID, id ant.ID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// Engage processes every ant with PendingAttack set and not already
// fighting: it looks for an enemy in the same cell, else the most recently
// sensed enemy still within ContactRange, and if one exists, appends each
// ant to the other's fight list (mutual engagement).
func (r *Resolver) Engage(lastEnemy map[ant.ID]ant.ID) {
	var initiators []ant.ID
	r.Pool.ForEach(func(id ant.ID, a *ant.Ant) {
		if a.PendingAttack && !a.IsFighting() {
			initiators = append(initiators, id)
		}
	})

	for _, id := range initiators {
		a := r.Pool.Get(id)
		if a == nil {
			continue
		}
		a.PendingAttack = false

		var target ant.ID
		cx, cy := a.Cell()
		for _, other := range r.Pool.AntsInCell(cx, cy) {
			if o := r.Pool.Get(other); other != id && o != nil && o.ColonyID != a.ColonyID {
				target = other
				break
			}
		}
		if target.IsZero() {
			target = lastEnemy[id]
		}
		if target.IsZero() {
			continue
		}
		ta := r.Pool.Get(target)
		if ta == nil || ta.ColonyID == a.ColonyID {
			continue
		}
		if dist(a, ta) > ContactRange*ContactRange {
			continue
		}
		if !contains(a.FightList, target) {
			a.FightList = append(a.FightList, target)
		}
		if !contains(ta.FightList, id) {
			ta.FightList = append(ta.FightList, id)
		}
		pwlog.Log.WithFields(logrus.Fields{"attacker": a.ColonyID, "defender": ta.ColonyID}).Debug("combat: engagement started")
	}
}

type damageEvent struct {
	attacker, target ant.ID
}

// Resolve applies one combat sub-tick of simultaneous damage: every
// currently fighting ant deals AttackDamage to the head of its fight list.
// Deaths are collected and processed after all damage has been applied, so
// the outcome does not depend on iteration order. Returns the ids of ants
// that died this sub-tick.
func (r *Resolver) Resolve() []ant.ID {
	var events []damageEvent
	r.Pool.ForEach(func(id ant.ID, a *ant.Ant) {
		if a.IsFighting() {
			events = append(events, damageEvent{attacker: id, target: a.FightList[0]})
		}
	})

	killedBy := make(map[ant.ID]ant.ID)
	for _, e := range events {
		target := r.Pool.Get(e.target)
		if target == nil {
			continue
		}
		before := target.Longevity
		target.Longevity -= AttackDamage
		if before > 0 && target.Longevity <= 0 {
			killedBy[e.target] = e.attacker
		}
	}

	var dead []ant.ID
	for target, attacker := range killedBy {
		dead = append(dead, target)
		r.rewardKiller(attacker)
	}

	for _, id := range dead {
		r.disengage(id)
		if a := r.Pool.Get(id); a != nil && a.IsCarryingFood {
			cx, cy := a.Cell()
			r.Map.DropFood(cx, cy)
		}
	}

	return dead
}

// rewardKiller heals the attacker by half the longevity it has lost since
// spawn or its last rejuvenation event, per SPEC_FULL.md §6.4 — this is the
// formula spec.md states explicitly, which differs from the original
// implementation's `MAX - longevity/2` and is implemented deliberately,
// not by accident.
func (r *Resolver) rewardKiller(attacker ant.ID) {
	a := r.Pool.Get(attacker)
	if a == nil {
		return
	}
	heal := (MaxLongevity - a.Longevity) / 2
	a.Longevity += heal
	if a.Longevity > MaxLongevity {
		a.Longevity = MaxLongevity
	}
}

// disengage removes id from every live ant's fight list, advancing whoever
// had id as their head to the next opponent.
func (r *Resolver) disengage(id ant.ID) {
	r.Pool.ForEach(func(_ ant.ID, a *ant.Ant) {
		for i, v := range a.FightList {
			if v == id {
				a.FightList = append(a.FightList[:i], a.FightList[i+1:]...)
				break
			}
		}
	})
}

package main

import (
	"math/rand/v2"
	"time"

	"github.com/skirmishlab/vanguard/agent"
	"github.com/skirmishlab/vanguard/arena"
	"github.com/skirmishlab/vanguard/config"
	"github.com/skirmishlab/vanguard/fleet"
	"github.com/skirmishlab/vanguard/world"
)

const (
	factionFleet   = 0
	factionRaiders = 1

	agentSpeed  = 40.0
	raiderSpeed = 55.0
)

// makeUnits builds a structural composition with the given unit mix.
func makeUnits(weapons, armor, plain int) []world.Unit {
	units := make([]world.Unit, 0, weapons+armor+plain)
	for i := 0; i < weapons; i++ {
		units = append(units, world.Unit{Weapon: true})
	}
	for i := 0; i < armor; i++ {
		units = append(units, world.Unit{Armor: true})
	}
	for i := 0; i < plain; i++ {
		units = append(units, world.Unit{})
	}
	return units
}

// populate spawns the fleet's ships around the origin and a raider band
// at the perimeter. Controllers are attached separately by enroll so a
// snapshot restore can claim ships first.
func populate(battlefield *arena.Arena, rng *rand.Rand, agents, hostiles int) (ships, raiders []world.EntityID) {
	ships = make([]world.EntityID, 0, agents)
	for i := 0; i < agents; i++ {
		pos := world.Vec3{
			X: (rng.Float64() - 0.5) * 800,
			Z: (rng.Float64() - 0.5) * 800,
		}
		ships = append(ships, battlefield.Spawn(pos, factionFleet, makeUnits(4, 6, 10), agentSpeed))
	}

	raiders = make([]world.EntityID, 0, hostiles)
	for i := 0; i < hostiles; i++ {
		pos := world.Vec3{
			X: (rng.Float64() - 0.5) * 1000,
			Z: 3000 + rng.Float64()*500,
		}
		raiders = append(raiders, battlefield.Spawn(pos, factionRaiders, makeUnits(3, 2, 5), raiderSpeed))
	}
	return ships, raiders
}

// enroll attaches a fresh controller, cycling dispositions, to every
// ship a restored agent does not already control.
func enroll(mgr *fleet.Manager, ships []world.EntityID) {
	dispositions := []agent.Disposition{
		agent.DispositionAggressive,
		agent.DispositionGuard,
		agent.DispositionPassive,
	}
	for i, entity := range ships {
		if mgr.Controls(entity) {
			continue
		}
		mgr.Spawn(entity, dispositions[i%len(dispositions)])
	}
}

// raiderDriver gives the hostile band simple scripted pressure: drift
// toward the fleet's home area, shoot whatever hostile contact is in
// weapon range.
type raiderDriver struct {
	battlefield *arena.Arena
	raiders     []world.EntityID
	cfg         *config.Config
	rng         *rand.Rand
	nextOrder   time.Time
}

func newRaiderDriver(battlefield *arena.Arena, raiders []world.EntityID, cfg *config.Config, rng *rand.Rand) *raiderDriver {
	return &raiderDriver{
		battlefield: battlefield,
		raiders:     raiders,
		cfg:         cfg,
		rng:         rng,
	}
}

func (d *raiderDriver) step(now time.Time) {
	reorder := now.After(d.nextOrder)
	if reorder {
		d.nextOrder = now.Add(time.Duration(8+d.rng.Float64()*8) * time.Second)
	}

	live := d.raiders[:0]
	for _, id := range d.raiders {
		pos, ok := d.battlefield.PositionOf(id)
		if !ok {
			continue
		}
		live = append(live, id)

		if reorder {
			target := world.Vec3{
				X: (d.rng.Float64() - 0.5) * 1200,
				Z: (d.rng.Float64() - 0.5) * 1200,
			}
			d.battlefield.MoveTo(id, target)
		}

		if victim, ok := d.nearestVictim(id, pos); ok {
			vpos, _ := d.battlefield.PositionOf(victim)
			vvel, _ := d.battlefield.VelocityOf(victim)
			d.battlefield.SetWeaponTarget(id, victim, vpos, vvel)
		}
	}
	d.raiders = live
}

func (d *raiderDriver) nearestVictim(raider world.EntityID, pos world.Vec3) (world.EntityID, bool) {
	var best world.EntityID
	bestDist := d.cfg.Combat.EngagementRange
	found := false

	for _, id := range d.battlefield.EntitiesWithinRadius(pos, d.cfg.Combat.EngagementRange) {
		if d.battlefield.FactionRelation(raider, id) != world.RelationHostile {
			continue
		}
		p, ok := d.battlefield.PositionOf(id)
		if !ok {
			continue
		}
		if dist := pos.DistanceTo(p); dist <= bestDist {
			best, bestDist, found = id, dist, true
		}
	}
	return best, found
}

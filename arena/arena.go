// Package arena is a self-contained battle world used by the demo binary
// and the integration tests. It implements the world Query and Actuator
// contracts on an ECS store, with simple kinematics and weapon fire so
// fleets have something real to decide about.
package arena

import (
	"math/rand/v2"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/skirmishlab/vanguard/world"
)

const arriveEpsilon = 5.0

// Options configures an Arena.
type Options struct {
	Extent        float64 // Half-size of the square play area
	CellSize      float64 // Spatial grid cell size
	WeaponRange   float64 // Max distance at which turret fire lands
	UnitDPS       float64 // Damage per second per weapon unit
	HullPerUnit   float64 // Hull points contributed by each unit
	ScatterChance float64 // Probability a shot misses outright
	Seed          uint64
}

// Arena owns the ECS world. All methods are safe for concurrent use;
// readers share an RLock so the fleet's parallel decision phase can
// query freely.
type Arena struct {
	mu sync.RWMutex

	world  *ecs.World
	mapper *ecs.Map7[Position, Velocity, Hull, Faction, Composition, Nav, Turret]
	filter *ecs.Filter7[Position, Velocity, Hull, Faction, Composition, Nav, Turret]

	posMap    *ecs.Map1[Position]
	velMap    *ecs.Map1[Velocity]
	hullMap   *ecs.Map1[Hull]
	factMap   *ecs.Map1[Faction]
	compMap   *ecs.Map1[Composition]
	navMap    *ecs.Map1[Nav]
	turretMap *ecs.Map1[Turret]

	grid     *spatialGrid
	entities map[world.EntityID]ecs.Entity
	nextID   world.EntityID

	stances map[[2]int]world.Relation
	rng     *rand.Rand
	opts    Options
}

// New creates an empty arena.
func New(opts Options) *Arena {
	if opts.Extent <= 0 {
		opts.Extent = 5000
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 250
	}
	if opts.WeaponRange <= 0 {
		opts.WeaponRange = 900
	}
	if opts.UnitDPS <= 0 {
		opts.UnitDPS = 120
	}
	if opts.HullPerUnit <= 0 {
		opts.HullPerUnit = 100
	}

	w := ecs.NewWorld()
	return &Arena{
		world:  w,
		mapper: ecs.NewMap7[Position, Velocity, Hull, Faction, Composition, Nav, Turret](w),
		filter: ecs.NewFilter7[Position, Velocity, Hull, Faction, Composition, Nav, Turret](w),

		posMap:    ecs.NewMap1[Position](w),
		velMap:    ecs.NewMap1[Velocity](w),
		hullMap:   ecs.NewMap1[Hull](w),
		factMap:   ecs.NewMap1[Faction](w),
		compMap:   ecs.NewMap1[Composition](w),
		navMap:    ecs.NewMap1[Nav](w),
		turretMap: ecs.NewMap1[Turret](w),

		grid:     newSpatialGrid(opts.Extent, opts.CellSize),
		entities: make(map[world.EntityID]ecs.Entity),
		nextID:   1,
		stances:  make(map[[2]int]world.Relation),
		rng:      rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xda942042e4dd58b5)),
		opts:     opts,
	}
}

// SetStance declares the relation between two factions, symmetrically.
// Entities of the same faction are always allied.
func (a *Arena) SetStance(facA, facB int, rel world.Relation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stances[[2]int{facA, facB}] = rel
	a.stances[[2]int{facB, facA}] = rel
}

// Spawn adds an entity with the given structure. Hull scales with unit
// count; DPS scales with weapon count.
func (a *Arena) Spawn(pos world.Vec3, faction int, units []world.Unit, maxSpeed float64) world.EntityID {
	a.mu.Lock()
	defer a.mu.Unlock()

	weapons := 0
	for _, u := range units {
		if u.Weapon {
			weapons++
		}
	}
	hull := float64(len(units)) * a.opts.HullPerUnit

	id := a.nextID
	a.nextID++

	comp := Composition{Units: append([]world.Unit(nil), units...)}
	e := a.mapper.NewEntity(
		&Position{pos},
		&Velocity{},
		&Hull{Max: hull, Current: hull},
		&Faction{ID: faction},
		&comp,
		&Nav{MaxSpeed: maxSpeed},
		&Turret{DPS: float64(weapons) * a.opts.UnitDPS},
	)
	a.entities[id] = e
	a.grid.insert(id, pos)
	return id
}

// Despawn removes an entity immediately.
func (a *Arena) Despawn(id world.EntityID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entities[id]; ok {
		a.mapper.Remove(e)
		delete(a.entities, id)
	}
}

// Count returns the number of live entities.
func (a *Arena) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entities)
}

// ApplyDamage subtracts hull points. The entity is removed on the next
// Step once its hull reaches zero.
func (a *Arena) ApplyDamage(id world.EntityID, amount float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.damageLocked(id, amount)
}

func (a *Arena) damageLocked(id world.EntityID, amount float64) {
	e, ok := a.entities[id]
	if !ok {
		return
	}
	hull := a.hullMap.Get(e)
	hull.Current -= amount
	if hull.Current < 0 {
		hull.Current = 0
	}
}

// Step advances the arena: move entities toward their nav targets,
// land turret fire, remove destroyed hulls and rebuild the spatial grid.
func (a *Arena) Step(dt float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	type shot struct {
		target world.EntityID
		damage float64
	}
	var shots []shot

	query := a.filter.Query()
	for query.Next() {
		pos, vel, hull, _, _, nav, turret := query.Get()
		if hull.Current <= 0 {
			continue
		}

		if nav.HasTarget {
			delta := nav.Target.Sub(pos.Vec3)
			dist := delta.Length()
			if dist <= arriveEpsilon {
				nav.HasTarget = false
				vel.Vec3 = world.Vec3{}
			} else {
				vel.Vec3 = delta.Scale(nav.MaxSpeed / dist)
			}
		}
		pos.Vec3 = pos.Add(vel.Scale(dt))
		pos.Vec3 = a.clampToExtent(pos.Vec3)

		if turret.HasTarget && turret.DPS > 0 {
			te, ok := a.entities[turret.Target]
			if !ok {
				turret.HasTarget = false
			} else {
				tpos := a.posMap.Get(te)
				if pos.DistanceTo(tpos.Vec3) > a.opts.WeaponRange {
					continue
				}
				if a.opts.ScatterChance > 0 && a.rng.Float64() < a.opts.ScatterChance {
					continue
				}
				shots = append(shots, shot{target: turret.Target, damage: turret.DPS * dt})
			}
		}
	}

	for _, s := range shots {
		a.damageLocked(s.target, s.damage)
	}

	var destroyed []world.EntityID
	for id, e := range a.entities {
		if a.hullMap.Get(e).Current <= 0 {
			destroyed = append(destroyed, id)
		}
	}
	for _, id := range destroyed {
		a.mapper.Remove(a.entities[id])
		delete(a.entities, id)
	}

	a.grid.clear()
	for id, e := range a.entities {
		a.grid.insert(id, a.posMap.Get(e).Vec3)
	}
}

func (a *Arena) clampToExtent(v world.Vec3) world.Vec3 {
	h := a.opts.Extent
	if v.X > h {
		v.X = h
	} else if v.X < -h {
		v.X = -h
	}
	if v.Z > h {
		v.Z = h
	} else if v.Z < -h {
		v.Z = -h
	}
	return v
}

// EntitiesWithinRadius implements world.Query.
func (a *Arena) EntitiesWithinRadius(center world.Vec3, radius float64) []world.EntityID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.grid.queryRadius(nil, center, radius, 0)
}

// PositionOf implements world.Query.
func (a *Arena) PositionOf(id world.EntityID) (world.Vec3, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entities[id]
	if !ok {
		return world.Vec3{}, false
	}
	return a.posMap.Get(e).Vec3, true
}

// VelocityOf implements world.Query.
func (a *Arena) VelocityOf(id world.EntityID) (world.Vec3, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entities[id]
	if !ok {
		return world.Vec3{}, false
	}
	return a.velMap.Get(e).Vec3, true
}

// IntegrityOf implements world.Query.
func (a *Arena) IntegrityOf(id world.EntityID) (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entities[id]
	if !ok {
		return 0, false
	}
	hull := a.hullMap.Get(e)
	if hull.Max <= 0 {
		return 0, true
	}
	return hull.Current / hull.Max, true
}

// FactionRelation implements world.Query.
func (a *Arena) FactionRelation(x, y world.EntityID) world.Relation {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ex, ok := a.entities[x]
	if !ok {
		return world.RelationUnknown
	}
	ey, ok := a.entities[y]
	if !ok {
		return world.RelationUnknown
	}

	fx := a.factMap.Get(ex).ID
	fy := a.factMap.Get(ey).ID
	if fx == fy {
		return world.RelationAllied
	}
	if rel, ok := a.stances[[2]int{fx, fy}]; ok {
		return rel
	}
	return world.RelationNeutral
}

// StructuralComposition implements world.Query.
func (a *Arena) StructuralComposition(id world.EntityID) []world.Unit {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entities[id]
	if !ok {
		return nil
	}
	units := a.compMap.Get(e).Units
	return append([]world.Unit(nil), units...)
}

// MoveTo implements world.Actuator.
func (a *Arena) MoveTo(agent world.EntityID, target world.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entities[agent]; ok {
		nav := a.navMap.Get(e)
		nav.Target = target
		nav.HasTarget = true
	}
}

// SetWeaponTarget implements world.Actuator. The predicted position and
// velocity are accepted for interface fidelity; turret fire here resolves
// by range, not ballistics.
func (a *Arena) SetWeaponTarget(agent world.EntityID, target world.EntityID, predictedPos, predictedVel world.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entities[agent]; ok {
		turret := a.turretMap.Get(e)
		turret.Target = target
		turret.HasTarget = true
	}
}

// HoldPosition implements world.Actuator.
func (a *Arena) HoldPosition(agent world.EntityID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entities[agent]; ok {
		nav := a.navMap.Get(e)
		nav.HasTarget = false
		a.velMap.Get(e).Vec3 = world.Vec3{}
		turret := a.turretMap.Get(e)
		turret.HasTarget = false
	}
}

package arena

import "github.com/skirmishlab/vanguard/world"

// Position is an entity's location in arena space.
type Position struct {
	world.Vec3
}

// Velocity is an entity's current velocity.
type Velocity struct {
	world.Vec3
}

// Hull tracks structural integrity.
type Hull struct {
	Max     float64
	Current float64
}

// Faction assigns an entity to a diplomatic faction.
type Faction struct {
	ID int
}

// Composition holds the entity's structural units, exposed to combat
// capability estimation.
type Composition struct {
	Units []world.Unit
}

// Nav is the entity's movement order state.
type Nav struct {
	Target    world.Vec3
	HasTarget bool
	MaxSpeed  float64
}

// Turret is the entity's weapon order state. DPS is derived from the
// composition's weapon count at spawn.
type Turret struct {
	Target    world.EntityID
	HasTarget bool
	DPS       float64
}

// Package world defines the contracts between the decision core and the
// surrounding engine binding. The core only ever reads the world through
// Query and acts on it through Actuator; both are supplied at construction
// time so simulations and tests can run against independent worlds.
package world

// EntityID identifies an entity in the external world.
type EntityID uint64

// Relation describes the diplomatic stance between two entities.
type Relation uint8

const (
	RelationUnknown Relation = iota
	RelationAllied
	RelationNeutral
	RelationHostile
)

func (r Relation) String() string {
	switch r {
	case RelationAllied:
		return "allied"
	case RelationNeutral:
		return "neutral"
	case RelationHostile:
		return "hostile"
	default:
		return "unknown"
	}
}

// Unit is one structural element of an entity's composition.
type Unit struct {
	Weapon bool
	Armor  bool
}

// Query is the read-only view of the world the core consumes. Empty or
// unknown results mean "no information" and never halt an agent.
// Implementations must be safe for concurrent readers; the fleet manager
// calls Query from multiple goroutines during the decision phase.
type Query interface {
	// EntitiesWithinRadius returns entity ids near center. May be empty.
	EntitiesWithinRadius(center Vec3, radius float64) []EntityID

	// PositionOf returns an entity's position, or ok=false if it is gone.
	PositionOf(id EntityID) (Vec3, bool)

	// VelocityOf returns an entity's velocity when the world knows it.
	VelocityOf(id EntityID) (Vec3, bool)

	// IntegrityOf returns the entity's normalized hull integrity in [0,1].
	IntegrityOf(id EntityID) (float64, bool)

	// FactionRelation resolves the stance of b relative to a.
	FactionRelation(a, b EntityID) Relation

	// StructuralComposition lists an entity's units, or nil when the
	// entity has no discoverable structure.
	StructuralComposition(id EntityID) []Unit
}

// Actuator carries fire-and-forget commands from the core to the engine.
// The core does not await confirmation of arrival or hit.
type Actuator interface {
	MoveTo(agent EntityID, target Vec3)
	SetWeaponTarget(agent EntityID, target EntityID, predictedPos, predictedVel Vec3)
	HoldPosition(agent EntityID)
}

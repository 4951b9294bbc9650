package agent

import (
	"math"

	"github.com/skirmishlab/vanguard/world"
)

// Behavior is one concrete strategy an agent can run. The set of
// implementations is closed (see AllKinds); each owns its private
// sub-state and is constructed fresh on every transition.
type Behavior interface {
	Kind() Kind

	// Enter initializes the behavior's sub-state.
	Enter(a *Agent, rt *Runtime)

	// Tick advances the behavior by one simulation step.
	Tick(a *Agent, rt *Runtime) error

	// Exit releases anything the behavior held.
	Exit(a *Agent, rt *Runtime)

	// Outcome judges, at evaluation time, whether the run so far counts
	// as a success for the learning registry.
	Outcome(a *Agent, rt *Runtime) bool
}

// newBehavior constructs the variant for a kind.
func newBehavior(kind Kind) Behavior {
	switch kind {
	case KindPatrol:
		return &patrolBehavior{}
	case KindAttack:
		return &attackBehavior{}
	case KindDefense:
		return &defenseBehavior{}
	case KindFollow:
		return &followBehavior{}
	case KindRetreat:
		return &retreatBehavior{}
	default:
		return &idleBehavior{}
	}
}

// hostilesWithin lists hostile entities near a center point.
func hostilesWithin(a *Agent, rt *Runtime, center world.Vec3, radius float64) []world.EntityID {
	var out []world.EntityID
	for _, id := range rt.World.EntitiesWithinRadius(center, radius) {
		if id == a.Entity {
			continue
		}
		if rt.World.FactionRelation(a.Entity, id) == world.RelationHostile {
			out = append(out, id)
		}
	}
	return out
}

// nearestEntity returns the closest of ids to pos.
func nearestEntity(rt *Runtime, pos world.Vec3, ids []world.EntityID) (world.EntityID, float64, bool) {
	best := world.EntityID(0)
	bestDist := math.MaxFloat64
	found := false
	for _, id := range ids {
		p, ok := rt.World.PositionOf(id)
		if !ok {
			continue
		}
		if d := pos.DistanceTo(p); d < bestDist {
			best, bestDist, found = id, d, true
		}
	}
	return best, bestDist, found
}

// centroidOf averages the positions of ids; ok=false when none resolve.
func centroidOf(rt *Runtime, ids []world.EntityID) (world.Vec3, bool) {
	var sum world.Vec3
	n := 0
	for _, id := range ids {
		if p, ok := rt.World.PositionOf(id); ok {
			sum = sum.Add(p)
			n++
		}
	}
	if n == 0 {
		return world.Vec3{}, false
	}
	return sum.Scale(1 / float64(n)), true
}

// engageTarget runs the shared targeting sequence used by Attack and by
// Defense once it has a zone intruder: predict an intercept point, pick a
// weapon class for the range, lay the weapon on the prediction, and close
// to the class's optimal standoff.
func engageTarget(a *Agent, rt *Runtime, target world.EntityID) bool {
	targetPos, ok := rt.World.PositionOf(target)
	if !ok {
		return false
	}

	dist := a.Pos.DistanceTo(targetPos)
	horizon := dist / rt.Cfg.Combat.ProjectileSpeed
	predicted := rt.Predictor.Predict(target, horizon)
	est := rt.Tracker.EstimateFor(target)

	rt.Act.SetWeaponTarget(a.Entity, target, predicted, est.Velocity)

	priority := rt.Combat.WeaponPriority(target, dist, rt.Now)
	standoff := targetPos.Add(a.Pos.Sub(targetPos).Normalized().Scale(priority.OptimalRange))
	rt.Act.MoveTo(a.Entity, standoff)
	return true
}

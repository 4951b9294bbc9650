package agent

import "github.com/skirmishlab/vanguard/world"

// attackBehavior acquires the nearest hostile and runs the engagement
// sequence against it until the target dies, escapes sensor range, or the
// scheduler picks something else.
type attackBehavior struct {
	target    world.EntityID
	hasTarget bool
}

func (b *attackBehavior) Kind() Kind { return KindAttack }

func (b *attackBehavior) Enter(a *Agent, rt *Runtime) {}

func (b *attackBehavior) Tick(a *Agent, rt *Runtime) error {
	if b.hasTarget && !b.targetValid(a, rt) {
		b.dropTarget(a, rt)
	}

	if !b.hasTarget {
		hostiles := hostilesWithin(a, rt, a.Pos, rt.Cfg.Simulation.SensorRadius)
		id, dist, found := nearestEntity(rt, a.Pos, hostiles)
		if !found {
			// Nothing to shoot; hold and let the next evaluation move on.
			rt.Act.HoldPosition(a.Entity)
			return nil
		}
		b.target = id
		b.hasTarget = true
		a.Perf.Engagements++
		a.Events.Record(EventTargetAcquired, rt.Now, map[string]any{
			"target": uint64(id), "distance": dist,
		})
	}

	if !engageTarget(a, rt, b.target) {
		b.dropTarget(a, rt)
	}
	return nil
}

func (b *attackBehavior) Exit(a *Agent, rt *Runtime) {}

// Outcome: an attack run counts as a success while it holds a target
// inside engagement range.
func (b *attackBehavior) Outcome(a *Agent, rt *Runtime) bool {
	if !b.hasTarget {
		return false
	}
	pos, ok := rt.World.PositionOf(b.target)
	if !ok {
		return false
	}
	return a.Pos.DistanceTo(pos) <= rt.Cfg.Combat.EngagementRange
}

// targetValid rechecks that the target still exists and is still hostile.
func (b *attackBehavior) targetValid(a *Agent, rt *Runtime) bool {
	if _, ok := rt.World.PositionOf(b.target); !ok {
		return false
	}
	return rt.World.FactionRelation(a.Entity, b.target) == world.RelationHostile
}

func (b *attackBehavior) dropTarget(a *Agent, rt *Runtime) {
	if b.hasTarget {
		a.Events.Record(EventTargetLost, rt.Now, map[string]any{"target": uint64(b.target)})
	}
	b.hasTarget = false
	b.target = 0
}

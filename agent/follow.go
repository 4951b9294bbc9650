package agent

import "github.com/skirmishlab/vanguard/world"

// followBehavior trails the nearest allied entity at a standoff distance,
// steering toward the leader's predicted position rather than chasing its
// wake.
type followBehavior struct {
	leader    world.EntityID
	hasLeader bool
}

func (b *followBehavior) Kind() Kind { return KindFollow }

func (b *followBehavior) Enter(a *Agent, rt *Runtime) {
	b.acquireLeader(a, rt)
}

func (b *followBehavior) Tick(a *Agent, rt *Runtime) error {
	if b.hasLeader {
		if _, ok := rt.World.PositionOf(b.leader); !ok {
			b.hasLeader = false
		}
	}
	if !b.hasLeader {
		b.acquireLeader(a, rt)
		if !b.hasLeader {
			rt.Act.HoldPosition(a.Entity)
			return nil
		}
	}

	cfg := rt.Cfg.Follow
	predicted := rt.Predictor.Predict(b.leader, cfg.Horizon)
	offset := a.Pos.Sub(predicted).Normalized().Scale(cfg.Standoff)
	rt.Act.MoveTo(a.Entity, predicted.Add(offset))
	return nil
}

func (b *followBehavior) Exit(a *Agent, rt *Runtime) {}

// Outcome: following works while a leader exists and stays within range.
func (b *followBehavior) Outcome(a *Agent, rt *Runtime) bool {
	if !b.hasLeader {
		return false
	}
	pos, ok := rt.World.PositionOf(b.leader)
	if !ok {
		return false
	}
	return a.Pos.DistanceTo(pos) <= rt.Cfg.Follow.RangeLimit
}

func (b *followBehavior) acquireLeader(a *Agent, rt *Runtime) {
	var allies []world.EntityID
	for _, id := range rt.World.EntitiesWithinRadius(a.Pos, rt.Cfg.Simulation.SensorRadius) {
		if id == a.Entity {
			continue
		}
		if rt.World.FactionRelation(a.Entity, id) == world.RelationAllied {
			allies = append(allies, id)
		}
	}
	if id, _, found := nearestEntity(rt, a.Pos, allies); found {
		b.leader = id
		b.hasLeader = true
	}
}

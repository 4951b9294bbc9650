package agent

import (
	"math"

	"github.com/skirmishlab/vanguard/world"
)

// retreatBehavior plans a waypoint path away from the threat centroid and
// flies it, dodging laterally when a hostile closes in. At a configured
// fraction of the planned distance the retreat is complete and control
// hands back to the agent's fallback behavior.
type retreatBehavior struct {
	start       world.Vec3
	centroid    world.Vec3
	hasCentroid bool
	startDist   float64 // Distance to the centroid when the retreat began
	waypoints   []world.Vec3
	index       int
	dodging     bool
}

func (b *retreatBehavior) Kind() Kind { return KindRetreat }

func (b *retreatBehavior) Enter(a *Agent, rt *Runtime) {
	cfg := rt.Cfg.Retreat
	b.start = a.Pos

	hostiles := hostilesWithin(a, rt, a.Pos, rt.Cfg.Simulation.SensorRadius)
	var away world.Vec3
	if c, ok := centroidOf(rt, hostiles); ok {
		b.centroid = c
		b.hasCentroid = true
		b.startDist = a.Pos.DistanceTo(c)
		away = a.Pos.Sub(c).Normalized()
	} else {
		// No visible threat to flee from; pick a random escape heading.
		angle := rt.RNG.Float64() * 2 * math.Pi
		away = world.Vec3{X: math.Cos(angle), Z: math.Sin(angle)}
	}
	if away.Length() == 0 {
		away = world.Vec3{X: 1}
	}

	n := cfg.Waypoints
	if n < 1 {
		n = 1
	}
	step := cfg.Distance / float64(n)
	lateral := away.Lateral()

	b.waypoints = make([]world.Vec3, n)
	for i := range b.waypoints {
		jitter := (rt.RNG.Float64()*2 - 1) * cfg.LateralJitter
		b.waypoints[i] = a.Pos.
			Add(away.Scale(step * float64(i+1))).
			Add(lateral.Scale(jitter))
	}
}

func (b *retreatBehavior) Tick(a *Agent, rt *Runtime) error {
	cfg := rt.Cfg.Retreat

	if a.Pos.DistanceTo(b.start) >= cfg.Distance*cfg.CompleteFrac {
		a.Events.Record(EventRetreatComplete, rt.Now, map[string]any{
			"flown": a.Pos.DistanceTo(b.start),
		})
		a.requestTransition(a.Fallback)
		return nil
	}

	wp := b.waypoints[b.index]

	// Evasive dodge when a hostile is breathing down our neck.
	hostiles := hostilesWithin(a, rt, a.Pos, cfg.DodgeRadius)
	if id, _, found := nearestEntity(rt, a.Pos, hostiles); found {
		if !b.dodging {
			hostilePos, _ := rt.World.PositionOf(id)
			lateral := a.Pos.Sub(hostilePos).Lateral()
			sign := 1.0
			if rt.RNG.Float64() < 0.5 {
				sign = -1
			}
			wp = wp.Add(lateral.Scale(sign * cfg.DodgeOffset))
			b.waypoints[b.index] = wp
			b.dodging = true
		}
	} else {
		b.dodging = false
	}

	if a.Pos.DistanceTo(wp) <= cfg.ArriveRadius && b.index < len(b.waypoints)-1 {
		b.index++
		wp = b.waypoints[b.index]
	}
	rt.Act.MoveTo(a.Entity, wp)
	return nil
}

func (b *retreatBehavior) Exit(a *Agent, rt *Runtime) {}

// Outcome: the retreat is succeeding if distance from the threat centroid
// has grown since it began. With no known threat, covering ground counts.
func (b *retreatBehavior) Outcome(a *Agent, rt *Runtime) bool {
	if b.hasCentroid {
		return a.Pos.DistanceTo(b.centroid) > b.startDist
	}
	return a.Pos.DistanceTo(b.start) > 0
}

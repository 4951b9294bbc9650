package agent

import (
	"math"
	"time"

	"github.com/skirmishlab/vanguard/world"
)

// patrolSubState tracks where in the scan/travel/pause cycle a patrol is.
type patrolSubState uint8

const (
	patrolScanning patrolSubState = iota
	patrolTraveling
	patrolPausing
)

// patrolBehavior cycles through a ring of waypoints around the agent's
// home anchor: scan, travel to the next waypoint, pause and rescan, move on.
type patrolBehavior struct {
	state     patrolSubState
	waypoints []world.Vec3
	index     int
	stateFrom time.Time
}

func (b *patrolBehavior) Kind() Kind { return KindPatrol }

func (b *patrolBehavior) Enter(a *Agent, rt *Runtime) {
	cfg := rt.Cfg.Patrol
	n := cfg.Waypoints
	if n < 2 {
		n = 2
	}

	// Circuit around home with a random phase so agents sharing an
	// anchor do not fly the same path.
	phase := rt.RNG.Float64() * 2 * math.Pi
	b.waypoints = make([]world.Vec3, n)
	for i := range b.waypoints {
		angle := phase + 2*math.Pi*float64(i)/float64(n)
		b.waypoints[i] = a.Home.Add(world.Vec3{
			X: math.Cos(angle) * cfg.Radius,
			Z: math.Sin(angle) * cfg.Radius,
		})
	}

	b.state = patrolScanning
	b.stateFrom = rt.Now
	rt.Act.HoldPosition(a.Entity)
}

func (b *patrolBehavior) Tick(a *Agent, rt *Runtime) error {
	cfg := rt.Cfg.Patrol

	switch b.state {
	case patrolScanning:
		if rt.Now.Sub(b.stateFrom).Seconds() >= cfg.ScanSeconds {
			b.state = patrolTraveling
			b.stateFrom = rt.Now
		}

	case patrolTraveling:
		wp := b.waypoints[b.index]
		if a.Pos.DistanceTo(wp) <= cfg.ArriveRadius {
			b.state = patrolPausing
			b.stateFrom = rt.Now
			rt.Act.HoldPosition(a.Entity)
			return nil
		}
		rt.Act.MoveTo(a.Entity, wp)

	case patrolPausing:
		if rt.Now.Sub(b.stateFrom).Seconds() >= cfg.PauseSeconds {
			b.index = (b.index + 1) % len(b.waypoints)
			b.state = patrolTraveling
			b.stateFrom = rt.Now
		}
	}
	return nil
}

func (b *patrolBehavior) Exit(a *Agent, rt *Runtime) {}

// Outcome: a patrol that keeps the agent moving is doing its job.
func (b *patrolBehavior) Outcome(a *Agent, rt *Runtime) bool {
	return a.Vel.Length() > 1
}

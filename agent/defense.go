package agent

import (
	"time"

	"github.com/skirmishlab/vanguard/world"
)

// defenseZonePoll is how often the zone is rescanned for intruders.
const defenseZonePoll = 2 * time.Second

// defenseBehavior guards the zone around the agent's home anchor. While
// the zone is clear it holds station; when a hostile intrudes it runs the
// shared engagement sequence against the highest-priority intruder.
type defenseBehavior struct {
	intruder    world.EntityID
	hasIntruder bool
	nextPoll    time.Time
	holding     bool
}

func (b *defenseBehavior) Kind() Kind { return KindDefense }

func (b *defenseBehavior) Enter(a *Agent, rt *Runtime) {
	b.nextPoll = rt.Now
}

func (b *defenseBehavior) Tick(a *Agent, rt *Runtime) error {
	if !rt.Now.Before(b.nextPoll) {
		b.poll(a, rt)
		b.nextPoll = rt.Now.Add(defenseZonePoll)
	}

	if b.hasIntruder {
		b.holding = false
		if !engageTarget(a, rt, b.intruder) {
			b.clearIntruder(a, rt)
		}
		return nil
	}

	if !b.holding {
		rt.Act.MoveTo(a.Entity, a.Home)
		b.holding = true
	}
	return nil
}

func (b *defenseBehavior) Exit(a *Agent, rt *Runtime) {}

// Outcome: the defense held if its zone is currently threat-free.
func (b *defenseBehavior) Outcome(a *Agent, rt *Runtime) bool {
	return len(hostilesWithin(a, rt, a.Home, rt.Cfg.Combat.DefenseZoneRange)) == 0
}

// poll rescans the zone and picks the most dangerous intruder, measured
// by combat power.
func (b *defenseBehavior) poll(a *Agent, rt *Runtime) {
	hostiles := hostilesWithin(a, rt, a.Home, rt.Cfg.Combat.DefenseZoneRange)
	if len(hostiles) == 0 {
		if b.hasIntruder {
			b.clearIntruder(a, rt)
		}
		return
	}

	best := hostiles[0]
	bestPower := rt.Combat.CombatPower(best, rt.Now)
	for _, id := range hostiles[1:] {
		if p := rt.Combat.CombatPower(id, rt.Now); p > bestPower {
			best, bestPower = id, p
		}
	}

	if !b.hasIntruder || b.intruder != best {
		b.intruder = best
		b.hasIntruder = true
		a.Perf.Engagements++
		a.Events.Record(EventTargetAcquired, rt.Now, map[string]any{
			"target": uint64(best), "zone": true,
		})
	}
}

func (b *defenseBehavior) clearIntruder(a *Agent, rt *Runtime) {
	if b.hasIntruder {
		a.Events.Record(EventTargetLost, rt.Now, map[string]any{"target": uint64(b.intruder)})
	}
	b.hasIntruder = false
	b.intruder = 0
	b.holding = false
}

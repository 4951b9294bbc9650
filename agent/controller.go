package agent

import (
	"fmt"
	"time"
)

// Update runs one decision cycle for the agent: refresh state from the
// world, apply priority overrides, run the scheduled re-evaluation when
// due, and tick the active behavior.
//
// ErrEntityGone means the underlying entity vanished and the agent should
// be unregistered. Any other error is a transient tick failure: the agent
// keeps its behavior and is retried next step.
func (a *Agent) Update(rt *Runtime) error {
	if err := a.refresh(rt); err != nil {
		return err
	}

	if a.active == nil {
		a.transitionTo(rt, KindIdle, "initial")
		a.scheduleEval(rt)
	}

	if a.applyOverrides(rt) {
		a.scheduleEval(rt)
	} else if !a.overrideHolds(rt) && !rt.Now.Before(a.nextEval) {
		a.evaluate(rt)
	}

	if err := a.active.Tick(a, rt); err != nil {
		return fmt.Errorf("ticking %s: %w", a.active.Kind(), err)
	}

	if a.hasRequested {
		if a.ActiveKind() == KindRetreat {
			// A finished retreat is not retried until new damage lands.
			a.retreatBaseline = a.Health
		}
		a.transitionTo(rt, a.requested, "handback")
		a.hasRequested = false
	}
	return nil
}

// refresh pulls the agent's own position, velocity and integrity from the
// world and maintains the lifetime counters.
func (a *Agent) refresh(rt *Runtime) error {
	pos, ok := rt.World.PositionOf(a.Entity)
	if !ok {
		return ErrEntityGone
	}

	if a.seeded {
		a.Perf.DistanceTraveled += a.Pos.DistanceTo(pos)
	} else {
		a.Home = pos
		a.healthAtEval = a.Health
		a.seeded = true
	}
	a.Pos = pos
	a.Perf.TimeAlive += rt.Cfg.Simulation.DT

	if vel, ok := rt.World.VelocityOf(a.Entity); ok {
		a.Vel = vel
	}

	if hp, ok := rt.World.IntegrityOf(a.Entity); ok {
		if hp < a.Health {
			a.Perf.DamageTaken += a.Health - hp
			a.Events.Record(EventDamageTaken, rt.Now, map[string]any{
				"from": a.Health, "to": hp,
			})
		}
		a.Health = hp
	}
	return nil
}

// applyOverrides enforces the health-threshold transitions that preempt
// the scheduler. Returns true when an override fired this step.
func (a *Agent) applyOverrides(rt *Runtime) bool {
	th := rt.Cfg.Thresholds

	if a.Health < th.LastStandHealth {
		// Critically low: too slow to run, so fight instead.
		if a.ActiveKind() != KindAttack {
			a.Events.Record(EventLastStand, rt.Now, map[string]any{"health": a.Health})
			a.Perf.Overrides++
			a.transitionTo(rt, KindAttack, "last_stand")
			return true
		}
		return false
	}

	if a.Health >= th.RetreatHealth {
		a.retreatBaseline = 0
		return false
	}

	if a.ActiveKind() == KindRetreat {
		return false
	}
	if a.retreatBaseline > 0 && a.Health >= a.retreatBaseline {
		// Already fled at this integrity level; don't loop retreats.
		return false
	}

	a.Events.Record(EventRetreatStarted, rt.Now, map[string]any{"health": a.Health})
	a.Perf.Overrides++
	a.transitionTo(rt, KindRetreat, "health_override")
	return true
}

// overrideHolds reports whether the active behavior is one a health
// override forced and the triggering condition still holds. The
// scheduler stays out of the way until the condition clears; otherwise
// every due evaluation would pull the agent out of a forced retreat only
// for the override to re-fire and re-plan it a tick later.
func (a *Agent) overrideHolds(rt *Runtime) bool {
	th := rt.Cfg.Thresholds
	if a.Health < th.LastStandHealth {
		return a.ActiveKind() == KindAttack
	}
	return a.Health < th.RetreatHealth && a.ActiveKind() == KindRetreat
}

// evaluate is the scheduled re-evaluation: score the ending behavior,
// report its outcome, and ask the selector for the next one.
func (a *Agent) evaluate(rt *Runtime) {
	s := buildSituation(a, rt)

	current := a.active
	success := current.Outcome(a, rt)
	rt.report(a.ID, current.Kind(), success, s.Ctx)
	a.lastOutcome = boolFeature(success)

	candidates := a.Disposition.CandidateKinds()
	names := make([]string, len(candidates))
	for i, k := range candidates {
		names[i] = string(k)
	}

	next, err := rt.Selector.Select(a.ID, s.Ctx, names, rt.Now)
	if err != nil {
		// Selector misuse is a configuration error; keep the current
		// behavior rather than halting the agent.
		rt.Log.Error("behavior selection failed",
			"agent", a.ID, "behavior", current.Kind(), "error", err)
	} else if Kind(next) != current.Kind() {
		a.transitionTo(rt, Kind(next), "scheduled")
	}

	a.healthAtEval = a.Health
	a.scheduleEval(rt)
}

// scheduleEval sets the next evaluation time, jittered per agent so a
// fleet does not re-decide in lockstep.
func (a *Agent) scheduleEval(rt *Runtime) {
	ev := rt.Cfg.Evaluation
	interval := ev.IntervalMin + rt.RNG.Float64()*rt.Cfg.Derived.EvalJitterSpan
	a.nextEval = rt.Now.Add(time.Duration(interval * float64(time.Second)))
}

// transitionTo swaps the active behavior, running exit and enter hooks
// and recording the change.
func (a *Agent) transitionTo(rt *Runtime, kind Kind, reason string) {
	var from Kind
	if a.active != nil {
		from = a.active.Kind()
		a.active.Exit(a, rt)
	}

	a.active = newBehavior(kind)
	a.active.Enter(a, rt)

	a.Events.Record(EventBehaviorChanged, rt.Now, map[string]any{
		"from": string(from), "to": string(kind), "reason": reason,
	})
	rt.Log.Debug("behavior changed",
		"agent", a.ID, "from", string(from), "to", string(kind), "reason", reason)
}

// RestoreBehavior forces the active behavior kind, used when resuming an
// agent from a persistence record.
func (a *Agent) RestoreBehavior(rt *Runtime, kind Kind) {
	a.transitionTo(rt, kind, "restored")
	a.scheduleEval(rt)
}

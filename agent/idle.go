package agent

// idleBehavior parks the agent. It is the default state, the fallback
// after a retreat, and the safe choice when nothing else scores well.
type idleBehavior struct {
	holding bool
}

func (b *idleBehavior) Kind() Kind { return KindIdle }

func (b *idleBehavior) Enter(a *Agent, rt *Runtime) {}

func (b *idleBehavior) Tick(a *Agent, rt *Runtime) error {
	if !b.holding {
		rt.Act.HoldPosition(a.Entity)
		b.holding = true
	}
	return nil
}

func (b *idleBehavior) Exit(a *Agent, rt *Runtime) {}

// Outcome: idling worked if nothing hurt us since the last evaluation.
func (b *idleBehavior) Outcome(a *Agent, rt *Runtime) bool {
	return a.Health >= a.healthAtEval
}

// Package agent implements the per-agent decision loop: context building,
// scheduled behavior re-evaluation with learned scoring, priority
// overrides, and the concrete behavior variants.
package agent

import (
	"errors"
	"time"

	"github.com/skirmishlab/vanguard/world"
)

// Kind names one discrete behavior strategy. The set is closed; the
// learning registry keys off these names.
type Kind string

const (
	KindIdle    Kind = "idle"
	KindPatrol  Kind = "patrol"
	KindAttack  Kind = "attack"
	KindDefense Kind = "defense"
	KindFollow  Kind = "follow"
	KindRetreat Kind = "retreat"
)

// AllKinds returns every behavior kind.
func AllKinds() []Kind {
	return []Kind{KindIdle, KindPatrol, KindAttack, KindDefense, KindFollow, KindRetreat}
}

// Disposition is an agent's standing posture, which constrains the
// candidate behaviors offered to the selector.
type Disposition uint8

const (
	DispositionPassive Disposition = iota
	DispositionGuard
	DispositionAggressive
)

func (d Disposition) String() string {
	switch d {
	case DispositionGuard:
		return "guard"
	case DispositionAggressive:
		return "aggressive"
	default:
		return "passive"
	}
}

// CandidateKinds returns the behaviors a disposition may run.
func (d Disposition) CandidateKinds() []Kind {
	switch d {
	case DispositionAggressive:
		return AllKinds()
	case DispositionGuard:
		return []Kind{KindIdle, KindPatrol, KindDefense, KindFollow, KindRetreat}
	default:
		return []Kind{KindIdle, KindPatrol, KindFollow, KindRetreat}
	}
}

// ErrEntityGone reports that the agent's underlying world entity has
// disappeared. The controller schedules the agent for removal instead of
// ticking it again.
var ErrEntityGone = errors.New("agent: world entity no longer exists")

// Performance accumulates an agent's lifetime counters.
type Performance struct {
	Engagements      int
	Overrides        int // Forced transitions (retreat / last stand)
	DamageTaken      float64
	TimeAlive        float64
	DistanceTraveled float64
}

// Agent is one controlled entity running the behavior state machine.
// All mutable state is private to the agent; only the shared learning
// registry crosses agent boundaries, via the Runtime's report hook.
type Agent struct {
	ID          string
	Entity      world.EntityID
	Disposition Disposition
	Home        world.Vec3 // Anchor for patrol routes and the defense zone
	Fallback    Kind       // Behavior to resume after a retreat completes

	Health float64
	Pos    world.Vec3
	Vel    world.Vec3

	Perf   Performance
	Events *EventLog

	active       Behavior
	nextEval     time.Time
	healthAtEval float64
	lastOutcome  float64 // 1 if the previous report was a success
	seeded       bool    // Pos initialized from the world at least once

	requested    Kind // Behavior hand-back requested by the active behavior
	hasRequested bool

	retreatBaseline float64 // Health at the end of the last completed retreat
}

// New creates an agent bound to a world entity. The home anchor defaults
// to the entity's spawn position on the first update.
func New(id string, entity world.EntityID, disposition Disposition, eventCapacity int) *Agent {
	return &Agent{
		ID:          id,
		Entity:      entity,
		Disposition: disposition,
		Fallback:    KindIdle,
		Health:      1,
		Events:      NewEventLog(eventCapacity),
	}
}

// ActiveKind returns the kind of the currently running behavior, or
// KindIdle before the first transition.
func (a *Agent) ActiveKind() Kind {
	if a.active == nil {
		return KindIdle
	}
	return a.active.Kind()
}

// requestTransition lets the active behavior hand control back to another
// kind at the end of the current tick.
func (a *Agent) requestTransition(kind Kind) {
	a.requested = kind
	a.hasRequested = true
}

// Package fleet runs many agents through one synchronous pass per
// simulation step: a sequential observation phase feeding the shared
// movement tracker, a decision phase that goes parallel for large
// fleets, and a sequential reduction applying batched learning reports.
package fleet

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/skirmishlab/vanguard/agent"
	"github.com/skirmishlab/vanguard/combat"
	"github.com/skirmishlab/vanguard/config"
	"github.com/skirmishlab/vanguard/learning"
	"github.com/skirmishlab/vanguard/telemetry"
	"github.com/skirmishlab/vanguard/tracking"
	"github.com/skirmishlab/vanguard/world"
)

// Manager owns the fleet's shared state and the per-step pass.
type Manager struct {
	cfg      *config.Config
	query    world.Query
	act      world.Actuator
	log      *slog.Logger
	tracker  *tracking.Tracker
	combat   *combat.Estimator
	registry *learning.Registry

	agents []*agent.Agent
	byID   map[string]*agent.Agent

	collector *telemetry.Collector

	seq       *agent.Runtime // Runtime for the sequential path
	parallel  *parallelState
	baseSeed  uint64
	lastPrune time.Time
}

// Options configures a Manager.
type Options struct {
	Config    *config.Config
	World     world.Query
	Actuator  world.Actuator
	Seed      uint64
	Log       *slog.Logger
	Collector *telemetry.Collector // Optional
}

// NewManager wires the shared components: one tracker, one combat
// estimator and one learning registry, with per-worker runtimes layered
// on top for the parallel phase.
func NewManager(opts Options) *Manager {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	tracker := tracking.NewTracker(
		cfg.Tracking.HistoryCapacity,
		cfg.Tracking.DerivativeWindow,
		cfg.Tracking.VarianceK,
	)
	estimator := combat.NewEstimator(opts.World, cfg.Combat.WeaponBaseDPS, cfg.Combat.ShieldRefUnits)
	registry := learning.NewRegistry(cfg.Learning)
	for _, k := range agent.AllKinds() {
		registry.Register(string(k))
	}

	m := &Manager{
		cfg:       cfg,
		query:     opts.World,
		act:       opts.Actuator,
		log:       log,
		tracker:   tracker,
		combat:    estimator,
		registry:  registry,
		byID:      make(map[string]*agent.Agent),
		collector: opts.Collector,
		baseSeed:  opts.Seed,
	}

	m.seq = m.newRuntime(opts.Seed, m.directReport)
	m.parallel = newParallelState(m)
	return m
}

// newRuntime builds a full runtime around the shared tracker, estimator
// and registry, with its own random stream.
func (m *Manager) newRuntime(seed uint64, report agent.ReportFunc) *agent.Runtime {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &agent.Runtime{
		World:     m.query,
		Act:       m.act,
		Tracker:   m.tracker,
		Predictor: tracking.NewPredictor(m.tracker, m.query, m.cfg.Tracking.NoiseScale, src),
		Combat:    m.combat,
		Selector:  learning.NewSelector(m.registry, m.cfg.Learning, src),
		Cfg:       m.cfg,
		RNG:       rand.New(src),
		Log:       m.log,
		Report:    report,
	}
}

// directReport applies an outcome straight to the registry, used on the
// sequential path.
func (m *Manager) directReport(agentID string, kind agent.Kind, success bool, ctx map[string]float64) {
	m.registry.ReportOutcome(agentID, string(kind), success, ctx, m.seq.Now)
	if m.collector != nil {
		m.collector.RecordEvaluation()
		m.collector.RecordOutcome(success)
	}
}

// Registry exposes the shared learning registry (for persistence and
// analytics).
func (m *Manager) Registry() *learning.Registry {
	return m.registry
}

// Tracker exposes the shared movement tracker.
func (m *Manager) Tracker() *tracking.Tracker {
	return m.tracker
}

// Agents returns the live agents in registration order.
func (m *Manager) Agents() []*agent.Agent {
	return m.agents
}

// AgentByID returns a registered agent.
func (m *Manager) AgentByID(id string) (*agent.Agent, bool) {
	a, ok := m.byID[id]
	return a, ok
}

// Controls reports whether a live agent is already bound to the entity.
func (m *Manager) Controls(entity world.EntityID) bool {
	for _, a := range m.agents {
		if a.Entity == entity {
			return true
		}
	}
	return false
}

// Spawn registers a new agent bound to a world entity.
func (m *Manager) Spawn(entity world.EntityID, disposition agent.Disposition) *agent.Agent {
	a := agent.New(uuid.NewString(), entity, disposition, m.cfg.Events.Capacity)
	m.agents = append(m.agents, a)
	m.byID[a.ID] = a
	m.log.Info("agent spawned",
		"agent", a.ID, "entity", uint64(entity), "disposition", disposition.String())
	return a
}

// Remove unregisters an agent and drops its learning history.
func (m *Manager) Remove(id string) {
	a, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)
	for i, cur := range m.agents {
		if cur == a {
			m.agents = append(m.agents[:i], m.agents[i+1:]...)
			break
		}
	}
	m.registry.DropHistory(id)
	if m.collector != nil {
		m.collector.RecordRemoval()
	}
	m.log.Info("agent removed", "agent", id, "entity", uint64(a.Entity))
}

// Step runs one synchronous pass: observe, decide, reduce. Each agent
// ticks exactly once; a failure in one agent never aborts the others.
func (m *Manager) Step(now time.Time) {
	if m.collector != nil {
		m.collector.RecordStep(now)
	}

	m.observe(now)

	prevKinds := make([]agent.Kind, len(m.agents))
	prevOverrides := make([]int, len(m.agents))
	for i, a := range m.agents {
		prevKinds[i] = a.ActiveKind()
		prevOverrides[i] = a.Perf.Overrides
	}

	var gone []string
	if len(m.agents) >= parallelThreshold {
		gone = m.parallel.run(now)
	} else {
		m.seq.Now = now
		for _, a := range m.agents {
			if err := m.tickAgent(m.seq, a); err != nil {
				if errors.Is(err, agent.ErrEntityGone) {
					gone = append(gone, a.ID)
				} else {
					m.log.Warn("agent tick failed",
						"agent", a.ID, "behavior", a.ActiveKind(), "error", err)
				}
			}
		}
	}

	if m.collector != nil {
		for i, a := range m.agents {
			if a.ActiveKind() != prevKinds[i] {
				m.collector.RecordTransition()
			}
			for n := a.Perf.Overrides - prevOverrides[i]; n > 0; n-- {
				m.collector.RecordOverride()
			}
		}
	}

	for _, id := range gone {
		m.Remove(id)
	}

	if now.Sub(m.lastPrune) >= m.cfg.Derived.PruneInterval {
		m.prune()
		m.lastPrune = now
	}
}

// tickAgent updates one agent behind a recover boundary so a panic in a
// behavior cannot take down the pass.
func (m *Manager) tickAgent(rt *agent.Runtime, a *agent.Agent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &tickPanicError{agentID: a.ID, value: r}
		}
	}()
	return a.Update(rt)
}

// observe is the sequential ingestion phase: every agent's own position
// plus every entity it can sense flows into the shared tracker. Running
// this single-threaded keeps a single writer per entity history.
func (m *Manager) observe(now time.Time) {
	seen := make(map[world.EntityID]bool, len(m.agents)*4)
	for _, a := range m.agents {
		pos, ok := m.query.PositionOf(a.Entity)
		if !ok {
			continue
		}
		if !seen[a.Entity] {
			m.tracker.Observe(a.Entity, pos, now)
			seen[a.Entity] = true
		}
		for _, id := range m.query.EntitiesWithinRadius(pos, m.cfg.Simulation.SensorRadius) {
			if seen[id] {
				continue
			}
			if p, ok := m.query.PositionOf(id); ok {
				m.tracker.Observe(id, p, now)
				seen[id] = true
			}
		}
	}
}

// prune evicts tracker histories and combat profiles for entities the
// world no longer reports.
func (m *Manager) prune() {
	alive := func(id world.EntityID) bool {
		_, ok := m.query.PositionOf(id)
		return ok
	}
	m.tracker.Prune(alive)
	m.combat.Prune(alive)
}

// FlushTelemetry flushes the collector window when due and returns the
// stats, if any.
func (m *Manager) FlushTelemetry(now time.Time) (telemetry.WindowStats, bool) {
	if m.collector == nil || !m.collector.ShouldFlush(now) {
		return telemetry.WindowStats{}, false
	}
	healths := make([]float64, 0, len(m.agents))
	for _, a := range m.agents {
		healths = append(healths, a.Health)
	}
	return m.collector.Flush(now, len(m.agents), healths), true
}

// tickPanicError wraps a recovered panic from an agent tick.
type tickPanicError struct {
	agentID string
	value   any
}

func (e *tickPanicError) Error() string {
	return fmt.Sprintf("agent %s tick panicked: %v", e.agentID, e.value)
}

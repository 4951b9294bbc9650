package fleet

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/skirmishlab/vanguard/agent"
	"github.com/skirmishlab/vanguard/config"
	"github.com/skirmishlab/vanguard/telemetry"
	"github.com/skirmishlab/vanguard/world"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeWorld is a minimal thread-safe world for manager tests.
type fakeWorld struct {
	mu        sync.Mutex
	positions map[world.EntityID]world.Vec3
	integrity map[world.EntityID]float64
	hostiles  map[world.EntityID]bool
	comps     map[world.EntityID][]world.Unit

	panicOn world.EntityID // IntegrityOf panics for this id when set

	moves map[world.EntityID]int
	holds map[world.EntityID]int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		positions: make(map[world.EntityID]world.Vec3),
		integrity: make(map[world.EntityID]float64),
		hostiles:  make(map[world.EntityID]bool),
		comps:     make(map[world.EntityID][]world.Unit),
		moves:     make(map[world.EntityID]int),
		holds:     make(map[world.EntityID]int),
	}
}

func (f *fakeWorld) addEntity(id world.EntityID, pos world.Vec3) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[id] = pos
	f.integrity[id] = 1
}

func (f *fakeWorld) EntitiesWithinRadius(center world.Vec3, radius float64) []world.EntityID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []world.EntityID{}
	for id, p := range f.positions {
		if center.DistanceTo(p) <= radius {
			out = append(out, id)
		}
	}
	return out
}

func (f *fakeWorld) PositionOf(id world.EntityID) (world.Vec3, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.positions[id]
	return p, ok
}

func (f *fakeWorld) VelocityOf(id world.EntityID) (world.Vec3, bool) {
	return world.Vec3{}, false
}

func (f *fakeWorld) IntegrityOf(id world.EntityID) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn != 0 && id == f.panicOn {
		panic("injected fault")
	}
	hp, ok := f.integrity[id]
	return hp, ok
}

func (f *fakeWorld) FactionRelation(a, b world.EntityID) world.Relation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hostiles[a] != f.hostiles[b] {
		return world.RelationHostile
	}
	return world.RelationAllied
}

func (f *fakeWorld) StructuralComposition(id world.EntityID) []world.Unit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comps[id]
}

func (f *fakeWorld) MoveTo(agent world.EntityID, target world.Vec3) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves[agent]++
}

func (f *fakeWorld) SetWeaponTarget(agent, target world.EntityID, predictedPos, predictedVel world.Vec3) {
}

func (f *fakeWorld) HoldPosition(agent world.EntityID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds[agent]++
}

func newTestManager(t *testing.T, fw *fakeWorld) *Manager {
	t.Helper()
	m := NewManager(Options{
		Config:    config.Default(),
		World:     fw,
		Actuator:  fw,
		Seed:      42,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Collector: telemetry.NewCollector(60),
	})
	t.Cleanup(m.Close)
	return m
}

func stepN(m *Manager, n int, dt float64) time.Time {
	now := testNow
	for i := 0; i < n; i++ {
		now = testNow.Add(time.Duration(float64(i) * dt * float64(time.Second)))
		m.Step(now)
	}
	return now
}

func TestSpawnAndStep(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)

	for i := world.EntityID(1); i <= 3; i++ {
		fw.addEntity(i, world.Vec3{X: float64(i) * 100})
		m.Spawn(i, agent.DispositionPassive)
	}

	m.Step(testNow)

	if len(m.Agents()) != 3 {
		t.Fatalf("agents = %d, want 3", len(m.Agents()))
	}
	for _, a := range m.Agents() {
		if a.ActiveKind() != agent.KindIdle {
			t.Errorf("agent %s active = %s, want idle", a.ID, a.ActiveKind())
		}
	}
}

func TestEachAgentTicksOncePerStep(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)
	dt := m.cfg.Simulation.DT

	for i := world.EntityID(1); i <= 5; i++ {
		fw.addEntity(i, world.Vec3{X: float64(i) * 100})
		m.Spawn(i, agent.DispositionGuard)
	}

	stepN(m, 10, dt)

	want := 10 * dt
	for _, a := range m.Agents() {
		if diff := a.Perf.TimeAlive - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("agent %s TimeAlive = %v, want %v", a.ID, a.Perf.TimeAlive, want)
		}
	}
}

func TestRemovesAgentWhenEntityGone(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)

	fw.addEntity(1, world.Vec3{})
	fw.addEntity(2, world.Vec3{X: 100})
	m.Spawn(1, agent.DispositionPassive)
	doomed := m.Spawn(2, agent.DispositionPassive)

	m.Step(testNow)

	fw.mu.Lock()
	delete(fw.positions, 2)
	fw.mu.Unlock()

	m.Step(testNow.Add(time.Second))

	if len(m.Agents()) != 1 {
		t.Fatalf("agents = %d, want 1 after entity loss", len(m.Agents()))
	}
	if _, ok := m.AgentByID(doomed.ID); ok {
		t.Error("removed agent still registered")
	}
}

func TestFailureIsolation(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)
	dt := m.cfg.Simulation.DT

	for i := world.EntityID(1); i <= 4; i++ {
		fw.addEntity(i, world.Vec3{X: float64(i) * 100})
		m.Spawn(i, agent.DispositionPassive)
	}
	m.Step(testNow)

	// Entity 3's world lookups now panic; the other agents must keep
	// ticking and the faulty agent must survive for a retry.
	fw.mu.Lock()
	fw.panicOn = 3
	fw.mu.Unlock()

	m.Step(testNow.Add(time.Second))
	m.Step(testNow.Add(2 * time.Second))

	if len(m.Agents()) != 4 {
		t.Fatalf("agents = %d, want 4", len(m.Agents()))
	}
	for _, a := range m.Agents() {
		if a.Entity == 3 {
			continue // faulty agent is retried, not removed
		}
		want := 3 * dt
		if diff := a.Perf.TimeAlive - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("agent %d TimeAlive = %v, want %v", a.Entity, a.Perf.TimeAlive, want)
		}
	}
}

func TestEvaluationFeedsRegistry(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)
	dt := 1.0 // coarse steps so evaluations come due quickly

	for i := world.EntityID(1); i <= 3; i++ {
		fw.addEntity(i, world.Vec3{X: float64(i) * 100})
		m.Spawn(i, agent.DispositionAggressive)
	}

	// 60 simulated seconds crosses at least one evaluation interval for
	// every agent.
	stepN(m, 60, dt)

	stats := m.Registry().Analytics()
	if stats.TotalUsage < 3 {
		t.Errorf("TotalUsage = %d, want at least one report per agent", stats.TotalUsage)
	}
	if stats.Behaviors != len(agent.AllKinds()) {
		t.Errorf("Behaviors = %d, want %d pre-registered", stats.Behaviors, len(agent.AllKinds()))
	}
}

func TestParallelStepMatchesSequentialSafety(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)
	dt := m.cfg.Simulation.DT

	// Enough agents to cross the parallel threshold.
	n := parallelThreshold + 16
	for i := 0; i < n; i++ {
		id := world.EntityID(i + 1)
		fw.addEntity(id, world.Vec3{X: float64(i) * 50})
		m.Spawn(id, agent.DispositionPassive)
	}

	stepN(m, 5, dt)

	if len(m.Agents()) != n {
		t.Fatalf("agents = %d, want %d", len(m.Agents()), n)
	}
	want := 5 * dt
	for _, a := range m.Agents() {
		if diff := a.Perf.TimeAlive - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("agent %d TimeAlive = %v, want %v (exactly one tick per step)",
				a.Entity, a.Perf.TimeAlive, want)
		}
	}
}

func TestParallelEvaluationsReachRegistry(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)

	n := parallelThreshold + 8
	for i := 0; i < n; i++ {
		id := world.EntityID(i + 1)
		fw.addEntity(id, world.Vec3{X: float64(i) * 50})
		m.Spawn(id, agent.DispositionAggressive)
	}

	// Coarse one-second steps cross every agent's evaluation interval,
	// so the reports batched during the worker phase must land in the
	// shared registry through the reduction.
	stepN(m, 60, 1.0)

	stats := m.Registry().Analytics()
	if stats.TotalUsage < n {
		t.Errorf("TotalUsage = %d, want at least one report per agent (%d)", stats.TotalUsage, n)
	}
}

func TestSnapshotRestore(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)

	fw.addEntity(1, world.Vec3{X: 10})
	fw.addEntity(2, world.Vec3{X: 20})
	m.Spawn(1, agent.DispositionAggressive)
	m.Spawn(2, agent.DispositionPassive)

	now := stepN(m, 60, 1.0)
	snap := m.Snapshot(now)

	if len(snap.Agents) != 2 {
		t.Fatalf("snapshot agents = %d, want 2", len(snap.Agents))
	}
	if len(snap.Registry) == 0 {
		t.Fatal("snapshot carries no registry records")
	}

	m2 := newTestManager(t, fw)
	if restored := m2.Restore(snap, now); restored != 2 {
		t.Fatalf("restored = %d, want 2", restored)
	}

	for _, orig := range m.Agents() {
		got, ok := m2.AgentByID(orig.ID)
		if !ok {
			t.Fatalf("agent %s missing after restore", orig.ID)
		}
		if got.ActiveKind() != orig.ActiveKind() {
			t.Errorf("agent %s behavior = %s, want %s", orig.ID, got.ActiveKind(), orig.ActiveKind())
		}
		if got.Disposition != orig.Disposition {
			t.Errorf("agent %s disposition mismatch", orig.ID)
		}
	}

	// The learned state must carry over too.
	origStats := m.Registry().Analytics()
	gotStats := m2.Registry().Analytics()
	if gotStats.TotalUsage != origStats.TotalUsage {
		t.Errorf("TotalUsage = %d, want %d", gotStats.TotalUsage, origStats.TotalUsage)
	}
}

func TestRestoreSkipsControlledEntities(t *testing.T) {
	fw := newFakeWorld()
	m := newTestManager(t, fw)

	fw.addEntity(1, world.Vec3{X: 10})
	fw.addEntity(2, world.Vec3{X: 20})
	m.Spawn(1, agent.DispositionAggressive)
	m.Spawn(2, agent.DispositionGuard)
	now := stepN(m, 5, 1.0)
	snap := m.Snapshot(now)

	// A fresh run binds its own controllers to the same entity ids
	// before the snapshot is read; restore must not double them up.
	m2 := newTestManager(t, fw)
	m2.Spawn(1, agent.DispositionAggressive)
	m2.Spawn(2, agent.DispositionGuard)

	if restored := m2.Restore(snap, now); restored != 0 {
		t.Errorf("restored = %d, want 0 with every entity already claimed", restored)
	}
	if len(m2.Agents()) != 2 {
		t.Fatalf("agents = %d, want 2", len(m2.Agents()))
	}
	perEntity := make(map[world.EntityID]int)
	for _, a := range m2.Agents() {
		perEntity[a.Entity]++
	}
	for id, count := range perEntity {
		if count != 1 {
			t.Errorf("entity %d has %d controllers, want 1", id, count)
		}
	}
	if !m2.Controls(1) || !m2.Controls(2) {
		t.Error("Controls must report both entities bound")
	}
}

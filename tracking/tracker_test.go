package tracking

import (
	"math"
	"testing"
	"time"

	"github.com/skirmishlab/vanguard/world"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func observeLinear(tr *Tracker, id world.EntityID, n int, vel world.Vec3) {
	for i := 0; i < n; i++ {
		at := t0.Add(time.Duration(i) * time.Second)
		tr.Observe(id, vel.Scale(float64(i)), at)
	}
}

func TestObserveBoundedHistory(t *testing.T) {
	tr := NewTracker(50, 10, 0.1)

	observeLinear(tr, 1, 200, world.Vec3{X: 10})

	if got := tr.HistoryLen(1); got != 50 {
		t.Errorf("HistoryLen = %d, want 50", got)
	}

	// Oldest surviving sample must be number 150 (the newest 50 kept).
	oldest, ok := tr.Oldest(1)
	if !ok {
		t.Fatal("Oldest returned no sample")
	}
	if math.Abs(oldest.Pos.X-1500) > 0.001 {
		t.Errorf("oldest sample X = %v, want 1500", oldest.Pos.X)
	}
}

func TestLinearMoverEstimate(t *testing.T) {
	tr := NewTracker(50, 10, 0.1)

	observeLinear(tr, 1, 20, world.Vec3{X: 10, Z: -5})

	est := tr.EstimateFor(1)
	if math.Abs(est.Velocity.X-10) > 0.001 || math.Abs(est.Velocity.Z+5) > 0.001 {
		t.Errorf("velocity = %+v, want {10 0 -5}", est.Velocity)
	}
	if est.Acceleration.Length() > 0.001 {
		t.Errorf("acceleration = %+v, want zero", est.Acceleration)
	}
	if math.Abs(est.Predictability-1) > 0.001 {
		t.Errorf("predictability = %v, want 1 for constant velocity", est.Predictability)
	}
}

func TestErraticMoverPredictability(t *testing.T) {
	tr := NewTracker(50, 10, 0.1)

	// Alternating jumps give a step-velocity deviation of 100 units/s.
	x := 0.0
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			x += 100
		} else {
			x -= 100
		}
		tr.Observe(1, world.Vec3{X: x}, t0.Add(time.Duration(i)*time.Second))
	}

	est := tr.EstimateFor(1)
	if est.Predictability >= 0.5 {
		t.Errorf("predictability = %v, want < 0.5 for erratic mover", est.Predictability)
	}
	if est.Predictability <= 0 {
		t.Errorf("predictability = %v, want > 0", est.Predictability)
	}
}

func TestDuplicateTimestamps(t *testing.T) {
	tr := NewTracker(50, 10, 0.1)

	for i := 0; i < 5; i++ {
		tr.Observe(1, world.Vec3{X: float64(i * 10)}, t0)
	}

	est := tr.EstimateFor(1)
	if est.Velocity.Length() != 0 {
		t.Errorf("velocity = %+v, want zero when time never advances", est.Velocity)
	}
	if est.Predictability != 0 {
		t.Errorf("predictability = %v, want 0", est.Predictability)
	}
	if math.IsNaN(est.Velocity.X) || math.IsNaN(est.Predictability) {
		t.Error("estimate contains NaN")
	}
}

func TestUnknownEntityEstimate(t *testing.T) {
	tr := NewTracker(50, 10, 0.1)

	est := tr.EstimateFor(42)
	if est.Predictability != 0 || est.Samples != 0 {
		t.Errorf("unknown entity estimate = %+v, want zero value", est)
	}
	if _, ok := tr.LastKnown(42); ok {
		t.Error("LastKnown returned ok for unknown entity")
	}
}

func TestPrune(t *testing.T) {
	tr := NewTracker(50, 10, 0.1)
	tr.Observe(1, world.Vec3{}, t0)
	tr.Observe(2, world.Vec3{}, t0)

	tr.Prune(func(id world.EntityID) bool { return id == 2 })

	if tr.Tracked() != 1 {
		t.Errorf("Tracked = %d, want 1", tr.Tracked())
	}
	if tr.HistoryLen(1) != 0 {
		t.Error("pruned entity still has history")
	}
	if tr.HistoryLen(2) != 1 {
		t.Error("surviving entity lost history")
	}
}

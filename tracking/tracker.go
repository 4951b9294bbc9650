// Package tracking maintains bounded movement histories for observed
// entities and extrapolates their future positions.
package tracking

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/skirmishlab/vanguard/world"
)

// Sample is one observed position at a point in time.
type Sample struct {
	Pos world.Vec3
	At  time.Time
}

// Estimate is the derived motion model for a tracked entity.
// Predictability is in (0,1] once enough samples exist; 0 means
// "unknown, assume unpredictable".
type Estimate struct {
	Velocity       world.Vec3
	Acceleration   world.Vec3
	Predictability float64
	Samples        int
}

// track holds one entity's ring buffer of samples plus its current estimate.
type track struct {
	samples  []Sample // ring storage
	head     int      // index of the oldest sample
	count    int
	estimate Estimate
}

// Tracker records movement samples per entity and derives velocity,
// acceleration and predictability from the most recent ones.
//
// Writes are expected from a single goroutine per entity (the fleet
// manager ingests all observations in its sequential phase); reads after
// ingestion are safe from any number of goroutines.
type Tracker struct {
	tracks    map[world.EntityID]*track
	capacity  int     // ring size per entity
	window    int     // samples used for derivative estimation
	varianceK float64 // predictability falloff constant
}

// NewTracker creates a tracker keeping up to capacity samples per entity
// and computing estimates from the last window samples.
func NewTracker(capacity, window int, varianceK float64) *Tracker {
	if capacity < 2 {
		capacity = 2
	}
	if window < 2 {
		window = 2
	}
	return &Tracker{
		tracks:    make(map[world.EntityID]*track),
		capacity:  capacity,
		window:    window,
		varianceK: varianceK,
	}
}

// Observe appends a sample for the entity, evicting the oldest when the
// ring is full, and recomputes the estimate from the recent window.
func (t *Tracker) Observe(id world.EntityID, pos world.Vec3, at time.Time) {
	tr, ok := t.tracks[id]
	if !ok {
		tr = &track{samples: make([]Sample, t.capacity)}
		t.tracks[id] = tr
	}

	idx := (tr.head + tr.count) % t.capacity
	tr.samples[idx] = Sample{Pos: pos, At: at}
	if tr.count < t.capacity {
		tr.count++
	} else {
		tr.head = (tr.head + 1) % t.capacity
	}

	t.recompute(tr)
}

// EstimateFor returns the current estimate for the entity. Unknown
// entities yield the zero estimate (predictability 0).
func (t *Tracker) EstimateFor(id world.EntityID) Estimate {
	if tr, ok := t.tracks[id]; ok {
		return tr.estimate
	}
	return Estimate{}
}

// LastKnown returns the most recent observed position for the entity.
func (t *Tracker) LastKnown(id world.EntityID) (world.Vec3, bool) {
	tr, ok := t.tracks[id]
	if !ok || tr.count == 0 {
		return world.Vec3{}, false
	}
	last := (tr.head + tr.count - 1) % t.capacity
	return tr.samples[last].Pos, true
}

// HistoryLen returns how many samples are buffered for the entity.
func (t *Tracker) HistoryLen(id world.EntityID) int {
	if tr, ok := t.tracks[id]; ok {
		return tr.count
	}
	return 0
}

// Oldest returns the oldest buffered sample for the entity.
func (t *Tracker) Oldest(id world.EntityID) (Sample, bool) {
	tr, ok := t.tracks[id]
	if !ok || tr.count == 0 {
		return Sample{}, false
	}
	return tr.samples[tr.head], true
}

// Prune drops histories for entities the world no longer reports.
func (t *Tracker) Prune(alive func(world.EntityID) bool) {
	for id := range t.tracks {
		if !alive(id) {
			delete(t.tracks, id)
		}
	}
}

// Tracked returns the number of entities with buffered history.
func (t *Tracker) Tracked() int {
	return len(t.tracks)
}

// recompute rebuilds the estimate from the last window samples.
// Per-step velocities are accepted only when the timestamps strictly
// advance, guarding against duplicate-timestamp samples.
func (t *Tracker) recompute(tr *track) {
	n := tr.count
	if n > t.window {
		n = t.window
	}
	start := tr.head + tr.count - n

	var vx, vy, vz []float64
	for i := 1; i < n; i++ {
		prev := tr.samples[(start+i-1)%t.capacity]
		cur := tr.samples[(start+i)%t.capacity]
		dt := cur.At.Sub(prev.At).Seconds()
		if dt <= 0 {
			continue
		}
		step := cur.Pos.Sub(prev.Pos).Scale(1 / dt)
		vx = append(vx, step.X)
		vy = append(vy, step.Y)
		vz = append(vz, step.Z)
	}

	if len(vx) == 0 {
		// Not enough motion data; velocity unknown, keep prior acceleration.
		tr.estimate.Velocity = world.Vec3{}
		tr.estimate.Predictability = 0
		tr.estimate.Samples = tr.count
		return
	}

	tr.estimate.Velocity = world.Vec3{
		X: stat.Mean(vx, nil),
		Y: stat.Mean(vy, nil),
		Z: stat.Mean(vz, nil),
	}

	if len(vx) >= 2 {
		var ax, ay, az float64
		for i := 1; i < len(vx); i++ {
			ax += vx[i] - vx[i-1]
			ay += vy[i] - vy[i-1]
			az += vz[i] - vz[i-1]
		}
		m := float64(len(vx) - 1)
		tr.estimate.Acceleration = world.Vec3{X: ax / m, Y: ay / m, Z: az / m}
	}

	tr.estimate.Predictability = t.predictability(vx, vy, vz)
	tr.estimate.Samples = tr.count
}

// predictability maps step-velocity variance to (0,1]: a stationary or
// constant-velocity mover approaches 1, an erratic one approaches 0.
func (t *Tracker) predictability(vx, vy, vz []float64) float64 {
	if len(vx) < 2 {
		return 1
	}
	variance := stat.Variance(vx, nil) + stat.Variance(vy, nil) + stat.Variance(vz, nil)
	if variance < 0 {
		variance = 0
	}
	return 1 / (1 + math.Sqrt(variance)*t.varianceK)
}

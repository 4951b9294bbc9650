package tracking

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/skirmishlab/vanguard/world"
)

// Predictor extrapolates a tracked entity's position at a future horizon.
// The injected random source makes the noise term reproducible: two
// predictors built from the same seed produce identical predictions.
type Predictor struct {
	tracker    *Tracker
	query      world.Query
	noise      distuv.Normal
	noiseScale float64
}

// NewPredictor creates a predictor over the tracker's histories. Entities
// without history degrade to their last known world position. noiseScale
// is in distance units per second of horizon for a fully unpredictable mover.
func NewPredictor(tracker *Tracker, query world.Query, noiseScale float64, src rand.Source) *Predictor {
	return &Predictor{
		tracker:    tracker,
		query:      query,
		noise:      distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		noiseScale: noiseScale,
	}
}

// Predict returns the expected position of the entity horizon seconds from
// now. With no movement history the last known position is returned
// unmodified. Otherwise the kinematic extrapolation
// p + v*h + a*h^2/2 is perturbed by isotropic noise that grows with the
// horizon and with the entity's unpredictability.
func (p *Predictor) Predict(id world.EntityID, horizon float64) world.Vec3 {
	base, known := p.tracker.LastKnown(id)
	if !known {
		if pos, ok := p.query.PositionOf(id); ok {
			return pos
		}
		return world.Vec3{}
	}

	est := p.tracker.EstimateFor(id)
	if est.Predictability == 0 {
		// History exists but carries no usable motion data.
		return base
	}

	pos := base.
		Add(est.Velocity.Scale(horizon)).
		Add(est.Acceleration.Scale(0.5 * horizon * horizon))

	sigma := (1 - est.Predictability) * horizon * p.noiseScale
	if sigma > 0 {
		pos.X += p.noise.Rand() * sigma
		pos.Y += p.noise.Rand() * sigma
		pos.Z += p.noise.Rand() * sigma
	}
	return pos
}

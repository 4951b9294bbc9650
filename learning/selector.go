package learning

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/skirmishlab/vanguard/config"
)

// ErrNoCandidates reports a selection call with an empty candidate set.
// This is caller misuse: it means no behaviors were registered for the
// agent's disposition.
var ErrNoCandidates = errors.New("learning: no candidate behaviors to select from")

// Selector scores candidate behaviors against the registry and samples
// among the best of them. Sampling, not argmax: deliberate exploration
// keeps the system from locking onto a locally-good behavior forever.
type Selector struct {
	registry *Registry
	cfg      config.LearningConfig
	src      rand.Source
}

// NewSelector creates a selector drawing randomness from src. A seeded
// source makes selection reproducible.
func NewSelector(registry *Registry, cfg config.LearningConfig, src rand.Source) *Selector {
	return &Selector{registry: registry, cfg: cfg, src: src}
}

type scored struct {
	kind  string
	score float64
}

// Select picks one behavior kind for the agent given its context vector.
// Unknown candidates are registered with the default success rate first.
// A single candidate is returned directly without drawing randomness.
func (s *Selector) Select(agentID string, ctx map[string]float64, candidates []string, now time.Time) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	if len(candidates) == 1 {
		s.registry.Register(candidates[0])
		return candidates[0], nil
	}

	history := s.registry.HistoryFor(agentID)
	thrashCutoff := now.Add(-time.Duration(s.cfg.ThrashWindow * float64(time.Second)))

	ranked := make([]scored, 0, len(candidates))
	for _, kind := range candidates {
		s.registry.Register(kind)
		rec, _ := s.registry.RecordFor(kind)
		ranked = append(ranked, scored{
			kind:  kind,
			score: s.score(rec, ctx, history, kind, thrashCutoff, now),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	top := s.cfg.TopCandidates
	if top < 1 {
		top = 1
	}
	if top > len(ranked) {
		top = len(ranked)
	}
	ranked = ranked[:top]

	weights := make([]float64, len(ranked))
	for i, c := range ranked {
		weights[i] = math.Exp(c.score * s.cfg.SoftmaxGain)
	}

	idx, ok := sampleuv.NewWeighted(weights, s.src).Take()
	if !ok {
		// Degenerate weights; fall back to the top score.
		idx = 0
	}
	return ranked[idx].kind, nil
}

// score combines the learned success rate with a scaled
// context match, a novelty bonus for long-unused behaviors, and an
// anti-thrashing penalty when the agent already ran this kind repeatedly
// in the recent window. The result is clamped to [0,2].
func (s *Selector) score(rec Record, ctx map[string]float64, history *History, kind string, thrashCutoff, now time.Time) float64 {
	score := rec.SuccessRate

	var match float64
	for feature, value := range ctx {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		w, ok := rec.Weights[feature]
		if !ok {
			w = 0.5
		}
		match += w * value
	}
	score += s.cfg.ContextCoef * match

	if !rec.LastUsed.IsZero() {
		idle := now.Sub(rec.LastUsed).Seconds()
		if idle > s.cfg.NoveltyAfter {
			score += s.cfg.NoveltyBonus * math.Min(idle/3600, 1)
		}
	}

	if history.CountRecent(kind, thrashCutoff) > s.cfg.ThrashLimit {
		score *= s.cfg.ThrashPenalty
	}

	if score < 0 {
		return 0
	}
	if score > 2 {
		return 2
	}
	return score
}

// Package learning holds the online behavior-efficacy model: one learned
// record per behavior kind, updated from outcome reports, plus the
// stochastic selector that picks among candidate behaviors.
//
// Records are keyed by plain behavior-name strings so the package stays a
// leaf: callers define the kinds, learning only scores them.
package learning

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/skirmishlab/vanguard/config"
)

// Record is the learned state for one behavior kind.
type Record struct {
	SuccessRate float64            // EMA of outcome successes
	Weights     map[string]float64 // Per context-feature weight, each in [0,1]
	UseCount    int
	LastUsed    time.Time
}

// clone returns a deep copy so callers cannot mutate registry state.
func (r *Record) clone() Record {
	cp := *r
	cp.Weights = make(map[string]float64, len(r.Weights))
	for k, v := range r.Weights {
		cp.Weights[k] = v
	}
	return cp
}

// Stats is the aggregate analytics view across all behavior kinds.
type Stats struct {
	Behaviors       int
	MeanSuccessRate float64
	TotalUsage      int
}

// Registry stores behavior records and per-agent execution histories.
// All methods are safe for concurrent use; the fleet manager may also
// batch outcome reports and apply them from a single goroutine.
type Registry struct {
	mu        sync.RWMutex
	records   map[string]*Record
	histories map[string]*History

	cfg config.LearningConfig
}

// NewRegistry creates an empty registry with the given learning tunables.
func NewRegistry(cfg config.LearningConfig) *Registry {
	return &Registry{
		records:   make(map[string]*Record),
		histories: make(map[string]*History),
		cfg:       cfg,
	}
}

// Register adds a behavior kind with the default success rate of 0.5.
// Registering an existing kind is a no-op.
func (r *Registry) Register(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(kind)
}

func (r *Registry) register(kind string) *Record {
	if rec, ok := r.records[kind]; ok {
		return rec
	}
	rec := &Record{SuccessRate: 0.5, Weights: make(map[string]float64)}
	r.records[kind] = rec
	return rec
}

// ReportOutcome blends an execution result into the kind's record and
// appends it to the reporting agent's history.
//
// The success rate moves by the EMA rule rate = rate*(1-α) + outcome*α.
// Each finite context feature nudges its weight by ±step*value, clamped
// to [0,1]; non-finite feature values are skipped so a single corrupt
// reading cannot poison the record.
func (r *Registry) ReportOutcome(agentID, kind string, success bool, ctx map[string]float64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.register(kind)

	outcome := 0.0
	if success {
		outcome = 1.0
	}
	rec.SuccessRate = rec.SuccessRate*(1-r.cfg.Alpha) + outcome*r.cfg.Alpha
	rec.UseCount++
	rec.LastUsed = now

	for feature, value := range ctx {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		w, ok := rec.Weights[feature]
		if !ok {
			w = 0.5
		}
		delta := r.cfg.WeightStep * value
		if !success {
			delta = -delta
		}
		rec.Weights[feature] = clamp01(w + delta)
	}

	r.historyFor(agentID).Append(Execution{
		Kind:          kind,
		At:            now,
		Success:       success,
		Context:       ctx,
		Effectiveness: rec.SuccessRate,
	})
}

// RecordFor returns a copy of one kind's record.
func (r *Registry) RecordFor(kind string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[kind]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Analytics returns aggregate statistics across all behavior kinds.
func (r *Registry) Analytics() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Behaviors: len(r.records)}
	if s.Behaviors == 0 {
		return s
	}
	var sum float64
	for _, rec := range r.records {
		sum += rec.SuccessRate
		s.TotalUsage += rec.UseCount
	}
	s.MeanSuccessRate = sum / float64(s.Behaviors)
	return s
}

// HistoryFor returns the reporting history for an agent, creating it on
// first use.
func (r *Registry) HistoryFor(agentID string) *History {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.historyFor(agentID)
}

func (r *Registry) historyFor(agentID string) *History {
	h, ok := r.histories[agentID]
	if !ok {
		h = NewHistory(r.cfg.HistoryCapacity)
		r.histories[agentID] = h
	}
	return h
}

// DropHistory removes an agent's history, used when the agent is
// unregistered from the fleet.
func (r *Registry) DropHistory(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.histories, agentID)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sortedKinds returns record kinds in deterministic order, used by the
// exporter and by tests.
func (r *Registry) sortedKinds() []string {
	kinds := make([]string, 0, len(r.records))
	for k := range r.records {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

package learning

import "time"

// RecordExport is the portable form of one behavior record.
type RecordExport struct {
	Kind        string
	SuccessRate float64
	UseCount    int
	LastUsed    time.Time
	Weights     map[string]float64
}

// Export captures the registry's learned state for cross-session
// persistence. Agent histories are process-lifetime only and are not
// exported.
type Export struct {
	Records []RecordExport
}

// Export returns a snapshot of all behavior records in deterministic
// (sorted) kind order.
func (r *Registry) Export() Export {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Export{Records: make([]RecordExport, 0, len(r.records))}
	for _, kind := range r.sortedKinds() {
		rec := r.records[kind].clone()
		out.Records = append(out.Records, RecordExport{
			Kind:        kind,
			SuccessRate: rec.SuccessRate,
			UseCount:    rec.UseCount,
			LastUsed:    rec.LastUsed,
			Weights:     rec.Weights,
		})
	}
	return out
}

// Import merges exported records into the registry, replacing any
// existing record of the same kind.
func (r *Registry) Import(exp Export) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, re := range exp.Records {
		weights := make(map[string]float64, len(re.Weights))
		for k, v := range re.Weights {
			weights[k] = clamp01(v)
		}
		r.records[re.Kind] = &Record{
			SuccessRate: re.SuccessRate,
			Weights:     weights,
			UseCount:    re.UseCount,
			LastUsed:    re.LastUsed,
		}
	}
}

package learning

import "time"

// Execution is one recorded behavior run for an agent.
type Execution struct {
	Kind          string
	At            time.Time
	Success       bool
	Context       map[string]float64
	Effectiveness float64 // Kind's success rate right after the report
}

// History is a bounded ring of an agent's recent behavior executions.
// The selector uses it to penalize picking the same behavior too often
// in a short window. Oldest entries are evicted on overflow.
type History struct {
	entries []Execution
	head    int
	count   int
}

// NewHistory creates a history holding up to capacity executions.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]Execution, capacity)}
}

// Append records an execution, evicting the oldest when full.
func (h *History) Append(e Execution) {
	idx := (h.head + h.count) % len(h.entries)
	h.entries[idx] = e
	if h.count < len(h.entries) {
		h.count++
	} else {
		h.head = (h.head + 1) % len(h.entries)
	}
}

// Len returns the number of buffered executions.
func (h *History) Len() int {
	return h.count
}

// CountRecent returns how many times the kind ran at or after cutoff.
func (h *History) CountRecent(kind string, cutoff time.Time) int {
	n := 0
	for i := 0; i < h.count; i++ {
		e := h.entries[(h.head+i)%len(h.entries)]
		if e.Kind == kind && !e.At.Before(cutoff) {
			n++
		}
	}
	return n
}

// Recent returns up to limit most-recent executions, newest first.
func (h *History) Recent(limit int) []Execution {
	if limit > h.count {
		limit = h.count
	}
	out := make([]Execution, 0, limit)
	for i := h.count - 1; i >= h.count-limit; i-- {
		out = append(out, h.entries[(h.head+i)%len(h.entries)])
	}
	return out
}

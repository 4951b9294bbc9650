// Package telemetry accumulates windowed statistics about fleet
// decision-making and writes them to CSV for offline analysis.
package telemetry

import "time"

// Collector accumulates decision events within time windows and produces
// WindowStats. It is not goroutine-safe; the fleet manager only touches
// it from its sequential phases.
type Collector struct {
	window      time.Duration
	windowStart time.Time
	started     bool

	steps           int
	evaluations     int
	transitions     int
	overrides       int
	outcomesSuccess int
	outcomesFailure int
	removals        int
}

// NewCollector creates a collector flushing every windowSec seconds of
// simulation time.
func NewCollector(windowSec float64) *Collector {
	if windowSec <= 0 {
		windowSec = 60
	}
	return &Collector{window: time.Duration(windowSec * float64(time.Second))}
}

// RecordStep notes one fleet pass.
func (c *Collector) RecordStep(now time.Time) {
	if !c.started {
		c.windowStart = now
		c.started = true
	}
	c.steps++
}

// RecordEvaluation notes one scheduled behavior re-evaluation.
func (c *Collector) RecordEvaluation() {
	c.evaluations++
}

// RecordTransition notes one behavior change.
func (c *Collector) RecordTransition() {
	c.transitions++
}

// RecordOverride notes a priority override (forced retreat or last stand).
func (c *Collector) RecordOverride() {
	c.overrides++
}

// RecordOutcome notes one outcome report fed to the learning registry.
func (c *Collector) RecordOutcome(success bool) {
	if success {
		c.outcomesSuccess++
	} else {
		c.outcomesFailure++
	}
}

// RecordRemoval notes an agent dropped because its entity disappeared.
func (c *Collector) RecordRemoval() {
	c.removals++
}

// ShouldFlush returns true once a full window has elapsed.
func (c *Collector) ShouldFlush(now time.Time) bool {
	return c.started && now.Sub(c.windowStart) >= c.window
}

// Flush produces a WindowStats for the elapsed window and resets the
// counters. The caller provides the current agent count and health values
// for percentile calculation.
func (c *Collector) Flush(now time.Time, agents int, healths []float64) WindowStats {
	total := c.outcomesSuccess + c.outcomesFailure
	successRate := 0.0
	if total > 0 {
		successRate = float64(c.outcomesSuccess) / float64(total)
	}

	mean, p10, p50, p90 := ComputeHealthStats(healths)

	stats := WindowStats{
		WindowStart:     c.windowStart.Unix(),
		WindowEnd:       now.Unix(),
		Steps:           c.steps,
		Agents:          agents,
		Evaluations:     c.evaluations,
		Transitions:     c.transitions,
		Overrides:       c.overrides,
		OutcomesSuccess: c.outcomesSuccess,
		OutcomesFailure: c.outcomesFailure,
		SuccessRate:     successRate,
		Removals:        c.removals,
		HealthMean:      mean,
		HealthP10:       p10,
		HealthP50:       p50,
		HealthP90:       p90,
	}

	c.windowStart = now
	c.steps = 0
	c.evaluations = 0
	c.transitions = 0
	c.overrides = 0
	c.outcomesSuccess = 0
	c.outcomesFailure = 0
	c.removals = 0

	return stats
}

// WindowStats is one flushed telemetry window.
type WindowStats struct {
	WindowStart     int64   `csv:"window_start"`
	WindowEnd       int64   `csv:"window_end"`
	Steps           int     `csv:"steps"`
	Agents          int     `csv:"agents"`
	Evaluations     int     `csv:"evaluations"`
	Transitions     int     `csv:"transitions"`
	Overrides       int     `csv:"overrides"`
	OutcomesSuccess int     `csv:"outcomes_success"`
	OutcomesFailure int     `csv:"outcomes_failure"`
	SuccessRate     float64 `csv:"success_rate"`
	Removals        int     `csv:"removals"`
	HealthMean      float64 `csv:"health_mean"`
	HealthP10       float64 `csv:"health_p10"`
	HealthP50       float64 `csv:"health_p50"`
	HealthP90       float64 `csv:"health_p90"`
}

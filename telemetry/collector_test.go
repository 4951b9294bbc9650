package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(60)

	c.RecordStep(t0)
	if c.ShouldFlush(t0.Add(30 * time.Second)) {
		t.Error("flush due before the window elapsed")
	}
	if !c.ShouldFlush(t0.Add(61 * time.Second)) {
		t.Error("flush not due after the window elapsed")
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(60)

	c.RecordStep(t0)
	c.RecordStep(t0.Add(time.Second))
	c.RecordEvaluation()
	c.RecordEvaluation()
	c.RecordEvaluation()
	c.RecordTransition()
	c.RecordOverride()
	c.RecordOutcome(true)
	c.RecordOutcome(true)
	c.RecordOutcome(false)
	c.RecordRemoval()

	end := t0.Add(time.Minute)
	stats := c.Flush(end, 5, []float64{0.5, 1.0})

	if stats.Steps != 2 || stats.Evaluations != 3 || stats.Transitions != 1 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.Overrides != 1 || stats.Removals != 1 {
		t.Errorf("override/removal counts = %+v", stats)
	}
	if stats.Agents != 5 {
		t.Errorf("Agents = %d, want 5", stats.Agents)
	}
	if math.Abs(stats.SuccessRate-2.0/3.0) > 1e-9 {
		t.Errorf("SuccessRate = %v, want 2/3", stats.SuccessRate)
	}
	if math.Abs(stats.HealthMean-0.75) > 1e-9 {
		t.Errorf("HealthMean = %v, want 0.75", stats.HealthMean)
	}
	if stats.WindowStart != t0.Unix() || stats.WindowEnd != end.Unix() {
		t.Errorf("window bounds = %d..%d", stats.WindowStart, stats.WindowEnd)
	}

	// Counters reset after flush.
	next := c.Flush(end.Add(time.Minute), 5, nil)
	if next.Steps != 0 || next.Evaluations != 0 || next.OutcomesSuccess != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if om != nil {
		t.Fatal("expected nil manager for empty dir")
	}

	// All operations must be safe on the nil manager.
	if err := om.WriteStats(WindowStats{}); err != nil {
		t.Errorf("WriteStats on nil: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
	if om.Dir() != "" {
		t.Error("Dir on nil manager not empty")
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run1")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	if err := om.WriteStats(WindowStats{Steps: 10, Agents: 3}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := om.WriteStats(WindowStats{Steps: 20, Agents: 3}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "decisions.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header + 2 records", len(lines))
	}
	if !strings.Contains(lines[0], "steps") || !strings.Contains(lines[0], "health_mean") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(lines[1], "steps") {
		t.Error("header repeated in record row")
	}
}

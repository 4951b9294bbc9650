package agent

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/skirmishlab/vanguard/combat"
	"github.com/skirmishlab/vanguard/config"
	"github.com/skirmishlab/vanguard/learning"
	"github.com/skirmishlab/vanguard/tracking"
	"github.com/skirmishlab/vanguard/world"
)

// ReportFunc delivers a behavior outcome to the learning registry. The
// fleet manager wires this either directly or through a per-worker batch
// that is applied after the parallel phase.
type ReportFunc func(agentID string, kind Kind, success bool, ctx map[string]float64)

// Runtime bundles every collaborator an agent needs during one update.
// It replaces any process-wide manager: independent simulations construct
// independent runtimes and share nothing.
//
// A Runtime must not be shared between goroutines that tick agents
// concurrently; the fleet manager builds one per worker.
type Runtime struct {
	World     world.Query
	Act       world.Actuator
	Tracker   *tracking.Tracker
	Predictor *tracking.Predictor
	Combat    *combat.Estimator
	Selector  *learning.Selector
	Cfg       *config.Config
	RNG       *rand.Rand
	Log       *slog.Logger
	Report    ReportFunc

	// Now is the current simulation time, set by the caller before each
	// pass. Agents never read the wall clock.
	Now time.Time
}

// report forwards an outcome when a report hook is configured.
func (rt *Runtime) report(agentID string, kind Kind, success bool, ctx map[string]float64) {
	if rt.Report != nil {
		rt.Report(agentID, kind, success, ctx)
	}
}

package fleet

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/skirmishlab/vanguard/agent"
)

// parallelThreshold is the minimum agent count to use parallel decision
// ticking. Below this, single-threaded is faster due to goroutine
// overhead.
const parallelThreshold = 64

// outcomeReport is a learning report captured during the parallel phase
// and applied to the shared registry in the sequential reduction.
type outcomeReport struct {
	agentID string
	kind    agent.Kind
	success bool
	ctx     map[string]float64
}

// tickFailure is a per-agent error captured during the parallel phase.
type tickFailure struct {
	agentID  string
	behavior agent.Kind
	err      error
}

// workerState holds one worker's runtime and capture buffers. Each
// worker gets its own random streams; only the tracker, estimator and
// registry are shared, and those are read-only or lock-guarded during
// the parallel phase.
type workerState struct {
	rt       *agent.Runtime
	reports  []outcomeReport
	failures []tickFailure
}

// workChunk is a range of agents for one worker to tick.
type workChunk struct {
	start, end int
	worker     int
}

// parallelState owns the persistent worker pool for the decision phase.
type parallelState struct {
	mgr        *Manager
	workers    []*workerState
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState(m *Manager) *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	workers := make([]*workerState, numWorkers)
	for i := range workers {
		w := &workerState{reports: make([]outcomeReport, 0, 32)}
		seed := m.baseSeed + uint64(i+1)*0x100000001b3
		w.rt = m.newRuntime(seed, func(agentID string, kind agent.Kind, success bool, ctx map[string]float64) {
			w.reports = append(w.reports, outcomeReport{
				agentID: agentID, kind: kind, success: success, ctx: ctx,
			})
		})
		workers[i] = w
	}
	return &parallelState{
		mgr:        m,
		workers:    workers,
		numWorkers: numWorkers,
	}
}

// startWorkers launches the persistent worker goroutines.
func (p *parallelState) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *parallelState) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.tickChunk(chunk)
			p.doneChan <- struct{}{}
		}
	}
}

// tickChunk ticks a range of agents with the worker's own runtime.
// Agents mutate only themselves here; world writes go through the
// actuator, which must tolerate concurrent calls for distinct entities.
func (p *parallelState) tickChunk(chunk workChunk) {
	w := p.workers[chunk.worker]
	for i := chunk.start; i < chunk.end; i++ {
		a := p.mgr.agents[i]
		if err := p.mgr.tickAgent(w.rt, a); err != nil {
			w.failures = append(w.failures, tickFailure{
				agentID: a.ID, behavior: a.ActiveKind(), err: err,
			})
		}
	}
}

// run executes the parallel decision phase and the sequential reduction.
// Returns the IDs of agents whose entities are gone.
func (p *parallelState) run(now time.Time) []string {
	if !p.running {
		p.startWorkers()
	}

	for _, w := range p.workers {
		w.rt.Now = now
		w.reports = w.reports[:0]
		w.failures = w.failures[:0]
	}

	n := len(p.mgr.agents)
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for wID := 0; wID < p.numWorkers; wID++ {
		start := wID * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, worker: wID}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}

	return p.reduce(now)
}

// reduce applies the batched reports to the shared registry and drains
// the captured failures, single-threaded.
func (p *parallelState) reduce(now time.Time) []string {
	m := p.mgr
	var gone []string

	for _, w := range p.workers {
		for _, r := range w.reports {
			m.registry.ReportOutcome(r.agentID, string(r.kind), r.success, r.ctx, now)
			if m.collector != nil {
				m.collector.RecordEvaluation()
				m.collector.RecordOutcome(r.success)
			}
		}
		for _, f := range w.failures {
			if errors.Is(f.err, agent.ErrEntityGone) {
				gone = append(gone, f.agentID)
				continue
			}
			m.log.Warn("agent tick failed",
				"agent", f.agentID, "behavior", f.behavior, "error", f.err)
		}
	}
	return gone
}

// Close shuts down the worker pool. The manager remains usable on the
// sequential path afterwards.
func (m *Manager) Close() {
	m.parallel.stopWorkers()
}

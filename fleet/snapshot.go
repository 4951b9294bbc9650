package fleet

import (
	"time"

	"github.com/skirmishlab/vanguard/agent"
	"github.com/skirmishlab/vanguard/learning"
	"github.com/skirmishlab/vanguard/persist"
	"github.com/skirmishlab/vanguard/world"
)

// Snapshot captures the fleet and the learned registry state.
func (m *Manager) Snapshot(now time.Time) persist.Snapshot {
	snap := persist.Snapshot{
		SavedAt:  now,
		Agents:   make([]persist.AgentRecord, 0, len(m.agents)),
		Registry: m.registry.Export().Records,
	}
	for _, a := range m.agents {
		snap.Agents = append(snap.Agents, persist.AgentRecord{
			ID:          a.ID,
			Entity:      uint64(a.Entity),
			Disposition: uint8(a.Disposition),
			Behavior:    string(a.ActiveKind()),
			Position:    a.Pos,
			Home:        a.Home,
			Health:      a.Health,
		})
	}
	return snap
}

// Restore rebuilds the fleet from a snapshot: the registry records are
// imported and each agent resumes its saved behavior, bound to whatever
// entity the record names. Records whose entity no longer exists in the
// world, or is already bound to a live agent, are skipped; a double
// binding would leave two controllers issuing conflicting commands for
// one entity.
func (m *Manager) Restore(snap persist.Snapshot, now time.Time) int {
	m.registry.Import(learning.Export{Records: snap.Registry})

	controlled := make(map[world.EntityID]bool, len(m.agents))
	for _, a := range m.agents {
		controlled[a.Entity] = true
	}

	restored := 0
	for _, rec := range snap.Agents {
		entity := world.EntityID(rec.Entity)
		if _, ok := m.query.PositionOf(entity); !ok {
			m.log.Warn("skipping snapshot agent, entity gone",
				"agent", rec.ID, "entity", rec.Entity)
			continue
		}
		if controlled[entity] {
			m.log.Warn("skipping snapshot agent, entity already controlled",
				"agent", rec.ID, "entity", rec.Entity)
			continue
		}
		controlled[entity] = true

		a := agent.New(rec.ID, entity, agent.Disposition(rec.Disposition), m.cfg.Events.Capacity)
		a.Home = rec.Home
		a.Health = rec.Health
		m.agents = append(m.agents, a)
		m.byID[a.ID] = a

		m.seq.Now = now
		a.RestoreBehavior(m.seq, agent.Kind(rec.Behavior))
		restored++
	}
	m.log.Info("fleet restored", "agents", restored, "saved_at", snap.SavedAt)
	return restored
}

// Package combat derives coarse combat-capability figures for observed
// entities from their structural composition.
package combat

import (
	"sync"
	"time"

	"github.com/skirmishlab/vanguard/world"
)

// Profile is the cached capability summary for one entity.
type Profile struct {
	DPS        float64 // Damage-per-second proxy from weapon-bearing units
	Armor      float64 // Fraction of armor-tagged units, in [0,1]
	Shield     float64 // Structure-size proxy, in [0,1]
	Units      int     // Total structural units inspected
	ComputedAt time.Time
}

// Estimator computes and caches combat profiles. Composition changes
// slowly, so a profile is computed on first query and reused until the
// entity is pruned.
type Estimator struct {
	query world.Query

	mu    sync.Mutex
	cache map[world.EntityID]Profile

	weaponBaseDPS  float64
	shieldRefUnits int
}

// NewEstimator creates an estimator reading compositions from the query.
func NewEstimator(query world.Query, weaponBaseDPS float64, shieldRefUnits int) *Estimator {
	if shieldRefUnits < 1 {
		shieldRefUnits = 1
	}
	return &Estimator{
		query:          query,
		cache:          make(map[world.EntityID]Profile),
		weaponBaseDPS:  weaponBaseDPS,
		shieldRefUnits: shieldRefUnits,
	}
}

// Estimate returns the entity's combat profile, computing and caching it
// on first sight. Entities with no discoverable structure yield the zero
// profile. now is the simulation time stamped on a freshly computed
// profile.
func (e *Estimator) Estimate(id world.EntityID, now time.Time) Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.cache[id]; ok {
		return p
	}

	units := e.query.StructuralComposition(id)
	p := Profile{ComputedAt: now, Units: len(units)}
	if len(units) > 0 {
		var weapons, armor int
		for _, u := range units {
			if u.Weapon {
				weapons++
			}
			if u.Armor {
				armor++
			}
		}
		p.DPS = float64(weapons) * e.weaponBaseDPS
		p.Armor = float64(armor) / float64(len(units))
		p.Shield = float64(len(units)) / float64(e.shieldRefUnits)
		if p.Shield > 1 {
			p.Shield = 1
		}
	}

	e.cache[id] = p
	return p
}

// CombatPower returns the DPS proxy for the entity, 0 when it has no
// discoverable structure.
func (e *Estimator) CombatPower(id world.EntityID, now time.Time) float64 {
	return e.Estimate(id, now).DPS
}

// Prune drops cached profiles for entities the world no longer reports.
func (e *Estimator) Prune(alive func(world.EntityID) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.cache {
		if !alive(id) {
			delete(e.cache, id)
		}
	}
}

// Cached returns the number of cached profiles.
func (e *Estimator) Cached() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

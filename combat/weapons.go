package combat

import (
	"fmt"
	"time"

	"github.com/skirmishlab/vanguard/world"
)

// WeaponClass identifies one of the fixed weapon categories an agent can
// bring to bear.
type WeaponClass string

const (
	WeaponGatling WeaponClass = "gatling"
	WeaponMissile WeaponClass = "missile"
	WeaponRailgun WeaponClass = "railgun"
	WeaponLaser   WeaponClass = "laser"
)

// weaponSpec holds the nominal constants for a weapon class.
type weaponSpec struct {
	class        WeaponClass
	optimalRange float64
	maxRange     float64
}

// weaponTable is the fixed class table. Order matters only for stable
// tie-breaking (earlier wins on equal score).
var weaponTable = []weaponSpec{
	{WeaponGatling, 600, 900},
	{WeaponMissile, 1500, 2500},
	{WeaponRailgun, 2000, 3000},
	{WeaponLaser, 1000, 1400},
}

// Priority is the outcome of a weapon-selection query.
type Priority struct {
	Class        WeaponClass
	OptimalRange float64
	Score        float64
	Reasoning    string
}

// WeaponPriority scores the weapon classes against the target's armor and
// shield proxies at the given engagement distance and returns the best
// fit. The affinity rules are hand-authored:
//
//   - missiles are favored against heavily armored targets and gain a
//     bonus at long range;
//   - gatlings shred lightly armored targets up close;
//   - railguns pierce armor and dominate at extreme range;
//   - lasers bypass armor entirely but are soaked by strong shields.
func (e *Estimator) WeaponPriority(target world.EntityID, distance float64, now time.Time) Priority {
	profile := e.Estimate(target, now)

	best := Priority{Score: -1}
	for _, spec := range weaponTable {
		score, why := affinity(spec, profile, distance)
		if score > best.Score {
			best = Priority{
				Class:        spec.class,
				OptimalRange: spec.optimalRange,
				Score:        score,
				Reasoning:    why,
			}
		}
	}
	return best
}

// affinity computes a single class score plus its human-readable reasoning.
func affinity(spec weaponSpec, p Profile, distance float64) (float64, string) {
	score := 1.0
	why := string(spec.class)

	// Range fit: full credit at optimal range, falling off linearly to
	// zero at max range.
	rangeFit := 1 - abs(distance-spec.optimalRange)/spec.maxRange
	if rangeFit < 0 {
		rangeFit = 0
	}
	score *= 0.5 + 0.5*rangeFit
	why += fmt.Sprintf(": range fit %.2f at %.0fm", rangeFit, distance)

	switch spec.class {
	case WeaponMissile:
		score *= 1 + p.Armor
		if distance > spec.optimalRange {
			score *= 1.2
			why += ", long-range bonus"
		}
		why += fmt.Sprintf(", armor affinity vs %.2f armor", p.Armor)
	case WeaponGatling:
		score *= 1.5 - p.Armor
		why += fmt.Sprintf(", favors light armor (%.2f)", p.Armor)
	case WeaponRailgun:
		score *= 1 + 0.8*p.Armor
		if distance > 1500 {
			score *= 1.3
			why += ", extreme-range bonus"
		}
		why += ", armor piercing"
	case WeaponLaser:
		score *= 1.4 - p.Shield
		why += fmt.Sprintf(", degraded by shields (%.2f)", p.Shield)
	}

	return score, why
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package agent

import (
	"math"

	"github.com/skirmishlab/vanguard/world"
)

// Context feature names. These are the keys the learning registry
// associates weights with; keep them stable across versions.
const (
	FeatureHealthRatio    = "HealthRatio"
	FeatureLowHealth      = "LowHealth"
	FeatureHasTarget      = "HasTarget"
	FeatureTargetDistance = "TargetDistance"
	FeatureTargetClose    = "TargetClose"
	FeatureThreatLevel    = "ThreatLevel"
	FeatureAggressive     = "Aggressive"
	FeatureGuarded        = "Guarded"
	FeaturePassive        = "Passive"
	FeatureTimeOfDay      = "TimeOfDay"
	FeatureSpeed          = "Speed"
	FeatureMoving         = "Moving"
	FeatureHelpNeeded     = "HelpNeeded"
	FeatureLastOutcome    = "LastOutcome"
)

// situation is the evaluated state of the world around one agent: the
// context vector handed to the selector plus the raw readings the
// controller and behaviors reuse.
type situation struct {
	Ctx map[string]float64

	Hostiles      []world.EntityID
	NearestThreat world.EntityID
	ThreatDist    float64
	HasThreat     bool
}

// buildSituation assembles the context vector from world queries. Missing
// or unknown data resolves to conservative defaults (threat level 0.5, no
// target) rather than failing the evaluation.
func buildSituation(a *Agent, rt *Runtime) situation {
	cfg := rt.Cfg
	s := situation{Ctx: make(map[string]float64, 16)}

	s.Ctx[FeatureHealthRatio] = a.Health
	s.Ctx[FeatureLowHealth] = boolFeature(a.Health < cfg.Thresholds.RetreatHealth)

	s.Ctx[FeatureAggressive] = boolFeature(a.Disposition == DispositionAggressive)
	s.Ctx[FeatureGuarded] = boolFeature(a.Disposition == DispositionGuard)
	s.Ctx[FeaturePassive] = boolFeature(a.Disposition == DispositionPassive)

	speed := a.Vel.Length()
	s.Ctx[FeatureSpeed] = math.Min(speed/100, 1)
	s.Ctx[FeatureMoving] = boolFeature(speed > 1)

	day := cfg.Simulation.DayLength
	if day > 0 {
		s.Ctx[FeatureTimeOfDay] = math.Mod(float64(rt.Now.Unix()), day) / day
	}

	s.Ctx[FeatureLastOutcome] = a.lastOutcome

	neighbors := rt.World.EntitiesWithinRadius(a.Pos, cfg.Simulation.SensorRadius)
	if neighbors == nil {
		// No information: assume a contested area rather than a safe one.
		s.Ctx[FeatureThreatLevel] = 0.5
		return s
	}

	var theirDPS float64
	helpNeeded := false
	s.ThreatDist = math.MaxFloat64
	for _, id := range neighbors {
		if id == a.Entity {
			continue
		}
		switch rt.World.FactionRelation(a.Entity, id) {
		case world.RelationHostile:
			pos, ok := rt.World.PositionOf(id)
			if !ok {
				continue
			}
			s.Hostiles = append(s.Hostiles, id)
			theirDPS += rt.Combat.CombatPower(id, rt.Now)
			if d := a.Pos.DistanceTo(pos); d < s.ThreatDist {
				s.ThreatDist = d
				s.NearestThreat = id
				s.HasThreat = true
			}
		case world.RelationAllied:
			if hp, ok := rt.World.IntegrityOf(id); ok && hp < cfg.Thresholds.RetreatHealth {
				helpNeeded = true
			}
		}
	}

	s.Ctx[FeatureHelpNeeded] = boolFeature(helpNeeded)

	if s.HasThreat {
		s.Ctx[FeatureHasTarget] = 1
		s.Ctx[FeatureTargetDistance] = s.ThreatDist
		s.Ctx[FeatureTargetClose] = boolFeature(s.ThreatDist <= cfg.Combat.EngagementRange)

		ownDPS := rt.Combat.CombatPower(a.Entity, rt.Now)
		if ownDPS+theirDPS > 0 {
			s.Ctx[FeatureThreatLevel] = theirDPS / (ownDPS + theirDPS)
		} else {
			// Neither side has discoverable weapons; stance unknown.
			s.Ctx[FeatureThreatLevel] = 0.5
		}
	} else {
		s.Ctx[FeatureThreatLevel] = 0
	}

	return s
}

func boolFeature(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

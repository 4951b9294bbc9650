// Package config provides configuration loading and access for the decision core.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all tunables for the decision core and the demo arena.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Learning   LearningConfig   `yaml:"learning"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Combat     CombatConfig     `yaml:"combat"`
	Patrol     PatrolConfig     `yaml:"patrol"`
	Retreat    RetreatConfig    `yaml:"retreat"`
	Follow     FollowConfig     `yaml:"follow"`
	Events     EventsConfig     `yaml:"events"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds stepping and sensing parameters.
type SimulationConfig struct {
	DT           float64 `yaml:"dt"`            // Seconds per simulation step
	SensorRadius float64 `yaml:"sensor_radius"` // Entity-of-interest query radius
	DayLength    float64 `yaml:"day_length"`    // Seconds per simulated day (time-of-day feature)
	PruneEvery   float64 `yaml:"prune_every"`   // Seconds between cache eviction sweeps
}

// ThresholdsConfig holds the priority-override health thresholds.
// Both are normalized integrity ratios in [0,1].
type ThresholdsConfig struct {
	RetreatHealth   float64 `yaml:"retreat_health"`    // Below this, force retreat
	LastStandHealth float64 `yaml:"last_stand_health"` // Below this, escalate to attack instead
}

// EvaluationConfig holds the scheduled re-evaluation cadence.
// The interval is jittered per agent between min and max to avoid
// every agent re-deciding on the same step.
type EvaluationConfig struct {
	IntervalMin float64 `yaml:"interval_min"` // Seconds
	IntervalMax float64 `yaml:"interval_max"` // Seconds
}

// LearningConfig holds behavior-registry and selector parameters.
type LearningConfig struct {
	Alpha           float64 `yaml:"alpha"`            // EMA learning rate for success rates
	WeightStep      float64 `yaml:"weight_step"`      // Per-report feature weight adjustment
	ContextCoef     float64 `yaml:"context_coef"`     // Weight of the context term in scoring
	NoveltyBonus    float64 `yaml:"novelty_bonus"`    // Max bonus for long-unused behaviors
	NoveltyAfter    float64 `yaml:"novelty_after"`    // Seconds unused before the bonus applies
	ThrashWindow    float64 `yaml:"thrash_window"`    // Seconds of history the penalty inspects
	ThrashLimit     int     `yaml:"thrash_limit"`     // Uses within the window before penalizing
	ThrashPenalty   float64 `yaml:"thrash_penalty"`   // Score multiplier once over the limit
	SoftmaxGain     float64 `yaml:"softmax_gain"`     // exp(score * gain) sampling weights
	TopCandidates   int     `yaml:"top_candidates"`   // Sample among the best N scores
	HistoryCapacity int     `yaml:"history_capacity"` // Per-agent execution history ring size
}

// TrackingConfig holds movement-history and prediction parameters.
type TrackingConfig struct {
	HistoryCapacity  int     `yaml:"history_capacity"`  // Samples kept per tracked entity
	DerivativeWindow int     `yaml:"derivative_window"` // Recent samples used for estimates
	VarianceK        float64 `yaml:"variance_k"`        // Predictability falloff constant
	NoiseScale       float64 `yaml:"noise_scale"`       // Distance units of noise per second of horizon
}

// CombatConfig holds capability-estimation and engagement parameters.
type CombatConfig struct {
	WeaponBaseDPS    float64 `yaml:"weapon_base_dps"`    // DPS proxy per weapon-bearing unit
	ShieldRefUnits   int     `yaml:"shield_ref_units"`   // Structure size mapping to shield proxy 1.0
	EngagementRange  float64 `yaml:"engagement_range"`   // Attack success / standoff distance
	ProjectileSpeed  float64 `yaml:"projectile_speed"`   // Used to derive the prediction horizon
	DefenseZoneRange float64 `yaml:"defense_zone_range"` // Radius defended around the home anchor
}

// PatrolConfig holds patrol geometry.
type PatrolConfig struct {
	Radius        float64 `yaml:"radius"`         // Waypoint ring radius around home
	Waypoints     int     `yaml:"waypoints"`      // Waypoints per circuit
	PauseSeconds  float64 `yaml:"pause_seconds"`  // Rescan pause at each waypoint
	ArriveRadius  float64 `yaml:"arrive_radius"`  // Distance considered "at waypoint"
	ScanSeconds   float64 `yaml:"scan_seconds"`   // Initial scan before moving out
}

// RetreatConfig holds retreat planning parameters.
type RetreatConfig struct {
	Distance      float64 `yaml:"distance"`       // Total planned flight distance
	Waypoints     int     `yaml:"waypoints"`      // Waypoints along the escape path
	LateralJitter float64 `yaml:"lateral_jitter"` // Sideways offset applied per waypoint
	DodgeRadius   float64 `yaml:"dodge_radius"`   // Hostile proximity triggering a dodge
	DodgeOffset   float64 `yaml:"dodge_offset"`   // Lateral displacement of a dodge
	CompleteFrac  float64 `yaml:"complete_frac"`  // Fraction of Distance counting as escaped
	ArriveRadius  float64 `yaml:"arrive_radius"`  // Distance considered "at waypoint"
}

// FollowConfig holds leader-following parameters.
type FollowConfig struct {
	Standoff   float64 `yaml:"standoff"`    // Preferred trailing distance
	RangeLimit float64 `yaml:"range_limit"` // Beyond this the follow is failing
	Horizon    float64 `yaml:"horizon"`     // Seconds ahead to predict the leader
}

// EventsConfig holds the per-agent event log size.
type EventsConfig struct {
	Capacity int `yaml:"capacity"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds per stats window
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	EvalJitterSpan float64       // IntervalMax - IntervalMin
	PruneInterval  time.Duration // PruneEvery as a duration
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	span := c.Evaluation.IntervalMax - c.Evaluation.IntervalMin
	if span < 0 {
		span = 0
	}
	c.Derived.EvalJitterSpan = span
	c.Derived.PruneInterval = time.Duration(c.Simulation.PruneEvery * float64(time.Second))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

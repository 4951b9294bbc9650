package main

import (
	"flag"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/skirmishlab/vanguard/arena"
	"github.com/skirmishlab/vanguard/config"
	"github.com/skirmishlab/vanguard/fleet"
	"github.com/skirmishlab/vanguard/persist"
	"github.com/skirmishlab/vanguard/telemetry"
	"github.com/skirmishlab/vanguard/world"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	ticks := flag.Int("ticks", 36000, "Simulation ticks to run")
	agents := flag.Int("agents", 12, "Number of controlled agents")
	hostiles := flag.Int("hostiles", 8, "Number of hostile raiders")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotPath := flag.String("snapshot", "", "Snapshot file: restored at start if present, written at end")
	registryDB := flag.String("registry-db", "", "SQLite database for learned behavior records")
	statsWindow := flag.Float64("stats-window", 0, "Telemetry window size in seconds (0 = use config)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	windowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		windowSec = *statsWindow
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	battlefield := arena.New(arena.Options{
		Extent:        cfg.Simulation.SensorRadius * 2,
		WeaponRange:   cfg.Combat.EngagementRange,
		UnitDPS:       cfg.Combat.WeaponBaseDPS,
		ScatterChance: 0.3,
		Seed:          rngSeed,
	})
	battlefield.SetStance(factionFleet, factionRaiders, world.RelationHostile)

	mgr := fleet.NewManager(fleet.Options{
		Config:    cfg,
		World:     battlefield,
		Actuator:  battlefield,
		Seed:      rngSeed,
		Log:       logger,
		Collector: telemetry.NewCollector(windowSec),
	})
	defer mgr.Close()

	var store *persist.RegistryStore
	if *registryDB != "" {
		store, err = persist.OpenRegistryStore(*registryDB)
		if err != nil {
			slog.Error("failed to open registry store", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		exp, err := store.Load()
		if err != nil {
			slog.Error("failed to load registry store", "error", err)
			os.Exit(1)
		}
		if len(exp.Records) > 0 {
			mgr.Registry().Import(exp)
			slog.Info("registry restored", "records", len(exp.Records))
		}
	}

	base := time.Now()
	rng := rand.New(rand.NewPCG(rngSeed, rngSeed>>1|1))
	ships, raiders := populate(battlefield, rng, *agents, *hostiles)

	// Restore binds saved agents to their ships first; enroll covers the
	// rest with fresh controllers.
	if *snapshotPath != "" {
		if snap, err := persist.ReadSnapshot(*snapshotPath); err == nil {
			mgr.Restore(snap, base)
		} else if !os.IsNotExist(err) {
			slog.Warn("snapshot unreadable, starting fresh", "error", err)
		}
	}
	enroll(mgr, ships)

	slog.Info("starting simulation",
		"seed", rngSeed,
		"ticks", *ticks,
		"agents", len(mgr.Agents()),
		"hostiles", len(raiders),
	)

	dt := cfg.Simulation.DT
	driver := newRaiderDriver(battlefield, raiders, cfg, rng)

	for tick := 0; tick < *ticks; tick++ {
		now := base.Add(time.Duration(float64(tick) * dt * float64(time.Second)))

		driver.step(now)
		battlefield.Step(dt)
		mgr.Step(now)

		if stats, ok := mgr.FlushTelemetry(now); ok {
			slog.Info("window stats",
				"agents", stats.Agents,
				"evaluations", stats.Evaluations,
				"transitions", stats.Transitions,
				"overrides", stats.Overrides,
				"success_rate", stats.SuccessRate,
				"health_mean", stats.HealthMean,
			)
			if err := output.WriteStats(stats); err != nil {
				slog.Error("failed to write stats", "error", err)
			}
		}

		if len(mgr.Agents()) == 0 {
			slog.Info("all agents destroyed", "tick", tick)
			break
		}
	}

	finish(mgr, store, *snapshotPath, base, *ticks, dt)
}

func finish(mgr *fleet.Manager, store *persist.RegistryStore, snapshotPath string, base time.Time, ticks int, dt float64) {
	end := base.Add(time.Duration(float64(ticks) * dt * float64(time.Second)))

	if snapshotPath != "" {
		if err := persist.WriteSnapshot(snapshotPath, mgr.Snapshot(end)); err != nil {
			slog.Error("failed to write snapshot", "error", err)
		} else {
			slog.Info("snapshot written", "path", snapshotPath)
		}
	}

	if store != nil {
		if err := store.Save(mgr.Registry().Export()); err != nil {
			slog.Error("failed to save registry store", "error", err)
		} else {
			slog.Info("registry saved")
		}
	}

	stats := mgr.Registry().Analytics()
	slog.Info("simulation complete",
		"behaviors", stats.Behaviors,
		"mean_success_rate", stats.MeanSuccessRate,
		"total_usage", stats.TotalUsage,
	)
}

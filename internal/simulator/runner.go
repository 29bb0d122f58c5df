package simulator

import (
	"context"
	"time"

	"github.com/pulsehq/pulse/pkg/logger"
)

// Summary reports what a simulation run produced.
type Summary struct {
	Published int
	Failed    int
	Entries   int
	Exits     int
	Elapsed   time.Duration
}

// Runner drives a simulated device against a publisher.
type Runner struct {
	cfg       Config
	state     *SimulationState
	publisher Publisher
	logger    logger.Logger
}

// NewRunner builds a runner; unset config fields get defaults.
func NewRunner(cfg Config, publisher Publisher) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		cfg:       cfg,
		state:     NewSimulationState(cfg.Capacity, cfg.Seed),
		publisher: publisher,
		logger:    logger.Get().Named("simulator"),
	}
}

// Run publishes readings on the configured interval until the duration
// elapses or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) Summary {
	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	start := time.Now()
	var summary Summary

	for {
		select {
		case <-ctx.Done():
			summary.Elapsed = time.Since(start)
			_, summary.Entries, summary.Exits = r.state.Occupancy()
			return summary
		case now := <-ticker.C:
			r.state.Advance(now)
			p := r.state.Reading(r.cfg, now)
			if err := r.publisher.Publish(ctx, p); err != nil {
				summary.Failed++
				r.logger.Warn(ctx, "publish failed", logger.Error(err))
				continue
			}
			summary.Published++
			r.logger.Debug(ctx, "published reading",
				logger.String("venueID", r.cfg.VenueID),
				logger.Int("occupancy", p.Occupancy.Current),
				logger.Float64("soundLevel", p.Sensors.SoundLevel),
			)
		}
	}
}

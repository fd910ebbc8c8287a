package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/calm3366/bond-portfolio/internal/model"
)

// DefaultJobTimeout bounds a single scheduled refresh run.
const DefaultJobTimeout = 30 * time.Minute

// BondRefresher refreshes every tracked bond. Implemented by *BondService.
type BondRefresher interface {
	RefreshAll(ctx context.Context) (model.RefreshReport, error)
}

// RateUpdater refreshes stored exchange rates. Implemented by *FxService.
type RateUpdater interface {
	UpdateRates(ctx context.Context, codes []string) ([]model.FxRate, error)
}

// Scheduler periodically refreshes bond data and exchange rates on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	bonds   BondRefresher
	rates   RateUpdater
	timeout time.Duration
}

// NewScheduler parses schedule (standard 5-field cron) and registers the refresh job.
// An empty schedule yields a disabled scheduler whose Start and Stop do nothing.
func NewScheduler(schedule string, bonds BondRefresher, rates RateUpdater) (*Scheduler, error) {
	s := &Scheduler{
		bonds:   bonds,
		rates:   rates,
		timeout: DefaultJobTimeout,
	}
	if schedule == "" {
		return s, nil
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	s.cron = c
	return s, nil
}

// Enabled reports whether a schedule was configured.
func (s *Scheduler) Enabled() bool {
	return s.cron != nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	if s.cron == nil {
		log.Info().Msg("refresh scheduler disabled")
		return
	}
	s.cron.Start()
	log.Info().Time("next_run", s.cron.Entries()[0].Next).Msg("refresh scheduler started")
}

// Stop halts the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("scheduled refresh still running at shutdown")
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.RunOnce(ctx)
}

// RunOnce refreshes all bonds and then the exchange rates of their currencies.
// Failures are logged; a bond refresh failure does not skip the rate update.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()

	report, err := s.bonds.RefreshAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled bond refresh failed")
	} else {
		log.Info().
			Int("refreshed", len(report.Refreshed)).
			Int("stale", len(report.Stale)).
			Int("failed", len(report.Failed)).
			Msg("scheduled bond refresh finished")
	}

	rates, err := s.rates.UpdateRates(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("scheduled exchange rate update failed")
	} else {
		log.Info().Int("rates", len(rates)).Msg("scheduled exchange rate update finished")
	}

	log.Debug().Dur("elapsed", time.Since(start)).Msg("scheduled refresh done")
}

// cronLogger routes cron's internal logging to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// Package jobs runs the periodic maintenance work of the API process.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"natours/api/internal/config"
	"natours/api/internal/repository"
)

const jobTimeout = 30 * time.Second

type Scheduler struct {
	cron    *cron.Cron
	users   repository.UserRepository
	ping    func(ctx context.Context) error
	cfg     config.JobsConfig
	log     zerolog.Logger
	now     func() time.Time
	onFatal func(error)

	mu        sync.Mutex
	failures  int
	fatalOnce sync.Once
}

// NewScheduler builds the scheduler. onFatal is called once when the store watchdog
// gives up; the caller is expected to shut the process down.
func NewScheduler(users repository.UserRepository, ping func(ctx context.Context) error, cfg config.JobsConfig, log zerolog.Logger, onFatal func(error)) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		users:   users,
		ping:    ping,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		onFatal: onFatal,
	}
}

func (s *Scheduler) Start() error {
	if s.cfg.PurgeResetsSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.PurgeResetsSpec, s.runPurge); err != nil {
			return fmt.Errorf("schedule reset purge: %w", err)
		}
	}
	if s.cfg.WatchdogSpec != "" && s.ping != nil {
		if _, err := s.cron.AddFunc(s.cfg.WatchdogSpec, s.runWatchdog); err != nil {
			return fmt.Errorf("schedule store watchdog: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

// PurgeExpiredResets clears password reset tokens whose expiry has passed.
func (s *Scheduler) PurgeExpiredResets(ctx context.Context) (int64, error) {
	return s.users.PurgeExpiredResets(ctx, s.now())
}

// CheckStore pings the store and reports whether the failure budget is exhausted.
func (s *Scheduler) CheckStore(ctx context.Context) error {
	if s.ping == nil {
		return errNoStore
	}
	err := s.ping(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		if s.failures > 0 {
			s.log.Info().Int("failures", s.failures).Msg("store reachable again")
		}
		s.failures = 0
		return nil
	}

	s.failures++
	s.log.Warn().Err(err).Int("failures", s.failures).Msg("store ping failed")
	if s.cfg.WatchdogMaxFailures > 0 && s.failures >= s.cfg.WatchdogMaxFailures {
		return fmt.Errorf("store unreachable after %d checks: %w", s.failures, err)
	}
	return nil
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.PurgeExpiredResets(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired resets failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("cleared", n).Msg("expired password resets purged")
	}
}

func (s *Scheduler) runWatchdog() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.CheckStore(ctx); err != nil {
		s.fatal(err)
	}
}

func (s *Scheduler) fatal(err error) {
	s.fatalOnce.Do(func() {
		s.log.Error().Err(err).Msg("store watchdog giving up")
		if s.onFatal != nil {
			s.onFatal(err)
		}
	})
}

var errNoStore = errors.New("store not configured")

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/service"
	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"
)

const defaultSchedule = "@every 30s"

// Scheduler runs the analysis dispatcher on a cron schedule. A tick that
// fires while the previous run is still going is dropped.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher service.AnalysisDispatcher
	schedule   string

	// mu orders Start, Stop and wg.Add so no run begins after Stop.
	mu      sync.Mutex
	stopped bool
	running atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(cfg *config.Config, dispatcher service.AnalysisDispatcher) *Scheduler {
	schedule := cfg.Dispatcher.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(),
		dispatcher: dispatcher,
		schedule:   schedule,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.New("scheduler already stopped")
	}
	if err := s.cron.AddFunc(s.schedule, s.tick); err != nil {
		return fmt.Errorf("invalid dispatcher schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	log.Info().Str("schedule", s.schedule).Msg("Scheduler: Analysis dispatcher scheduled")
	return nil
}

// Stop halts the schedule, cancels a run in progress and waits for it.
// Ticks after Stop do nothing. Stop may be called more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cron.Stop()
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("Scheduler: Stopped")
}

// begin reserves the single run slot. It fails once Stop has started.
func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("tick: Previous dispatch still running, skipping")
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Scheduler) tick() {
	if !s.begin() {
		return
	}
	defer func() {
		s.running.Store(false)
		s.wg.Done()
	}()
	if s.ctx.Err() != nil {
		return
	}

	report, err := s.dispatcher.RunOnce(s.ctx)
	if err != nil {
		log.Error().Err(err).Msg("tick: Dispatch failed")
		return
	}
	if report.Claimed > 0 {
		log.Debug().Int("analyzed", report.Analyzed).Int("failed", report.Failed).Msg("tick: Dispatch done")
	}
}

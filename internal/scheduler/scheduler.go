package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"inbox-scorer-go/internal/config"
	"inbox-scorer-go/internal/pipeline"
)

// Runner runs one ingestion pass and reports its statistics.
type Runner interface {
	Run(ctx context.Context) (*pipeline.RunReport, error)
}

// Scheduler triggers ingestion runs on a fixed interval and keeps the report
// of the most recent run for the status endpoint.
type Scheduler struct {
	cron       *cron.Cron
	entryID    cron.EntryID
	config     *config.SchedulerConfig
	runner     Runner
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	isRunning  bool
	lastReport *pipeline.RunReport
	mu         sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, runner Runner) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		config: cfg,
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.runScan)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	// Cancel context to stop any running operations
	s.cancel()

	// Stop the cron scheduler
	ctx := s.cron.Stop()

	// Wait for all jobs to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	// Remove the entry and reset the context so Start can be called again
	s.cron.Remove(s.entryID)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runScan executes one ingestion run
func (s *Scheduler) runScan() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping scan")
		return
	}
	ctx := s.ctx
	s.mu.RUnlock()

	logrus.Info("Starting ingestion run")
	startTime := time.Now()

	report, err := s.runner.Run(ctx)
	if err != nil {
		logrus.Errorf("Ingestion run failed: %v", err)
	}
	if report != nil {
		s.mu.Lock()
		s.lastReport = report
		s.mu.Unlock()
	}

	logrus.Infof("Ingestion run completed in %v", time.Since(startTime))
}

// RunOnce runs the ingestion once (for manual triggering)
func (s *Scheduler) RunOnce() (*pipeline.RunReport, error) {
	logrus.Info("Running ingestion once")

	report, err := s.runner.Run(context.Background())
	if report != nil {
		s.mu.Lock()
		s.lastReport = report
		s.mu.Unlock()
	}
	return report, err
}

// LastReport returns the report of the most recent run, or nil if none has
// completed yet.
func (s *Scheduler) LastReport() *pipeline.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Prev
}

// Wait waits for in-flight runs to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

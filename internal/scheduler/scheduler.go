// Package scheduler runs the worker's periodic maintenance jobs.
package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-reels/internal/logger"
	"github.com/yourusername/race-reels/internal/metrics"
)

// Scheduler manages scheduled maintenance jobs
type Scheduler struct {
	cron      *cron.Cron
	logger    *logrus.Entry
	mu        sync.RWMutex
	isRunning bool
	jobIDs    []cron.EntryID
	now       func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: log.WithField("component", "scheduler"),
		jobIDs: make([]cron.EntryID, 0),
		now:    time.Now,
	}
}

// ScheduleScratchSweep removes scratch directories under root whose name
// starts with prefix and which are older than maxAge. Assemblies clean up
// after themselves; this catches directories left by a killed process.
func (s *Scheduler) ScheduleScratchSweep(cronExpression, root, prefix string, maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if maxAge <= 0 {
		return fmt.Errorf("scratch max age must be positive, got %s", maxAge)
	}

	jobFunc := func() {
		removed, err := SweepScratch(root, prefix, s.now().Add(-maxAge))
		if removed > 0 {
			metrics.RecordScratchSwept(removed)
		}
		entry := s.logger.WithFields(logrus.Fields{"root": root, "removed": removed})
		if err != nil {
			entry.WithError(err).Warn("Scratch sweep finished with errors")
			return
		}
		entry.Debug("Scratch sweep completed")
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"schedule": cronExpression,
		"max_age":  maxAge,
	}).Info("Scheduled scratch sweep")

	return nil
}

// SweepScratch removes directories in root named with prefix and last
// modified before cutoff. It returns how many it removed and the first
// removal error, continuing past failures.
func SweepScratch(root, prefix string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scratch root: %w", err)
	}

	removed := 0
	var firstErr error
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

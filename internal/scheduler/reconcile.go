// Package scheduler runs the nightly reconciliation that heals drift
// between the authoritative progress records and the denormalized
// percentage stored on the book rows.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// StaleLister finds progress records whose denormalized book copy
// disagrees with the authoritative value.
type StaleLister interface {
	ListStale() ([]entities.BookProgress, error)
}

// BookPercentSetter writes the denormalized progress percentage.
type BookPercentSetter interface {
	SetProgressPercent(id uint, percent int) error
}

// RepairLog records reconciliation outcomes in the activity feed.
type RepairLog interface {
	LogRepair(action, description string, err error)
}

// Config controls whether and when reconciliation runs.
type Config struct {
	Enabled  bool
	Schedule string // standard 5-field cron expression
}

// ReconcileScheduler manages the periodic drift reconciliation job.
type ReconcileScheduler struct {
	progress StaleLister
	books    BookPercentSetter
	activity RepairLog
	config   Config

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewReconcileScheduler creates a new scheduler instance.
func NewReconcileScheduler(progress StaleLister, books BookPercentSetter, activity RepairLog, cfg Config) *ReconcileScheduler {
	return &ReconcileScheduler{
		progress: progress,
		books:    books,
		activity: activity,
		config:   cfg,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if reconciliation is enabled.
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Progress reconciliation: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runReconcile()
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule '%s': %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Progress reconciliation: started with schedule '%s'", s.config.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *ReconcileScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Progress reconciliation: stopped")
}

// RunNow triggers an immediate reconciliation pass.
func (s *ReconcileScheduler) RunNow() {
	go s.runReconcile()
}

// IsRunning returns whether the scheduler is active.
func (s *ReconcileScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next reconciliation will occur.
func (s *ReconcileScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runReconcile rewrites every drifted denormalized percentage from the
// authoritative progress record.
func (s *ReconcileScheduler) runReconcile() {
	start := time.Now()

	stale, err := s.progress.ListStale()
	if err != nil {
		log.Printf("Progress reconciliation: failed to list drifted records: %v", err)
		if s.activity != nil {
			s.activity.LogRepair("reconcile", "listing drifted progress records", err)
		}
		return
	}
	if len(stale) == 0 {
		log.Printf("Progress reconciliation: no drift found")
		return
	}

	repaired := 0
	for _, record := range stale {
		if err := s.books.SetProgressPercent(record.BookID, record.Position.ProgressPercent); err != nil {
			log.Printf("Progress reconciliation: failed to repair book %d: %v", record.BookID, err)
			continue
		}
		repaired++
	}

	log.Printf("Progress reconciliation: repaired %d of %d drifted records in %v",
		repaired, len(stale), time.Since(start).Round(time.Millisecond))
	if s.activity != nil {
		s.activity.LogRepair("reconcile",
			fmt.Sprintf("repaired %d of %d drifted progress records", repaired, len(stale)), nil)
	}
}

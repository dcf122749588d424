package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// BookPercentSetter writes the denormalized progress percentage on the
// book row.
type BookPercentSetter interface {
	SetProgressPercent(id uint, percent int) error
}

// RepairProgressTask re-applies a denormalized progress write that
// failed inline during a debounced persistence cycle. The percent is a
// snapshot from enqueue time; if the reader moved on since then, a
// later repair or the nightly reconciliation supersedes it.
type RepairProgressTask struct {
	BookID  uint `json:"book_id"`
	Percent int  `json:"percent"`
}

// Config returns the queue configuration for progress repair tasks.
func (t RepairProgressTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "repair_progress",
		MaxAttempts: 5,
		Backoff:     1 * time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RepairProgressProcessor creates a processor function for RepairProgressTask.
func RepairProgressProcessor(books BookPercentSetter) backlite.QueueProcessor[RepairProgressTask] {
	return func(ctx context.Context, task RepairProgressTask) error {
		if books == nil {
			return fmt.Errorf("book store not configured")
		}
		if err := books.SetProgressPercent(task.BookID, task.Percent); err != nil {
			return fmt.Errorf("repair progress for book %d: %w", task.BookID, err)
		}
		log.Printf("[TASK] Repaired denormalized progress for book %d to %d%%", task.BookID, task.Percent)
		return nil
	}
}

// NewRepairProgressQueue creates a backlite queue for progress repair tasks.
func NewRepairProgressQueue(books BookPercentSetter) backlite.Queue {
	return backlite.NewQueue(RepairProgressProcessor(books))
}

// ProgressRepairEnqueuer adapts the task client to the narrow enqueue
// interface the tracker expects. Enqueue failures are logged and
// dropped; the nightly reconciliation is the backstop.
type ProgressRepairEnqueuer struct {
	Client *Client
}

func (e *ProgressRepairEnqueuer) EnqueueProgressRepair(bookID uint, percent int) {
	_, err := e.Client.Add(RepairProgressTask{BookID: bookID, Percent: percent}).Save()
	if err != nil {
		log.Printf("[TASK] Failed to enqueue progress repair for book %d: %v", bookID, err)
	}
}

package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/entities"
)

type stubStaleLister struct {
	stale []entities.BookProgress
	err   error
}

func (s *stubStaleLister) ListStale() ([]entities.BookProgress, error) {
	return s.stale, s.err
}

type recordingSetter struct {
	percents map[uint]int
	failFor  uint
}

func (s *recordingSetter) SetProgressPercent(id uint, percent int) error {
	if id == s.failFor {
		return errors.New("write failed")
	}
	if s.percents == nil {
		s.percents = make(map[uint]int)
	}
	s.percents[id] = percent
	return nil
}

type recordingRepairLog struct {
	entries []string
}

func (l *recordingRepairLog) LogRepair(action, description string, err error) {
	l.entries = append(l.entries, description)
}

func stalePosition(bookID uint, percent int) entities.BookProgress {
	return entities.BookProgress{
		BookID:   bookID,
		Position: entities.ReadingPosition{Kind: entities.PositionKindPage, ProgressPercent: percent},
	}
}

func TestReconcile_RepairsDriftedRecords(t *testing.T) {
	lister := &stubStaleLister{stale: []entities.BookProgress{
		stalePosition(1, 40),
		stalePosition(2, 75),
	}}
	setter := &recordingSetter{}
	activity := &recordingRepairLog{}

	s := NewReconcileScheduler(lister, setter, activity, Config{})
	s.runReconcile()

	assert.Equal(t, map[uint]int{1: 40, 2: 75}, setter.percents)
	require.Len(t, activity.entries, 1)
	assert.Contains(t, activity.entries[0], "repaired 2 of 2")
}

func TestReconcile_PartialFailureKeepsGoing(t *testing.T) {
	lister := &stubStaleLister{stale: []entities.BookProgress{
		stalePosition(1, 40),
		stalePosition(2, 75),
	}}
	setter := &recordingSetter{failFor: 1}
	activity := &recordingRepairLog{}

	s := NewReconcileScheduler(lister, setter, activity, Config{})
	s.runReconcile()

	assert.Equal(t, map[uint]int{2: 75}, setter.percents)
	require.Len(t, activity.entries, 1)
	assert.Contains(t, activity.entries[0], "repaired 1 of 2")
}

func TestReconcile_NoDriftDoesNotLog(t *testing.T) {
	s := NewReconcileScheduler(&stubStaleLister{}, &recordingSetter{}, &recordingRepairLog{}, Config{})
	s.runReconcile()
}

func TestScheduler_StartStop(t *testing.T) {
	t.Run("disabled config never starts", func(t *testing.T) {
		s := NewReconcileScheduler(&stubStaleLister{}, &recordingSetter{}, nil, Config{Enabled: false})
		require.NoError(t, s.Start(context.Background()))
		assert.False(t, s.IsRunning())
		assert.Nil(t, s.GetNextRunTime())
	})

	t.Run("invalid schedule is an error", func(t *testing.T) {
		s := NewReconcileScheduler(&stubStaleLister{}, &recordingSetter{}, nil, Config{Enabled: true, Schedule: "not a schedule"})
		assert.Error(t, s.Start(context.Background()))
	})

	t.Run("valid schedule runs until stopped", func(t *testing.T) {
		s := NewReconcileScheduler(&stubStaleLister{}, &recordingSetter{}, nil, Config{Enabled: true, Schedule: "0 3 * * *"})
		require.NoError(t, s.Start(context.Background()))
		assert.True(t, s.IsRunning())
		require.NotNil(t, s.GetNextRunTime())

		s.Stop()
		assert.False(t, s.IsRunning())
	})
}

package tracker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/entities"
)

type stubProgressStore struct {
	mu     sync.Mutex
	writes []entities.ReadingPosition
	err    error
}

func (s *stubProgressStore) UpsertPosition(userID, bookID uint, pos entities.ReadingPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, pos)
	return nil
}

func (s *stubProgressStore) positions() []entities.ReadingPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.ReadingPosition, len(s.writes))
	copy(out, s.writes)
	return out
}

type stubDenormalizer struct {
	mu       sync.Mutex
	percents []int
	err      error
}

func (s *stubDenormalizer) SetProgressPercent(bookID uint, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.percents = append(s.percents, percent)
	return nil
}

func (s *stubDenormalizer) written() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.percents))
	copy(out, s.percents)
	return out
}

type stubRepairEnqueuer struct {
	mu    sync.Mutex
	calls []int
}

func (s *stubRepairEnqueuer) EnqueueProgressRepair(bookID uint, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, percent)
}

func (s *stubRepairEnqueuer) enqueued() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.calls))
	copy(out, s.calls)
	return out
}

func pagePos(page, percent int) entities.ReadingPosition {
	return entities.ReadingPosition{Page: page, ProgressPercent: percent}
}

func waitForWrites(t *testing.T, store *stubProgressStore, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(store.positions()) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d writes, got %d", want, len(store.positions()))
}

func TestTracker_CoalescesRapidEvents(t *testing.T) {
	store := &stubProgressStore{}
	books := &stubDenormalizer{}
	trk := New(store, books, 40*time.Millisecond)
	defer trk.Close()

	trk.Record(1, 7, pagePos(10, 5))
	trk.Record(1, 7, pagePos(15, 7))
	trk.Record(1, 7, pagePos(22, 11))

	waitForWrites(t, store, 1)
	time.Sleep(100 * time.Millisecond)

	writes := store.positions()
	require.Len(t, writes, 1)
	assert.Equal(t, 22, writes[0].Page)
	assert.Equal(t, []int{11}, books.written())
}

func TestTracker_SeparateBooksDebounceIndependently(t *testing.T) {
	store := &stubProgressStore{}
	trk := New(store, &stubDenormalizer{}, 40*time.Millisecond)
	defer trk.Close()

	trk.Record(1, 7, pagePos(10, 5))
	trk.Record(1, 8, pagePos(90, 45))

	waitForWrites(t, store, 2)
	assert.Len(t, store.positions(), 2)
}

func TestTracker_FlushWritesImmediately(t *testing.T) {
	store := &stubProgressStore{}
	books := &stubDenormalizer{}
	trk := New(store, books, time.Hour)
	defer trk.Close()

	trk.Record(1, 7, pagePos(42, 21))
	trk.Flush(1, 7)

	writes := store.positions()
	require.Len(t, writes, 1)
	assert.Equal(t, 42, writes[0].Page)
}

func TestTracker_Current(t *testing.T) {
	trk := New(&stubProgressStore{}, &stubDenormalizer{}, time.Hour)
	defer trk.Close()

	_, ok := trk.Current(1, 7)
	assert.False(t, ok)

	trk.Record(1, 7, pagePos(3, 1))
	pos, ok := trk.Current(1, 7)
	require.True(t, ok)
	assert.Equal(t, 3, pos.Page)
}

func TestTracker_FailedDenormWriteEnqueuesRepair(t *testing.T) {
	store := &stubProgressStore{}
	books := &stubDenormalizer{err: errors.New("disk full")}
	repairs := &stubRepairEnqueuer{}
	trk := New(store, books, time.Hour)
	trk.SetRepairEnqueuer(repairs)
	defer trk.Close()

	trk.Record(1, 7, pagePos(50, 25))
	trk.Flush(1, 7)

	// Authoritative write still lands even when the denorm write fails.
	require.Len(t, store.positions(), 1)
	assert.Equal(t, []int{25}, repairs.enqueued())
}

func TestTracker_FailedAuthoritativeWriteIsAbsorbed(t *testing.T) {
	store := &stubProgressStore{err: errors.New("locked")}
	books := &stubDenormalizer{}
	trk := New(store, books, time.Hour)
	defer trk.Close()

	trk.Record(1, 7, pagePos(50, 25))
	trk.Flush(1, 7)

	// The denorm write is still attempted after the failure.
	assert.Equal(t, []int{25}, books.written())
}

func TestTracker_CloseFlushesPending(t *testing.T) {
	store := &stubProgressStore{}
	trk := New(store, &stubDenormalizer{}, time.Hour)

	trk.Record(1, 7, pagePos(12, 6))
	trk.Close()

	writes := store.positions()
	require.Len(t, writes, 1)
	assert.Equal(t, 12, writes[0].Page)

	// Records after close are dropped.
	trk.Record(1, 7, pagePos(99, 49))
	_, ok := trk.Current(1, 7)
	assert.True(t, ok)
	assert.Len(t, store.positions(), 1)
}

func TestTracker_ForgetDropsPendingWrite(t *testing.T) {
	store := &stubProgressStore{}
	trk := New(store, &stubDenormalizer{}, time.Hour)
	defer trk.Close()

	trk.Record(1, 7, pagePos(12, 6))
	trk.Forget(1, 7)
	trk.Flush(1, 7)

	assert.Empty(t, store.positions())
	_, ok := trk.Current(1, 7)
	assert.False(t, ok)
}

func TestTracker_SubscribersReceiveLiveUpdates(t *testing.T) {
	trk := New(&stubProgressStore{}, &stubDenormalizer{}, time.Hour)
	defer trk.Close()

	ch := trk.Subscribe(1, 7)
	trk.Record(1, 7, pagePos(5, 2))

	select {
	case update := <-ch:
		assert.Equal(t, uint(7), update.BookID)
		assert.Equal(t, 5, update.Position.Page)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	trk.Unsubscribe(1, 7, ch)
	_, open := <-ch
	assert.False(t, open)
}

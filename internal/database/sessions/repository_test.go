package sessions

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
)

func setupSessionsTestDB(t *testing.T) (*database.Database, func()) {
	t.Helper()

	dbPath := "./test_sessions_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func TestRepository_AccumulateTick(t *testing.T) {
	t.Run("ticks on the same day collapse into one row", func(t *testing.T) {
		db, cleanup := setupSessionsTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		pos := entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 10, ProgressPercent: 5}
		_, err := repo.AccumulateTick(1, 2, "2026-08-30", 1, pos)
		require.NoError(t, err)
		session, err := repo.AccumulateTick(1, 2, "2026-08-30", 1, pos)
		require.NoError(t, err)

		assert.Equal(t, 2, session.DurationMinutes)

		var count int64
		require.NoError(t, db.DB.Model(&entities.ReadingSession{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("position bounds widen but never shrink", func(t *testing.T) {
		db, cleanup := setupSessionsTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		mid := entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 50, ProgressPercent: 25}
		early := entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 20, ProgressPercent: 10}
		late := entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 80, ProgressPercent: 40}

		_, err := repo.AccumulateTick(1, 2, "2026-08-30", 1, mid)
		require.NoError(t, err)
		_, err = repo.AccumulateTick(1, 2, "2026-08-30", 1, late)
		require.NoError(t, err)
		session, err := repo.AccumulateTick(1, 2, "2026-08-30", 1, early)
		require.NoError(t, err)

		assert.Equal(t, 10, session.StartPosition.ProgressPercent)
		assert.Equal(t, 40, session.EndPosition.ProgressPercent)
	})

	t.Run("a new day starts a new row", func(t *testing.T) {
		db, cleanup := setupSessionsTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		pos := entities.ReadingPosition{Kind: entities.PositionKindOffset, ProgressPercent: 50}
		_, err := repo.AccumulateTick(1, 2, "2026-08-30", 30, pos)
		require.NoError(t, err)
		_, err = repo.AccumulateTick(1, 2, "2026-08-31", 5, pos)
		require.NoError(t, err)

		yesterday, err := repo.GetSession(1, 2, "2026-08-30")
		require.NoError(t, err)
		today, err := repo.GetSession(1, 2, "2026-08-31")
		require.NoError(t, err)
		assert.Equal(t, 30, yesterday.DurationMinutes)
		assert.Equal(t, 5, today.DurationMinutes)
	})

	t.Run("per-book rows on the same day stay separate", func(t *testing.T) {
		db, cleanup := setupSessionsTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		pos := entities.ReadingPosition{Kind: entities.PositionKindOffset, ProgressPercent: 1}
		_, err := repo.AccumulateTick(1, 2, "2026-08-30", 10, pos)
		require.NoError(t, err)
		_, err = repo.AccumulateTick(1, 3, "2026-08-30", 20, pos)
		require.NoError(t, err)

		total, err := repo.TotalMinutesForUser(1)
		require.NoError(t, err)
		assert.Equal(t, 30, total)
	})
}

func TestRepository_GetSessionsForUser(t *testing.T) {
	db, cleanup := setupSessionsTestDB(t)
	defer cleanup()
	repo := NewRepository(db.DB)

	pos := entities.ReadingPosition{Kind: entities.PositionKindOffset, ProgressPercent: 1}
	for _, date := range []string{"2026-08-01", "2026-08-15", "2026-08-30"} {
		_, err := repo.AccumulateTick(1, 2, date, 10, pos)
		require.NoError(t, err)
	}

	t.Run("range filter is inclusive", func(t *testing.T) {
		sessions, err := repo.GetSessionsForUser(1, "2026-08-15", "2026-08-30")
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, "2026-08-30", sessions[0].Date)
	})

	t.Run("empty bounds return everything", func(t *testing.T) {
		sessions, err := repo.GetSessionsForUser(1, "", "")
		require.NoError(t, err)
		assert.Len(t, sessions, 3)
	})
}

func TestRepository_GetSession(t *testing.T) {
	db, cleanup := setupSessionsTestDB(t)
	defer cleanup()
	repo := NewRepository(db.DB)

	_, err := repo.GetSession(1, 2, "2026-08-30")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_TotalMinutesForUser(t *testing.T) {
	db, cleanup := setupSessionsTestDB(t)
	defer cleanup()
	repo := NewRepository(db.DB)

	total, err := repo.TotalMinutesForUser(99)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

package progress

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/entities"
)

func setupProgressTestDB(t *testing.T) (*database.Database, func()) {
	t.Helper()

	dbPath := "./test_progress_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func TestRepository_UpsertPosition(t *testing.T) {
	t.Run("creates one row and updates it in place", func(t *testing.T) {
		db, cleanup := setupProgressTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		first := entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 10, ProgressPercent: 5}
		require.NoError(t, repo.UpsertPosition(1, 42, first))

		second := entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 50, ProgressPercent: 25}
		require.NoError(t, repo.UpsertPosition(1, 42, second))

		var count int64
		require.NoError(t, db.DB.Model(&entities.BookProgress{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		stored, err := repo.GetPosition(1, 42)
		require.NoError(t, err)
		assert.Equal(t, 50, stored.Position.Page)
		assert.Equal(t, 25, stored.Position.ProgressPercent)
	})

	t.Run("replaying the same position is a no-op", func(t *testing.T) {
		db, cleanup := setupProgressTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		pos := entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 1200, ProgressPercent: 33}
		require.NoError(t, repo.UpsertPosition(1, 7, pos))
		require.NoError(t, repo.UpsertPosition(1, 7, pos))

		stored, err := repo.GetPosition(1, 7)
		require.NoError(t, err)
		assert.Equal(t, pos, stored.Position)
	})

	t.Run("separate users keep separate rows for the same book", func(t *testing.T) {
		db, cleanup := setupProgressTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		require.NoError(t, repo.UpsertPosition(1, 9, entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 3, ProgressPercent: 10}))
		require.NoError(t, repo.UpsertPosition(2, 9, entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 8, ProgressPercent: 40}))

		mine, err := repo.GetPosition(1, 9)
		require.NoError(t, err)
		theirs, err := repo.GetPosition(2, 9)
		require.NoError(t, err)
		assert.Equal(t, 3, mine.Position.Page)
		assert.Equal(t, 8, theirs.Position.Page)
	})
}

func TestRepository_ListStale(t *testing.T) {
	t.Run("finds only drifted records", func(t *testing.T) {
		db, cleanup := setupProgressTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)
		bookRepo := books.NewRepository(db.DB)

		drifted := &entities.Book{UserID: 1, Title: "Drifted", Format: entities.FormatText}
		synced := &entities.Book{UserID: 1, Title: "Synced", Format: entities.FormatText}
		require.NoError(t, bookRepo.CreateBook(drifted))
		require.NoError(t, bookRepo.CreateBook(synced))

		require.NoError(t, repo.UpsertPosition(1, drifted.ID, entities.ReadingPosition{Kind: entities.PositionKindOffset, ProgressPercent: 60}))
		require.NoError(t, repo.UpsertPosition(1, synced.ID, entities.ReadingPosition{Kind: entities.PositionKindOffset, ProgressPercent: 30}))

		// Only the second dual write landed on the book row.
		require.NoError(t, bookRepo.SetProgressPercent(synced.ID, 30))

		stale, err := repo.ListStale()
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, drifted.ID, stale[0].BookID)
		assert.Equal(t, 60, stale[0].Position.ProgressPercent)
	})

	t.Run("ignores soft-deleted books", func(t *testing.T) {
		db, cleanup := setupProgressTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)
		bookRepo := books.NewRepository(db.DB)

		book := &entities.Book{UserID: 1, Title: "Gone", Format: entities.FormatText}
		require.NoError(t, bookRepo.CreateBook(book))
		require.NoError(t, repo.UpsertPosition(1, book.ID, entities.ReadingPosition{Kind: entities.PositionKindOffset, ProgressPercent: 80}))
		require.NoError(t, bookRepo.DeleteBook(book.ID, 1))

		stale, err := repo.ListStale()
		require.NoError(t, err)
		assert.Empty(t, stale)
	})
}

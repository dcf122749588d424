package profiles

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
)

func setupProfilesTestDB(t *testing.T) (*database.Database, func()) {
	t.Helper()

	dbPath := "./test_profiles_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func TestRepository_GetOrCreateProfile(t *testing.T) {
	t.Run("creates a level one profile on first use", func(t *testing.T) {
		db, cleanup := setupProfilesTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		profile, err := repo.GetOrCreateProfile(1)
		require.NoError(t, err)
		assert.Equal(t, 1, profile.CurrentLevel)
		assert.Equal(t, 0, profile.TotalXP)
		assert.Equal(t, 0, profile.CurrentStreak)
	})

	t.Run("returns the same row on subsequent calls", func(t *testing.T) {
		db, cleanup := setupProfilesTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		first, err := repo.GetOrCreateProfile(1)
		require.NoError(t, err)
		first.TotalXP = 120
		require.NoError(t, repo.SaveProfile(first))

		second, err := repo.GetOrCreateProfile(1)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 120, second.TotalXP)
	})
}

func TestRepository_UnlockAchievement(t *testing.T) {
	t.Run("duplicate unlock reports ErrAlreadyUnlocked", func(t *testing.T) {
		db, cleanup := setupProfilesTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		unlock, err := repo.UnlockAchievement(1, "first_session")
		require.NoError(t, err)
		assert.False(t, unlock.Notified)

		_, err = repo.UnlockAchievement(1, "first_session")
		assert.ErrorIs(t, err, ErrAlreadyUnlocked)
	})

	t.Run("concurrent unlocks leave exactly one row", func(t *testing.T) {
		db, cleanup := setupProfilesTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = repo.UnlockAchievement(1, "streak_7")
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, ErrAlreadyUnlocked)
			}
		}
		assert.Equal(t, 1, winners)

		var count int64
		require.NoError(t, db.DB.Model(&entities.AchievementUnlock{}).
			Where("user_id = ? AND name = ?", 1, "streak_7").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("same achievement for different users is independent", func(t *testing.T) {
		db, cleanup := setupProfilesTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		_, err := repo.UnlockAchievement(1, "level_5")
		require.NoError(t, err)
		_, err = repo.UnlockAchievement(2, "level_5")
		require.NoError(t, err)
	})
}

func TestRepository_MarkNotified(t *testing.T) {
	t.Run("flag is durable and visible in listings", func(t *testing.T) {
		db, cleanup := setupProfilesTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		_, err := repo.UnlockAchievement(1, "first_session")
		require.NoError(t, err)
		require.NoError(t, repo.MarkNotified(1, "first_session"))

		unlocks, err := repo.GetUnlocksForUser(1)
		require.NoError(t, err)
		require.Len(t, unlocks, 1)
		assert.True(t, unlocks[0].Notified)
	})

	t.Run("marking a missing unlock fails", func(t *testing.T) {
		db, cleanup := setupProfilesTestDB(t)
		defer cleanup()
		repo := NewRepository(db.DB)

		err := repo.MarkNotified(1, "streak_30")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestRepository_AchievementCatalog(t *testing.T) {
	db, cleanup := setupProfilesTestDB(t)
	defer cleanup()
	repo := NewRepository(db.DB)

	t.Run("seeded catalog is queryable by name", func(t *testing.T) {
		badge, err := repo.GetAchievement("streak_7")
		require.NoError(t, err)
		assert.Equal(t, 50, badge.XPBonus)
	})

	t.Run("full catalog lists all seeded rows", func(t *testing.T) {
		catalog, err := repo.GetAllAchievements()
		require.NoError(t, err)
		assert.Len(t, catalog, 5)
	})
}

// Package profiles persists user-level streak/XP state and achievement
// unlocks.
//
// The profile's streak fields are single-writer in practice (one active
// reading session per user), so no locking is used. Achievement unlocks
// rely on the (user_id, name) uniqueness constraint instead: the loser
// of a concurrent unlock race gets gorm.ErrDuplicatedKey and no-ops.
package profiles

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// ErrAlreadyUnlocked reports that an achievement unlock was attempted
// for a (user, name) pair that already has a row. The desired end state
// exists, so callers treat it as success-equivalent.
var ErrAlreadyUnlocked = errors.New("achievement already unlocked")

// Repository handles profile and achievement database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreateProfile loads the user's profile, creating a zeroed one on
// first use.
func (r *Repository) GetOrCreateProfile(userID uint) (*entities.Profile, error) {
	var profile entities.Profile
	err := r.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = entities.Profile{UserID: userID, CurrentLevel: 1}
		createErr := r.db.Create(&profile).Error
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			err = r.db.Where("user_id = ?", userID).First(&profile).Error
			if err != nil {
				return nil, err
			}
			return &profile, nil
		}
		if createErr != nil {
			return nil, createErr
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveProfile writes the updated streak/XP fields back.
func (r *Repository) SaveProfile(profile *entities.Profile) error {
	return r.db.Save(profile).Error
}

// UnlockAchievement conditionally inserts an unlock row. Returns
// ErrAlreadyUnlocked when the uniqueness constraint rejects a duplicate.
func (r *Repository) UnlockAchievement(userID uint, name string) (*entities.AchievementUnlock, error) {
	unlock := entities.AchievementUnlock{
		UserID: userID,
		Name:   name,
	}
	err := r.db.Create(&unlock).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrAlreadyUnlocked
	}
	if err != nil {
		return nil, err
	}
	return &unlock, nil
}

// GetAchievement returns the catalog row for a named achievement.
func (r *Repository) GetAchievement(name string) (*entities.Achievement, error) {
	var achievement entities.Achievement
	err := r.db.Where("name = ?", name).First(&achievement).Error
	if err != nil {
		return nil, err
	}
	return &achievement, nil
}

// GetAllAchievements returns the full achievement catalog.
func (r *Repository) GetAllAchievements() ([]entities.Achievement, error) {
	var achievements []entities.Achievement
	err := r.db.Order("id ASC").Find(&achievements).Error
	return achievements, err
}

// GetUnlocksForUser returns the user's unlocks newest-first.
func (r *Repository) GetUnlocksForUser(userID uint) ([]entities.AchievementUnlock, error) {
	var unlocks []entities.AchievementUnlock
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&unlocks).Error
	return unlocks, err
}

// MarkNotified sets the durable notified flag on an unlock so the
// client-facing toast is shown once across devices.
func (r *Repository) MarkNotified(userID uint, name string) error {
	result := r.db.Model(&entities.AchievementUnlock{}).
		Where("user_id = ? AND name = ?", userID, name).
		Update("notified", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

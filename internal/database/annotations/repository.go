// Package annotations provides database operations for bookmarks and
// highlights.
//
// A bookmark is a singleton per (user, book): ToggleBookmark deletes an
// existing row or inserts a fresh one, never accumulates. Highlights are
// append-only until explicitly deleted by their owner.
package annotations

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Repository handles annotation database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ToggleBookmark flips the singleton bookmark for (user, book). When no
// bookmark exists one is created at the given position and created=true
// is returned; when one exists it is deleted and created=false is
// returned. A concurrent duplicate insert is treated as the toggle
// having already happened: the desired end state exists, so it no-ops.
func (r *Repository) ToggleBookmark(userID, bookID uint, pos entities.ReadingPosition, note string) (created bool, bookmark *entities.Bookmark, err error) {
	var existing entities.Bookmark
	findErr := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&existing).Error

	if findErr == nil {
		if err := r.db.Delete(&entities.Bookmark{}, existing.ID).Error; err != nil {
			return false, nil, err
		}
		return false, nil, nil
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return false, nil, findErr
	}

	record := entities.Bookmark{
		UserID:   userID,
		BookID:   bookID,
		Position: pos,
		Note:     note,
	}
	if err := r.db.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with another toggle; the bookmark exists.
			return false, nil, r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&record).Error
		}
		return false, nil, err
	}
	return true, &record, nil
}

// GetBookmark returns the singleton bookmark, or nil when none exists.
func (r *Repository) GetBookmark(userID, bookID uint) (*entities.Bookmark, error) {
	var bookmark entities.Bookmark
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&bookmark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// CreateHighlight inserts a new highlight. Highlights are never upserted
// against existing rows.
func (r *Repository) CreateHighlight(highlight *entities.Highlight) error {
	return r.db.Create(highlight).Error
}

// GetHighlightsForBook returns the book's highlights newest-first; each
// row carries the full position snapshot needed for replay.
func (r *Repository) GetHighlightsForBook(userID, bookID uint) ([]entities.Highlight, error) {
	var highlights []entities.Highlight
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).
		Order("created_at DESC, id DESC").Find(&highlights).Error
	return highlights, err
}

func (r *Repository) GetHighlightByID(id uint) (*entities.Highlight, error) {
	var highlight entities.Highlight
	err := r.db.First(&highlight, id).Error
	if err != nil {
		return nil, err
	}
	return &highlight, nil
}

// DeleteHighlight removes a highlight owned by the user. Deletion is a
// hard delete; there is no soft-delete for annotations.
func (r *Repository) DeleteHighlight(id, userID uint) error {
	result := r.db.Where("user_id = ?", userID).Delete(&entities.Highlight{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Package progress persists the per-user resume point for each book.
//
// Writes are idempotent upserts keyed by (user_id, book_id): repeating
// the same position produces exactly one row, and the latest write wins.
// A single user session is the only writer for a given book at a time,
// so no conflict resolution beyond last-write-wins is needed.
package progress

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Repository handles reading-progress database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertPosition stores the latest position for (user, book), replacing
// any prior row for the same key.
func (r *Repository) UpsertPosition(userID, bookID uint, pos entities.ReadingPosition) error {
	record := entities.BookProgress{
		UserID:   userID,
		BookID:   bookID,
		Position: pos,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"position_kind",
			"position_page",
			"position_locator",
			"position_offset",
			"position_progress_percent",
			"updated_at",
		}),
	}).Create(&record).Error
}

// GetPosition returns the stored resume point, or gorm.ErrRecordNotFound
// when the user has never read the book.
func (r *Repository) GetPosition(userID, bookID uint) (*entities.BookProgress, error) {
	var record entities.BookProgress
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetAllForUser returns every progress record the user owns, most
// recently updated first.
func (r *Repository) GetAllForUser(userID uint) ([]entities.BookProgress, error) {
	var records []entities.BookProgress
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&records).Error
	return records, err
}

// ListStale returns progress records whose percentage disagrees with the
// owning book's denormalized copy. Used by the reconciliation job to
// repair drift left behind by failed best-effort dual writes.
func (r *Repository) ListStale() ([]entities.BookProgress, error) {
	var records []entities.BookProgress
	err := r.db.
		Joins("JOIN books ON books.id = book_progress.book_id AND books.user_id = book_progress.user_id").
		Where("books.progress_percent != book_progress.position_progress_percent").
		Where("books.deleted_at IS NULL").
		Find(&records).Error
	return records, err
}

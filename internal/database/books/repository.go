// Package books provides database operations for the thin library CRUD
// that the reading engine sits on top of.
package books

import (
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Repository handles book database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateBook(book *entities.Book) error {
	return r.db.Create(book).Error
}

func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBookForUser loads a book and verifies ownership in one query.
func (r *Repository) GetBookForUser(id, userID uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *Repository) GetAllBooksForUser(userID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&books).Error
	return books, err
}

func (r *Repository) DeleteBook(id, userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&entities.Book{}, id).Error
}

// SetTotalPages records the page count discovered when a page-based
// document is first opened.
func (r *Repository) SetTotalPages(id uint, totalPages int) error {
	return r.db.Model(&entities.Book{}).
		Where("id = ?", id).
		Update("total_pages", totalPages).Error
}

// SetProgressPercent updates the denormalized library-view percentage.
// This is the non-authoritative half of the tracker's dual write.
func (r *Repository) SetProgressPercent(id uint, percent int) error {
	return r.db.Model(&entities.Book{}).
		Where("id = ?", id).
		Update("progress_percent", percent).Error
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// BookStore defines database operations for the library surface.
type BookStore interface {
	CreateBook(book *entities.Book) error
	GetBookForUser(id, userID uint) (*entities.Book, error)
	GetAllBooksForUser(userID uint) ([]entities.Book, error)
	DeleteBook(id, userID uint) error
}

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{store: store}
}

type createBookRequest struct {
	Title    string              `json:"title" binding:"required"`
	Author   string              `json:"author"`
	Format   entities.BookFormat `json:"format" binding:"required"`
	FilePath string              `json:"file_path" binding:"required"`
}

// CreateBook registers a document in the library.
// POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title, format and file_path are required")
		return
	}

	switch req.Format {
	case entities.FormatPDF, entities.FormatEPUB, entities.FormatText:
	default:
		respondBadRequest(c, "format must be one of pdf, epub, text")
		return
	}

	book := &entities.Book{
		UserID:   GetUserID(c),
		Title:    req.Title,
		Author:   req.Author,
		Format:   req.Format,
		FilePath: req.FilePath,
	}
	if err := bc.store.CreateBook(book); err != nil {
		respondInternalError(c, err, "create book")
		return
	}
	respondCreated(c, book)
}

// GetAllBooks returns the user's library with denormalized progress.
// GET /api/books
func (bc *BooksController) GetAllBooks(c *gin.Context) {
	books, err := bc.store.GetAllBooksForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "total": len(books)})
}

// GetBook returns a single book.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookForUser(id, GetUserID(c))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook soft-deletes a book.
// DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.store.DeleteBook(id, GetUserID(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}

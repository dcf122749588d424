package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/contentsource"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// ContentBookStore resolves books for content delivery.
type ContentBookStore interface {
	GetBookForUser(id, userID uint) (*entities.Book, error)
	GetBookByID(id uint) (*entities.Book, error)
}

// ContentController issues short-lived signed URLs for document files
// and serves them. The serve endpoint authenticates by signature alone
// so rendering surfaces can fetch bytes without the API token.
type ContentController struct {
	source contentsource.Source
	books  ContentBookStore
}

func NewContentController(source contentsource.Source, books ContentBookStore) *ContentController {
	return &ContentController{source: source, books: books}
}

// GetURL issues a signed, time-bounded URL for the book's document.
// GET /api/books/:id/content-url
func (cc *ContentController) GetURL(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := cc.books.GetBookForUser(bookID, GetUserID(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	url, expiry, err := cc.source.ReadableURL(bookID)
	if err != nil {
		respondInternalError(c, err, "sign content url")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_at": expiry})
}

// Serve validates the signature and streams the document file.
// GET /content/:id
func (cc *ContentController) Serve(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid expires")
		return
	}
	if err := cc.source.Verify(bookID, expires, c.Query("sig")); err != nil {
		respondError(c, http.StatusForbidden, "invalid or expired signature")
		return
	}

	book, err := cc.books.GetBookByID(bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	path, err := cc.source.ResolvePath(book)
	if err != nil {
		respondInternalError(c, err, "resolve content path")
		return
	}
	c.File(path)
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/reader"
	"github.com/shelfmark/shelfmark/internal/utils"
)

// AnnotationStore defines database operations for bookmarks and
// highlights.
type AnnotationStore interface {
	ToggleBookmark(userID, bookID uint, pos entities.ReadingPosition, note string) (bool, *entities.Bookmark, error)
	GetBookmark(userID, bookID uint) (*entities.Bookmark, error)
	CreateHighlight(highlight *entities.Highlight) error
	GetHighlightsForBook(userID, bookID uint) ([]entities.Highlight, error)
	DeleteHighlight(id, userID uint) error
}

// AnnotationActivityLog records annotation writes in the activity feed.
type AnnotationActivityLog interface {
	LogAnnotation(userID, bookID uint, action, description string, err error)
}

// SessionPositions yields the current position of an open session so
// annotations can anchor to it when the request carries no position.
type SessionPositions interface {
	Active(userID, bookID uint) (*reader.Session, bool)
}

type AnnotationsController struct {
	store    AnnotationStore
	sessions SessionPositions
	activity AnnotationActivityLog
}

func NewAnnotationsController(store AnnotationStore, sessions SessionPositions, activity AnnotationActivityLog) *AnnotationsController {
	return &AnnotationsController{store: store, sessions: sessions, activity: activity}
}

type bookmarkRequest struct {
	Position *entities.ReadingPosition `json:"position,omitempty"`
	Note     string                    `json:"note,omitempty"`
}

// resolvePosition prefers an explicit position from the request, then
// the live session's current position.
func (ac *AnnotationsController) resolvePosition(c *gin.Context, bookID uint, explicit *entities.ReadingPosition) (entities.ReadingPosition, bool) {
	if explicit != nil && !explicit.IsZero() {
		return *explicit, true
	}
	if session, ok := ac.sessions.Active(GetUserID(c), bookID); ok {
		return session.CurrentPosition(), true
	}
	return entities.ReadingPosition{}, false
}

// ToggleBookmark creates the bookmark at the given position, or removes
// the existing one. At most one bookmark exists per book.
// POST /api/books/:id/bookmark
func (ac *AnnotationsController) ToggleBookmark(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req bookmarkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid bookmark request")
			return
		}
	}

	userID := GetUserID(c)
	pos, havePos := ac.resolvePosition(c, bookID, req.Position)
	if !havePos {
		respondBadRequest(c, "no position given and book is not open")
		return
	}

	created, bookmark, err := ac.store.ToggleBookmark(userID, bookID, pos, req.Note)
	if err != nil {
		ac.activity.LogAnnotation(userID, bookID, "bookmark", pos.Label(), err)
		respondInternalError(c, err, "toggle bookmark")
		return
	}

	if created {
		ac.activity.LogAnnotation(userID, bookID, "bookmark", pos.Label(), nil)
		c.JSON(http.StatusOK, gin.H{"bookmarked": true, "bookmark": bookmark})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": false})
}

// GetBookmark returns the book's bookmark, if set.
// GET /api/books/:id/bookmark
func (ac *AnnotationsController) GetBookmark(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	bookmark, err := ac.store.GetBookmark(GetUserID(c), bookID)
	if err != nil {
		respondInternalError(c, err, "get bookmark")
		return
	}
	if bookmark == nil {
		respondNotFound(c, "bookmark")
		return
	}
	c.JSON(http.StatusOK, bookmark)
}

type createHighlightRequest struct {
	Text     string                    `json:"text" binding:"required"`
	Note     string                    `json:"note,omitempty"`
	Color    string                    `json:"color,omitempty"`
	Position *entities.ReadingPosition `json:"position,omitempty"`
}

// CreateHighlight appends a highlight anchored at the given or current
// position. The position snapshot is immutable once written.
// POST /api/books/:id/highlights
func (ac *AnnotationsController) CreateHighlight(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req createHighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "highlight text is required")
		return
	}

	userID := GetUserID(c)
	pos, havePos := ac.resolvePosition(c, bookID, req.Position)
	if !havePos {
		respondBadRequest(c, "no position given and book is not open")
		return
	}

	highlight := &entities.Highlight{
		UserID:   userID,
		BookID:   bookID,
		Text:     req.Text,
		Note:     req.Note,
		Color:    utils.NormalizeHighlightColor(req.Color),
		Position: pos,
	}
	if err := ac.store.CreateHighlight(highlight); err != nil {
		ac.activity.LogAnnotation(userID, bookID, "highlight", pos.Label(), err)
		respondInternalError(c, err, "create highlight")
		return
	}

	ac.activity.LogAnnotation(userID, bookID, "highlight", pos.Label(), nil)
	respondCreated(c, highlight)
}

// ListAnnotations returns the bookmark and all highlights for a book.
// GET /api/books/:id/annotations
func (ac *AnnotationsController) ListAnnotations(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	bookmark, err := ac.store.GetBookmark(userID, bookID)
	if err != nil {
		respondInternalError(c, err, "get bookmark")
		return
	}
	highlights, err := ac.store.GetHighlightsForBook(userID, bookID)
	if err != nil {
		respondInternalError(c, err, "list highlights")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookmark":   bookmark,
		"highlights": highlights,
		"total":      len(highlights),
	})
}

// DeleteHighlight removes one of the user's highlights.
// DELETE /api/highlights/:id
func (ac *AnnotationsController) DeleteHighlight(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ac.store.DeleteHighlight(id, GetUserID(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "highlight")
			return
		}
		respondInternalError(c, err, "delete highlight")
		return
	}
	respondSuccess(c, "highlight deleted")
}

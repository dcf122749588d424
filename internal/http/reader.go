package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/navigation"
	"github.com/shelfmark/shelfmark/internal/reader"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// ProgressReader is the read side of the authoritative progress store.
type ProgressReader interface {
	GetPosition(userID, bookID uint) (*entities.BookProgress, error)
	GetAllForUser(userID uint) ([]entities.BookProgress, error)
}

// ReaderController drives open reading sessions: opening and closing
// documents, accepting position events and serving navigation data.
type ReaderController struct {
	manager   *reader.Manager
	tracker   *tracker.Tracker
	progress  ProgressReader
	navigator *navigation.Coordinator
}

func NewReaderController(manager *reader.Manager, trk *tracker.Tracker, progress ProgressReader, navigator *navigation.Coordinator) *ReaderController {
	return &ReaderController{
		manager:   manager,
		tracker:   trk,
		progress:  progress,
		navigator: navigator,
	}
}

type openRequest struct {
	Position *entities.ReadingPosition `json:"position,omitempty"`
}

type sessionResponse struct {
	BookID   uint                     `json:"book_id"`
	Book     *entities.Book           `json:"book"`
	Position entities.ReadingPosition `json:"position"`
	TOC      []reader.TOCEntry        `json:"toc"`
}

// Open loads the book's document and starts a reading session, resuming
// from the stored position unless the request names one explicitly.
// POST /api/books/:id/open
func (rc *ReaderController) Open(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req openRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid open request")
			return
		}
	}

	session, err := rc.manager.Open(GetUserID(c), bookID, req.Position)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "book")
		return
	}
	var loadErr *reader.LoadError
	if errors.As(err, &loadErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: loadErr.Error(),
			Code:  "load_failure",
		})
		return
	}
	if err != nil {
		respondInternalError(c, err, "open book")
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		BookID:   bookID,
		Book:     session.Book,
		Position: session.CurrentPosition(),
		TOC:      session.TOC(),
	})
}

// Close ends the reading session, flushing any pending progress write.
// POST /api/books/:id/close
func (rc *ReaderController) Close(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rc.manager.Close(GetUserID(c), bookID)
	respondSuccess(c, "session closed")
}

type positionEventRequest struct {
	Position entities.ReadingPosition `json:"position"`
}

// ReportPosition accepts one position-change event from the rendering
// surface. The write to storage is debounced; the response reflects the
// in-memory position immediately.
// POST /api/books/:id/position
func (rc *ReaderController) ReportPosition(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req positionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid position event")
		return
	}

	session, active := rc.manager.Active(GetUserID(c), bookID)
	if !active {
		respondError(c, http.StatusConflict, "book is not open")
		return
	}

	if err := session.GoTo(req.Position); err != nil {
		respondBadRequest(c, "position does not resolve in this document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": session.CurrentPosition()})
}

// GetProgress returns the freshest known position, preferring the live
// session over the persisted record.
// GET /api/books/:id/progress
func (rc *ReaderController) GetProgress(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	if pos, ok := rc.tracker.Current(userID, bookID); ok {
		c.JSON(http.StatusOK, gin.H{"position": pos, "live": true})
		return
	}

	stored, err := rc.progress.GetPosition(userID, bookID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "progress")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": stored.Position, "live": false})
}

// ListProgress returns every persisted resume point for the user.
// GET /api/progress
func (rc *ReaderController) ListProgress(c *gin.Context) {
	records, err := rc.progress.GetAllForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": records, "total": len(records)})
}

// StreamProgress pushes live position updates over server-sent events
// until the client disconnects.
// GET /api/books/:id/progress/stream
func (rc *ReaderController) StreamProgress(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	updates := rc.tracker.Subscribe(userID, bookID)
	defer rc.tracker.Unsubscribe(userID, bookID, updates)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case update, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("position", update)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// GetTOC returns the table of contents derived when the book was opened.
// GET /api/books/:id/toc
func (rc *ReaderController) GetTOC(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	session, active := rc.manager.Active(GetUserID(c), bookID)
	if !active {
		respondError(c, http.StatusConflict, "book is not open")
		return
	}
	c.JSON(http.StatusOK, gin.H{"toc": session.TOC()})
}

// GetHistory returns the session's visit history, newest first.
// GET /api/books/:id/history
func (rc *ReaderController) GetHistory(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	session, active := rc.manager.Active(GetUserID(c), bookID)
	if !active {
		respondError(c, http.StatusConflict, "book is not open")
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": session.History().Entries()})
}

// GetSelection extracts the text around the current position, used to
// seed a highlight.
// GET /api/books/:id/selection
func (rc *ReaderController) GetSelection(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	session, active := rc.manager.Active(GetUserID(c), bookID)
	if !active {
		respondError(c, http.StatusConflict, "book is not open")
		return
	}

	selection, err := session.ExtractSelection()
	if err != nil {
		respondInternalError(c, err, "extract selection")
		return
	}
	c.JSON(http.StatusOK, selection)
}

// Jump resolves a named destination and moves the session there.
// POST /api/books/:id/jump
func (rc *ReaderController) Jump(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req navigation.JumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid jump request")
		return
	}

	pos, err := rc.navigator.Jump(GetUserID(c), bookID, req)
	switch {
	case errors.Is(err, navigation.ErrNoSession):
		respondError(c, http.StatusConflict, "book is not open")
	case errors.Is(err, navigation.ErrNothingToJumpTo):
		respondNotFound(c, "jump target")
	case errors.Is(err, reader.ErrBadTarget):
		respondBadRequest(c, "jump target does not resolve in this document")
	case err != nil:
		respondInternalError(c, err, "jump")
	default:
		c.JSON(http.StatusOK, gin.H{"position": pos})
	}
}

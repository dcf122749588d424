// Package navigation resolves jump requests against open reading
// sessions. Every way of moving through a book, whether from a
// bookmark, a highlight, the table of contents or the visit history,
// funnels through the same coordinator so the departure point is
// always recorded consistently.
package navigation

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/reader"
)

// Target kinds accepted by Jump.
const (
	TargetBookmark  = "bookmark"
	TargetHighlight = "highlight"
	TargetHistory   = "history"
	TargetTOC       = "toc"
	TargetPosition  = "position"
	TargetPercent   = "percent"
)

var (
	ErrNoSession       = errors.New("book is not open")
	ErrNothingToJumpTo = errors.New("jump target does not exist")
)

// AnnotationStore is the subset of the annotations repository the
// coordinator resolves targets against.
type AnnotationStore interface {
	GetBookmark(userID, bookID uint) (*entities.Bookmark, error)
	GetHighlightByID(id uint) (*entities.Highlight, error)
}

// SessionProvider hands out the open session for a user and book.
type SessionProvider interface {
	Active(userID, bookID uint) (*reader.Session, bool)
}

// JumpRequest names a destination without spelling out its position.
// Index addresses history and TOC targets, ID addresses highlights,
// Position and Percent carry explicit destinations.
type JumpRequest struct {
	Target   string                    `json:"target"`
	ID       uint                      `json:"id,omitempty"`
	Index    int                       `json:"index,omitempty"`
	Position *entities.ReadingPosition `json:"position,omitempty"`
	Percent  int                       `json:"percent,omitempty"`
}

type Coordinator struct {
	sessions    SessionProvider
	annotations AnnotationStore
}

func NewCoordinator(sessions SessionProvider, annotations AnnotationStore) *Coordinator {
	return &Coordinator{sessions: sessions, annotations: annotations}
}

// Jump resolves the request to a concrete position and moves the open
// session there, recording the departure point in the visit history.
func (c *Coordinator) Jump(userID, bookID uint, req JumpRequest) (entities.ReadingPosition, error) {
	session, ok := c.sessions.Active(userID, bookID)
	if !ok {
		return entities.ReadingPosition{}, ErrNoSession
	}

	target, err := c.resolve(session, userID, bookID, req)
	if err != nil {
		return entities.ReadingPosition{}, err
	}
	if err := session.JumpTo(target); err != nil {
		return entities.ReadingPosition{}, err
	}
	return session.CurrentPosition(), nil
}

func (c *Coordinator) resolve(session *reader.Session, userID, bookID uint, req JumpRequest) (entities.ReadingPosition, error) {
	switch req.Target {
	case TargetBookmark:
		bookmark, err := c.annotations.GetBookmark(userID, bookID)
		if err != nil {
			return entities.ReadingPosition{}, err
		}
		if bookmark == nil {
			return entities.ReadingPosition{}, ErrNothingToJumpTo
		}
		return bookmark.Position, nil

	case TargetHighlight:
		highlight, err := c.annotations.GetHighlightByID(req.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ReadingPosition{}, ErrNothingToJumpTo
		}
		if err != nil {
			return entities.ReadingPosition{}, err
		}
		if highlight.UserID != userID || highlight.BookID != bookID {
			return entities.ReadingPosition{}, ErrNothingToJumpTo
		}
		return highlight.Position, nil

	case TargetHistory:
		entry, ok := session.History().At(req.Index)
		if !ok {
			return entities.ReadingPosition{}, ErrNothingToJumpTo
		}
		return entry.Position, nil

	case TargetTOC:
		toc := session.TOC()
		if req.Index < 0 || req.Index >= len(toc) {
			return entities.ReadingPosition{}, ErrNothingToJumpTo
		}
		return toc[req.Index].Position, nil

	case TargetPosition:
		if req.Position == nil || req.Position.IsZero() {
			return entities.ReadingPosition{}, ErrNothingToJumpTo
		}
		return *req.Position, nil

	case TargetPercent:
		return entities.ReadingPosition{ProgressPercent: req.Percent}, nil

	default:
		return entities.ReadingPosition{}, fmt.Errorf("unknown jump target %q", req.Target)
	}
}

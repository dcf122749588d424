package entities

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

type BookFormat string

const (
	FormatPDF  BookFormat = "pdf"  // page-based
	FormatEPUB BookFormat = "epub" // fragment/locator-based
	FormatText BookFormat = "text" // offset-based
)

type PositionKind string

const (
	PositionKindPage    PositionKind = "page"
	PositionKindLocator PositionKind = "locator"
	PositionKindOffset  PositionKind = "offset"
)

// ReadingPosition is the canonical locator for "where in the document".
// Only ProgressPercent is guaranteed comparable across formats; the other
// fields are meaningful only to the adapter of the book that produced
// them and must never be replayed through a different format's adapter.
type ReadingPosition struct {
	Kind            PositionKind `gorm:"size:20" json:"kind"`
	Page            int          `json:"page,omitempty"`    // 1-based, page kind only
	Locator         string       `gorm:"size:512" json:"locator,omitempty"` // opaque, locator kind only
	Offset          int          `json:"offset,omitempty"`  // non-negative, offset kind only
	ProgressPercent int          `json:"progress_percent"`  // 0-100, always present
}

// Label returns a short human-readable description used for visit-history
// deduplication and activity entries.
func (p ReadingPosition) Label() string {
	switch p.Kind {
	case PositionKindPage:
		return "page " + strconv.Itoa(p.Page)
	case PositionKindLocator:
		return p.Locator
	case PositionKindOffset:
		return "offset " + strconv.Itoa(p.Offset)
	}
	return ""
}

// IsZero reports whether the position carries no locator information.
func (p ReadingPosition) IsZero() bool {
	return p.Kind == ""
}

type Book struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	UserID   uint       `gorm:"index" json:"user_id"`
	Title    string     `gorm:"index;size:512" json:"title"`
	Author   string     `gorm:"size:256" json:"author,omitempty"`
	Format   BookFormat `gorm:"size:10" json:"format"`
	FilePath string     `gorm:"size:1024" json:"file_path,omitempty"`

	// TotalPages is populated for page-based formats when the document is
	// first opened; zero until then.
	TotalPages int `json:"total_pages,omitempty"`

	// ProgressPercent is the denormalized copy of the owner's reading
	// progress, maintained best-effort by the tracker for library list
	// views. BookProgress is the authoritative record.
	ProgressPercent int `json:"progress_percent"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BookProgress is the per-user, per-book resume point. Exactly one row
// per (user, book); writes are upserts, never inserts of a second row.
type BookProgress struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	UserID   uint            `gorm:"uniqueIndex:idx_user_book_progress" json:"user_id"`
	BookID   uint            `gorm:"uniqueIndex:idx_user_book_progress" json:"book_id"`
	Position ReadingPosition `gorm:"embedded;embeddedPrefix:position_" json:"position"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Bookmark is a singleton annotation: at most one live row per
// (user, book). Creating a second one replaces the first; the HTTP
// surface exposes it as a toggle.
type Bookmark struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	UserID   uint            `gorm:"uniqueIndex:idx_user_book_bookmark" json:"user_id"`
	BookID   uint            `gorm:"uniqueIndex:idx_user_book_bookmark" json:"book_id"`
	Position ReadingPosition `gorm:"embedded;embeddedPrefix:position_" json:"position"`
	Note     string          `gorm:"type:text" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Highlight is an append-only annotation anchored to the position
// captured at creation time. The position snapshot is never re-derived.
type Highlight struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	UserID   uint            `gorm:"index" json:"user_id"`
	BookID   uint            `gorm:"index" json:"book_id"`
	Text     string          `gorm:"type:text" json:"text"`
	Note     string          `gorm:"type:text" json:"note,omitempty"`
	Color    string          `gorm:"size:10" json:"color,omitempty"` // hex, normalized
	Position ReadingPosition `gorm:"embedded;embeddedPrefix:position_" json:"position"`

	CreatedAt time.Time `json:"created_at"`
}

func (Book) TableName() string {
	return "books"
}

func (BookProgress) TableName() string {
	return "book_progress"
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

func (Highlight) TableName() string {
	return "highlights"
}

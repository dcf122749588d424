package reader

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// BookStore is the subset of the books repository the manager needs.
type BookStore interface {
	GetBookForUser(id, userID uint) (*entities.Book, error)
	SetTotalPages(id uint, totalPages int) error
}

// ResumeStore yields the last persisted position for a user and book.
type ResumeStore interface {
	GetPosition(userID, bookID uint) (*entities.BookProgress, error)
}

// PositionSink receives position changes from open sessions.
type PositionSink interface {
	Record(userID, bookID uint, pos entities.ReadingPosition)
	Flush(userID, bookID uint)
}

// ContentResolver maps a book to a readable file on disk.
type ContentResolver interface {
	ResolvePath(book *entities.Book) (string, error)
}

// Session is one open document for one user. All navigation for the
// pair goes through it while it lives.
type Session struct {
	UserID   uint
	BookID   uint
	Book     *entities.Book
	OpenedAt time.Time

	adapter Adapter
	toc     []TOCEntry
	history *History
	closer  io.Closer
}

func (s *Session) Adapter() Adapter                            { return s.adapter }
func (s *Session) TOC() []TOCEntry                             { return s.toc }
func (s *Session) History() *History                           { return s.history }
func (s *Session) CurrentPosition() entities.ReadingPosition   { return s.adapter.CurrentPosition() }
func (s *Session) ExtractSelection() (Selection, error)        { return s.adapter.ExtractSelection() }
func (s *Session) GoTo(target entities.ReadingPosition) error  { return s.adapter.GoTo(target) }

// JumpTo records the departure point in the visit history before
// moving, so the reader can come back to where the jump started.
func (s *Session) JumpTo(target entities.ReadingPosition) error {
	from := s.adapter.CurrentPosition()
	if err := s.adapter.GoTo(target); err != nil {
		return err
	}
	s.history.Record(from)
	return nil
}

// Manager owns the registry of open sessions, keyed by user and book.
type Manager struct {
	books        BookStore
	resume       ResumeStore
	sink         PositionSink
	content      ContentResolver
	historyDepth int

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

type sessionKey struct {
	userID uint
	bookID uint
}

func NewManager(books BookStore, resume ResumeStore, sink PositionSink, content ContentResolver, historyDepth int) *Manager {
	return &Manager{
		books:        books,
		resume:       resume,
		sink:         sink,
		content:      content,
		historyDepth: historyDepth,
		sessions:     make(map[sessionKey]*Session),
	}
}

// Open loads the book's document, restores the last known position and
// registers a session. When initial is non-nil it wins over the stored
// position. Opening a book that is already open closes the previous
// session first.
func (m *Manager) Open(userID, bookID uint, initial *entities.ReadingPosition) (*Session, error) {
	if _, ok := m.Active(userID, bookID); ok {
		m.Close(userID, bookID)
	}

	book, err := m.books.GetBookForUser(bookID, userID)
	if err != nil {
		return nil, err
	}

	path, err := m.content.ResolvePath(book)
	if err != nil {
		return nil, &LoadError{BookID: bookID, Format: book.Format, Err: err}
	}

	adapter, closer, err := m.openAdapter(book, path)
	if err != nil {
		return nil, &LoadError{BookID: bookID, Format: book.Format, Err: err}
	}

	session := &Session{
		UserID:   userID,
		BookID:   bookID,
		Book:     book,
		OpenedAt: time.Now(),
		adapter:  adapter,
		toc:      DeriveTOC(adapter),
		history:  NewHistory(m.historyDepth),
		closer:   closer,
	}

	if start, ok := m.startPosition(userID, bookID, initial); ok {
		if err := adapter.GoTo(start); err != nil {
			log.Printf("stored position %q no longer resolves for book %d, starting over: %v", start.Label(), bookID, err)
		}
	}

	// Wired after the restore so resuming does not count as a change.
	adapter.OnPositionChange(func(pos entities.ReadingPosition) {
		m.sink.Record(userID, bookID, pos)
	})

	m.mu.Lock()
	m.sessions[sessionKey{userID, bookID}] = session
	m.mu.Unlock()
	return session, nil
}

func (m *Manager) openAdapter(book *entities.Book, path string) (Adapter, io.Closer, error) {
	switch book.Format {
	case entities.FormatPDF:
		doc, err := OpenPDFDocument(path)
		if err != nil {
			return nil, nil, err
		}
		adapter := NewPageAdapter(doc)
		if pages := doc.PageCount(); pages != book.TotalPages {
			book.TotalPages = pages
			if err := m.books.SetTotalPages(book.ID, pages); err != nil {
				log.Printf("failed to store page count for book %d: %v", book.ID, err)
			}
		}
		return adapter, nil, nil
	case entities.FormatEPUB:
		doc, err := OpenEPUBDocument(path)
		if err != nil {
			return nil, nil, err
		}
		adapter, err := NewFragmentAdapter(doc)
		if err != nil {
			doc.Close()
			return nil, nil, err
		}
		return adapter, doc, nil
	case entities.FormatText:
		adapter, err := OpenTextDocument(path, 0)
		if err != nil {
			return nil, nil, err
		}
		return adapter, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported book format %q", book.Format)
	}
}

func (m *Manager) startPosition(userID, bookID uint, initial *entities.ReadingPosition) (entities.ReadingPosition, bool) {
	if initial != nil && !initial.IsZero() {
		return *initial, true
	}
	stored, err := m.resume.GetPosition(userID, bookID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("failed to load stored position for book %d: %v", bookID, err)
		}
		return entities.ReadingPosition{}, false
	}
	if stored == nil || stored.Position.IsZero() {
		return entities.ReadingPosition{}, false
	}
	return stored.Position, true
}

// Active returns the open session for the pair, if any.
func (m *Manager) Active(userID, bookID uint) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionKey{userID, bookID}]
	return session, ok
}

// Close flushes any pending position write and releases the session's
// document resources.
func (m *Manager) Close(userID, bookID uint) {
	m.mu.Lock()
	key := sessionKey{userID, bookID}
	session, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if !ok {
		return
	}

	m.sink.Flush(userID, bookID)
	if session.closer != nil {
		if err := session.closer.Close(); err != nil {
			log.Printf("failed to close document for book %d: %v", bookID, err)
		}
	}
}

// CloseAll closes every open session, used during shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	keys := make([]sessionKey, 0, len(m.sessions))
	for key := range m.sessions {
		keys = append(keys, key)
	}
	m.mu.Unlock()

	for _, key := range keys {
		m.Close(key.userID, key.bookID)
	}
}

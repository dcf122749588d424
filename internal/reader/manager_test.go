package reader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

type stubBookStore struct {
	books      map[uint]*entities.Book
	totalPages map[uint]int
}

func (s *stubBookStore) GetBookForUser(id, userID uint) (*entities.Book, error) {
	book, ok := s.books[id]
	if !ok || book.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return book, nil
}

func (s *stubBookStore) SetTotalPages(id uint, totalPages int) error {
	if s.totalPages == nil {
		s.totalPages = make(map[uint]int)
	}
	s.totalPages[id] = totalPages
	return nil
}

type stubResumeStore struct {
	position *entities.BookProgress
}

func (s *stubResumeStore) GetPosition(userID, bookID uint) (*entities.BookProgress, error) {
	if s.position == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.position, nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []entities.ReadingPosition
	flushes int
}

func (s *recordingSink) Record(userID, bookID uint, pos entities.ReadingPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, pos)
}

func (s *recordingSink) Flush(userID, bookID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

type stubResolver struct {
	path string
	err  error
}

func (s *stubResolver) ResolvePath(book *entities.Book) (string, error) {
	return s.path, s.err
}

func writeTextBook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func textFixture(t *testing.T) (*stubBookStore, *stubResumeStore, *recordingSink, *stubResolver) {
	books := &stubBookStore{books: map[uint]*entities.Book{
		7: {ID: 7, UserID: 1, Title: "Notes", Format: entities.FormatText},
	}}
	path := writeTextBook(t, strings.Repeat("x", 5000))
	return books, &stubResumeStore{}, &recordingSink{}, &stubResolver{path: path}
}

func TestManager_Open(t *testing.T) {
	t.Run("fresh open starts at position zero", func(t *testing.T) {
		books, resume, sink, resolver := textFixture(t)
		manager := NewManager(books, resume, sink, resolver, 10)

		session, err := manager.Open(1, 7, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, session.CurrentPosition().Offset)
		assert.Equal(t, "Notes", session.Book.Title)

		_, ok := manager.Active(1, 7)
		assert.True(t, ok)
	})

	t.Run("stored position is restored without feeding the sink", func(t *testing.T) {
		books, resume, sink, resolver := textFixture(t)
		resume.position = &entities.BookProgress{
			UserID: 1, BookID: 7,
			Position: entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 1500},
		}
		manager := NewManager(books, resume, sink, resolver, 10)

		session, err := manager.Open(1, 7, nil)
		require.NoError(t, err)
		assert.Equal(t, 1500, session.CurrentPosition().Offset)
		assert.Empty(t, sink.records)

		// Later navigation does feed the sink.
		require.NoError(t, session.GoTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 2000}))
		require.Len(t, sink.records, 1)
		assert.Equal(t, 2000, sink.records[0].Offset)
	})

	t.Run("explicit initial position wins over the stored one", func(t *testing.T) {
		books, resume, sink, resolver := textFixture(t)
		resume.position = &entities.BookProgress{
			UserID: 1, BookID: 7,
			Position: entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 1500},
		}
		manager := NewManager(books, resume, sink, resolver, 10)

		initial := &entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 300}
		session, err := manager.Open(1, 7, initial)
		require.NoError(t, err)
		assert.Equal(t, 300, session.CurrentPosition().Offset)
	})

	t.Run("unknown book is not found", func(t *testing.T) {
		books, resume, sink, resolver := textFixture(t)
		manager := NewManager(books, resume, sink, resolver, 10)

		_, err := manager.Open(1, 99, nil)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("another user's book is not found", func(t *testing.T) {
		books, resume, sink, resolver := textFixture(t)
		manager := NewManager(books, resume, sink, resolver, 10)

		_, err := manager.Open(2, 7, nil)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("unresolvable content is a load failure", func(t *testing.T) {
		books, resume, sink, _ := textFixture(t)
		resolver := &stubResolver{err: errors.New("file missing from library")}
		manager := NewManager(books, resume, sink, resolver, 10)

		_, err := manager.Open(1, 7, nil)
		require.Error(t, err)
		assert.True(t, IsLoadFailure(err))

		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, uint(7), le.BookID)
		assert.Equal(t, entities.FormatText, le.Format)
	})

	t.Run("reopening an open book closes the previous session", func(t *testing.T) {
		books, resume, sink, resolver := textFixture(t)
		manager := NewManager(books, resume, sink, resolver, 10)

		_, err := manager.Open(1, 7, nil)
		require.NoError(t, err)
		_, err = manager.Open(1, 7, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, sink.flushes)
	})
}

func TestManager_Close(t *testing.T) {
	books, resume, sink, resolver := textFixture(t)
	manager := NewManager(books, resume, sink, resolver, 10)

	_, err := manager.Open(1, 7, nil)
	require.NoError(t, err)

	manager.Close(1, 7)
	assert.Equal(t, 1, sink.flushes)
	_, ok := manager.Active(1, 7)
	assert.False(t, ok)

	// Closing a book that is not open is a no-op.
	manager.Close(1, 7)
	assert.Equal(t, 1, sink.flushes)
}

func TestManager_CloseAll(t *testing.T) {
	books, resume, sink, resolver := textFixture(t)
	books.books[8] = &entities.Book{ID: 8, UserID: 1, Title: "More Notes", Format: entities.FormatText}
	manager := NewManager(books, resume, sink, resolver, 10)

	_, err := manager.Open(1, 7, nil)
	require.NoError(t, err)
	_, err = manager.Open(1, 8, nil)
	require.NoError(t, err)

	manager.CloseAll()
	assert.Equal(t, 2, sink.flushes)
	_, ok := manager.Active(1, 7)
	assert.False(t, ok)
}

func TestSession_JumpToRecordsDeparture(t *testing.T) {
	books, resume, sink, resolver := textFixture(t)
	manager := NewManager(books, resume, sink, resolver, 10)

	session, err := manager.Open(1, 7, nil)
	require.NoError(t, err)

	require.NoError(t, session.GoTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 1200}))
	require.NoError(t, session.JumpTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 2400}))

	assert.Equal(t, 2400, session.CurrentPosition().Offset)
	entry, ok := session.History().At(0)
	require.True(t, ok)
	assert.Equal(t, 1200, entry.Position.Offset)

	// A failed jump leaves the history untouched.
	err = session.JumpTo(entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 3})
	assert.ErrorIs(t, err, ErrBadTarget)
	assert.Equal(t, 1, session.History().Len())
}

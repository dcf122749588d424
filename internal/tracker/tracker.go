// Package tracker owns the single debounce timer per open document that
// turns the adapters' high-rate position-change stream into durable
// state. Persistence is trailing-edge: each new event restarts the
// coalescing window and only the window's last position is written.
// Earlier events in the same window are dropped: last write wins,
// because one user session is the only writer for a book.
package tracker

import (
	"log"
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// DefaultDebounceWindow is used when no window is configured.
const DefaultDebounceWindow = 1500 * time.Millisecond

// ProgressStore is the authoritative per-user resume-point store.
type ProgressStore interface {
	UpsertPosition(userID, bookID uint, pos entities.ReadingPosition) error
}

// BookDenormalizer maintains the non-authoritative percentage shown in
// library list views.
type BookDenormalizer interface {
	SetProgressPercent(bookID uint, percent int) error
}

// RepairEnqueuer schedules an out-of-band retry when the denormalized
// write fails. Optional; a nil enqueuer just means the nightly
// reconciliation catches the drift instead.
type RepairEnqueuer interface {
	EnqueueProgressRepair(bookID uint, percent int)
}

// Update is one live progress event delivered to subscribers.
type Update struct {
	BookID   uint                     `json:"book_id"`
	Position entities.ReadingPosition `json:"position"`
}

type key struct {
	userID uint
	bookID uint
}

type pending struct {
	pos   entities.ReadingPosition
	timer *time.Timer
}

// Tracker debounces and persists reading positions. Safe for use from
// timer goroutines and request handlers concurrently.
type Tracker struct {
	store   ProgressStore
	books   BookDenormalizer
	repairs RepairEnqueuer
	window  time.Duration

	mu      sync.Mutex
	latest  map[key]entities.ReadingPosition
	pending map[key]*pending
	subs    map[key]map[chan Update]struct{}
	closed  bool
}

func New(store ProgressStore, books BookDenormalizer, window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Tracker{
		store:   store,
		books:   books,
		window:  window,
		latest:  make(map[key]entities.ReadingPosition),
		pending: make(map[key]*pending),
		subs:    make(map[key]map[chan Update]struct{}),
	}
}

// SetRepairEnqueuer wires the optional background repair queue.
func (t *Tracker) SetRepairEnqueuer(repairs RepairEnqueuer) {
	t.repairs = repairs
}

// Record accepts one raw position-change event: it updates the
// in-memory latest position, notifies live subscribers immediately, and
// restarts the trailing-edge persistence timer.
func (t *Tracker) Record(userID, bookID uint, pos entities.ReadingPosition) {
	k := key{userID: userID, bookID: bookID}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.latest[k] = pos
	t.notifyLocked(k, Update{BookID: bookID, Position: pos})

	if entry, ok := t.pending[k]; ok {
		entry.pos = pos
		entry.timer.Reset(t.window)
		t.mu.Unlock()
		return
	}
	entry := &pending{pos: pos}
	entry.timer = time.AfterFunc(t.window, func() {
		t.flush(k)
	})
	t.pending[k] = entry
	t.mu.Unlock()
}

// Current returns the most recent in-memory position for (user, book).
// It reflects events that have not been persisted yet.
func (t *Tracker) Current(userID, bookID uint) (entities.ReadingPosition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.latest[key{userID: userID, bookID: bookID}]
	return pos, ok
}

// Flush cancels any pending timer for (user, book) and writes the last
// known position immediately. Used for the best-effort final write when
// a reading session closes.
func (t *Tracker) Flush(userID, bookID uint) {
	t.flush(key{userID: userID, bookID: bookID})
}

// Forget drops all in-memory state for (user, book) without writing.
func (t *Tracker) Forget(userID, bookID uint) {
	k := key{userID: userID, bookID: bookID}
	t.mu.Lock()
	if entry, ok := t.pending[k]; ok {
		entry.timer.Stop()
		delete(t.pending, k)
	}
	delete(t.latest, k)
	t.mu.Unlock()
}

// Subscribe returns a channel receiving live progress updates for
// (user, book). Slow consumers miss intermediate updates rather than
// blocking the reading flow.
func (t *Tracker) Subscribe(userID, bookID uint) chan Update {
	k := key{userID: userID, bookID: bookID}
	ch := make(chan Update, 8)
	t.mu.Lock()
	if t.subs[k] == nil {
		t.subs[k] = make(map[chan Update]struct{})
	}
	t.subs[k][ch] = struct{}{}
	t.mu.Unlock()
	return ch
}

func (t *Tracker) Unsubscribe(userID, bookID uint, ch chan Update) {
	k := key{userID: userID, bookID: bookID}
	t.mu.Lock()
	if subs, ok := t.subs[k]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(t.subs, k)
		}
	}
	t.mu.Unlock()
	close(ch)
}

// Close cancels every pending timer and performs a best-effort flush of
// each last known position.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	keys := make([]key, 0, len(t.pending))
	for k, entry := range t.pending {
		entry.timer.Stop()
		keys = append(keys, k)
	}
	t.mu.Unlock()

	for _, k := range keys {
		t.persist(k)
	}
}

func (t *Tracker) notifyLocked(k key, update Update) {
	for ch := range t.subs[k] {
		select {
		case ch <- update:
		default:
		}
	}
}

func (t *Tracker) flush(k key) {
	t.mu.Lock()
	entry, ok := t.pending[k]
	if ok {
		entry.timer.Stop()
		delete(t.pending, k)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	t.persist(k)
}

// persist performs the dual write: the authoritative progress record
// first, then the denormalized book percentage. Both are attempted even
// if the first fails; neither failure reaches the reading UI. A failed
// authoritative write is simply superseded by the next debounce cycle,
// which carries a newer position anyway.
func (t *Tracker) persist(k key) {
	t.mu.Lock()
	pos, ok := t.latest[k]
	t.mu.Unlock()
	if !ok {
		return
	}

	if err := t.store.UpsertPosition(k.userID, k.bookID, pos); err != nil {
		log.Printf("Position write failed for user %d book %d (will retry next cycle): %v",
			k.userID, k.bookID, err)
	}

	if err := t.books.SetProgressPercent(k.bookID, pos.ProgressPercent); err != nil {
		log.Printf("Denormalized progress write failed for book %d: %v", k.bookID, err)
		if t.repairs != nil {
			t.repairs.EnqueueProgressRepair(k.bookID, pos.ProgressPercent)
		}
	}
}

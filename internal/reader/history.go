package reader

import (
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// HistoryEntry is one remembered position in the visit history.
type HistoryEntry struct {
	Position  entities.ReadingPosition `json:"position"`
	Label     string                   `json:"label"`
	VisitedAt time.Time                `json:"visited_at"`
}

// History is a bounded ring of positions worth returning to, recorded
// when the user navigates away from them. Consecutive entries with the
// same label collapse into one.
type History struct {
	mu       sync.Mutex
	capacity int
	entries  []HistoryEntry
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 10
	}
	return &History{capacity: capacity}
}

// Record appends a visited position, deduplicating against the most
// recent entry and evicting the oldest entry past capacity.
func (h *History) Record(pos entities.ReadingPosition) {
	label := pos.Label()
	if label == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1].Label == label {
		h.entries[n-1].VisitedAt = time.Now()
		return
	}
	h.entries = append(h.entries, HistoryEntry{
		Position:  pos,
		Label:     label,
		VisitedAt: time.Now(),
	})
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

// Entries returns the history newest-first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, len(h.entries))
	for i, entry := range h.entries {
		out[len(h.entries)-1-i] = entry
	}
	return out
}

// At returns the entry at index i of the newest-first view.
func (h *History) At(i int) (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1-i], true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

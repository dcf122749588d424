package reader

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// defaultViewportExtent is the assumed viewport height in scroll units
// (characters of wrapped text). Replaying an offset under a different
// viewport or font re-derives the total extent and may land a percent or
// two away from the original position; that drift is accepted.
const defaultViewportExtent = 2000

// OffsetAdapter is the position surface for linear plain-text documents.
// Position is a non-negative scroll offset; progress is
// round(offset / (totalExtent - viewportExtent) * 100).
type OffsetAdapter struct {
	emitter
	content        []rune
	totalExtent    int
	viewportExtent int

	mu     sync.Mutex
	offset int
}

func NewOffsetAdapter(content string, viewportExtent int) *OffsetAdapter {
	if viewportExtent <= 0 {
		viewportExtent = defaultViewportExtent
	}
	runes := []rune(content)
	total := len(runes)
	if total < 1 {
		total = 1
	}
	return &OffsetAdapter{
		content:        runes,
		totalExtent:    total,
		viewportExtent: viewportExtent,
	}
}

// OpenTextDocument loads a plain-text file into an offset adapter.
func OpenTextDocument(path string, viewportExtent int) (*OffsetAdapter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open text document: %w", err)
	}
	return NewOffsetAdapter(string(raw), viewportExtent), nil
}

func (a *OffsetAdapter) Format() entities.BookFormat {
	return entities.FormatText
}

func (a *OffsetAdapter) CurrentPosition() entities.ReadingPosition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positionFor(a.offset)
}

func (a *OffsetAdapter) positionFor(offset int) entities.ReadingPosition {
	return entities.ReadingPosition{
		Kind:            entities.PositionKindOffset,
		Offset:          offset,
		ProgressPercent: a.progressFor(offset),
	}
}

func (a *OffsetAdapter) progressFor(offset int) int {
	scrollable := a.totalExtent - a.viewportExtent
	if scrollable <= 0 {
		// Document fits in one viewport; any offset means fully visible.
		return 100
	}
	return clampPercent(int(math.Round(float64(offset) / float64(scrollable) * 100)))
}

// maxOffset re-derives the scrollable extent. Offsets are clamped to it
// on every jump rather than cached from a prior session.
func (a *OffsetAdapter) maxOffset() int {
	scrollable := a.totalExtent - a.viewportExtent
	if scrollable < 0 {
		return 0
	}
	return scrollable
}

// GoTo accepts a raw offset or a kind-less percentage, converting the
// percentage by re-deriving the total extent at replay time.
func (a *OffsetAdapter) GoTo(target entities.ReadingPosition) error {
	var offset int
	switch target.Kind {
	case entities.PositionKindOffset:
		offset = target.Offset
	case "":
		offset = int(math.Round(float64(target.ProgressPercent) / 100 * float64(a.maxOffset())))
	default:
		return ErrBadTarget
	}

	if offset < 0 {
		offset = 0
	}
	if max := a.maxOffset(); offset > max {
		offset = max
	}

	a.mu.Lock()
	a.offset = offset
	pos := a.positionFor(offset)
	a.mu.Unlock()

	a.emit(pos)
	return nil
}

// ExtractSelection returns one viewport's worth of text starting at the
// current offset, anchored to the current position.
func (a *OffsetAdapter) ExtractSelection() (Selection, error) {
	a.mu.Lock()
	offset := a.offset
	pos := a.positionFor(offset)
	a.mu.Unlock()

	end := offset + a.viewportExtent
	if end > len(a.content) {
		end = len(a.content)
	}
	if offset > len(a.content) {
		offset = len(a.content)
	}
	return Selection{Text: string(a.content[offset:end]), Anchor: pos}, nil
}

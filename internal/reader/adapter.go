// Package reader normalizes "where the reader currently is" across three
// structurally incompatible document formats behind one adapter
// interface. Each adapter owns its native locator model; only the
// progress percentage it derives is comparable across formats.
package reader

import (
	"errors"
	"fmt"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Adapter is the uniform surface every format implements. Positions an
// adapter produces are only meaningful to an adapter of the same format
// for the same book.
//
// GoTo accepts a position of the adapter's own kind, a stored locator
// string under the locator kind, or a kind-less position carrying only
// ProgressPercent (a cross-format percentage jump). GoTo emits a
// position-change event; the tracker owns throttling of that stream.
type Adapter interface {
	Format() entities.BookFormat
	CurrentPosition() entities.ReadingPosition
	GoTo(target entities.ReadingPosition) error
	OnPositionChange(fn func(entities.ReadingPosition))
	ExtractSelection() (Selection, error)
}

// Selection is the text under the reader's current position together
// with the anchor needed to revisit it later.
type Selection struct {
	Text   string                   `json:"text"`
	Anchor entities.ReadingPosition `json:"anchor"`
}

// LoadError reports that a document could not be opened by its format's
// rendering engine (missing file, corruption, unsupported content).
// Callers surface it with a retry action instead of reporting a silent
// position 0.
type LoadError struct {
	BookID uint
	Format entities.BookFormat
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s document for book %d: %v", e.Format, e.BookID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadFailure reports whether err is a document load failure.
func IsLoadFailure(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// ErrBadTarget reports a jump target the active adapter cannot
// interpret (wrong kind for the mounted format).
var ErrBadTarget = errors.New("target position has wrong kind for this adapter")

// clampPercent keeps derived progress in the canonical 0-100 range.
func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// emitter is the shared position-change callback list. Adapters are
// driven by a single reading session's cooperative event loop, so no
// locking is layered on top of the adapter's own mutex.
type emitter struct {
	callbacks []func(entities.ReadingPosition)
}

func (e *emitter) OnPositionChange(fn func(entities.ReadingPosition)) {
	e.callbacks = append(e.callbacks, fn)
}

func (e *emitter) emit(pos entities.ReadingPosition) {
	for _, fn := range e.callbacks {
		fn(pos)
	}
}

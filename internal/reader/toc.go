package reader

import "github.com/shelfmark/shelfmark/internal/entities"

// TOCEntry is a single entry in a document's table of contents, carrying
// a replayable position. The TOC is derived once from the document's
// native structure at load time and is immutable for the session.
type TOCEntry struct {
	Title    string                   `json:"title"`
	Level    int                      `json:"level"`
	Position entities.ReadingPosition `json:"position"`
}

// TOCProvider is an optional interface for adapters whose format exposes
// native structure (PDF outline, EPUB navigation map). Adapters without
// one simply never implement it.
type TOCProvider interface {
	TOC() []TOCEntry
}

// DeriveTOC returns the adapter's table of contents, or nil for formats
// without native structure.
func DeriveTOC(a Adapter) []TOCEntry {
	if p, ok := a.(TOCProvider); ok {
		return p.TOC()
	}
	return nil
}

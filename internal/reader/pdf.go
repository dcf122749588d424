package reader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"rsc.io/pdf"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// PageDocument is the engine surface the page adapter renders against.
// The production implementation wraps rsc.io/pdf; tests supply fakes.
type PageDocument interface {
	PageCount() int
	PageText(page int) (string, error)
	Outline() []OutlineItem
}

// OutlineItem is one flattened entry of a paged document's outline.
type OutlineItem struct {
	Title string
	Level int
}

// PageAdapter is the position surface for page-based documents. Position
// is the 1-based page number; progress is round(page/totalPages*100).
type PageAdapter struct {
	emitter
	doc        PageDocument
	totalPages int

	mu   sync.Mutex
	page int
}

func NewPageAdapter(doc PageDocument) *PageAdapter {
	total := doc.PageCount()
	if total < 1 {
		total = 1
	}
	return &PageAdapter{doc: doc, totalPages: total, page: 1}
}

func (a *PageAdapter) Format() entities.BookFormat {
	return entities.FormatPDF
}

func (a *PageAdapter) TotalPages() int {
	return a.totalPages
}

func (a *PageAdapter) CurrentPosition() entities.ReadingPosition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positionFor(a.page)
}

func (a *PageAdapter) positionFor(page int) entities.ReadingPosition {
	return entities.ReadingPosition{
		Kind:            entities.PositionKindPage,
		Page:            page,
		ProgressPercent: clampPercent(int(math.Round(float64(page) / float64(a.totalPages) * 100))),
	}
}

// GoTo accepts a page position, a stored "page:N" (or bare integer)
// locator, or a kind-less percentage jump. The target page is clamped to
// [1, totalPages].
func (a *PageAdapter) GoTo(target entities.ReadingPosition) error {
	var page int
	switch target.Kind {
	case entities.PositionKindPage:
		page = target.Page
	case entities.PositionKindLocator:
		parsed, err := parsePageLocator(target.Locator)
		if err != nil {
			return err
		}
		page = parsed
	case "":
		page = int(math.Round(float64(target.ProgressPercent) / 100 * float64(a.totalPages)))
	default:
		return ErrBadTarget
	}

	if page < 1 {
		page = 1
	}
	if page > a.totalPages {
		page = a.totalPages
	}

	a.mu.Lock()
	a.page = page
	pos := a.positionFor(page)
	a.mu.Unlock()

	a.emit(pos)
	return nil
}

// ExtractSelection returns the text of the current page anchored to the
// current position.
func (a *PageAdapter) ExtractSelection() (Selection, error) {
	a.mu.Lock()
	page := a.page
	pos := a.positionFor(page)
	a.mu.Unlock()

	text, err := a.doc.PageText(page)
	if err != nil {
		return Selection{}, fmt.Errorf("extract page %d text: %w", page, err)
	}
	return Selection{Text: text, Anchor: pos}, nil
}

// TOC flattens the document outline. rsc.io/pdf does not expose outline
// destinations, so entry pages are distributed evenly across the
// document, an approximation adequate for jump-to-chapter.
func (a *PageAdapter) TOC() []TOCEntry {
	items := a.doc.Outline()
	if len(items) == 0 {
		return nil
	}
	entries := make([]TOCEntry, 0, len(items))
	for i, item := range items {
		page := 1 + i*(a.totalPages-1)/len(items)
		entries = append(entries, TOCEntry{
			Title:    item.Title,
			Level:    item.Level,
			Position: a.positionFor(page),
		})
	}
	return entries
}

func parsePageLocator(locator string) (int, error) {
	raw := strings.TrimPrefix(locator, "page:")
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid page locator %q: %w", locator, err)
	}
	return page, nil
}

// pdfDocument implements PageDocument on top of rsc.io/pdf.
type pdfDocument struct {
	reader *pdf.Reader
}

// OpenPDFDocument opens a PDF file. rsc.io/pdf panics on some malformed
// inputs, so the open is wrapped in a recover and surfaced as an error.
func OpenPDFDocument(path string) (doc PageDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open pdf: %v", r)
		}
	}()
	reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfDocument{reader: reader}, nil
}

func (d *pdfDocument) PageCount() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf page %d: %v", page, r)
		}
	}()
	if page < 1 || page > d.reader.NumPage() {
		return "", fmt.Errorf("pdf page %d out of range", page)
	}
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("pdf page %d is null", page)
	}
	content := p.Content()
	parts := make([]string, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		parts = append(parts, t.S)
	}
	return strings.Join(parts, " "), nil
}

func (d *pdfDocument) Outline() []OutlineItem {
	var items []OutlineItem
	var walk func(outline pdf.Outline, level int)
	walk = func(outline pdf.Outline, level int) {
		if strings.TrimSpace(outline.Title) != "" {
			items = append(items, OutlineItem{Title: outline.Title, Level: level})
		}
		for _, child := range outline.Child {
			walk(child, level+1)
		}
	}
	for _, child := range d.reader.Outline().Child {
		walk(child, 0)
	}
	return items
}

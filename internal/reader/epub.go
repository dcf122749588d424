package reader

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// defaultLocationCount is the size of the sampled location index built
// per load. Two loads of the same document with different granularity
// may disagree by a percent or two; that drift is accepted.
const defaultLocationCount = 200

// selectionWindow is how many runes of chapter text ExtractSelection
// returns around the current locator.
const selectionWindow = 400

// FragmentDocument is the engine surface for reflowable documents. The
// production implementation parses an EPUB container; tests supply
// fakes.
type FragmentDocument interface {
	Spine() []SpineItem
	ChapterText(idref string) (string, error)
	NavPoints() []NavPoint
}

// SpineItem is one content document in reading order. Size is the
// uncompressed byte size, used to weight the location index.
type SpineItem struct {
	IDRef string
	Href  string
	Size  int64
}

// NavPoint is one entry of the document's navigation map.
type NavPoint struct {
	Title string
	Level int
	Href  string
}

// FragmentAdapter is the position surface for reflowable documents.
// Position is an opaque locator string "idref@fraction" addressing a
// point within a spine item. Progress is derived by mapping the locator
// against a sampled index of equally-spaced points across the document,
// an approximation because fragment length is not uniform.
type FragmentAdapter struct {
	emitter
	doc       FragmentDocument
	spine     []SpineItem
	cumStart  map[string]int64 // idref -> cumulative byte offset of item start
	totalSize int64
	locations []int64 // sampled absolute offsets, ascending

	mu      sync.Mutex
	locator string
}

func NewFragmentAdapter(doc FragmentDocument) (*FragmentAdapter, error) {
	spine := doc.Spine()
	if len(spine) == 0 {
		return nil, fmt.Errorf("document has an empty spine")
	}

	a := &FragmentAdapter{
		doc:      doc,
		spine:    spine,
		cumStart: make(map[string]int64, len(spine)),
	}
	var cum int64
	for _, item := range spine {
		a.cumStart[item.IDRef] = cum
		cum += item.Size
	}
	if cum <= 0 {
		cum = 1
	}
	a.totalSize = cum

	// Equally-spaced sampling points across the cumulative byte space.
	a.locations = make([]int64, defaultLocationCount)
	for i := range a.locations {
		a.locations[i] = int64(i) * a.totalSize / int64(defaultLocationCount-1)
	}

	a.locator = makeLocator(spine[0].IDRef, 0)
	return a, nil
}

func (a *FragmentAdapter) Format() entities.BookFormat {
	return entities.FormatEPUB
}

func (a *FragmentAdapter) CurrentPosition() entities.ReadingPosition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positionFor(a.locator)
}

func (a *FragmentAdapter) positionFor(locator string) entities.ReadingPosition {
	return entities.ReadingPosition{
		Kind:            entities.PositionKindLocator,
		Locator:         locator,
		ProgressPercent: a.progressFor(locator),
	}
}

// progressFor maps a locator to a percentage through the sampled index:
// the locator's absolute offset is matched to the nearest sampling point
// and the point's rank becomes the percentage.
func (a *FragmentAdapter) progressFor(locator string) int {
	abs, err := a.absoluteOffset(locator)
	if err != nil {
		return 0
	}
	idx := sort.Search(len(a.locations), func(i int) bool {
		return a.locations[i] >= abs
	})
	if idx >= len(a.locations) {
		idx = len(a.locations) - 1
	}
	return clampPercent(int(math.Round(float64(idx) / float64(len(a.locations)-1) * 100)))
}

func (a *FragmentAdapter) absoluteOffset(locator string) (int64, error) {
	idref, frac, err := parseFragmentLocator(locator)
	if err != nil {
		return 0, err
	}
	start, ok := a.cumStart[idref]
	if !ok {
		return 0, fmt.Errorf("unknown spine item %q", idref)
	}
	var size int64
	for _, item := range a.spine {
		if item.IDRef == idref {
			size = item.Size
			break
		}
	}
	return start + int64(frac*float64(size)), nil
}

// GoTo replays a stored locator string, or converts a kind-less
// percentage jump into the nearest sampled location.
func (a *FragmentAdapter) GoTo(target entities.ReadingPosition) error {
	var locator string
	switch target.Kind {
	case entities.PositionKindLocator:
		if _, _, err := parseFragmentLocator(target.Locator); err != nil {
			return err
		}
		if _, err := a.absoluteOffset(target.Locator); err != nil {
			return err
		}
		locator = target.Locator
	case "":
		locator = a.locatorAtPercent(target.ProgressPercent)
	default:
		return ErrBadTarget
	}

	a.mu.Lock()
	a.locator = locator
	pos := a.positionFor(locator)
	a.mu.Unlock()

	a.emit(pos)
	return nil
}

// locatorAtPercent converts a percentage into the locator of the
// corresponding sampled point.
func (a *FragmentAdapter) locatorAtPercent(percent int) string {
	percent = clampPercent(percent)
	abs := a.locations[percent*(len(a.locations)-1)/100]
	for i := len(a.spine) - 1; i >= 0; i-- {
		item := a.spine[i]
		start := a.cumStart[item.IDRef]
		if abs >= start {
			frac := 0.0
			if item.Size > 0 {
				frac = float64(abs-start) / float64(item.Size)
			}
			if frac > 1 {
				frac = 1
			}
			return makeLocator(item.IDRef, frac)
		}
	}
	return makeLocator(a.spine[0].IDRef, 0)
}

// ExtractSelection returns a window of the current chapter's text around
// the locator's fraction, anchored to the current position.
func (a *FragmentAdapter) ExtractSelection() (Selection, error) {
	a.mu.Lock()
	locator := a.locator
	pos := a.positionFor(locator)
	a.mu.Unlock()

	idref, frac, err := parseFragmentLocator(locator)
	if err != nil {
		return Selection{}, err
	}
	text, err := a.doc.ChapterText(idref)
	if err != nil {
		return Selection{}, fmt.Errorf("extract chapter %q text: %w", idref, err)
	}

	runes := []rune(text)
	start := int(frac * float64(len(runes)))
	if start > len(runes) {
		start = len(runes)
	}
	end := start + selectionWindow
	if end > len(runes) {
		end = len(runes)
	}
	return Selection{Text: string(runes[start:end]), Anchor: pos}, nil
}

// TOC derives entries from the navigation map, resolving each entry's
// href to the locator of its spine item's start.
func (a *FragmentAdapter) TOC() []TOCEntry {
	points := a.doc.NavPoints()
	if len(points) == 0 {
		return nil
	}
	hrefToIDRef := make(map[string]string, len(a.spine))
	for _, item := range a.spine {
		hrefToIDRef[item.Href] = item.IDRef
	}
	entries := make([]TOCEntry, 0, len(points))
	for _, point := range points {
		href := point.Href
		if i := strings.IndexByte(href, '#'); i >= 0 {
			href = href[:i]
		}
		idref, ok := hrefToIDRef[href]
		if !ok {
			continue
		}
		entries = append(entries, TOCEntry{
			Title:    point.Title,
			Level:    point.Level,
			Position: a.positionFor(makeLocator(idref, 0)),
		})
	}
	return entries
}

func makeLocator(idref string, frac float64) string {
	return fmt.Sprintf("%s@%.4f", idref, frac)
}

func parseFragmentLocator(locator string) (idref string, frac float64, err error) {
	idref, fracStr, found := strings.Cut(locator, "@")
	if !found || idref == "" {
		return "", 0, fmt.Errorf("invalid locator %q", locator)
	}
	frac, err = strconv.ParseFloat(fracStr, 64)
	if err != nil || frac < 0 || frac > 1 {
		return "", 0, fmt.Errorf("invalid locator fraction in %q", locator)
	}
	return idref, frac, nil
}

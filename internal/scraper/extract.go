package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"mspro-labs/treedb/internal/config"
	"mspro-labs/treedb/internal/models"
)

var (
	// ErrNativeRangeNotFound means no block carries the native range label.
	ErrNativeRangeNotFound = errors.New("native range block not found")
	// ErrNativeRangeMalformed means the block exists but has no text after its line break.
	ErrNativeRangeMalformed = errors.New("native range block malformed")
)

// Extractor turns species profile HTML into records.
type Extractor struct {
	sel config.Selectors
}

func NewExtractor(sel config.Selectors) *Extractor {
	return &Extractor{sel: sel}
}

// Assemble parses html and builds the record for id. The id is not checked
// against the page. A native range failure aborts the whole record, while a
// missing name only degrades to models.NameNotFound.
func (e *Extractor) Assemble(htmlText string, id int) (models.SpeciesRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return models.SpeciesRecord{}, fmt.Errorf("failed to parse species %d: %w", id, err)
	}

	name := e.ExtractName(doc)
	nativeRange, err := e.ExtractNativeRange(doc)
	if err != nil {
		return models.SpeciesRecord{}, fmt.Errorf("species %d: %w", id, err)
	}

	rec := models.NewSpeciesRecord(id)
	rec.SpeciesName = name
	rec.NativeRange = nativeRange
	return rec, nil
}

// ExtractName returns the text of the first name heading exactly as it
// appears in the document.
func (e *Extractor) ExtractName(doc *goquery.Document) string {
	heading := doc.Find(e.sel.Name).First()
	if heading.Length() == 0 {
		logger.Printf("no %q element in document: %s", e.sel.Name, models.NameNotFound)
		return models.NameNotFound
	}
	return heading.Text()
}

// ExtractNativeRange finds the first block mentioning the native range label
// and splits the text right after its first <br> on commas. Fragments keep
// their surrounding whitespace.
func (e *Extractor) ExtractNativeRange(doc *goquery.Document) ([]string, error) {
	block := doc.Find(e.sel.NativeRangeBlock).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), e.sel.NativeRangeLabel)
	}).First()
	if block.Length() == 0 {
		return nil, fmt.Errorf("%w: no <%s> containing %q", ErrNativeRangeNotFound, e.sel.NativeRangeBlock, e.sel.NativeRangeLabel)
	}

	br := block.Find("br").First()
	if br.Length() == 0 {
		return nil, fmt.Errorf("%w: no <br> inside block", ErrNativeRangeMalformed)
	}

	next := br.Nodes[0].NextSibling
	if next == nil || next.Type != html.TextNode {
		return nil, fmt.Errorf("%w: <br> is not followed by text", ErrNativeRangeMalformed)
	}
	return strings.Split(next.Data, ","), nil
}

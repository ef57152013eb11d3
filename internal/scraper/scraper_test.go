package scraper

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/treedb/internal/config"
	"mspro-labs/treedb/internal/models"
)

// Trimmed-down copy of an Agroforestree profile page.
const sampleProfile = `
<html>
<body>
  <div id="header"><a href="/treedb2/index.php">Home</a></div>
  <h2>Faidherbia albida</h2>
  <h2>Second heading</h2>
  <pre>Local names: Arabic (haraz)</pre>
  <pre>Native range:<br>Kenya, Uganda, Tanzania</pre>
  <pre>Native range:<br>Ignored, Block</pre>
  <a href="speciesprofile.php?Spid=404">self</a>
  <a href="speciesprofile.php?Spid=1">next</a>
</body>
</html>`

type fakeFetcher struct {
	pages    map[string]string
	err      error
	requests []string
}

func (f *fakeFetcher) Fetch(_ context.Context, suffix string) (string, error) {
	f.requests = append(f.requests, suffix)
	if f.err != nil {
		return "", f.err
	}
	return f.pages[suffix], nil
}

func (f *fakeFetcher) Close() error { return nil }

func newDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func defaultExtractor() *Extractor {
	return NewExtractor(config.DefaultSelectors())
}

func TestExtractName(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{"first heading wins", sampleProfile, "Faidherbia albida"},
		{"whitespace kept", "<h2>  Acacia  senegal\n</h2>", "  Acacia  senegal\n"},
		{"nested markup", "<h2><i>Moringa</i> oleifera</h2>", "Moringa oleifera"},
		{"missing heading", "<h1>Title</h1><p>body</p>", models.NameNotFound},
		{"empty document", "", models.NameNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, defaultExtractor().ExtractName(newDoc(t, tc.html)))
		})
	}
}

func TestExtractNativeRange(t *testing.T) {
	got, err := defaultExtractor().ExtractNativeRange(newDoc(t, sampleProfile))
	require.NoError(t, err)
	assert.Equal(t, []string{"Kenya", " Uganda", " Tanzania"}, got)
}

func TestExtractNativeRange_SingleRegion(t *testing.T) {
	got, err := defaultExtractor().ExtractNativeRange(newDoc(t, "<pre>Native range:<br>Ethiopia\n</pre>"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ethiopia\n"}, got)
}

func TestExtractNativeRange_Failures(t *testing.T) {
	testCases := []struct {
		name string
		html string
		want error
	}{
		{"no block", "<pre>Exotic range:<br>Chile</pre>", ErrNativeRangeNotFound},
		{"label outside pre", "<p>Native range:<br>Kenya</p>", ErrNativeRangeNotFound},
		{"no line break", "<pre>Native range: Kenya</pre>", ErrNativeRangeMalformed},
		{"nothing after break", "<pre>Native range:<br></pre>", ErrNativeRangeMalformed},
		{"element after break", "<pre>Native range:<br><b>Kenya</b></pre>", ErrNativeRangeMalformed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := defaultExtractor().ExtractNativeRange(newDoc(t, tc.html))
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, got)
		})
	}
}

func TestExtractor_CustomSelectors(t *testing.T) {
	e := NewExtractor(config.Selectors{Name: "h1.title", NativeRangeBlock: "div.range", NativeRangeLabel: "Origin"})
	rec, err := e.Assemble(`<h1 class="title">Neem</h1><div class="range">Origin<br>India,Burma</div>`, 7)
	require.NoError(t, err)
	assert.Equal(t, "Neem", rec.SpeciesName)
	assert.Equal(t, []string{"India", "Burma"}, rec.NativeRange)
}

func TestAssemble(t *testing.T) {
	rec, err := defaultExtractor().Assemble(sampleProfile, 404)
	require.NoError(t, err)

	assert.Equal(t, models.SpeciesRecord{
		SpeciesName:         "Faidherbia albida",
		SpeciesID:           404,
		ProductsAndServices: []string{},
		Nativity:            "",
		NativeRange:         []string{"Kenya", " Uganda", " Tanzania"},
	}, rec)
}

func TestAssemble_NameFailureIsSoft(t *testing.T) {
	rec, err := defaultExtractor().Assemble("<pre>Native range:<br>Mali</pre>", 3)
	require.NoError(t, err)
	assert.Equal(t, models.NameNotFound, rec.SpeciesName)
	assert.Equal(t, []string{"Mali"}, rec.NativeRange)
}

func TestAssemble_NativeRangeFailureIsHard(t *testing.T) {
	rec, err := defaultExtractor().Assemble("<h2>Grevillea robusta</h2>", 9)
	assert.ErrorIs(t, err, ErrNativeRangeNotFound)
	assert.Empty(t, rec.SpeciesName, "name must be discarded on failure")
}

func TestFindLinks(t *testing.T) {
	html := `<a href="/a">A</a><a href="/b">B</a><span>no link</span><a name="anchor">x</a>`

	links, err := FindLinks(html, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, slices.Collect(links))
}

func TestFindLinks_Pattern(t *testing.T) {
	links, err := FindLinks(sampleProfile, `Spid=\d+`)
	require.NoError(t, err)
	assert.Equal(t, []string{"speciesprofile.php?Spid=404", "speciesprofile.php?Spid=1"}, slices.Collect(links))

	links, err = FindLinks(sampleProfile, "index")
	require.NoError(t, err)
	assert.Equal(t, []string{"/treedb2/index.php"}, slices.Collect(links))
}

func TestFindLinks_StopsEarly(t *testing.T) {
	links, err := FindLinks(sampleProfile, "")
	require.NoError(t, err)

	var first string
	for href := range links {
		first = href
		break
	}
	assert.Equal(t, "/treedb2/index.php", first)
}

func TestFindLinks_InvalidPattern(t *testing.T) {
	_, err := FindLinks(sampleProfile, "Spid=(")
	assert.Error(t, err)
}

func TestScraper_ScrapeSpecies(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"?Spid=404": sampleProfile}}
	s := New(f, config.DefaultSelectors())

	rec, err := s.ScrapeSpecies(context.Background(), 404)
	require.NoError(t, err)
	assert.Equal(t, 404, rec.SpeciesID)
	assert.Equal(t, "Faidherbia albida", rec.SpeciesName)
	assert.Equal(t, []string{"?Spid=404"}, f.requests)
}

func TestScraper_ScrapeSpecies_FetchError(t *testing.T) {
	boom := errors.New("connection refused")
	s := New(&fakeFetcher{err: boom}, config.DefaultSelectors())

	_, err := s.ScrapeSpecies(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestScraper_ScrapeAll_StopsAtFirstFailure(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"?Spid=1": sampleProfile,
		"?Spid=2": "<h2>No range here</h2>",
		"?Spid=3": sampleProfile,
	}}
	s := New(f, config.DefaultSelectors())

	records, err := s.ScrapeAll(context.Background(), []int{1, 2, 3})
	assert.ErrorIs(t, err, ErrNativeRangeNotFound)
	assert.Nil(t, records)
	assert.Equal(t, []string{"?Spid=1", "?Spid=2"}, f.requests)
}

func TestScraper_DiscoverLinks(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"?Spid=404": sampleProfile}}
	s := New(f, config.DefaultSelectors())

	links, err := s.DiscoverLinks(context.Background(), "?Spid=404", "Spid=1$")
	require.NoError(t, err)
	assert.Equal(t, []string{"speciesprofile.php?Spid=1"}, links)
}

package scraper

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"

	"mspro-labs/treedb/internal/config"
	"mspro-labs/treedb/internal/fetcher"
	"mspro-labs/treedb/internal/models"
)

var logger = log.New(os.Stderr, "SCRAPER: ", log.LstdFlags|log.Lshortfile)

// ProfileSuffix is the query string selecting a species profile by Spid.
func ProfileSuffix(id int) string {
	return fmt.Sprintf("?Spid=%d", id)
}

// Scraper ties a Fetcher to an Extractor.
type Scraper struct {
	fetcher   fetcher.Fetcher
	extractor *Extractor
}

func New(f fetcher.Fetcher, sel config.Selectors) *Scraper {
	return &Scraper{fetcher: f, extractor: NewExtractor(sel)}
}

// ScrapeSpecies fetches and parses the profile page for id.
func (s *Scraper) ScrapeSpecies(ctx context.Context, id int) (models.SpeciesRecord, error) {
	html, err := s.fetcher.Fetch(ctx, ProfileSuffix(id))
	if err != nil {
		return models.SpeciesRecord{}, fmt.Errorf("failed to fetch species %d: %w", id, err)
	}
	return s.extractor.Assemble(html, id)
}

// ScrapeAll scrapes ids in order and stops at the first failure.
func (s *Scraper) ScrapeAll(ctx context.Context, ids []int) ([]models.SpeciesRecord, error) {
	records := make([]models.SpeciesRecord, 0, len(ids))
	for _, id := range ids {
		logger.Printf("Scraping species %d", id)
		rec, err := s.ScrapeSpecies(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// DiscoverLinks fetches suffix and returns the hrefs matching pattern.
func (s *Scraper) DiscoverLinks(ctx context.Context, suffix, pattern string) ([]string, error) {
	html, err := s.fetcher.Fetch(ctx, suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", suffix, err)
	}
	links, err := FindLinks(html, pattern)
	if err != nil {
		return nil, err
	}
	return slices.Collect(links), nil
}

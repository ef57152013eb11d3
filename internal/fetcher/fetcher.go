// Package fetcher retrieves raw species profile pages.
//
// A Fetcher is bound to one base URL; callers pass only the suffix
// (usually a query string such as "?Spid=404"), which is appended verbatim.
// The response body is returned whatever the HTTP status, so a "not found"
// page reaches the parser just like a real profile.
package fetcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"mspro-labs/treedb/internal/config"
)

var logger = log.New(os.Stderr, "FETCHER: ", log.LstdFlags|log.Lshortfile)

// Fetcher returns the body of base URL + suffix as text.
type Fetcher interface {
	Fetch(ctx context.Context, suffix string) (string, error)
	Close() error
}

// Options configures both fetcher implementations.
type Options struct {
	BaseURL   string
	Delay     time.Duration // minimum spacing between requests, 0 = none
	Timeout   time.Duration // per request, 0 = none
	UserAgent string
}

// OptionsFromConfig maps the YAML site config onto fetcher options.
func OptionsFromConfig(cfg *config.SiteConfig) Options {
	return Options{
		BaseURL:   cfg.BaseURL,
		Delay:     cfg.RequestDelay(),
		Timeout:   cfg.Timeout(),
		UserAgent: cfg.UserAgent,
	}
}

// New builds the fetcher selected by cfg.Fetcher.
func New(cfg *config.SiteConfig) (Fetcher, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.Fetcher {
	case config.FetcherBrowser:
		return NewBrowserFetcher(opts)
	case config.FetcherHTTP, "":
		return NewHTTPFetcher(opts), nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher)
	}
}

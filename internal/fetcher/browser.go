package fetcher

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"golang.org/x/time/rate"
)

// BrowserFetcher loads pages in a headless Chromium with stealth patches.
// Use it when the site starts rejecting plain HTTP clients.
type BrowserFetcher struct {
	opts    Options
	browser *rod.Browser
	limiter *rate.Limiter
}

func NewBrowserFetcher(opts Options) (*BrowserFetcher, error) {
	logger.Println("Launching headless browser...")
	browser, err := launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &BrowserFetcher{
		opts:    opts,
		browser: browser,
		limiter: newThrottle(opts.Delay),
	}, nil
}

func launchBrowser() (*rod.Browser, error) {
	u, err := launcher.New().Headless(true).NoSandbox(true).Launch()
	if err != nil {
		return nil, err
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	return browser, nil
}

// Fetch navigates to baseURL+suffix and returns the rendered HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, suffix string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("request delay interrupted: %w", err)
	}

	page, err := stealth.Page(f.browser)
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if f.opts.Timeout > 0 {
		page = page.Timeout(f.opts.Timeout)
	}

	url := f.opts.BaseURL + suffix
	logger.Printf("Navigating to: %s", url)
	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}

	return page.HTML()
}

func (f *BrowserFetcher) Close() error {
	return f.browser.Close()
}

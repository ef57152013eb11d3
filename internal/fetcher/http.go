package fetcher

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// HTTPFetcher issues plain GET requests through resty.
type HTTPFetcher struct {
	baseURL string
	client  *resty.Client
	limiter *rate.Limiter
}

func NewHTTPFetcher(opts Options) *HTTPFetcher {
	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &HTTPFetcher{
		baseURL: opts.BaseURL,
		client:  client,
		limiter: newThrottle(opts.Delay),
	}
}

// Fetch GETs baseURL+suffix and returns the decoded body. Non-2xx
// responses are not errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, suffix string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("request delay interrupted: %w", err)
	}

	url := f.baseURL + suffix
	logger.Printf("GET %s", url)
	res, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if res.IsError() {
		logger.Printf("%s answered %s, returning body anyway", url, res.Status())
	}

	return decodeBody(res.Body(), res.Header().Get("Content-Type"))
}

// decodeBody converts the body to UTF-8. A charset from the Content-Type
// header or a BOM is trusted; otherwise a body that is valid UTF-8 as a whole
// is kept as is, and only then the sniffed <meta> charset or windows-1252 is used.
func decodeBody(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && utf8.Valid(body) {
		return string(body), nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode body as %s: %w", name, err)
	}
	return string(decoded), nil
}

func (f *HTTPFetcher) Close() error {
	return nil
}

// Package fetch downloads the live page with a browser-like request and a
// bounded number of retries.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// DefaultHeaders is what a desktop browser sends for a page load. Some live
// score sites serve a stripped page to anything else.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "max-age=0",
	}
}

// Options configures a Fetcher. Zero fields take the defaults.
type Options struct {
	Timeout time.Duration
	Retry   RetryConfig
	Headers map[string]string
	Sleep   SleepFunc
}

// Fetcher performs GET requests for page bodies.
type Fetcher struct {
	client *resty.Client
	retry  RetryConfig
	sleep  SleepFunc
	logger *zap.Logger
}

// New builds a Fetcher.
func New(opts Options, logger *zap.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Retry.BackoffFactor <= 0 {
		opts.Retry.BackoffFactor = 2.0
	}
	if opts.Headers == nil {
		opts.Headers = DefaultHeaders()
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeaders(opts.Headers)

	return &Fetcher{
		client: client,
		retry:  opts.Retry,
		sleep:  opts.Sleep,
		logger: logger.Named("fetch"),
	}
}

// Fetch returns the body of url. After the last failed attempt the error
// wraps ErrExhausted; callers should treat it as a skipped cycle.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	err := Retry(ctx, f.retry, f.sleep, f.logger.With(zap.String("url", url)), func(ctx context.Context) error {
		res, err := f.client.R().
			SetContext(ctx).
			Get(url)
		if err != nil {
			return err
		}
		if !res.IsSuccess() {
			return fmt.Errorf("unexpected status: %s", res.Status())
		}
		body = res.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	return body, nil
}

package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultFetchTimeout  = 30 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
)

// Fetcher downloads remote documents. Every call is bounded by its timeout,
// and transient failures are retried inside that same deadline.
type Fetcher struct {
	client        *resty.Client
	retries       int
	retryInterval time.Duration
}

func NewFetcher(userAgent string, retries int) *Fetcher {
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	if retries < 0 {
		retries = 0
	}

	return &Fetcher{
		client:        client,
		retries:       retries,
		retryInterval: defaultRetryInterval,
	}
}

// Run fetches url and returns the response body. Failures are *FetchError.
func (f *Fetcher) Run(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body []byte
	attempt := 0

	operation := func() error {
		attempt++

		resp, err := f.client.R().SetContext(ctx).Get(url)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(&FetchError{URL: url, Err: ctx.Err()})
			}
			return &FetchError{URL: url, Err: err}
		}

		status := resp.StatusCode()
		if status >= 200 && status < 300 {
			body = resp.Body()
			return nil
		}

		fetchErr := &FetchError{URL: url, StatusCode: status, Err: errors.New(http.StatusText(status))}
		if status == http.StatusTooManyRequests || status >= 500 {
			return fetchErr
		}
		return backoff.Permanent(fetchErr)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.retryInterval
	policy.MaxElapsedTime = 0 // the context deadline bounds retries

	notify := func(err error, wait time.Duration) {
		slog.Debug("Retrying fetch", "url", url, "attempt", attempt, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(f.retries)), ctx),
		notify)
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, &FetchError{URL: url, Err: err}
	}

	if len(body) == 0 {
		return nil, &FetchError{URL: url, Err: errors.New("empty response body")}
	}

	return body, nil
}

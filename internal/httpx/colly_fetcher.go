package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultUserAgent    = "page-diff/1.0"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 10 * 1024 * 1024
)

// Page is a fetched document. Body is whatever the server returned,
// decoded to UTF-8 when a charset is declared or detected.
type Page struct {
	URL         string
	FinalURL    string
	Status      int
	ContentType string
	Body        string
}

// FetchError reports a failed fetch. Status is zero when no response arrived.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the fetch gave up waiting on the remote server.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

type Options struct {
	UserAgent     string
	Timeout       time.Duration
	MaxBodyBytes  int
	RespectRobots bool
}

// CollyFetcher fetches single pages with a fresh colly collector per call,
// so repeated URLs are never skipped as already visited.
type CollyFetcher struct {
	userAgent     string
	timeout       time.Duration
	maxBodyBytes  int
	respectRobots bool
	transport     http.RoundTripper
}

func NewCollyFetcher(opts Options) *CollyFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &CollyFetcher{
		userAgent:     opts.UserAgent,
		timeout:       opts.Timeout,
		maxBodyBytes:  opts.MaxBodyBytes,
		respectRobots: opts.RespectRobots,
		transport:     &bodyLimitTransport{base: http.DefaultTransport, limit: int64(opts.MaxBodyBytes)},
	}
}

// FetchPage GETs rawURL, following redirects. Any non-2xx answer is a
// *FetchError carrying the status, as is a body larger than the limit.
// Cancelling ctx aborts the request even while it is in flight.
func (f *CollyFetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	if rawURL == "" {
		return nil, &FetchError{URL: rawURL, Err: errors.New("empty url")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	c := f.newCollector(ctx)

	page := &Page{URL: rawURL}
	var reqErr error
	c.OnResponseHeaders(func(r *colly.Response) {
		page.Status = r.StatusCode
	})
	c.OnResponse(func(r *colly.Response) {
		page.Status = r.StatusCode
		page.ContentType = r.Headers.Get("Content-Type")
		page.Body = string(r.Body)
		if r.Request != nil && r.Request.URL != nil {
			page.FinalURL = r.Request.URL.String()
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			page.Status = r.StatusCode
		}
		reqErr = err
	})

	if err := c.Request(http.MethodGet, rawURL, nil, nil, nil); err != nil && reqErr == nil {
		reqErr = err
	}
	if reqErr == nil && ctx.Err() != nil {
		reqErr = ctx.Err()
	}
	if reqErr != nil {
		if errors.Is(reqErr, ErrBodyTooLarge) {
			reqErr = fmt.Errorf("%w (limit %d bytes)", reqErr, f.maxBodyBytes)
		}
		return nil, &FetchError{URL: rawURL, Status: page.Status, Err: reqErr}
	}
	if page.Status < 200 || page.Status > 299 {
		return nil, &FetchError{URL: rawURL, Status: page.Status, Err: fmt.Errorf("unexpected status %d", page.Status)}
	}
	if page.FinalURL == "" {
		page.FinalURL = rawURL
	}
	return page, nil
}

// newCollector builds a collector whose outgoing requests carry ctx.
// colly's own MaxBodySize truncates silently, so it is disabled and the
// limit is enforced by the transport instead.
func (f *CollyFetcher) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(f.userAgent),
		colly.MaxBodySize(0),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = !f.respectRobots
	c.ParseHTTPErrorResponse = true
	c.DetectCharset = true
	c.WithTransport(f.transport)
	c.SetRequestTimeout(f.timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	return c
}

package httpx

import (
	"errors"
	"io"
	"net/http"
)

// ErrBodyTooLarge is returned when a response body exceeds the fetcher's
// MaxBodyBytes. The page is rejected rather than compared truncated.
var ErrBodyTooLarge = errors.New("response body too large")

type bodyLimitTransport struct {
	base  http.RoundTripper
	limit int64
}

func (t *bodyLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	res.Body = &limitedBody{ReadCloser: res.Body, remaining: t.limit}
	return res, nil
}

// limitedBody reads at most one byte past the limit, then fails.
type limitedBody struct {
	io.ReadCloser
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, ErrBodyTooLarge
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, ErrBodyTooLarge
	}
	return n, err
}

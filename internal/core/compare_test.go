package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/page-diff/internal/content"
	"github.com/baxromumarov/page-diff/internal/diff"
	"github.com/baxromumarov/page-diff/internal/httpx"
	"github.com/baxromumarov/page-diff/internal/observability"
)

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	nilFor map[string]bool
	calls  []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, rawURL string) (*httpx.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if f.nilFor[rawURL] {
		return nil, nil
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &httpx.FetchError{URL: rawURL, Status: 404}
	}
	return &httpx.Page{URL: rawURL, FinalURL: rawURL, Status: 200, ContentType: "text/html", Body: body}, nil
}

const (
	stagingURL    = "https://staging.example.com/"
	productionURL = "https://www.example.com/"
)

func TestCompare_Identical(t *testing.T) {
	page := `<html><body><p>Hello   world</p><script>track()</script></body></html>`
	f := &fakeFetcher{pages: map[string]string{
		stagingURL:    page,
		productionURL: `<p style="color:red">Hello world</p>`,
	}}
	svc := NewCompareService(f, Options{})

	res, err := svc.Compare(context.Background(), stagingURL, productionURL, "")
	require.NoError(t, err)
	assert.True(t, res.Identical)
	assert.Len(t, res.ID, 36)
	assert.Empty(t, res.Fragment)
	assert.NotNil(t, res.Lines)
	assert.Empty(t, res.Lines)
	assert.Equal(t, content.ModeCollapse, res.Mode)
	assert.Equal(t, len("Hello world"), res.Left.TextLength)
	assert.Equal(t, 1, res.Left.Lines)
	assert.ElementsMatch(t, []string{stagingURL, productionURL}, f.calls)
}

func TestCompare_Different(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		stagingURL:    `<p>Hello staging</p>`,
		productionURL: `<p>Hello production</p>`,
	}}
	svc := NewCompareService(f, Options{})

	res, err := svc.Compare(context.Background(), stagingURL, productionURL, content.ModeCollapse)
	require.NoError(t, err)
	assert.False(t, res.Identical)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []diff.Line{
		{Op: diff.OpDelete, Text: "Hello staging"},
		{Op: diff.OpInsert, Text: "Hello production"},
	}, res.Lines)
	assert.Contains(t, res.Fragment, `style="color: red;">Hello staging`)
	assert.Contains(t, res.Fragment, `style="color: green;">Hello production`)
}

func TestCompare_BlocksMode(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		stagingURL:    `<h1>Title</h1><p>Same</p><p>Old footer</p>`,
		productionURL: `<h1>Title</h1><p>Same</p><p>New footer</p>`,
	}}
	svc := NewCompareService(f, Options{ContextLines: -1, DefaultMode: content.ModeBlocks})
	assert.Equal(t, content.ModeBlocks, svc.DefaultMode())

	res, err := svc.Compare(context.Background(), stagingURL, productionURL, "")
	require.NoError(t, err)
	assert.Equal(t, content.ModeBlocks, res.Mode)
	assert.Equal(t, []diff.Line{
		{Op: diff.OpEqual, Text: "Title"},
		{Op: diff.OpEqual, Text: "Same"},
		{Op: diff.OpDelete, Text: "Old footer"},
		{Op: diff.OpInsert, Text: "New footer"},
	}, res.Lines)
	assert.Equal(t, 3, res.Left.Lines)
}

func TestCompare_InvalidInput(t *testing.T) {
	svc := NewCompareService(&fakeFetcher{}, Options{})

	tests := []struct {
		name  string
		url1  string
		url2  string
		field string
	}{
		{name: "missing first", url1: "", url2: productionURL, field: "url1"},
		{name: "missing second", url1: stagingURL, url2: " ", field: "url2"},
		{name: "bad scheme", url1: "ftp://example.com", url2: productionURL, field: "url1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Compare(context.Background(), tt.url1, tt.url2, "")
			require.Error(t, err)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, observability.ErrorInput, cerr.Kind)
			assert.Equal(t, tt.field, cerr.Field)
			assert.Equal(t, observability.ErrorInput, observability.ClassifyError(err))
			assert.Contains(t, err.Error(), tt.field+":")
		})
	}
}

func TestCompare_FetchFailure(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{stagingURL: "<p>x</p>"},
		errs: map[string]error{
			productionURL: &httpx.FetchError{URL: productionURL, Status: 503, Err: errors.New("unexpected status 503")},
		},
	}
	svc := NewCompareService(f, Options{})

	_, err := svc.Compare(context.Background(), stagingURL, productionURL, "")
	require.Error(t, err)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, observability.ErrorFetch, cerr.Kind)
	assert.Equal(t, "url2", cerr.Field)

	var fe *httpx.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 503, fe.Status)
}

func TestCompare_FetchTimeout(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{productionURL: "<p>x</p>"},
		errs: map[string]error{
			stagingURL: &httpx.FetchError{URL: stagingURL, Err: context.DeadlineExceeded},
		},
	}

	_, err := NewCompareService(f, Options{}).Compare(context.Background(), stagingURL, productionURL, "")
	require.Error(t, err)
	assert.Equal(t, observability.ErrorTimeout, observability.ClassifyError(err))
	assert.Equal(t, 504, observability.HTTPStatus(observability.ClassifyError(err)))
}

func TestCompare_ProcessingFailureIsRecovered(t *testing.T) {
	f := &fakeFetcher{
		pages:  map[string]string{productionURL: "<p>x</p>"},
		nilFor: map[string]bool{stagingURL: true},
	}

	_, err := NewCompareService(f, Options{}).Compare(context.Background(), stagingURL, productionURL, "")
	require.Error(t, err)
	assert.Equal(t, observability.ErrorProcessing, observability.ClassifyError(err))
}

type slowFetcher struct {
	delay time.Duration
}

func (f slowFetcher) FetchPage(ctx context.Context, rawURL string) (*httpx.Page, error) {
	select {
	case <-time.After(f.delay):
		return &httpx.Page{URL: rawURL, Status: 200, Body: "<p>same</p>"}, nil
	case <-ctx.Done():
		return nil, &httpx.FetchError{URL: rawURL, Err: ctx.Err()}
	}
}

func TestCompare_FetchesConcurrently(t *testing.T) {
	svc := NewCompareService(slowFetcher{delay: 200 * time.Millisecond}, Options{})

	start := time.Now()
	res, err := svc.Compare(context.Background(), stagingURL, productionURL, "")
	require.NoError(t, err)
	assert.True(t, res.Identical)
	assert.Less(t, time.Since(start), 390*time.Millisecond)
}

func TestCompare_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewCompareService(slowFetcher{delay: time.Second}, Options{}).Compare(ctx, stagingURL, productionURL, "")
	require.Error(t, err)
	assert.Equal(t, observability.ErrorTimeout, observability.ClassifyError(err))
}

func TestCompare_FailedFetchCancelsSibling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(3 * time.Second):
			}
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	svc := NewCompareService(httpx.NewCollyFetcher(httpx.Options{}), Options{})

	start := time.Now()
	_, err := svc.Compare(context.Background(), srv.URL+"/missing", srv.URL+"/slow", "")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "url1", cerr.Field)
	assert.Equal(t, observability.ErrorFetch, cerr.Kind)
}

func TestCompare_ZeroContextShowsChangesOnly(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		stagingURL:    `<h1>Title</h1><p>Same</p><p>Old footer</p>`,
		productionURL: `<h1>Title</h1><p>Same</p><p>New footer</p>`,
	}}
	svc := NewCompareService(f, Options{ContextLines: 0})

	res, err := svc.Compare(context.Background(), stagingURL, productionURL, content.ModeBlocks)
	require.NoError(t, err)
	assert.Equal(t, []diff.Line{
		{Op: diff.OpDelete, Text: "Old footer"},
		{Op: diff.OpInsert, Text: "New footer"},
	}, res.Lines)
	assert.NotContains(t, res.Fragment, "diff-ctx")
}

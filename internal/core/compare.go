package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/baxromumarov/page-diff/internal/content"
	"github.com/baxromumarov/page-diff/internal/diff"
	"github.com/baxromumarov/page-diff/internal/httpx"
	"github.com/baxromumarov/page-diff/internal/observability"
	"github.com/baxromumarov/page-diff/internal/urlutil"
)

// IdenticalMessage is shown in place of an empty diff.
const (
	IdenticalMessage = "The HTML content is identical."
	IdenticalHTML    = `<p style="color: blue;">` + IdenticalMessage + `</p>`
)

type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*httpx.Page, error)
}

// Options configures a CompareService. ContextLines is the number of
// unchanged lines kept around each change; zero shows changes only and a
// negative value uses diff.DefaultContext.
type Options struct {
	ContextLines int
	DefaultMode  content.Mode
}

type PageSummary struct {
	URL          string  `json:"url"`
	FinalURL     string  `json:"final_url"`
	Status       int     `json:"status"`
	ContentType  string  `json:"content_type,omitempty"`
	Bytes        int     `json:"bytes"`
	TextLength   int     `json:"text_length"`
	Lines        int     `json:"lines"`
	FetchSeconds float64 `json:"fetch_seconds"`
}

type Result struct {
	ID        string        `json:"id"`
	Left      PageSummary   `json:"left"`
	Right     PageSummary   `json:"right"`
	Mode      content.Mode  `json:"mode"`
	Lines     []diff.Line   `json:"lines"`
	Fragment  string        `json:"fragment"`
	Identical bool          `json:"identical"`
	Added     int           `json:"added"`
	Removed   int           `json:"removed"`
	Elapsed   time.Duration `json:"-"`
}

type CompareService struct {
	fetcher      PageFetcher
	contextLines int
	defaultMode  content.Mode
}

func NewCompareService(fetcher PageFetcher, opts Options) *CompareService {
	if opts.ContextLines < 0 {
		opts.ContextLines = diff.DefaultContext
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = content.ModeCollapse
	}
	return &CompareService{
		fetcher:      fetcher,
		contextLines: opts.ContextLines,
		defaultMode:  opts.DefaultMode,
	}
}

func (s *CompareService) DefaultMode() content.Mode {
	return s.defaultMode
}

// Compare fetches both URLs, normalizes them to visible text and diffs the
// results. Failures come back as *Error with a kind and the offending field.
func (s *CompareService) Compare(ctx context.Context, url1, url2 string, mode content.Mode) (*Result, error) {
	start := time.Now()
	id := uuid.Must(uuid.NewV7()).String()
	if mode == "" {
		mode = s.defaultMode
	}

	fields := [2]string{"url1", "url2"}
	var targets [2]string
	for i, raw := range [2]string{url1, url2} {
		target, err := urlutil.Validate(raw)
		if err != nil {
			return nil, inputError(fields[i], raw, err)
		}
		targets[i] = target
	}

	var pages [2]*httpx.Page
	var durations [2]time.Duration
	g, gctx := errgroup.WithContext(ctx)
	for i := range targets {
		g.Go(func() error {
			fetchStart := time.Now()
			page, err := s.fetcher.FetchPage(gctx, targets[i])
			durations[i] = time.Since(fetchStart)
			if err != nil {
				return fetchError(fields[i], targets[i], err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("page fetch failed", "comparison_id", id, "url1", targets[0], "url2", targets[1], "error", err)
		return nil, err
	}

	res, err := s.process(pages, mode)
	if err != nil {
		return nil, err
	}
	res.ID = id
	res.Left.FetchSeconds = durations[0].Seconds()
	res.Right.FetchSeconds = durations[1].Seconds()
	res.Elapsed = time.Since(start)

	slog.Info("comparison finished",
		"comparison_id", id,
		"url1", targets[0],
		"url2", targets[1],
		"mode", mode,
		"identical", res.Identical,
		"added", res.Added,
		"removed", res.Removed,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

func (s *CompareService) process(pages [2]*httpx.Page, mode content.Mode) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &Error{Kind: observability.ErrorProcessing, Err: fmt.Errorf("processing failed: %v", r)}
		}
	}()

	normalizer := content.NewVisibleTextNormalizer(mode)
	text1 := normalizer.Normalize(pages[0].Body)
	text2 := normalizer.Normalize(pages[1].Body)

	lines := diff.Compute(text1, text2, s.contextLines)
	if lines == nil {
		lines = []diff.Line{}
	}
	added, removed := diff.Stats(lines)

	return &Result{
		Left:      summarize(pages[0], text1),
		Right:     summarize(pages[1], text2),
		Mode:      mode,
		Lines:     lines,
		Fragment:  diff.RenderHTML(lines),
		Identical: len(lines) == 0,
		Added:     added,
		Removed:   removed,
	}, nil
}

func summarize(page *httpx.Page, text string) PageSummary {
	return PageSummary{
		URL:         page.URL,
		FinalURL:    page.FinalURL,
		Status:      page.Status,
		ContentType: page.ContentType,
		Bytes:       len(page.Body),
		TextLength:  len(text),
		Lines:       len(diff.SplitLines(text)),
	}
}

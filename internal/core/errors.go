package core

import (
	"fmt"

	"github.com/baxromumarov/page-diff/internal/observability"
)

// Error is a categorized comparison failure. Kind is one of the
// observability.Error* kinds; Field names the form field ("url1", "url2")
// the failure belongs to, when there is one.
type Error struct {
	Kind  string
	Field string
	URL   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) ErrorKind() string {
	return e.Kind
}

func inputError(field, rawURL string, err error) *Error {
	return &Error{Kind: observability.ErrorInput, Field: field, URL: rawURL, Err: err}
}

func fetchError(field, rawURL string, err error) *Error {
	kind := observability.ClassifyFetchError(err)
	if kind == observability.ErrorUnknown {
		kind = observability.ErrorFetch
	}
	return &Error{Kind: kind, Field: field, URL: rawURL, Err: err}
}

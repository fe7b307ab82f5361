package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/baxromumarov/page-diff/internal/httpx"
)

const (
	ErrorInput      = "input"
	ErrorFetch      = "fetch"
	ErrorTimeout    = "timeout"
	ErrorProcessing = "processing"
	ErrorUnknown    = "unknown"
)

type kinded interface {
	ErrorKind() string
}

// ClassifyError maps a pipeline error to one of the Error* kinds.
func ClassifyError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		if kind := k.ErrorKind(); kind != "" {
			return kind
		}
	}
	return ClassifyFetchError(err)
}

func ClassifyFetchError(err error) string {
	if err == nil {
		return ErrorUnknown
	}
	var fe *httpx.FetchError
	if errors.As(err, &fe) {
		if fe.Timeout() {
			return ErrorTimeout
		}
		return ErrorFetch
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorUnknown
}

// HTTPStatus is the response status for an error kind.
func HTTPStatus(kind string) int {
	switch kind {
	case ErrorInput:
		return http.StatusBadRequest
	case ErrorFetch:
		return http.StatusBadGateway
	case ErrorTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

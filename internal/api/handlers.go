package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/baxromumarov/page-diff/internal/content"
	"github.com/baxromumarov/page-diff/internal/core"
	"github.com/baxromumarov/page-diff/internal/observability"
)

var errMissingField = errors.New("missing form field")

type modeOption struct {
	Value    content.Mode
	Label    string
	Selected bool
}

type indexPage struct {
	Modes []modeOption
}

type resultPage struct {
	URL1     string
	URL2     string
	Mode     content.Mode
	Added    int
	Removed  int
	DiffHTML template.HTML
}

func (s *Server) modeOptions(selected content.Mode) []modeOption {
	return []modeOption{
		{Value: content.ModeCollapse, Label: "Whole page as one line", Selected: selected == content.ModeCollapse},
		{Value: content.ModeBlocks, Label: "One line per block element", Selected: selected == content.ModeBlocks},
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", indexPage{Modes: s.modeOptions(s.compare.DefaultMode())})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.failText(w, &core.Error{Kind: observability.ErrorInput, Err: fmt.Errorf("invalid form: %w", err)})
		return
	}

	for _, field := range []string{"url1", "url2"} {
		if strings.TrimSpace(r.PostFormValue(field)) == "" {
			s.failText(w, &core.Error{Kind: observability.ErrorInput, Field: field, Err: errMissingField})
			return
		}
	}
	url1, url2 := r.PostFormValue("url1"), r.PostFormValue("url2")

	mode, err := s.requestMode(r.PostFormValue("mode"))
	if err != nil {
		s.failText(w, &core.Error{Kind: observability.ErrorInput, Field: "mode", Err: err})
		return
	}

	res, err := s.runCompare(r, url1, url2, mode)
	if err != nil {
		s.failText(w, err)
		return
	}

	diffHTML := res.Fragment
	if strings.TrimSpace(diffHTML) == "" {
		diffHTML = core.IdenticalHTML
	}

	s.render(w, "result.html", resultPage{
		URL1:     url1,
		URL2:     url2,
		Mode:     res.Mode,
		Added:    res.Added,
		Removed:  res.Removed,
		DiffHTML: template.HTML(diffHTML),
	})
}

type CompareRequest struct {
	URL1 string `json:"url1"`
	URL2 string `json:"url2"`
	Mode string `json:"mode"`
}

func (s *Server) handleAPICompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.stats.IncError(observability.ErrorInput, "api")
		respondError(w, http.StatusBadRequest, observability.ErrorInput, "Invalid request body")
		return
	}

	mode, err := s.requestMode(req.Mode)
	if err != nil {
		s.stats.IncError(observability.ErrorInput, "api")
		respondError(w, http.StatusBadRequest, observability.ErrorInput, err.Error())
		return
	}

	res, err := s.runCompare(r, req.URL1, req.URL2, mode)
	if err != nil {
		kind := observability.ClassifyError(err)
		s.stats.IncError(kind, "api")
		slog.Error("comparison failed", "kind", kind, "error", err)
		respondError(w, observability.HTTPStatus(kind), kind, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// requestMode parses a client supplied mode, falling back to the configured default.
func (s *Server) requestMode(raw string) (content.Mode, error) {
	if strings.TrimSpace(raw) == "" {
		return s.compare.DefaultMode(), nil
	}
	return content.ParseMode(raw)
}

func (s *Server) runCompare(r *http.Request, url1, url2 string, mode content.Mode) (*core.Result, error) {
	s.stats.IncComparison(mode.String())

	res, err := s.compare.Compare(r.Context(), url1, url2, mode)
	if err != nil {
		return nil, err
	}

	s.stats.IncPagesFetched(2)
	s.stats.ObserveFetchDuration(res.Left.FetchSeconds)
	s.stats.ObserveFetchDuration(res.Right.FetchSeconds)
	if res.Identical {
		s.stats.IncIdentical()
	}
	return res, nil
}

func (s *Server) failText(w http.ResponseWriter, err error) {
	kind := observability.ClassifyError(err)
	s.stats.IncError(kind, "form")
	slog.Error("comparison failed", "kind", kind, "error", err)
	respondText(w, observability.HTTPStatus(kind), "An error occurred: "+err.Error())
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.failText(w, &core.Error{Kind: observability.ErrorProcessing, Err: fmt.Errorf("render %s: %w", name, err)})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

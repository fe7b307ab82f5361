package observability

import (
	"sync"
	"sync/atomic"
)

type StatsSnapshot struct {
	Comparisons       uint64            `json:"comparisons"`
	Identical         uint64            `json:"identical"`
	PagesFetched      uint64            `json:"pages_fetched"`
	ErrorsTotal       uint64            `json:"errors_total"`
	FetchSecondsAvg   float64           `json:"fetch_seconds_avg"`
	ComparisonsByMode map[string]uint64 `json:"comparisons_by_mode,omitempty"`
	ErrorsByKind      map[string]uint64 `json:"errors_by_kind,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

// Stats holds process-lifetime counters. The zero value is not usable; use NewStats.
type Stats struct {
	comparisons  atomic.Uint64
	identical    atomic.Uint64
	pagesFetched atomic.Uint64
	errorsTotal  atomic.Uint64

	fetchCount atomic.Uint64
	fetchNanos atomic.Uint64

	mu                sync.Mutex
	comparisonsByMode map[string]uint64
	errorsByKind      map[string]uint64
	errorsByComponent map[string]uint64
}

func NewStats() *Stats {
	return &Stats{
		comparisonsByMode: map[string]uint64{},
		errorsByKind:      map[string]uint64{},
		errorsByComponent: map[string]uint64{},
	}
}

func (s *Stats) IncComparison(mode string) {
	if mode == "" {
		mode = "unknown"
	}
	s.comparisons.Add(1)
	s.mu.Lock()
	s.comparisonsByMode[mode]++
	s.mu.Unlock()
}

func (s *Stats) IncIdentical() {
	s.identical.Add(1)
}

func (s *Stats) IncPagesFetched(n int) {
	if n <= 0 {
		return
	}
	s.pagesFetched.Add(uint64(n))
}

func (s *Stats) ObserveFetchDuration(seconds float64) {
	if seconds <= 0 {
		return
	}
	s.fetchCount.Add(1)
	s.fetchNanos.Add(uint64(seconds * 1e9))
}

func (s *Stats) IncError(kind, component string) {
	if kind == "" {
		kind = ErrorUnknown
	}
	if component == "" {
		component = "unknown"
	}
	s.errorsTotal.Add(1)
	s.mu.Lock()
	s.errorsByKind[kind]++
	s.errorsByComponent[component]++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	modeCopy := copyMap(s.comparisonsByMode)
	kindCopy := copyMap(s.errorsByKind)
	componentCopy := copyMap(s.errorsByComponent)
	s.mu.Unlock()

	count := s.fetchCount.Load()
	avg := 0.0
	if count > 0 {
		avg = float64(s.fetchNanos.Load()) / float64(count) / 1e9
	}

	return StatsSnapshot{
		Comparisons:       s.comparisons.Load(),
		Identical:         s.identical.Load(),
		PagesFetched:      s.pagesFetched.Load(),
		ErrorsTotal:       s.errorsTotal.Load(),
		FetchSecondsAvg:   avg,
		ComparisonsByMode: modeCopy,
		ErrorsByKind:      kindCopy,
		ErrorsByComponent: componentCopy,
	}
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	requestLatency map[string]time.Duration
	matchCount     map[string]int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests      map[string]int64         `json:"requests"`
	Errors        map[string]int64         `json:"errors"`
	LatencyTotals map[string]time.Duration `json:"latency_totals"`
	MatchOutcomes map[string]int64         `json:"match_outcomes"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		requestLatency: make(map[string]time.Duration),
		matchCount:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestLatency[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordMatch counts eligibility searches by role and whether anyone matched.
func (m *Metrics) RecordMatch(role string, eligible int) {
	if m == nil {
		return
	}
	outcome := "matched"
	if eligible == 0 {
		outcome = "empty"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchCount[role+"|"+outcome]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:      copyMap(m.requestCount),
		Errors:        copyMap(m.errorCount),
		LatencyTotals: copyMap(m.requestLatency),
		MatchOutcomes: copyMap(m.matchCount),
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

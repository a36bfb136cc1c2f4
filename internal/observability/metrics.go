package observability

import (
	"strconv"
	"sync"
	"time"
)

// RouteStats aggregates request outcomes for one path/method/status key.
type RouteStats struct {
	Count         int64         `json:"count"`
	TotalDuration time.Duration `json:"-"`
	AvgMillis     int64         `json:"avg_ms"`
}

// Metrics provides basic in-memory request and error counters.
type Metrics struct {
	mu       sync.Mutex
	requests map[string]*RouteStats
	errors   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[string]*RouteStats),
		errors:   make(map[string]int64),
	}
}

// RecordRequest tracks a completed request and its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.requests[key]
	if !ok {
		stats = &RouteStats{}
		m.requests[key] = stats
	}
	stats.Count++
	stats.TotalDuration += duration
}

// RecordError increments the error counter for the given code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[path+"|"+method+"|"+code]++
}

// Snapshot copies the current counters for reporting.
func (m *Metrics) Snapshot() (map[string]RouteStats, map[string]int64) {
	if m == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	requests := make(map[string]RouteStats, len(m.requests))
	for key, stats := range m.requests {
		copied := *stats
		if copied.Count > 0 {
			copied.AvgMillis = copied.TotalDuration.Milliseconds() / copied.Count
		}
		requests[key] = copied
	}
	errors := make(map[string]int64, len(m.errors))
	for key, count := range m.errors {
		errors[key] = count
	}
	return requests, errors
}

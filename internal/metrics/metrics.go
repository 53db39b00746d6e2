package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/kavishme/circuitguard/internal/circuitbreaker"
)

type Metrics struct {
	mutex         sync.RWMutex
	allowed       map[string]int64
	rejected      map[string]int64
	succeeded     map[string]int64
	failed        map[string]int64
	lastState     map[string]circuitbreaker.State
	responseTimes map[string][]time.Duration
	startTime     time.Time
}

type Snapshot struct {
	TotalCalls    int64                     `json:"total_calls"`
	TotalRejected int64                     `json:"total_rejected"`
	Uptime        time.Duration             `json:"uptime"`
	Breakers      map[string]BreakerMetrics `json:"breakers"`
}

type BreakerMetrics struct {
	Allowed     int64         `json:"allowed"`
	Rejected    int64         `json:"rejected"`
	Succeeded   int64         `json:"succeeded"`
	Failed      int64         `json:"failed"`
	State       string        `json:"state"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		allowed:       make(map[string]int64),
		rejected:      make(map[string]int64),
		succeeded:     make(map[string]int64),
		failed:        make(map[string]int64),
		lastState:     make(map[string]circuitbreaker.State),
		responseTimes: make(map[string][]time.Duration),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementAllowed(breaker string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.allowed[breaker]++
}

func (m *Metrics) IncrementRejected(breaker string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejected[breaker]++
}

func (m *Metrics) RecordOutcome(breaker string, succeeded bool, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if succeeded {
		m.succeeded[breaker]++
	} else {
		m.failed[breaker]++
	}

	m.responseTimes[breaker] = append(m.responseTimes[breaker], duration)

	if len(m.responseTimes[breaker]) > 1000 {
		m.responseTimes[breaker] = m.responseTimes[breaker][1:]
	}
}

func (m *Metrics) UpdateState(breaker string, state circuitbreaker.State) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.lastState[breaker] = state
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Breakers: make(map[string]BreakerMetrics),
	}

	// Collect all breaker names seen by any counter
	names := make(map[string]bool)
	for name := range m.allowed {
		names[name] = true
	}
	for name := range m.rejected {
		names[name] = true
	}
	for name := range m.succeeded {
		names[name] = true
	}
	for name := range m.failed {
		names[name] = true
	}
	for name := range m.lastState {
		names[name] = true
	}

	for name := range names {
		snap.TotalCalls += m.allowed[name] + m.rejected[name]
		snap.TotalRejected += m.rejected[name]

		bm := BreakerMetrics{
			Allowed:   m.allowed[name],
			Rejected:  m.rejected[name],
			Succeeded: m.succeeded[name],
			Failed:    m.failed[name],
			State:     m.lastState[name].String(),
		}

		durations := m.responseTimes[name]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			bm.AvgResponse = average(sorted)
			bm.P50Response = percentile(sorted, 0.50)
			bm.P95Response = percentile(sorted, 0.95)
			bm.P99Response = percentile(sorted, 0.99)
		}

		snap.Breakers[name] = bm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

package loadgen

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/streadway/quantile"
)

// Metrics aggregates results of one request label
type Metrics struct {
	Latencies   LatencyMetrics `json:"latencies"`
	Earliest    time.Time      `json:"earliest"`
	Latest      time.Time      `json:"latest"`
	End         time.Time      `json:"end"`
	Duration    time.Duration  `json:"duration"`
	Requests    int64          `json:"requests"`
	Rate        float64        `json:"rate"`
	Success     float64        `json:"success"`
	BytesIn     int64          `json:"bytesIn"`
	BytesOut    int64          `json:"bytesOut"`
	StatusCodes map[string]int `json:"statusCodes"`
	// Errors distinct error messages, capped
	Errors []string `json:"errors"`

	success    int64
	errorRatio float64
	errorSet   map[string]struct{}
	estimator  *quantile.Estimator
}

// LatencyMetrics latency percentiles
type LatencyMetrics struct {
	Total time.Duration `json:"total"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"50th"`
	P95   time.Duration `json:"95th"`
	P99   time.Duration `json:"99th"`
	Max   time.Duration `json:"max"`
}

const maxDistinctErrors = 100

func newMetrics() *Metrics {
	return &Metrics{
		StatusCodes: map[string]int{},
		errorSet:    map[string]struct{}{},
		estimator: quantile.New(
			quantile.Known(0.50, 0.01),
			quantile.Known(0.95, 0.001),
			quantile.Known(0.99, 0.0005),
		),
	}
}

func (m *Metrics) add(r result) {
	m.Requests++
	if r.doResult.StatusCode != 0 {
		m.StatusCodes[strconv.Itoa(r.doResult.StatusCode)]++
	}
	m.BytesIn += r.doResult.BytesIn
	m.BytesOut += r.doResult.BytesOut
	m.Latencies.Total += r.elapsed
	if r.elapsed > m.Latencies.Max {
		m.Latencies.Max = r.elapsed
	}
	m.estimator.Add(float64(r.elapsed))

	if m.Earliest.IsZero() || m.Earliest.After(r.begin) {
		m.Earliest = r.begin
	}
	if r.begin.After(m.Latest) {
		m.Latest = r.begin
	}
	if r.end.After(m.End) {
		m.End = r.end
	}

	if !r.doResult.failed() {
		m.success++
		return
	}
	msg := fmt.Sprintf("status %d", r.doResult.StatusCode)
	if r.doResult.Error != nil {
		msg = r.doResult.Error.Error()
	}
	if _, ok := m.errorSet[msg]; !ok && len(m.errorSet) < maxDistinctErrors {
		m.errorSet[msg] = struct{}{}
		m.Errors = append(m.Errors, msg)
	}
}

func (m *Metrics) updateLatencies() {
	if m.Requests == 0 {
		return
	}
	m.Latencies.Mean = time.Duration(float64(m.Latencies.Total) / float64(m.Requests))
	m.Latencies.P50 = time.Duration(m.estimator.Get(0.50))
	m.Latencies.P95 = time.Duration(m.estimator.Get(0.95))
	m.Latencies.P99 = time.Duration(m.estimator.Get(0.99))
	m.Duration = m.Latest.Sub(m.Earliest)
	if secs := m.Duration.Seconds(); secs > 0 {
		m.Rate = float64(m.Requests) / secs
	}
}

func (m *Metrics) updateSuccessRatio() {
	if m.Requests == 0 {
		m.Success, m.errorRatio = 0, 0
		return
	}
	m.Success = float64(m.success) / float64(m.Requests)
	m.errorRatio = 1 - m.Success
}

// ErrorRatio failed requests ratio, from 0 to 1
func (m *Metrics) ErrorRatio() float64 {
	return m.errorRatio
}

func (m *Metrics) meanLogEntry() time.Duration {
	return m.Latencies.Mean
}

func (m *Metrics) successLogEntry() int {
	return int(m.Success * 100)
}

// MaxRPS max value of per second rates
func MaxRPS(rates []float64) float64 {
	var max float64
	for _, r := range rates {
		if r > max {
			max = r
		}
	}
	return max
}

// sortedLabels returns metric labels in stable order
func sortedLabels(m map[string]*Metrics) []string {
	labels := make([]string, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

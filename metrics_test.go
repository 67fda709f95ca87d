package loadgen

import (
	e "errors"
	"testing"
	"time"
)

func newResult(begin time.Time, elapsed time.Duration, dr DoResult) result {
	return result{begin: begin, end: begin.Add(elapsed), elapsed: elapsed, doResult: dr}
}

func TestMetricsAdd(t *testing.T) {
	m := newMetrics()
	now := time.Now()
	for i := 0; i < 8; i++ {
		m.add(newResult(now.Add(time.Duration(i)*time.Second), 10*time.Millisecond, DoResult{StatusCode: 200, BytesIn: 10}))
	}
	m.add(newResult(now.Add(8*time.Second), 100*time.Millisecond, DoResult{StatusCode: 500}))
	m.add(newResult(now.Add(9*time.Second), 100*time.Millisecond, DoResult{Error: e.New("broken")}))
	m.updateLatencies()
	m.updateSuccessRatio()

	if got, want := m.Requests, int64(10); got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := m.Success, 0.8; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := m.ErrorRatio(), 1-0.8; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := m.StatusCodes["200"], 8; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := m.BytesIn, int64(80); got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := m.Latencies.Max, 100*time.Millisecond; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := m.Latencies.Mean, 28*time.Millisecond; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := len(m.Errors), 2; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := m.Duration, 9*time.Second; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestMetricsErrorsAreCapped(t *testing.T) {
	m := newMetrics()
	now := time.Now()
	for i := 0; i < maxDistinctErrors+10; i++ {
		m.add(newResult(now, time.Millisecond, DoResult{StatusCode: 400 + i}))
	}
	if got, want := len(m.Errors), maxDistinctErrors; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestMaxRPS(t *testing.T) {
	if got, want := MaxRPS([]float64{1, 5, 3}), 5.0; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := MaxRPS(nil), 0.0; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

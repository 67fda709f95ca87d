package loadgen

import (
	e "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
)

func usersConfig() RunnerConfig {
	return RunnerConfig{
		Mode:          ModeUsers,
		ThinkTime:     ThinkTime{MinMs: 10, MaxMs: 20},
		AttackTimeSec: 2,
		RampUpTimeSec: 1,
		MaxAttackers:  3,
		DoTimeoutSec:  1,
	}
}

func TestRunnerUsersMode(t *testing.T) {
	a := newAttackMock(time.Millisecond, DoResult{RequestLabel: "stats", StatusCode: 200, Skips: 1})
	r, err := NewRunner("users", nil, a, nil, usersConfig())
	if err != nil {
		t.Fatal(err)
	}
	rep := r.Run()
	m, ok := rep.Metrics["stats"]
	if !ok {
		t.Fatalf("got labels %v want stats", sortedLabels(rep.Metrics))
	}
	if m.Requests == 0 {
		t.Fatal("got no requests")
	}
	if got, want := m.Success, 1.0; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := rep.Skips, m.Requests; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := len(r.attackers), 3; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if rep.Failed {
		t.Error("expected successful run")
	}
}

func TestRunnerUsersModeSkippedResultsAreNotRequests(t *testing.T) {
	a := newAttackMock(time.Millisecond, DoResult{RequestLabel: SkippedLabel, Skipped: true, Skips: 5})
	r, err := NewRunner("skipping", nil, a, nil, usersConfig())
	if err != nil {
		t.Fatal(err)
	}
	rep := r.Run()
	if got, want := len(rep.Metrics), 0; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if rep.Skips == 0 {
		t.Error("expected skips to be counted")
	}
}

func TestRunnerRPSMode(t *testing.T) {
	a := newAttackMock(time.Millisecond, DoResult{RequestLabel: "block", StatusCode: 200})
	r, err := NewRunner("rps", nil, a, nil, RunnerConfig{
		Mode:          ModeRPS,
		RPS:           20,
		AttackTimeSec: 2,
		RampUpTimeSec: 1,
		MaxAttackers:  2,
		DoTimeoutSec:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	rep := r.Run()
	if rep.Metrics["block"] == nil || rep.Metrics["block"].Requests == 0 {
		t.Fatal("got no requests")
	}
	if rep.MaxRPS == 0 {
		t.Error("expected max rps to be tracked")
	}
}

func TestRunnerStopsOnErrorRatio(t *testing.T) {
	a := newAttackMock(time.Millisecond, DoResult{RequestLabel: "block", Error: e.New("boom")})
	cfg := usersConfig()
	cfg.AttackTimeSec = 30
	cfg.RampUpTimeSec = 1
	cfg.StopIf = []Checks{{Type: errorRatioCheckType, Threshold: 0.5, Interval: 1}}
	r, err := NewRunner("failing", nil, a, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	rep := r.Run()
	if !rep.Failed {
		t.Error("expected failed run")
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("runner was not stopped by the check, took %s", time.Since(start))
	}
}

func TestRunnerCustomCheckSurvivesRuns(t *testing.T) {
	a := newAttackMock(time.Millisecond, DoResult{RequestLabel: "block", StatusCode: 200})
	calls := 0
	check := func(r *Runner) bool {
		calls++
		return true
	}
	cfg := usersConfig()
	cfg.AttackTimeSec = 20
	r, err := NewRunner("custom", nil, a, check, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if rep := r.Run(); !rep.Failed {
			t.Fatalf("run %d: expected failed run", i)
		}
	}
	if got, want := calls, 2; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestNewRunnerValidatesConfig(t *testing.T) {
	if _, err := NewRunner("bad", nil, newAttackMock(0, DoResult{}), nil, RunnerConfig{}); err == nil {
		t.Error("expected config error")
	}
}

func TestRegisterMetricsConcurrently(t *testing.T) {
	r, err := NewRunner("concurrent_register", nil, newAttackMock(0, DoResult{}), nil, usersConfig())
	if err != nil {
		t.Fatal(err)
	}
	labels := 20
	wg := &sync.WaitGroup{}
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < labels; i++ {
				label := fmt.Sprintf("concurrent_register_%d", i)
				r.registerLabelTimings(label).Update(time.Millisecond)
				r.registerErrCount(label).Inc(1)
			}
		}()
	}
	wg.Wait()
	if got, want := len(r.registeredMetricsLabels), labels*2; got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	r.unregisterMetrics()
	for i := 0; i < labels; i++ {
		if m := metrics.Get(fmt.Sprintf("concurrent_register_%d-err", i)); m != nil {
			t.Errorf("metric %d is still registered", i)
		}
	}
}

func TestRunnerUsersModeMonitoredMetricsUnregistered(t *testing.T) {
	a := WithMonitor(newAttackMock(time.Millisecond, DoResult{RequestLabel: "monitored_stats", StatusCode: 500}))
	cfg := usersConfig()
	cfg.MaxAttackers = 6
	cfg.ThinkTime = ThinkTime{MinMs: 1, MaxMs: 2}
	for run := 0; run < 2; run++ {
		r, err := NewRunner("monitored", nil, a, nil, cfg)
		if err != nil {
			t.Fatal(err)
		}
		rep := r.Run()
		if rep.Metrics["monitored_stats"] == nil {
			t.Fatalf("run %d: got no requests", run)
		}
		for _, name := range []string{"monitored_stats-timer", "monitored_stats-err"} {
			if metrics.Get(name) != nil {
				t.Errorf("run %d: %s is still registered", run, name)
			}
		}
	}
}

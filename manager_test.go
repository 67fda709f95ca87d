package loadgen

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *LoadManager {
	t.Helper()
	gen := &GeneratorConfig{ReportDir: t.TempDir()}
	lm, err := NewLoadManager(&SuiteConfig{}, gen)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(lm.Close)
	return lm
}

func reportWithP50(p50 time.Duration) *RunReport {
	m := newMetrics()
	m.Requests = 1
	m.Latencies.P50 = p50
	return &RunReport{Metrics: map[string]*Metrics{"stats": m}, Output: map[string]interface{}{}}
}

func TestDegradationComparedToLastSuccess(t *testing.T) {
	lm := newTestManager(t)
	lm.storeReport("walker", reportWithP50(100*time.Millisecond))
	if err := lm.StoreHandleReports(); err != nil {
		t.Fatal(err)
	}
	lm.storeReport("walker", reportWithP50(110*time.Millisecond))
	if err := lm.CheckDegradation(1.3); err != nil {
		t.Fatal(err)
	}
	if lm.Degradation {
		t.Error("expected no degradation under threshold")
	}
	lm.storeReport("walker", reportWithP50(200*time.Millisecond))
	if err := lm.CheckDegradation(1.3); err != nil {
		t.Fatal(err)
	}
	if !lm.Degradation {
		t.Error("expected degradation over threshold")
	}
}

func TestCheckErrors(t *testing.T) {
	lm := newTestManager(t)
	rep := reportWithP50(time.Millisecond)
	rep.Metrics["stats"].Errors = []string{"status 500"}
	lm.storeReport("walker", rep)
	lm.CheckErrors()
	if !lm.Failed {
		t.Error("expected suite to be failed")
	}
}

func TestResultAndScalingLogs(t *testing.T) {
	lm := newTestManager(t)
	lm.WriteResultLog([]string{"stats", "1600000000000", "12", resultOK})
	lm.WriteScalingLog([]string{"walker", "1", "42.00"})
	lm.Shutdown()

	data, err := ioutil.ReadFile(filepath.Join(lm.ReportDir, resultLogName))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(data)), "stats,1600000000000,12,ok"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	data, err = ioutil.ReadFile(filepath.Join(lm.ReportDir, scalingLogName))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(data)), "walker,1,42.00"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestSetupHandleStore(t *testing.T) {
	lm := newTestManager(t)
	dir := t.TempDir()
	read := filepath.Join(dir, "seed.csv")
	if err := ioutil.WriteFile(read, []byte("address,1Archive1n2C579dMsAu3iC6tWzuQJz8dN\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := RunnerConfig{ReadFromCsvName: read, WriteToCsvName: filepath.Join(dir, "out.csv")}
	if err := lm.SetupHandleStore(cfg); err != nil {
		t.Fatal(err)
	}
	s, err := lm.CsvForHandle(read)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rec[0], "address"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if _, err := lm.CsvForHandle("unknown.csv"); err == nil {
		t.Error("expected error for unknown csv")
	}
	if err := lm.SetupHandleStore(RunnerConfig{ReadFromCsvName: filepath.Join(dir, "missing.csv")}); err == nil {
		t.Error("expected error for missing read file")
	}
}

func TestRunSuiteSequence(t *testing.T) {
	lm := newTestManager(t)
	a := newAttackMock(time.Millisecond, DoResult{RequestLabel: "stats", StatusCode: 200})
	r, err := NewRunner("walker", lm, WithCSVMonitor(a), nil, usersConfig())
	if err != nil {
		t.Fatal(err)
	}
	lm.Steps = append(lm.Steps, RunStep{Name: "load", ExecutionMode: SequenceMode, Runners: []*Runner{r}})
	if err := lm.RunSuite(); err != nil {
		t.Fatal(err)
	}
	rep, ok := lm.Reports["walker"]
	if !ok || rep.Metrics["stats"] == nil {
		t.Fatal("expected report for walker")
	}
	data, err := ioutil.ReadFile(filepath.Join(lm.ReportDir, resultLogName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "stats,") {
		t.Errorf("got %q want result rows", data)
	}
}

func TestRunSuiteUnknownMode(t *testing.T) {
	lm := newTestManager(t)
	lm.Steps = append(lm.Steps, RunStep{Name: "load", ExecutionMode: "random"})
	if err := lm.RunSuite(); err == nil {
		t.Error("expected execution mode error")
	}
}

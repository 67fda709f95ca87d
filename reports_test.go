package loadgen

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadScalingLog(t *testing.T) {
	in := "walker,3,30.5\nwalker,1,10\nwalker,,20\nother,1,5\n"
	got, err := readScalingLog(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	w := got["walker"]
	if len(w) != 3 {
		t.Fatalf("got %v want 3 points", w)
	}
	// row without nodes is numbered by its position
	if w[0].nodes != 1 || w[1].nodes != 3 || w[2].nodes != 3 {
		t.Errorf("got %v want points sorted by nodes", w)
	}
	if got, want := got["other"][0].maxRPS, 5.0; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestReadResultLog(t *testing.T) {
	in := "stats,1000,10,ok\nblock,3000,20,err\nstats,2000,30,ok\n"
	got, err := readResultLog(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	stats := got["stats"]
	if len(stats) != 2 {
		t.Fatalf("got %v want 2 points", stats)
	}
	if stats[0].sinceStartSec != 0 || stats[1].sinceStartSec != 1 {
		t.Errorf("got %v want seconds since first request", stats)
	}
	if got["block"][0].ok {
		t.Error("expected err row to be not ok")
	}
	if _, err := readResultLog(strings.NewReader("stats,x,1,ok\n")); err == nil {
		t.Error("expected parse error")
	}
}

func TestReportLatencyPNG(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, resultLogName)
	rows := "stats,1000,10,ok\nstats,2000,30,ok\nstats,3000,20,ok\n"
	if err := ioutil.WriteFile(in, []byte(rows), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "latency.png")
	if err := ReportLatency(in, out); err != nil {
		t.Fatal(err)
	}
	if st, err := os.Stat(out); err != nil || st.Size() == 0 {
		t.Errorf("expected png to be written: %v", err)
	}
}

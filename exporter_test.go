package loadgen

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsHandlerExportsOutcomes(t *testing.T) {
	observeResult("exporter_runner", DoResult{RequestLabel: "stats", StatusCode: 200, Skips: 2})
	observeResult("exporter_runner", DoResult{RequestLabel: TimeoutLabel, Error: errAttackDoTimedOut})
	observeResult("exporter_runner", DoResult{RequestLabel: SkippedLabel, Skipped: true})

	srv := httptest.NewServer(metricsHandler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`loadgen_requests_total{label="stats",outcome="completed",runner="exporter_runner"} 1`,
		`loadgen_requests_total{label="timeout",outcome="failed",runner="exporter_runner"} 1`,
		`loadgen_requests_total{label="skipped",outcome="skipped",runner="exporter_runner"} 1`,
		`loadgen_action_skips_total{runner="exporter_runner"} 2`,
		`loadgen_status_codes_total{code="200",label="stats",runner="exporter_runner"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("got no %s in exported metrics", want)
		}
	}
}

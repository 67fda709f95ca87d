/*
 *    Copyright [2020] Sergey Kudasov
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package loadgen

import (
	"flag"
	"math/rand"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadSuiteConfig(t *testing.T) {
	c, err := LoadSuiteConfig("testdata/suite_test.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(c.Steps), 1; got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if got, want := c.Steps[0].ExecutionMode, ParallelMode; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	users := c.Steps[0].Handles[0]
	if got, want := users.mode(), ModeUsers; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := users.ThinkTime, (ThinkTime{MinMs: 500, MaxMs: 5000}); got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := users.Param("actions", ""), "stats,block,block_txs"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := users.StopIf[0].Threshold, 0.3; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if msgs := users.Validate(); len(msgs) != 0 {
		t.Errorf("got %v want no validation errors", msgs)
	}
	rps := c.Steps[0].Handles[1]
	if got, want := rps.rampupStrategy(), "linear"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if msgs := rps.Validate(); len(msgs) != 0 {
		t.Errorf("got %v want no validation errors", msgs)
	}
}

func TestOverrideLoadedConfig(t *testing.T) {
	defer resetFlags(t)
	flag.Set("rps", "31")
	flag.Set("attack", "32")
	flag.Set("ramp", "30")
	flag.Set("max", "34")
	flag.Set("o", "here")
	flag.Set("verbose", "false")
	flag.Set("s", "?")
	flag.Set("timeout", "35")
	flag.Set("think_min", "100")
	flag.Set("think_max", "200")
	c, err := LoadSuiteConfig("testdata/suite_test.yaml")
	if err != nil {
		t.Fatal(err)
	}
	h := c.Steps[0].Handles[0]
	if got, want := h.RPS, 31; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := h.AttackTimeSec, 32; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := h.RampUpTimeSec, 30; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := h.MaxAttackers, 34; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := h.OutputFilename, "here"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := h.Verbose, false; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := h.RampUpStrategy, "?"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := h.DoTimeoutSec, 35; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := h.ThinkTime, (ThinkTime{MinMs: 100, MaxMs: 200}); got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

// resetFlags drops flags set by a test, so later loaded configs are not overridden
func resetFlags(t *testing.T) {
	for _, name := range []string{fRPS, fAttackTime, fRampupTime, fMaxAttackers, fOutput, fVerbose, fRampupStrategy, fDoTimeout, fThinkMin, fThinkMax} {
		f := flag.Lookup(name)
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatal(err)
		}
	}
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

func TestValidateRunnerConfig(t *testing.T) {
	base := RunnerConfig{AttackTimeSec: 10, RampUpTimeSec: 2, MaxAttackers: 2, DoTimeoutSec: 1}

	rps := base
	rps.Mode = ModeRPS
	if got := rps.Validate(); len(got) != 1 || !strings.Contains(got[0], "RPS") {
		t.Errorf("got %v want one RPS error", got)
	}

	users := base
	users.Mode = ModeUsers
	users.ThinkTime = ThinkTime{MinMs: 10, MaxMs: 5}
	if got := users.Validate(); len(got) != 1 || !strings.Contains(got[0], "think_time") {
		t.Errorf("got %v want one think_time error", got)
	}

	unknown := base
	unknown.Mode = "spiky"
	if got := unknown.Validate(); len(got) != 1 {
		t.Errorf("got %v want one mode error", got)
	}
}

func TestThinkTimeSample(t *testing.T) {
	tt := ThinkTime{MinMs: 500, MaxMs: 5000}
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		d := tt.Sample(rnd)
		if d < 500*time.Millisecond || d > 5000*time.Millisecond {
			t.Fatalf("got %v want in [500ms, 5s]", d)
		}
	}
	if got, want := (ThinkTime{MinMs: 7, MaxMs: 7}).Sample(rnd), 7*time.Millisecond; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestReadGeneratorConfig(t *testing.T) {
	os.Setenv("LOADGEN_GENERATOR_TARGET", "http://graphsense.local:9000")
	defer os.Unsetenv("LOADGEN_GENERATOR_TARGET")
	c, err := ReadGeneratorConfig("testdata/generator_test.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := c.Generator.Target, "http://graphsense.local:9000"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := c.Generator.Currency, defaultCurrency; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := c.Checks.HandleThresholdPercent, 1.3; got != want {
		t.Errorf("got %v want %v", got, want)
	}
	if got, want := c.Graphite.LoadGeneratorPrefix, "graphsense"; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestValidateGeneratorConfig(t *testing.T) {
	c := &GeneratorConfig{}
	c.Generator.Target = "not a url"
	c.Generator.Currency = "BTC"
	c.Logging.Level = "info"
	c.Logging.Encoding = "console"
	got := c.Validate()
	if len(got) != 2 {
		t.Fatalf("got %v want target and currency errors", got)
	}
}

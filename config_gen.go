package loadgen

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// DefaultSuiteConfig suite with one handle running simulated users against the target
func DefaultSuiteConfig(handle string, mode string) *SuiteConfig {
	rc := RunnerConfig{
		HandleName:    handle,
		Mode:          mode,
		RampUpTimeSec: 10,
		AttackTimeSec: 60,
		MaxAttackers:  10,
		DoTimeoutSec:  20,
		Verbose:       true,
		StopIf: []Checks{
			{Type: errorRatioCheckType, Threshold: 0.5, Interval: 5},
		},
	}
	switch mode {
	case ModeRPS:
		rc.RPS = 10
		rc.RampUpStrategy = defaultRampupStrategy
	default:
		rc.Mode = ModeUsers
		rc.ThinkTime = ThinkTime{MinMs: 500, MaxMs: 5000}
	}
	return &SuiteConfig{
		DumpTransport: false,
		HttpTimeout:   20,
		Steps: []Step{
			{
				Name:          "load",
				ExecutionMode: SequenceMode,
				Handles:       []RunnerConfig{rc},
			},
		},
	}
}

// GenerateSuiteConfig writes default suite config for a handle into dir, returns its path
func GenerateSuiteConfig(dir string, handle string, mode string) (string, error) {
	if err := createDirIfNotExists(dir); err != nil {
		return "", err
	}
	cfg, err := yaml.Marshal(DefaultSuiteConfig(handle, mode))
	if err != nil {
		return "", fmt.Errorf("failed to marshal suite config: %w", err)
	}
	p := filepath.Join(dir, handle+".yaml")
	if err := ioutil.WriteFile(p, cfg, 0644); err != nil {
		return "", fmt.Errorf("failed to write suite config for handle %s: %w", handle, err)
	}
	return p, nil
}

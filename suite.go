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
	"fmt"
	"os"
	"time"
)

type AttackerFactory func(string) Attack

type ChecksFactory func(string) RuntimeCheckFunc

type BeforeSuite func(config *GeneratorConfig) error
type AfterSuite func(config *GeneratorConfig) error

// Run default run mode for suite, with degradation checks
func Run(factory AttackerFactory, checksFactory ChecksFactory, beforeSuite BeforeSuite, afterSuite AfterSuite) {
	cfgPath := flag.String("config", "", "loadtest attack profile config filepath")
	genCfgPath := flag.String("gen_config", "generator.yaml", "generator config filepath")
	flag.Parse()
	if *cfgPath == "" {
		log.Fatal("provide path to suite config, -config example.yaml")
	}
	if *genCfgPath == "" {
		log.Fatal("provide path to generator config, -gen_config example.yaml")
	}
	genConfig := LoadDefaultGeneratorConfig(*genCfgPath)
	code, err := RunSuiteFromConfig(factory, checksFactory, *cfgPath, genConfig, beforeSuite, afterSuite)
	if err != nil {
		log.Error(err)
	}
	os.Exit(code)
}

// RunSuiteFromConfig runs suite with already loaded generator config, returns process exit code
func RunSuiteFromConfig(
	factory AttackerFactory,
	checksFactory ChecksFactory,
	cfgPath string,
	genConfig *GeneratorConfig,
	beforeSuite BeforeSuite,
	afterSuite AfterSuite,
) (int, error) {
	if genConfig.Host.CollectMetrics {
		log.Infof("starting host metrics monitor")
		osMetrics := NewHostOSMetrics(genConfig.Host.Name, genConfig.Host.NetworkIface)
		stop := osMetrics.Watch(1)
		defer stop()
	}
	if genConfig.Prometheus != nil && genConfig.Prometheus.Listen != "" {
		StartPrometheusExporter(genConfig.Prometheus.Listen)
	}
	lm, err := SuiteFromSteps(factory, checksFactory, cfgPath, genConfig)
	if err != nil {
		return 1, err
	}
	defer lm.Close()
	if *oSample > 0 {
		probeSuite(lm, *oSample)
		return 0, nil
	}
	if beforeSuite != nil {
		if err := beforeSuite(genConfig); err != nil {
			return 1, fmt.Errorf("before suite func failed: %w", err)
		}
	}
	if err := lm.RunSuite(); err != nil {
		return 1, err
	}
	if afterSuite != nil {
		if err := afterSuite(genConfig); err != nil {
			return 1, fmt.Errorf("after suite func failed: %w", err)
		}
	}
	lm.CheckErrors()
	if t := genConfig.Checks.HandleThresholdPercent; t > 0 {
		if err := lm.CheckDegradation(t); err != nil {
			return 1, err
		}
	}
	if err := lm.StoreHandleReports(); err != nil {
		return 1, err
	}
	if lm.ValidationFailed || lm.Degradation {
		return 1, nil
	}
	return 0, nil
}

// probeSuite runs every handle {count} times in a single goroutine
func probeSuite(lm *LoadManager, count int) {
	for _, s := range lm.Steps {
		for _, r := range s.Runners {
			if err := r.SetupHandleStore(lm); err != nil {
				r.L.Error(err)
				continue
			}
			start := time.Now()
			r.Probe(count)
			r.L.Infof("probe of %d calls done in %s", count, time.Since(start))
		}
	}
}

// SuiteFromSteps create runners for every step
func SuiteFromSteps(factory AttackerFactory, checksFactory ChecksFactory, cfgPath string, genCfg *GeneratorConfig) (*LoadManager, error) {
	cfg, err := LoadSuiteConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	lm, err := NewLoadManager(cfg, genCfg)
	if err != nil {
		return nil, err
	}
	for _, step := range lm.SuiteConfig.Steps {
		runners := make([]*Runner, 0)
		for _, handle := range step.Handles {
			a := factory(handle.HandleName)
			if a == nil {
				lm.Close()
				return nil, fmt.Errorf("no attacker found for handle %s", handle.HandleName)
			}
			var check RuntimeCheckFunc
			if checksFactory != nil {
				check = checksFactory(handle.HandleName)
			}
			r, err := NewRunner(handle.HandleName, lm, a, check, handle)
			if err != nil {
				lm.Close()
				return nil, err
			}
			runners = append(runners, r)
		}
		executionMode := step.ExecutionMode
		if executionMode == "" && genCfg != nil {
			executionMode = genCfg.ExecutionMode
		}
		lm.Steps = append(lm.Steps, RunStep{
			Name:          step.Name,
			ExecutionMode: executionMode,
			Runners:       runners,
		})
	}
	return lm, nil
}

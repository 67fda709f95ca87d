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
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	fRPS            = "rps"
	fAttackTime     = "attack"
	fRampupTime     = "ramp"
	fMaxAttackers   = "max"
	fOutput         = "o"
	fVerbose        = "verbose"
	fSample         = "t"
	fRampupStrategy = "s"
	fDoTimeout      = "timeout"
	fMode           = "mode"
	fThinkMin       = "think_min"
	fThinkMax       = "think_max"
)

var (
	oRPS            = flag.Int(fRPS, 1, "target number of requests per second in rps mode, must be greater than zero")
	oAttackTime     = flag.Int(fAttackTime, 60, "duration of the attack in seconds")
	oRampupTime     = flag.Int(fRampupTime, 10, "ramp up time in seconds")
	oMaxAttackers   = flag.Int(fMaxAttackers, 10, "maximum concurrent attackers (simulated users in users mode)")
	oOutput         = flag.String(fOutput, "", "output file to write the Metrics per sample request index (use stdout if empty)")
	oVerbose        = flag.Bool(fVerbose, false, "produce more verbose logging")
	oSample         = flag.Int(fSample, 0, "test your attack implementation with a number of sample calls. Your program exits after this")
	oRampupStrategy = flag.String(fRampupStrategy, defaultRampupStrategy, "set the rampup strategy, possible values are {linear,exp2}")
	oDoTimeout      = flag.Int(fDoTimeout, 5, "timeout in seconds for each attack call")
	oMode           = flag.String(fMode, ModeRPS, "load mode, possible values are {rps,users}")
	oThinkMin       = flag.Int(fThinkMin, 500, "users mode: min think time between actions in milliseconds")
	oThinkMax       = flag.Int(fThinkMax, 5000, "users mode: max think time between actions in milliseconds")
)

// Load modes
const (
	// ModeRPS paces all attackers with one shared rate limiter
	ModeRPS = "rps"
	// ModeUsers runs every attacker as a simulated user with its own think time
	ModeUsers = "users"
)

const (
	envPrefix       = "loadgen"
	defaultCurrency = "btc"
)

var validate = validator.New()

// Prometheus prometheus config
type Prometheus struct {
	// URL prometheus base url
	URL string `mapstructure:"url" validate:"omitempty,url"`
	// EnvLabel prometheus environment label
	EnvLabel string `mapstructure:"env_label"`
	// Namespace prometheus namespace
	Namespace string `mapstructure:"namespace"`
	// Listen address of the generator's own /metrics endpoint, ex.: :9100
	Listen string `mapstructure:"listen"`
}

type GeneratorConfig struct {
	// Host current vm host configuration
	Host struct {
		// Name used in grafana metrics as prefix
		Name string `mapstructure:"name"`
		// NetworkIface default network interface to collect metrics from
		NetworkIface string `mapstructure:"network_iface"`
		// CollectMetrics collect host metrics flag
		CollectMetrics bool `mapstructure:"collect_metrics"`
	} `mapstructure:"host"`
	// Generator generator specific config
	Generator struct {
		// Target base url of the API to attack
		Target string `mapstructure:"target" validate:"required,url"`
		// Currency currency code substituted into API paths, ex.: btc
		Currency string `mapstructure:"currency" validate:"required,alphanum,lowercase"`
		// ResponseTimeoutSec response timeout in seconds
		ResponseTimeoutSec int `mapstructure:"responseTimeoutSec" validate:"gte=0"`
		// RampUpStrategy ramp up strategy: linear | exp2
		RampUpStrategy string `mapstructure:"ramp_up_strategy" validate:"omitempty,oneof=linear exp2"`
		// Verbose allows to print debug generator logs
		Verbose bool `mapstructure:"verbose"`
	} `mapstructure:"generator"`
	// ExecutionMode step execution mode: sequence, sequence_validate, parallel
	ExecutionMode string `mapstructure:"execution_mode"`
	// Grafana related config
	Grafana struct {
		// URL base url of grafana, ex.: http://0.0.0.0:8181
		URL string `mapstructure:"url"`
		// Login login
		Login string `mapstructure:"login"`
		// Password password
		Password string `mapstructure:"password"`
	} `mapstructure:"grafana"`
	// Graphite related config
	Graphite struct {
		// URL graphite base url, ex.: 0.0.0.0:2003
		URL string `mapstructure:"url"`
		// FlushIntervalSec flush interval in seconds
		FlushIntervalSec int `mapstructure:"flushDurationSec"`
		// LoadGeneratorPrefix prefix to be used in graphite metrics
		LoadGeneratorPrefix string `mapstructure:"loadGeneratorPrefix"`
	} `mapstructure:"graphite"`
	Prometheus *Prometheus `mapstructure:"prometheus"`
	// Checks suite level checks
	Checks struct {
		// HandleThresholdPercent p50 ratio to the last successful run that marks degradation, 0 disables the check
		HandleThresholdPercent float64 `mapstructure:"handle_threshold_percent" validate:"gte=0"`
	} `mapstructure:"checks"`
	// ReportDir dir for json reports, result and scaling csv logs
	ReportDir string `mapstructure:"report_dir"`
	// Timezone timezone used for grafana url, ex.: Europe/Moscow
	Timezone string `mapstructure:"timezone"`
	// Logging logging related config
	Logging struct {
		// Level level of allowed log messages,ex.: debug | info
		Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
		// Encoding encoding of logs, ex.: console | json
		Encoding string `mapstructure:"encoding" validate:"oneof=console json"`
		// OutputPaths zap output paths, stdout by default
		OutputPaths []string `mapstructure:"output_paths"`
	} `mapstructure:"logging"`
}

func setGeneratorDefaults() {
	viper.SetDefault("generator.currency", defaultCurrency)
	viper.SetDefault("generator.responseTimeoutSec", 20)
	viper.SetDefault("report_dir", "reports")
	viper.SetDefault("timezone", "UTC")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.encoding", "console")
	viper.SetDefault("graphite.flushDurationSec", 1)
	// keys must be known to viper to be overridden from env
	viper.SetDefault("generator.target", "")
}

// LoadDefaultGeneratorConfig reads generator yaml, .env file and LOADGEN_* env overrides
func LoadDefaultGeneratorConfig(cfgPath string) *GeneratorConfig {
	cfg, err := ReadGeneratorConfig(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	log = NewLogger()
	return cfg
}

// ReadGeneratorConfig reads and validates generator config without touching the logger
func ReadGeneratorConfig(cfgPath string) (*GeneratorConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	setGeneratorDefaults()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetConfigType("yaml")
	viper.SetConfigFile(cfgPath)
	if err := viper.MergeInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read generator config %s: %w", cfgPath, err)
	}
	var cfg *GeneratorConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generator config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		return nil, fmt.Errorf("errors in generator config validation: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Validate checks generator settings and returns a list of strings with problems.
func (c *GeneratorConfig) Validate() (list []string) {
	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []string{err.Error()}
		}
		for _, fe := range verrs {
			list = append(list, fmt.Sprintf("%s: failed on %q", fe.Namespace(), fe.Tag()))
		}
	}
	return
}

// SuiteConfig suite config
type SuiteConfig struct {
	// DumpTransport dumps request/response in stdout
	DumpTransport bool `mapstructure:"dumptransport" yaml:"dumptransport"`
	// GoroutinesDump dump goroutines when SIGHUP
	GoroutinesDump bool `mapstructure:"goroutines_dump" yaml:"goroutines_dump"`
	// HttpTimeout default http client timeout
	HttpTimeout int `mapstructure:"http_timeout" yaml:"http_timeout"`
	// Steps load test steps
	Steps []Step `mapstructure:"steps" yaml:"steps"`
}

// Step loadtest step config
type Step struct {
	// Name loadtest step name
	Name string `mapstructure:"name" yaml:"name"`
	// ExecutionMode handles execution mode: sequence, sequence_validate, parallel
	ExecutionMode string `mapstructure:"execution_mode" yaml:"execution_mode"`
	// Handles handle configs
	Handles []RunnerConfig `mapstructure:"handles" yaml:"handles"`
}

// Checks stop criteria checks
type Checks struct {
	// Type error check mode, ex.: error | prometheus
	Type string `mapstructure:"type" yaml:"type"`
	// Query prometheus bool query
	Query string `mapstructure:"query" yaml:"query,omitempty"`
	// Threshold fail threshold, from 0 to 1, float
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
	// Interval check interval in seconds
	Interval int `mapstructure:"interval" yaml:"interval"`
}

// Validation validation config
type Validation struct {
	// AttackTimeSec validation attack time sec
	AttackTimeSec int `mapstructure:"attack_time_sec" yaml:"attack_time_sec"`
	// Threshold percent of max rps to validate, ex.: 0.7 means 70% of max rps
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

// ThinkTime pause range between two actions of one simulated user
type ThinkTime struct {
	MinMs int `mapstructure:"min_ms" yaml:"min_ms"`
	MaxMs int `mapstructure:"max_ms" yaml:"max_ms"`
}

// Sample returns a pause uniformly distributed in [MinMs, MaxMs]
func (t ThinkTime) Sample(rnd *rand.Rand) time.Duration {
	if t.MaxMs <= t.MinMs {
		return time.Duration(t.MinMs) * time.Millisecond
	}
	ms := t.MinMs + rnd.Intn(t.MaxMs-t.MinMs+1)
	return time.Duration(ms) * time.Millisecond
}

// RunnerConfig runner config
type RunnerConfig struct {
	// WaitBeforeSec debug sleep before starting runner when checking condition is impossible
	WaitBeforeSec int `mapstructure:"wait_before_sec" yaml:"wait_before_sec,omitempty"`
	// HandleName name of a handle, selects an attacker in AttackerFromName
	HandleName string `mapstructure:"name" yaml:"name"`
	// Mode load mode: rps | users
	Mode string `mapstructure:"mode" yaml:"mode"`
	// RPS max requests per second limit in rps mode, load profile depends on AttackTimeSec and RampUpTimeSec
	RPS int `mapstructure:"rps" yaml:"rps,omitempty"`
	// ThinkTime pause between actions in users mode
	ThinkTime ThinkTime `mapstructure:"think_time" yaml:"think_time,omitempty"`
	// AttackTimeSec time of the test in seconds
	AttackTimeSec int `mapstructure:"attack_time_sec" yaml:"attack_time_sec"`
	// RampUpTimeSec ramp up period in seconds, in which RPS or users will be increased to max
	RampUpTimeSec int `mapstructure:"ramp_up_sec" yaml:"ramp_up_sec"`
	// RampUpStrategy ramp up strategy in rps mode: linear | exp2
	RampUpStrategy string `mapstructure:"ramp_up_strategy" yaml:"ramp_up_strategy,omitempty"`
	// MaxAttackers max amount of goroutines to attack, number of simulated users in users mode
	MaxAttackers int `mapstructure:"max_attackers" yaml:"max_attackers"`
	// OutputFilename report filename
	OutputFilename string `mapstructure:"outputFilename,omitempty" yaml:"outputFilename,omitempty"`
	// Verbose allows to print generator debug info
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
	// Metadata load run metadata
	Metadata map[string]string `mapstructure:"metadata,omitempty" yaml:"metadata,omitempty"`
	// DoTimeoutSec attacker.Do() func timeout
	DoTimeoutSec int `mapstructure:"do_timeout_sec" yaml:"do_timeout_sec"`
	// StoreData flag to check if test must put some data in csv for later validation
	StoreData bool `mapstructure:"store_data" yaml:"store_data,omitempty"`
	// RecycleData flag to allow recycling data from csv when it ends
	RecycleData bool `mapstructure:"recycle_data" yaml:"recycle_data,omitempty"`
	// ReadFromCsvName path to csv file to get data for test, use DefaultReadCSV/DefaultWriteCSV to read/write data for test
	ReadFromCsvName string `mapstructure:"csv_read,omitempty" yaml:"csv_read,omitempty"`
	// WriteToCsvName path to csv file to write data from test, use DefaultReadCSV/DefaultWriteCSV to read/write data for test
	WriteToCsvName string `mapstructure:"csv_write,omitempty" yaml:"csv_write,omitempty"`
	// HandleParams handle params metadata, ex. actions=stats,block
	HandleParams map[string]string `mapstructure:"handle_params,omitempty" yaml:"handle_params,omitempty"`
	// IsValidationRun flag to know it's test run that validates max rps
	IsValidationRun bool `mapstructure:"validation_run" yaml:"validation_run,omitempty"`
	// StopIf describes stop test criteria
	StopIf []Checks `mapstructure:"stop_if" yaml:"stop_if,omitempty"`
	// Validation validation config
	Validation Validation `mapstructure:"validation" yaml:"validation,omitempty"`

	// DebugSleep used as a crutch to not affect response time when one need to run test < 1 rps
	DebugSleep int `mapstructure:"debug_sleep" yaml:"debug_sleep,omitempty"`
}

// Validate checks all settings and returns a list of strings with problems.
func (c RunnerConfig) Validate() (list []string) {
	switch c.mode() {
	case ModeRPS:
		if c.RPS <= 0 {
			list = append(list, "please set the RPS to a positive number of seconds")
		}
	case ModeUsers:
		if c.ThinkTime.MinMs < 0 || c.ThinkTime.MaxMs < c.ThinkTime.MinMs {
			list = append(list, "please set think_time so that 0 <= min_ms <= max_ms")
		}
	default:
		list = append(list, fmt.Sprintf("unknown mode %q, possible values are {rps,users}", c.Mode))
	}
	if c.AttackTimeSec < 2 {
		list = append(list, "please set the attack time to a positive number of seconds > 1")
	}
	if c.RampUpTimeSec < 1 {
		list = append(list, "please set the ramp up time to a positive number of seconds > 0")
	}
	if c.RampUpTimeSec >= c.AttackTimeSec {
		list = append(list, "please set the ramp up time lower than the attack time")
	}
	if c.MaxAttackers <= 0 {
		list = append(list, "please set a positive maximum number of attackers")
	}
	if c.DoTimeoutSec <= 0 {
		list = append(list, "please set the Do() timeout to a positive maximum number of seconds")
	}
	return
}

// timeout is in seconds
func (c RunnerConfig) timeout() time.Duration {
	return time.Duration(c.DoTimeoutSec) * time.Second
}

func (c RunnerConfig) rampupStrategy() string {
	if len(c.RampUpStrategy) == 0 {
		return defaultRampupStrategy
	}
	return c.RampUpStrategy
}

func (c RunnerConfig) mode() string {
	if len(c.Mode) == 0 {
		return ModeRPS
	}
	return c.Mode
}

// Param returns a handle param or a default value
func (c RunnerConfig) Param(name string, def string) string {
	if v, ok := c.HandleParams[name]; ok && v != "" {
		return v
	}
	return def
}

// ConfigFromFlags creates a RunnerConfig for use in a Runner.
func ConfigFromFlags() RunnerConfig {
	if !flag.Parsed() {
		flag.Parse()
	}
	return RunnerConfig{
		Mode:           *oMode,
		RPS:            *oRPS,
		ThinkTime:      ThinkTime{MinMs: *oThinkMin, MaxMs: *oThinkMax},
		AttackTimeSec:  *oAttackTime,
		RampUpTimeSec:  *oRampupTime,
		RampUpStrategy: *oRampupStrategy,
		Verbose:        *oVerbose,
		MaxAttackers:   *oMaxAttackers,
		OutputFilename: *oOutput,
		Metadata:       map[string]string{},
		DoTimeoutSec:   *oDoTimeout,
	}
}

// applyFlagOverrides overrides handle settings with any flag set on the command line
func applyFlagOverrides(c *RunnerConfig) {
	flag.Visit(func(each *flag.Flag) {
		switch each.Name {
		case fRPS:
			c.RPS = *oRPS
		case fAttackTime:
			c.AttackTimeSec = *oAttackTime
		case fRampupTime:
			c.RampUpTimeSec = *oRampupTime
		case fRampupStrategy:
			c.RampUpStrategy = *oRampupStrategy
		case fVerbose:
			c.Verbose = *oVerbose
		case fMaxAttackers:
			c.MaxAttackers = *oMaxAttackers
		case fOutput:
			c.OutputFilename = *oOutput
		case fDoTimeout:
			c.DoTimeoutSec = *oDoTimeout
		case fMode:
			c.Mode = *oMode
		case fThinkMin:
			c.ThinkTime.MinMs = *oThinkMin
		case fThinkMax:
			c.ThinkTime.MaxMs = *oThinkMax
		}
	})
}

// LoadSuiteConfig loads yaml loadtest profile Config
func LoadSuiteConfig(cfgPath string) (*SuiteConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(cfgPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read suite config %s: %w", cfgPath, err)
	}
	var suiteCfg *SuiteConfig
	if err := v.Unmarshal(&suiteCfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suite config: %w", err)
	}
	// suite level values are read by attackers through the global viper
	viper.Set("dumptransport", suiteCfg.DumpTransport)
	viper.Set("http_timeout", suiteCfg.HttpTimeout)
	for i := range suiteCfg.Steps {
		for j := range suiteCfg.Steps[i].Handles {
			applyFlagOverrides(&suiteCfg.Steps[i].Handles[j])
		}
	}
	return suiteCfg, nil
}

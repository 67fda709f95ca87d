package loadgen

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	ReportFileTmpl       = "%s-%d.json"
	ParallelMode         = "parallel"
	SequenceMode         = "sequence"
	SequenceValidateMode = "sequence_validate"

	resultLogName  = "result.csv"
	scalingLogName = "scaling.csv"
)

// LoadManager manages data and finish criteria
type LoadManager struct {
	// SuiteConfig holds data common for all groups
	SuiteConfig *SuiteConfig
	// GeneratorConfig holds generator data
	GeneratorConfig *GeneratorConfig
	// Steps runner objects that fires .Do()
	Steps []RunStep
	// Reports run reports for every handle
	reportsMu *sync.Mutex
	Reports   map[string]*RunReport
	// CsvStore stores data for all attackers
	CsvMu    *sync.Mutex
	CsvStore map[string]*CSVData
	// all handles csv logs
	CSVLogMu      *sync.Mutex
	CSVLog        *csv.Writer
	RPSScalingLog *csv.Writer
	logFiles      []*os.File
	ReportDir     string
	// When degradation threshold is reached for any handle, see default Config
	Degradation bool
	// When there are Errors in any handle
	Failed bool
	// When max rps validation failed
	ValidationFailed bool

	sigs chan os.Signal
}

type RunStep struct {
	Name          string
	ExecutionMode string
	Runners       []*Runner
}

// NewLoadManager creates suite manager with report dir and csv logs
func NewLoadManager(suiteCfg *SuiteConfig, genCfg *GeneratorConfig) (*LoadManager, error) {
	reportDir := "reports"
	if genCfg != nil && genCfg.ReportDir != "" {
		reportDir = genCfg.ReportDir
	}
	reportDir, err := filepath.Abs(reportDir)
	if err != nil {
		return nil, err
	}
	if err := createDirIfNotExists(reportDir); err != nil {
		return nil, err
	}
	resultFile, err := createFileOrAppend(filepath.Join(reportDir, resultLogName))
	if err != nil {
		return nil, err
	}
	scalingFile, err := createFileOrAppend(filepath.Join(reportDir, scalingLogName))
	if err != nil {
		resultFile.Close()
		return nil, err
	}
	return &LoadManager{
		SuiteConfig:     suiteCfg,
		GeneratorConfig: genCfg,
		reportsMu:       &sync.Mutex{},
		CsvMu:           &sync.Mutex{},
		CSVLogMu:        &sync.Mutex{},
		CSVLog:          csv.NewWriter(resultFile),
		RPSScalingLog:   csv.NewWriter(scalingFile),
		logFiles:        []*os.File{resultFile, scalingFile},
		Steps:           make([]RunStep, 0),
		Reports:         make(map[string]*RunReport),
		CsvStore:        make(map[string]*CSVData),
		ReportDir:       reportDir,
		sigs:            make(chan os.Signal, 1),
	}, nil
}

// SetupHandleStore opens csv_read and creates csv_write files of a handle
func (m *LoadManager) SetupHandleStore(handle RunnerConfig) error {
	m.CsvMu.Lock()
	defer m.CsvMu.Unlock()
	if name := handle.ReadFromCsvName; name != "" {
		if _, ok := m.CsvStore[name]; !ok {
			log.Infof("opening read file: %s", name)
			f, err := os.Open(name)
			if err != nil {
				return fmt.Errorf("no csv read file found: %s", name)
			}
			m.CsvStore[name] = NewCSVData(f, handle.RecycleData)
		}
	}
	if name := handle.WriteToCsvName; name != "" {
		if _, ok := m.CsvStore[name]; !ok {
			log.Infof("creating write file: %s", name)
			f, err := CreateOrReplaceFile(name)
			if err != nil {
				return err
			}
			m.CsvStore[name] = NewCSVData(f, false)
		}
	}
	return nil
}

func (m *LoadManager) HandleShutdownSignal() {
	signal.Notify(m.sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if _, ok := <-m.sigs; !ok {
			return
		}
		log.Info("exit signal received, exiting")
		if m.SuiteConfig != nil && m.SuiteConfig.GoroutinesDump {
			buf := make([]byte, 1<<20)
			stacklen := runtime.Stack(buf, true)
			log.Infof("=== received SIGTERM ===\n*** goroutine dump...\n%s\n*** end\n", buf[:stacklen])
		}
		m.Shutdown()
		os.Exit(1)
	}()
}

// Shutdown stops all runners, flushes logs and closes csv files
func (m *LoadManager) Shutdown() {
	for _, s := range m.Steps {
		for _, r := range s.Runners {
			r.Shutdown()
		}
	}
	m.CSVLogMu.Lock()
	m.CSVLog.Flush()
	m.RPSScalingLog.Flush()
	m.CSVLogMu.Unlock()
	m.CsvMu.Lock()
	for name, s := range m.CsvStore {
		s.Lock()
		if err := s.Close(); err != nil {
			log.Errorf("failed to close csv %s: %s", name, err)
		}
		s.Unlock()
		delete(m.CsvStore, name)
	}
	m.CsvMu.Unlock()
}

// Close shuts down and closes csv logs, manager can't be used after
func (m *LoadManager) Close() {
	signal.Stop(m.sigs)
	m.Shutdown()
	for _, f := range m.logFiles {
		f.Close()
	}
}

// RunSuite starts suite and wait for all generator to shutdown
func (m *LoadManager) RunSuite() error {
	m.HandleShutdownSignal()

	t := timeNow()
	startTime := epochNowMillis(t)
	hrStartTime := timeHumanReadable(t, m.timezone())

	for _, step := range m.Steps {
		log.Infof("running step: %s, execution mode: %s", step.Name, step.ExecutionMode)
		switch step.ExecutionMode {
		case ParallelMode:
			var g errgroup.Group
			for _, r := range step.Runners {
				r := r
				g.Go(func() error {
					if err := r.SetupHandleStore(m); err != nil {
						return err
					}
					m.storeReport(r.name, r.Run())
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		case SequenceMode:
			for _, r := range step.Runners {
				if err := r.SetupHandleStore(m); err != nil {
					return err
				}
				m.storeReport(r.name, r.Run())
			}
		case SequenceValidateMode:
			for _, r := range step.Runners {
				if err := r.SetupHandleStore(m); err != nil {
					return err
				}
				m.storeReport(r.name, r.Run())
				r.SetValidationParams()
				m.storeReport(r.name+"-validation", r.Run())
			}
		default:
			return fmt.Errorf("step %s: please set execution_mode, parallel, sequence or sequence_validate", step.Name)
		}
	}
	if m.GeneratorConfig != nil && m.GeneratorConfig.Grafana.URL != "" {
		t = timeNow()
		TimerangeUrl(m.GeneratorConfig.Grafana.URL, startTime, epochNowMillis(t))
		HumanReadableTestInterval(hrStartTime, timeHumanReadable(t, m.timezone()))
	}
	m.Shutdown()
	return nil
}

func (m *LoadManager) timezone() string {
	if m.GeneratorConfig == nil || m.GeneratorConfig.Timezone == "" {
		return "UTC"
	}
	return m.GeneratorConfig.Timezone
}

func (m *LoadManager) storeReport(name string, r *RunReport) {
	m.reportsMu.Lock()
	defer m.reportsMu.Unlock()
	m.Reports[name] = r
	if r.Failed {
		m.Failed = true
	}
}

func (m *LoadManager) markFailed(validation bool) {
	m.reportsMu.Lock()
	defer m.reportsMu.Unlock()
	m.Failed = true
	if validation {
		m.ValidationFailed = true
	}
}

func (m *LoadManager) CsvForHandle(name string) (*CSVData, error) {
	m.CsvMu.Lock()
	defer m.CsvMu.Unlock()
	s, ok := m.CsvStore[name]
	if !ok {
		return nil, fmt.Errorf("no csv storage file found for: %s", name)
	}
	return s, nil
}

// WriteResultLog appends a row to result csv
func (m *LoadManager) WriteResultLog(entry []string) {
	m.CSVLogMu.Lock()
	defer m.CSVLogMu.Unlock()
	if err := m.CSVLog.Write(entry); err != nil {
		log.Errorf("failed to write result log: %s", err)
	}
}

// WriteScalingLog appends a row to scaling csv: handle, nodes, max rps
func (m *LoadManager) WriteScalingLog(entry []string) {
	m.CSVLogMu.Lock()
	defer m.CSVLogMu.Unlock()
	if err := m.RPSScalingLog.Write(entry); err != nil {
		log.Errorf("failed to write scaling log: %s", err)
	}
	m.RPSScalingLog.Flush()
}

// StoreHandleReports stores report for every handle in suite
func (m *LoadManager) StoreHandleReports() error {
	m.reportsMu.Lock()
	defer m.reportsMu.Unlock()
	ts := time.Now().Unix()
	for handleName, r := range m.Reports {
		b, err := json.MarshalIndent(r, "", "    ")
		if err != nil {
			return err
		}
		repPath := filepath.Join(m.ReportDir, fmt.Sprintf(ReportFileTmpl, handleName, ts))
		log.Infof("writing report for handle [%s] in %s", handleName, repPath)
		if err := ioutil.WriteFile(repPath, b, 0644); err != nil {
			return err
		}
		if !m.Degradation && !r.Failed {
			if err := m.WriteLastSuccess(handleName, ts); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteLastSuccess writes ts of last successful run for handle
func (m *LoadManager) WriteLastSuccess(handleName string, ts int64) error {
	lastSuccessFile := filepath.Join(m.ReportDir, handleName+"_last")
	return ioutil.WriteFile(lastSuccessFile, []byte(strconv.FormatInt(ts, 10)), 0644)
}

// CheckErrors marks suite failed when any label of any handle has errors
func (m *LoadManager) CheckErrors() {
	m.reportsMu.Lock()
	defer m.reportsMu.Unlock()
	for handleName, currentReport := range m.Reports {
		for label, metrics := range currentReport.Metrics {
			if len(metrics.Errors) > 0 {
				log.Infof("handle [%s] label [%s] has errors: %d distinct", handleName, label, len(metrics.Errors))
				m.Failed = true
			}
		}
	}
}

// CheckDegradation compares p50 of every label to the last successful run stored in *handle_name*_last file
func (m *LoadManager) CheckDegradation(handleThreshold float64) error {
	m.reportsMu.Lock()
	defer m.reportsMu.Unlock()
	for handleName, currentReport := range m.Reports {
		lastReport, err := m.LastSuccessReportForHandle(handleName)
		if os.IsNotExist(err) {
			log.Infof("nothing to compare for %s handle, no reports in %s", handleName, m.ReportDir)
			continue
		}
		if err != nil {
			return err
		}
		for _, label := range sortedLabels(currentReport.Metrics) {
			last, ok := lastReport.Metrics[label]
			if !ok || last.Latencies.P50 == 0 {
				continue
			}
			currentMean := currentReport.Metrics[label].Latencies.P50 / time.Millisecond
			lastMean := last.Latencies.P50 / time.Millisecond
			ratio := float64(currentReport.Metrics[label].Latencies.P50) / float64(last.Latencies.P50)
			log.Infof("[ %s / %s ] current: %dms, last: %dms, ratio: %f", handleName, label, currentMean, lastMean, ratio)
			if ratio >= handleThreshold {
				log.Infof("p50 degradation of %s handle label %s: %d > %d", handleName, label, currentMean, lastMean)
				m.Degradation = true
			}
		}
	}
	return nil
}

// LastSuccessReportForHandle gets last successful report for a handle
func (m *LoadManager) LastSuccessReportForHandle(handleName string) (*RunReport, error) {
	lastTs, err := ioutil.ReadFile(filepath.Join(m.ReportDir, handleName+"_last"))
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s-%s.json", handleName, strings.TrimSpace(string(lastTs)))
	data, err := ioutil.ReadFile(filepath.Join(m.ReportDir, name))
	if err != nil {
		return nil, fmt.Errorf("last success report %s: %w", name, err)
	}
	var runReport RunReport
	if err := json.Unmarshal(data, &runReport); err != nil {
		return nil, fmt.Errorf("last success report %s: %w", name, err)
	}
	return &runReport, nil
}

func createFileOrAppend(fname string) (*os.File, error) {
	return os.OpenFile(fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func CreateOrReplaceFile(fname string) (*os.File, error) {
	fpath, err := filepath.Abs(fname)
	if err != nil {
		return nil, err
	}
	_ = os.Remove(fpath)
	return os.Create(fpath)
}

// createDirIfNotExists create dir if not exists recursively
func createDirIfNotExists(dirPath string) error {
	return os.MkdirAll(dirPath, os.ModePerm)
}

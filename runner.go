package loadgen

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/rcrowley/go-metrics"
	"go.uber.org/ratelimit"
)

// BeforeRunner can be implemented by an Attacker
// and its method is called before a test or Run.
type BeforeRunner interface {
	BeforeRun(c RunnerConfig) error
}

// AfterRunner can be implemented by an Attacker
// and its method is called after a test or Run.
// The report is passed to compute the Failed field and/or store values in Output.
type AfterRunner interface {
	AfterRun(r *RunReport) error
}

type RuntimeCheckFunc func(r *Runner) bool

const (
	rampUp int = iota
	constantLoad
)

// Default runner runtime check types
const (
	prometheusCheckType = "prometheus"
	errorRatioCheckType = "error"
)

type Runner struct {
	name      string
	TestStage int
	Manager   *LoadManager
	Config    RunnerConfig
	prototype Attack

	shutdownMu  *sync.Mutex
	running     bool
	failed      bool // if tests are failed for any reason
	attackers   []Attack
	attackersWg *sync.WaitGroup
	next        chan bool
	// quit and stop are closed on shutdown
	quit, stop  chan bool
	results     chan result
	collected   chan struct{}
	usersCtx    context.Context
	usersCancel context.CancelFunc

	// Checks whether to stop generator
	checkFunc   RuntimeCheckFunc
	customCheck RuntimeCheckFunc
	CheckData   []Checks

	// Other clients for checks
	PromClient v1.API

	// Metrics
	// registeredMu guards registeredMetricsLabels, timers and error counters register under different locks
	registeredMu            *sync.Mutex
	registeredMetricsLabels []string
	metricsMu               *sync.Mutex
	RateLog                 []float64
	MaxRPS                  float64
	// rampMetrics store only rampup interval metrics, cleared every interval
	rampMetrics *Metrics
	// Metrics store full attack metrics per request label
	Metrics               map[string]*Metrics
	intervalRequests      int64
	skips                 int64
	startedAt             time.Time
	timerMu               *sync.RWMutex
	timers                map[string]metrics.Timer
	errorsMu              *sync.RWMutex
	Errors                map[string]metrics.Counter
	goroutinesCountGaugue metrics.Gauge
	goroutinesCount       int64

	L *Logger
}

// NewRunner creates a runner for one handle, lm may be nil when no suite data is needed
func NewRunner(name string, lm *LoadManager, a Attack, ch RuntimeCheckFunc, c RunnerConfig) (*Runner, error) {
	if msg := c.Validate(); len(msg) > 0 {
		return nil, fmt.Errorf("handle %s configuration errors: %v", name, msg)
	}
	var promClient v1.API
	if lm != nil && lm.GeneratorConfig != nil && lm.GeneratorConfig.Prometheus != nil && lm.GeneratorConfig.Prometheus.URL != "" {
		promC, err := api.NewClient(api.Config{
			Address: lm.GeneratorConfig.Prometheus.URL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to setup prometheus client: %w", err)
		}
		promClient = v1.NewAPI(promC)
	}
	r := &Runner{
		name:      name,
		Manager:   lm,
		Config:    c,
		prototype: a,

		checkFunc:   ch,
		customCheck: ch,
		CheckData:   c.StopIf,

		PromClient: promClient,
		RateLog:    []float64{},

		shutdownMu:  &sync.Mutex{},
		attackersWg: &sync.WaitGroup{},

		registeredMu:            &sync.Mutex{},
		registeredMetricsLabels: make([]string, 0),
		metricsMu:               &sync.Mutex{},
		Metrics:                 make(map[string]*Metrics),
		timerMu:                 &sync.RWMutex{},
		timers:                  make(map[string]metrics.Timer),
		errorsMu:                &sync.RWMutex{},
		Errors:                  make(map[string]metrics.Counter),
		goroutinesCount:         0,
		goroutinesCountGaugue:   metrics.NewGauge(),

		L: log.Named("runner", name),
	}
	r.L.Infof("bootstraping generator, mode [%s]", c.mode())
	r.L.Infof("[%d] available logical CPUs", runtime.NumCPU())
	return r, nil
}

// Name handle name of the runner
func (r *Runner) Name() string {
	return r.name
}

// reset prepares channels and metrics for a new Run
func (r *Runner) reset() {
	r.failed = false
	r.checkFunc = r.customCheck
	r.CheckData = r.Config.StopIf
	r.attackers = []Attack{}
	r.next = make(chan bool)
	r.quit = make(chan bool)
	r.stop = make(chan bool)
	r.results = make(chan result)
	r.collected = make(chan struct{})
	r.usersCtx, r.usersCancel = context.WithCancel(context.Background())

	r.metricsMu.Lock()
	r.TestStage = rampUp
	r.Metrics = make(map[string]*Metrics)
	r.rampMetrics = nil
	r.RateLog = []float64{}
	r.metricsMu.Unlock()
	atomic.StoreInt64(&r.intervalRequests, 0)
	atomic.StoreInt64(&r.skips, 0)
}

func (r *Runner) setStage(stage int) {
	r.metricsMu.Lock()
	r.TestStage = stage
	r.metricsMu.Unlock()
}

func (r *Runner) isStopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// sleepOrStop sleeps for d, returns false if the runner was stopped meanwhile
func (r *Runner) sleepOrStop(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-r.stop:
		return false
	case <-t.C:
		return true
	}
}

func (r *Runner) newAttacker() (Attack, bool) {
	if r.Config.Verbose {
		r.L.Infof("setup and spawn new attacker [%d]", len(r.attackers)+1)
	}
	attacker := r.prototype.Clone(r)
	if err := attacker.Setup(r.Config); err != nil {
		r.L.Infof("attacker [%d] setup failed with [%v]", len(r.attackers)+1, err)
		return nil, false
	}
	r.attackers = append(r.attackers, attacker)
	r.attackersWg.Add(1)
	return attacker, true
}

// spawnAttacker starts an attacker waiting for rate limiter tokens
func (r *Runner) spawnAttacker() {
	r.shutdownMu.Lock()
	defer r.shutdownMu.Unlock()
	if !r.running {
		return
	}
	attacker, ok := r.newAttacker()
	if !ok {
		return
	}
	next, quit, results, timeout := r.next, r.quit, r.results, r.Config.timeout()
	go func() {
		defer r.attackersWg.Done()
		attack(attacker, next, quit, results, timeout)
	}()
}

// spawnUser starts an attacker acting as a simulated user with its own think time
func (r *Runner) spawnUser() {
	r.shutdownMu.Lock()
	defer r.shutdownMu.Unlock()
	if !r.running {
		return
	}
	attacker, ok := r.newAttacker()
	if !ok {
		return
	}
	rnd := newRand()
	think := func() time.Duration {
		return r.Config.ThinkTime.Sample(rnd)
	}
	ctx, results, timeout := r.usersCtx, r.results, r.Config.timeout()
	go func() {
		defer r.attackersWg.Done()
		simulateUser(ctx, attacker, think, results, timeout)
	}()
}

// addResult is called from a dedicated goroutine.
func (r *Runner) addResult(s result) {
	observeResult(r.name, s.doResult)
	atomic.AddInt64(&r.skips, int64(s.doResult.Skips))
	if s.doResult.Skipped {
		return
	}
	atomic.AddInt64(&r.intervalRequests, 1)
	r.metricsMu.Lock()
	defer r.metricsMu.Unlock()
	m, ok := r.Metrics[s.doResult.RequestLabel]
	if !ok {
		m = newMetrics()
		r.Metrics[s.doResult.RequestLabel] = m
	}
	m.add(s)
	if r.rampMetrics != nil {
		r.rampMetrics.add(s)
	}
}

// Probe uses the Attack to perform {count} calls and report its result
// it is intended for development of an Attack implementation.
func (r *Runner) Probe(count int) {
	probe := r.prototype.Clone(r)
	if err := probe.Setup(r.Config); err != nil {
		r.L.Infof("test attack setup failed [%v]", err)
		return
	}
	defer probe.Teardown()
	for s := count; s > 0; s-- {
		now := time.Now()
		result := probe.Do(context.Background())
		r.L.Infof("test attack call [%s] took [%v] with status [%v] and error [%v]", result.RequestLabel, time.Since(now), result.StatusCode, result.Error)
	}
}

// SetupHandleStore opens csv files declared by the handle
func (r *Runner) SetupHandleStore(m *LoadManager) error {
	return m.SetupHandleStore(r.Config)
}

// defaultCheckByData setups default prometheus or error ration check func
func (r *Runner) defaultCheckByData() {
	if r.checkFunc != nil {
		r.L.Info("custom check selected, see code in checks.go")
		return
	}
	if len(r.CheckData) == 0 {
		r.L.Info("no default check found")
		return
	}
	switch r.CheckData[0].Type {
	case prometheusCheckType:
		if r.PromClient == nil {
			r.L.Infof("prometheus check selected but no prometheus url is configured, skipping runner runtime check")
			return
		}
		r.L.Infof("default prometheus check selected, query: %s", r.CheckData[0].Query)
		r.checkFunc = func(r *Runner) bool {
			return PromBooleanQuery(r)
		}
	case errorRatioCheckType:
		r.L.Infof("default error check selected, threshold: %.2f perc errors", r.CheckData[0].Threshold)
		r.checkFunc = func(r *Runner) bool {
			return ErrorPercentCheck(r, r.CheckData[0].Threshold)
		}
	default:
		r.L.Infof("unknown check type selected, skipping runner runtime check")
	}
}

// Run offers the complete flow of a test.
func (r *Runner) Run() *RunReport {
	r.reset()
	if lifecycler, ok := r.prototype.(BeforeRunner); ok {
		if err := lifecycler.BeforeRun(r.Config); err != nil {
			r.L.Infof("BeforeRun failed: %s", err)
		}
	}
	r.collectResults()
	r.initMonitoring()

	if r.Config.WaitBeforeSec != 0 {
		r.L.Infof("awaiting runner start, sleeping for %d sec", r.Config.WaitBeforeSec)
		time.Sleep(time.Duration(r.Config.WaitBeforeSec) * time.Second)
	}
	r.shutdownMu.Lock()
	r.running = true
	r.shutdownMu.Unlock()
	r.startedAt = time.Now()
	r.trackRate()
	r.defaultCheckByData()
	r.checkStopIf()
	switch r.Config.mode() {
	case ModeUsers:
		if r.spawnUsers() {
			r.holdUsers()
		}
	default:
		if r.rampUp() {
			r.fullAttack()
		}
	}
	r.Shutdown()
	<-r.collected
	r.ReportMaxRPS()
	report := r.reportMetrics()
	if lifecycler, ok := r.prototype.(AfterRunner); ok {
		if err := lifecycler.AfterRun(report); err != nil {
			r.L.Infof("AfterRun failed: %s", err)
		}
	}
	return report
}

func (r *Runner) SetValidationParams() {
	r.Config.IsValidationRun = true
	r.Config.AttackTimeSec = r.Config.Validation.AttackTimeSec
	r.Config.RampUpTimeSec = 1
	r.Config.StoreData = false
	rpsWithNoErrors := int(r.Config.Validation.Threshold * r.MaxRPS)
	if rpsWithNoErrors == 0 {
		rpsWithNoErrors = 1
	}
	r.Config.Mode = ModeRPS
	r.Config.RPS = rpsWithNoErrors
	r.L.Infof("running validation of max rps: %d for %d seconds", r.Config.RPS, r.Config.AttackTimeSec)
}

func (r *Runner) initMonitoring() {
	if r.Manager == nil || r.Manager.GeneratorConfig == nil {
		return
	}
	g := r.Manager.GeneratorConfig.Graphite
	if g.URL == "" {
		return
	}
	StartGraphiteSender(g.LoadGeneratorPrefix, time.Duration(g.FlushIntervalSec), g.URL)
	r.registerMetric("goroutines-"+r.name, r.goroutinesCountGaugue)
}

func (r *Runner) registerLabelTimings(label string) metrics.Timer {
	r.timerMu.RLock()
	timer, ok := r.timers[label]
	r.timerMu.RUnlock()
	if ok {
		return timer
	}
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if timer, ok = r.timers[label]; ok {
		return timer
	}
	timer = metrics.NewTimer()
	r.timers[label] = timer
	r.registerMetric(label+"-timer", timer)
	return timer
}

func (r *Runner) registerErrCount(label string) metrics.Counter {
	r.errorsMu.RLock()
	cnt, ok := r.Errors[label]
	r.errorsMu.RUnlock()
	if ok {
		return cnt
	}
	r.errorsMu.Lock()
	defer r.errorsMu.Unlock()
	if cnt, ok = r.Errors[label]; ok {
		return cnt
	}
	cnt = metrics.NewCounter()
	r.Errors[label] = cnt
	r.registerMetric(label+"-err", cnt)
	return cnt
}

func (r *Runner) registerMetric(name string, metric interface{}) {
	r.registeredMu.Lock()
	defer r.registeredMu.Unlock()
	r.registeredMetricsLabels = append(r.registeredMetricsLabels, name)
	if err := metrics.Register(name, metric); err != nil {
		r.L.Infof("failed to register metric: %s", err)
	}
}

func (r *Runner) fullAttack() {
	r.setStage(constantLoad)
	if r.Config.Verbose {
		r.L.Infof("begin full attack of [%d] remaining seconds", r.Config.AttackTimeSec-r.Config.RampUpTimeSec)
	}
	limiter := ratelimit.New(r.Config.RPS) // per second
	doneDeadline := time.Now().Add(time.Duration(r.Config.AttackTimeSec-r.Config.RampUpTimeSec) * time.Second)
	for time.Now().Before(doneDeadline) {
		limiter.Take()
		select {
		case r.next <- true:
		case <-r.stop:
			return
		}
	}
	if r.Config.Verbose {
		r.L.Info("end full attack")
	}
}

func (r *Runner) rampUp() bool {
	r.setStage(rampUp)
	strategy := r.Config.rampupStrategy()
	if r.Config.Verbose {
		r.L.Infof("begin rampup of [%d] seconds to RPS [%d] within attack of [%d] seconds using strategy [%s]",
			r.Config.RampUpTimeSec,
			r.Config.RPS,
			r.Config.AttackTimeSec,
			strategy,
		)
	}
	var finished bool
	switch strategy {
	case "linear":
		finished = linearIncreasingGoroutinesAndRequestsPerSecondStrategy{}.execute(r)
	default:
		finished = spawnAsWeNeedStrategy{}.execute(r)
	}
	r.metricsMu.Lock()
	r.rampMetrics = nil
	r.metricsMu.Unlock()
	if r.Config.Verbose {
		r.L.Infof("end rampup ending up with [%d] attackers", len(r.attackers))
	}
	return finished
}

// spawnUsers ramps simulated users up linearly
func (r *Runner) spawnUsers() bool {
	r.setStage(rampUp)
	r.L.Infof("begin spawning [%d] users in [%d] seconds, think time [%d..%d] ms",
		r.Config.MaxAttackers,
		r.Config.RampUpTimeSec,
		r.Config.ThinkTime.MinMs,
		r.Config.ThinkTime.MaxMs,
	)
	return linearUsersStrategy{}.execute(r)
}

// holdUsers keeps the users running for the rest of the attack time
func (r *Runner) holdUsers() {
	r.setStage(constantLoad)
	remaining := time.Duration(r.Config.AttackTimeSec-r.Config.RampUpTimeSec) * time.Second
	if r.Config.Verbose {
		r.L.Infof("holding [%d] users for [%s]", len(r.attackers), remaining)
	}
	r.sleepOrStop(remaining)
}

func (r *Runner) tearDownAttackers() {
	if r.Config.Verbose {
		r.L.Infof("tearing down attackers [%d]", len(r.attackers))
	}
	for i, each := range r.attackers {
		if err := each.Teardown(); err != nil {
			r.L.Infof("failed to teardown attacker [%d]:%v", i, err)
		}
	}
}

func (r *Runner) unregisterMetrics() {
	r.registeredMu.Lock()
	for _, m := range r.registeredMetricsLabels {
		metrics.Unregister(m)
	}
	r.registeredMetricsLabels = nil
	r.registeredMu.Unlock()
	r.timerMu.Lock()
	r.timers = make(map[string]metrics.Timer)
	r.timerMu.Unlock()
	r.errorsMu.Lock()
	r.Errors = make(map[string]metrics.Counter)
	r.errorsMu.Unlock()
}

func (r *Runner) reportMetrics() *RunReport {
	r.metricsMu.Lock()
	defer r.metricsMu.Unlock()
	for _, each := range r.Metrics {
		each.updateLatencies()
		each.updateSuccessRatio()
	}
	return &RunReport{
		StartedAt:     r.startedAt,
		FinishedAt:    time.Now(),
		Configuration: r.Config,
		Metrics:       r.Metrics,
		MaxRPS:        r.MaxRPS,
		Skips:         atomic.LoadInt64(&r.skips),
		Failed:        r.failed,
		Output:        map[string]interface{}{},
	}
}

func (r *Runner) collectResults() {
	results, collected := r.results, r.collected
	go func() {
		defer close(collected)
		for res := range results {
			r.addResult(res)
		}
	}()
}

// trackRate logs the amount of requests done in every second of the run
func (r *Runner) trackRate() {
	stop := r.stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				n := atomic.SwapInt64(&r.intervalRequests, 0)
				r.metricsMu.Lock()
				r.RateLog = append(r.RateLog, float64(n))
				r.metricsMu.Unlock()
			}
		}
	}()
}

// errorRatio ratio of failed requests of the current stage over all labels
func (r *Runner) errorRatio() float64 {
	r.metricsMu.Lock()
	defer r.metricsMu.Unlock()
	if r.TestStage == rampUp && r.rampMetrics != nil {
		r.rampMetrics.updateSuccessRatio()
		return r.rampMetrics.ErrorRatio()
	}
	var total, ok int64
	for _, m := range r.Metrics {
		total += m.Requests
		ok += m.success
	}
	if total == 0 {
		return 0
	}
	return 1 - float64(ok)/float64(total)
}

func (r *Runner) ReportMaxRPS() {
	r.metricsMu.Lock()
	r.MaxRPS = MaxRPS(r.RateLog)
	r.metricsMu.Unlock()
	r.L.Infof("max rps: %.2f", r.MaxRPS)
	if r.Config.IsValidationRun && !r.failed && r.Manager != nil {
		entry := []string{r.name, os.Getenv("NETWORK_NODES"), fmt.Sprintf("%.2f", r.MaxRPS)}
		r.L.Infof("writing scaling info: %s", entry)
		r.Manager.WriteScalingLog(entry)
	}
}

// Shutdown stops attackers, waits for them and tears them down, it is safe to call it many times
func (r *Runner) Shutdown() {
	r.shutdownMu.Lock()
	defer r.shutdownMu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	r.L.Infof("test ended, shutting down runner")
	close(r.stop)
	close(r.quit)
	r.usersCancel()
	r.attackersWg.Wait()
	close(r.results)
	r.checkFunc = nil
	r.tearDownAttackers()
	r.unregisterMetrics()
}

// checkStopIf executing check function, shutdown if it returns true
func (r *Runner) checkStopIf() {
	check := r.checkFunc
	if check == nil {
		return
	}
	stop := r.stop
	interval := time.Second
	if len(r.CheckData) > 0 && r.CheckData[0].Interval > 0 {
		interval = time.Duration(r.CheckData[0].Interval) * time.Second
	}
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if check(r) {
					r.L.Infof("runtime check failed, exiting")
					r.failed = true
					if r.Manager != nil {
						r.Manager.markFailed(r.Config.IsValidationRun)
					}
					r.Shutdown()
					return
				}
			}
		}
	}()
}

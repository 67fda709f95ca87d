package loadgen

import (
	"math"
	"time"

	"go.uber.org/ratelimit"
)

const defaultRampupStrategy = "exp2"

type rampupStrategy interface {
	execute(r *Runner) bool
}

var (
	_ rampupStrategy = linearIncreasingGoroutinesAndRequestsPerSecondStrategy{}
	_ rampupStrategy = spawnAsWeNeedStrategy{}
	_ rampupStrategy = linearUsersStrategy{}
)

type linearIncreasingGoroutinesAndRequestsPerSecondStrategy struct{}

func (s linearIncreasingGoroutinesAndRequestsPerSecondStrategy) execute(r *Runner) bool {
	r.spawnAttacker()
	for i := 1; i <= r.Config.RampUpTimeSec; i++ {
		if r.isStopped() {
			return false
		}
		spawnAttackersToSize(r, i*r.Config.MaxAttackers/r.Config.RampUpTimeSec)
		takeDuringOneRampupSecond(r, i)
	}
	return true
}

func spawnAttackersToSize(r *Runner, count int) {
	routines := count
	if count > r.Config.MaxAttackers {
		routines = r.Config.MaxAttackers
	}
	// spawn extra goroutines
	for s := len(r.attackers); s < routines; s++ {
		if r.isStopped() {
			return
		}
		r.spawnAttacker()
	}
}

// takeDuringOneRampupSecond puts all attackers to work during one second with a reduced RPS.
func takeDuringOneRampupSecond(r *Runner, second int) (int, *Metrics) {
	// collect Metrics for each second
	rampMetrics := newMetrics()
	// rampup can only proceed when at least one attacker is waiting for rps tokens
	if len(r.attackers) == 0 {
		r.L.Info("no attackers available to start rampup or full attack")
		return 0, rampMetrics
	}
	r.metricsMu.Lock()
	r.rampMetrics = rampMetrics
	r.metricsMu.Unlock()
	// for each second start a new reduced rate limiter
	rps := second * r.Config.RPS / r.Config.RampUpTimeSec
	if rps == 0 { // minimal 1
		rps = 1
	}
	limiter := ratelimit.New(rps)
	oneSecondAhead := time.Now().Add(1 * time.Second)
	// put the attackers to work
	for time.Now().Before(oneSecondAhead) {
		limiter.Take()
		select {
		case <-r.stop:
			return rps, rampMetrics
		case r.next <- true:
		}
	}
	limiter.Take() // to compensate for the first Take of the new limiter

	r.metricsMu.Lock()
	rampMetrics.updateLatencies()
	rampMetrics.updateSuccessRatio()
	rate, mean, requests, success := rampMetrics.Rate, rampMetrics.meanLogEntry(), rampMetrics.Requests, rampMetrics.successLogEntry()
	r.metricsMu.Unlock()

	if r.Config.Verbose {
		r.L.Infof("rate [%4f -> %v], mean response [%v], # requests [%d], # attackers [%d], %% success [%d]",
			rate, rps, mean, requests, len(r.attackers), success)
	}
	return rps, rampMetrics
}

type spawnAsWeNeedStrategy struct{}

func (s spawnAsWeNeedStrategy) execute(r *Runner) bool {
	r.spawnAttacker() // start at least one
	for i := 1; i <= r.Config.RampUpTimeSec; i++ {
		if r.isStopped() {
			return false
		}
		targetRate, lastMetrics := takeDuringOneRampupSecond(r, i)
		r.metricsMu.Lock()
		currentRate := lastMetrics.Rate
		r.metricsMu.Unlock()
		if currentRate < float64(targetRate) {
			factor := 2.0
			if currentRate > 0 {
				factor = math.Min(float64(targetRate)/currentRate, 2.0)
			}
			spawnAttackersToSize(r, int(math.Ceil(float64(len(r.attackers))*factor)))
		}
	}
	return true
}

// linearUsersStrategy adds simulated users every second until MaxAttackers users run
type linearUsersStrategy struct{}

func (s linearUsersStrategy) execute(r *Runner) bool {
	for i := 1; i <= r.Config.RampUpTimeSec; i++ {
		if r.isStopped() {
			return false
		}
		target := i * r.Config.MaxAttackers / r.Config.RampUpTimeSec
		if target == 0 {
			target = 1
		}
		for s := len(r.attackers); s < target && !r.isStopped(); s++ {
			r.spawnUser()
		}
		if r.Config.Verbose {
			r.L.Infof("users [%d/%d]", len(r.attackers), r.Config.MaxAttackers)
		}
		if !r.sleepOrStop(time.Second) {
			return false
		}
	}
	return true
}

package loadgen

import (
	"context"
	"strconv"
	"time"
)

const (
	resultOK  = "ok"
	resultErr = "err"
)

// CSVMonitored writes one row per request into the suite result csv:
// label, begin (unix ms), elapsed (ms), ok|err
type CSVMonitored struct {
	Attack
}

func WithCSVMonitor(a Attack) CSVMonitored {
	return CSVMonitored{a}
}

func (m CSVMonitored) Do(ctx context.Context) DoResult {
	before := time.Now()
	result := m.Attack.Do(ctx)
	lm := m.GetManager()
	if result.Skipped || lm == nil {
		return result
	}
	status := resultOK
	if result.failed() {
		status = resultErr
	}
	entry := []string{
		result.RequestLabel,
		strconv.FormatInt(epochNowMillis(before), 10),
		strconv.FormatInt(time.Since(before).Milliseconds(), 10),
		status,
	}
	lm.WriteResultLog(entry)
	return result
}

func (m CSVMonitored) Clone(r *Runner) Attack {
	return CSVMonitored{m.Attack.Clone(r)}
}

package loadgen

import (
	"context"
	"sync/atomic"
	"time"
)

type attackMock struct {
	WithRunner
	sleep  time.Duration
	result DoResult
	calls  *int64
}

func newAttackMock(sleep time.Duration, res DoResult) *attackMock {
	return &attackMock{sleep: sleep, result: res, calls: new(int64)}
}

func (m *attackMock) Setup(c RunnerConfig) error {
	return nil
}

func (m *attackMock) Do(ctx context.Context) DoResult {
	atomic.AddInt64(m.calls, 1)
	select {
	case <-time.After(m.sleep):
	case <-ctx.Done():
	}
	return m.result
}

func (m *attackMock) Clone(r *Runner) Attack {
	return &attackMock{
		WithRunner: WithRunner{R: r},
		sleep:      m.sleep,
		result:     m.result,
		calls:      m.calls,
	}
}

func (m *attackMock) Calls() int64 {
	return atomic.LoadInt64(m.calls)
}

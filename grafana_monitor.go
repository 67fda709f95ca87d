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
	"context"
	"sync/atomic"
	"time"
)

// Monitored reports per label timings and error counts to the graphite registry
type Monitored struct {
	Attack
}

func WithMonitor(a Attack) Monitored {
	return Monitored{a}
}

func (m Monitored) Do(ctx context.Context) DoResult {
	r := m.GetRunner()
	if r == nil {
		return m.Attack.Do(ctx)
	}
	if r.Config.DebugSleep != 0 {
		time.Sleep(time.Duration(r.Config.DebugSleep) * time.Millisecond)
	}
	before := time.Now()
	result := m.Attack.Do(ctx)
	if result.Skipped {
		return result
	}
	r.registerLabelTimings(result.RequestLabel).Update(time.Since(before))
	if result.failed() {
		r.registerErrCount(result.RequestLabel).Inc(1)
	}
	return result
}

func (m Monitored) Clone(r *Runner) Attack {
	n := atomic.AddInt64(&r.goroutinesCount, 1)
	r.goroutinesCountGaugue.Update(n)
	return Monitored{m.Attack.Clone(r)}
}

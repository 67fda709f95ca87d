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
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

// PromBooleanQuery executes prometheus boolean query, true means the runner must stop
func PromBooleanQuery(r *Runner) bool {
	q := r.CheckData[0].Query
	r.L.Infof("executing prometheus check: query: %s", q)
	if !strings.Contains(q, "bool") {
		r.L.Errorf("only bool requests are allowed with default prometheus check, stopping runner")
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	val, _, err := r.PromClient.Query(ctx, q, time.Now())
	if err != nil {
		r.L.Errorf("error executing prometheus query: %s, err: %s", q, err)
		return true
	}
	r.L.Infof("check result: %s, val type: %s", val, val.Type())
	return boolQueryResult(r.L, val)
}

func boolQueryResult(l *Logger, val model.Value) bool {
	switch val.Type() {
	case model.ValScalar:
		return val.(*model.Scalar).Value == 1
	case model.ValVector:
		vectorVal := val.(model.Vector)
		if len(vectorVal) == 0 {
			return false
		}
		if len(vectorVal) > 1 {
			l.Errorf("ambigious default check, prometheus request must be bool and return one vector or scalar, stopping runner")
			return true
		}
		return vectorVal[0].Value == 1
	}
	return false
}

// ErrorPercentCheck true when the ratio of failed requests in the current stage exceeds threshold
func ErrorPercentCheck(r *Runner, threshold float64) bool {
	ratio := r.errorRatio()
	if ratio > threshold {
		r.L.Infof("error ratio %.2f exceeds threshold %.2f", ratio, threshold)
		return true
	}
	return false
}

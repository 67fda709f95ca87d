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
	"fmt"
	"os"
	"os/exec"
)

const (
	suiteBinaryName = "./load_suite"
	suiteMain       = "./load/cmd/load"
)

// BuildSuiteCommand builds the suite binary for platform, ex.: linux | darwin
func BuildSuiteCommand(platform string, out string) error {
	if platform != "linux" && platform != "darwin" {
		return fmt.Errorf("platform must be one of: linux|darwin, got %s", platform)
	}
	if out == "" {
		out = suiteBinaryName
	}
	cmd := exec.Command("go", "build", "-o", out, suiteMain)
	cmd.Env = append(os.Environ(), "GOOS="+platform)
	res, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to build suite: out: %s err: %w", res, err)
	}
	log.Infof("suite binary built: %s", out)
	return nil
}

package load

import (
	"strings"

	loadgen "github.com/skudasov/graphsense-loadgen"
)

const (
	strictSuffix = "_strict"
	// strictErrorRatio stop threshold of strict handles
	strictErrorRatio = 0.01
)

// CheckFromName custom runtime check for a handle, handles ending with _strict stop on 1% errors,
// others use stop_if from the suite config
func CheckFromName(name string) loadgen.RuntimeCheckFunc {
	switch {
	case strings.HasSuffix(name, strictSuffix):
		return func(r *loadgen.Runner) bool {
			return loadgen.ErrorPercentCheck(r, strictErrorRatio)
		}
	default:
		return nil
	}
}

package load

import (
	"strings"

	loadgen "github.com/skudasov/graphsense-loadgen"
)

// WalkerHandle handle names starting with it run the session walker
const WalkerHandle = "graphsense_walker"

// AttackerFromName attacker for a suite handle, nil if the handle is unknown
func AttackerFromName(name string) loadgen.Attack {
	switch {
	case strings.HasPrefix(name, WalkerHandle):
		return loadgen.WithMonitor(loadgen.WithCSVMonitor(NewWalkerPrototype()))
	default:
		return nil
	}
}

package main

import (
	loadgen "github.com/skudasov/graphsense-loadgen"
	"github.com/skudasov/graphsense-loadgen/load"
)

func main() {
	loadgen.Run(load.AttackerFromName, load.CheckFromName, nil, nil)
}

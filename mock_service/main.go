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

package main

import (
	"flag"
	"time"

	loadgen "github.com/skudasov/graphsense-loadgen"
	"github.com/skudasov/graphsense-loadgen/mockapi"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	currency := flag.String("currency", "btc", "currency served with data")
	blocks := flag.Int64("blocks", 10000, "number of blocks reported by /stats")
	errorRate := flag.Float64("error_rate", 0, "share of requests answered with 500")
	latency := flag.Duration("latency", 0, "latency added to every response")
	flag.Parse()
	s := mockapi.NewServer(mockapi.Config{
		Currency:  *currency,
		NoBlocks:  *blocks,
		ErrorRate: *errorRate,
		Latency:   *latency,
		AccessLog: true,
	})
	log := loadgen.DefaultLogger()
	log.Infof("mock api for %s listening on %s", *currency, *addr)
	start := time.Now()
	if err := s.Start(*addr); err != nil {
		log.Fatalf("mock api stopped after %s: %s", time.Since(start), err)
	}
}
